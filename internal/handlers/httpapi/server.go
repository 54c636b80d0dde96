// Package httpapi exposes the inbound push endpoint the chain-indexing
// service delivers batches to. The HTTP status code is the only signal the
// sender acts on: 200 acknowledges the batch, 400 rejects a malformed payload
// the sender must fix, and 500 asks the sender to retry the whole batch.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gabapcia/hookrelay/internal/chainevent"
	"github.com/gabapcia/hookrelay/internal/dispatch"
	"github.com/gabapcia/hookrelay/internal/pkg/logger"
)

// maxBatchBodyBytes bounds inbound payloads; the upstream caps blocks per
// delivery, so anything larger is noise.
const maxBatchBodyBytes = 32 << 20

// Server receives batch deliveries and hands them to the dispatch engine.
type Server struct {
	dispatcher dispatch.Service
	srv        *http.Server
}

// New builds the inbound server listening on addr.
func New(addr string, dispatcher dispatch.Service) *Server {
	s := &Server{
		dispatcher: dispatcher,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chainhook/events", s.handleBatch)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start begins serving in a background goroutine and returns immediately.
// Serve errors other than a clean shutdown are fatal: an ingestion service
// that cannot listen has nothing else to do.
func (s *Server) Start(ctx context.Context) {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "inbound http server failed", "error", err)
		}
	}()

	logger.Info(ctx, "inbound http server listening", "addr", s.srv.Addr)
}

// Close drains in-flight requests and stops the listener.
func (s *Server) Close(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// handleBatch decodes one delivery and runs it through the dispatch engine.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBatchBodyBytes))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	batch, err := chainevent.DecodeBatch(body)
	if err != nil {
		logger.Warn(ctx, "rejecting malformed batch", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := s.dispatcher.Process(ctx, batch)
	if err != nil {
		switch {
		case errors.Is(err, chainevent.ErrMalformedBatch):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			// Storage failures and busy subscriptions are transient: a 500
			// makes the at-least-once sender redeliver the whole batch, and
			// the duplicate-skip rule absorbs whatever already landed.
			logger.Error(ctx, "batch processing failed",
				"subscription.id", batch.SubscriptionID,
				"error", err,
			)
			http.Error(w, "batch processing failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		logger.Error(ctx, "failed to encode batch outcome", "error", err)
	}
}

// handleHealth is a trivial liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
