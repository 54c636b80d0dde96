// Package dispatch orchestrates batch processing: validate the batch shape,
// resolve the subscription's handlers, reconcile against confirmed state,
// extract typed events from the surviving apply blocks, fan the events and
// retractions out to every handler, and fold the per-handler results into a
// single outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gabapcia/hookrelay/internal/chainevent"
	"github.com/gabapcia/hookrelay/internal/pkg/logger"
	"github.com/gabapcia/hookrelay/internal/pkg/resilience/retry"
	"github.com/gabapcia/hookrelay/internal/pkg/types"
	"github.com/gabapcia/hookrelay/internal/pkg/x/chflow"
	"github.com/gabapcia/hookrelay/internal/reorg"
	"github.com/gabapcia/hookrelay/internal/subroute"

	"github.com/google/uuid"
)

// ErrServiceAlreadyStarted is returned if Start is called more than once.
var ErrServiceAlreadyStarted = errors.New("service already started")

// anomalyChannelBufferSize bounds the pending anomaly notices; Process never
// blocks on the feed.
const anomalyChannelBufferSize = 16

// AnomalyNotice carries a batch's reconciliation anomalies to the monitor.
type AnomalyNotice struct {
	IngestID       string
	SubscriptionID string
	Anomalies      []reorg.Anomaly
}

// AnomalyHandler consumes anomaly notices from the background monitor.
type AnomalyHandler func(ctx context.Context, notice AnomalyNotice)

// Service is the dispatch engine. Start launches the anomaly monitor; Process
// handles one inbound batch end to end. Process works without Start, but
// anomaly notices are then only logged once the feed buffer fills.
type Service interface {
	// Start launches the background anomaly monitor. Returns
	// ErrServiceAlreadyStarted on a second call. Call Close to stop it.
	Start(ctx context.Context) error

	// Close stops the anomaly monitor. Safe to call without Start.
	Close()

	// Process handles one inbound batch. The returned error is non-nil only
	// when the batch could not be processed at all: a malformed payload
	// (chainevent.ErrMalformedBatch), a busy subscription
	// (ErrSubscriptionBusy), or a storage failure. Handler failures and
	// reconciliation anomalies are reported inside the outcome instead.
	Process(ctx context.Context, batch chainevent.Batch) (BatchOutcome, error)
}

type closeFunc func()

type service struct {
	mu        sync.Mutex // protects lifecycle state
	isStarted bool
	closeFunc closeFunc

	router     subroute.Router
	reconciler reorg.Service
	locker     SubscriptionLocker

	retry          retry.Retry // optional, wraps storage-bound reconciler calls
	anomalyCh      chan AnomalyNotice
	anomalyHandler AnomalyHandler
}

var _ Service = (*service)(nil)

// config holds the engine's optional settings.
type config struct {
	retry          retry.Retry
	anomalyHandler AnomalyHandler
}

// Option customizes the dispatch engine.
type Option func(*config)

// WithRetry wraps the reconciler's storage-bound calls with the given retry
// policy, so transient storage hiccups do not immediately fail a batch.
func WithRetry(r retry.Retry) Option {
	return func(c *config) {
		c.retry = r
	}
}

// WithAnomalyHandler replaces the default warn-logging anomaly handler.
func WithAnomalyHandler(h AnomalyHandler) Option {
	return func(c *config) {
		c.anomalyHandler = h
	}
}

// New builds the dispatch engine from its collaborators.
func New(router subroute.Router, reconciler reorg.Service, locker SubscriptionLocker, opts ...Option) *service {
	cfg := config{
		anomalyHandler: defaultAnomalyHandler,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &service{
		router:         router,
		reconciler:     reconciler,
		locker:         locker,
		retry:          cfg.retry,
		anomalyCh:      make(chan AnomalyNotice, anomalyChannelBufferSize),
		anomalyHandler: cfg.anomalyHandler,
	}
}

func defaultAnomalyHandler(ctx context.Context, notice AnomalyNotice) {
	for _, anomaly := range notice.Anomalies {
		logger.Warn(ctx, "reconciliation anomaly",
			"ingest.id", notice.IngestID,
			"subscription.id", notice.SubscriptionID,
			"anomaly.reason", anomaly.Reason,
			"block.height", anomaly.BlockHeight,
			"block.hash", anomaly.BlockHash,
		)
	}
}

// Start implements Service.
func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStarted {
		return ErrServiceAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	go s.monitorAnomalies(ctx)

	s.closeFunc = closeFunc(cancel)
	s.isStarted = true
	return nil
}

// Close implements Service.
func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeFunc != nil {
		s.closeFunc()
	}

	s.closeFunc = nil
	s.isStarted = false
}

// monitorAnomalies drains the anomaly feed until the context is canceled.
func (s *service) monitorAnomalies(ctx context.Context) {
	for {
		notice, ok := chflow.Receive(ctx, s.anomalyCh)
		if !ok {
			return
		}

		s.anomalyHandler(ctx, notice)
	}
}

// Process implements Service.
func (s *service) Process(ctx context.Context, batch chainevent.Batch) (BatchOutcome, error) {
	if err := batch.Validate(); err != nil {
		return BatchOutcome{}, err
	}

	ingestID := uuid.NewString()

	release, err := s.locker.AcquireSubscription(ctx, batch.SubscriptionID)
	if err != nil {
		return BatchOutcome{}, err
	}
	defer release()

	outcome := BatchOutcome{
		IngestID:       ingestID,
		SubscriptionID: batch.SubscriptionID,
		HandlerResults: make(map[string]HandlerResult),
	}

	bindings := s.router.Resolve(batch.SubscriptionID)
	if len(bindings) == 0 {
		// Predicates this deployment does not handle yet are accepted with a
		// zero-handler outcome; confirmed state for them stays untouched.
		logger.Info(ctx, "no handlers bound for subscription",
			"ingest.id", ingestID,
			"subscription.id", batch.SubscriptionID,
		)
		return outcome, nil
	}

	var rec reorg.Reconciliation
	if err := s.execute(ctx, func() error {
		var err error
		rec, err = s.reconciler.Reconcile(ctx, batch)
		return err
	}); err != nil {
		return BatchOutcome{}, fmt.Errorf("reconcile batch: %w", err)
	}

	// Confirmed state advances before any delivery and never depends on
	// handler latency or handler failures.
	if err := s.execute(ctx, func() error {
		return s.reconciler.Commit(ctx, rec)
	}); err != nil {
		return BatchOutcome{}, fmt.Errorf("commit subscription state: %w", err)
	}

	outcome.Retractions = len(rec.Retractions)
	outcome.SkippedDuplicates = len(rec.SkippedHeights)
	if len(rec.Anomalies) > 0 {
		outcome.Anomalous = true
		outcome.Anomalies = rec.Anomalies
		s.reportAnomalies(ctx, AnomalyNotice{
			IngestID:       ingestID,
			SubscriptionID: batch.SubscriptionID,
			Anomalies:      rec.Anomalies,
		})
	}

	eventCounts := types.NewDefaultMap[chainevent.EventKind](func() int { return 0 })
	eventsPerBinding := make([][]chainevent.DomainEvent, len(bindings))
	for i, binding := range bindings {
		events := extractEvents(binding, rec.ApplyBlocks)
		eventsPerBinding[i] = events

		for _, event := range events {
			eventCounts.Set(event.Kind(), eventCounts.Get(event.Kind())+1)
		}
	}
	if counts := eventCounts.ToMap(); len(counts) > 0 {
		outcome.EventCounts = counts
	}

	// Handlers of one batch run concurrently; the engine waits for all of
	// them before producing the aggregate outcome, and a failing handler
	// never blocks delivery to its siblings.
	results := make([]HandlerResult, len(bindings))

	var wg sync.WaitGroup
	for i, binding := range bindings {
		wg.Add(1)
		go func(i int, binding subroute.Binding) {
			defer wg.Done()
			results[i] = s.deliver(ctx, binding, eventsPerBinding[i], rec.Retractions)
		}(i, binding)
	}
	wg.Wait()

	for i, binding := range bindings {
		outcome.HandlerResults[binding.Name] = results[i]

		if !results[i].OK {
			logger.Error(ctx, "handler failed",
				"ingest.id", ingestID,
				"subscription.id", batch.SubscriptionID,
				"handler.name", binding.Name,
				"error", results[i].Error,
			)
		}
	}

	return outcome, nil
}

// deliver invokes one handler, converting errors and panics into a
// HandlerResult so a misbehaving handler stays isolated.
func (s *service) deliver(ctx context.Context, binding subroute.Binding, events []chainevent.DomainEvent, retractions []chainevent.RetractionEvent) (result HandlerResult) {
	defer func() {
		if r := recover(); r != nil {
			result = HandlerResult{Error: fmt.Sprintf("handler panic: %v", r)}
		}
	}()

	if err := binding.Handler.Handle(ctx, events, retractions); err != nil {
		return HandlerResult{Error: err.Error()}
	}

	return HandlerResult{OK: true}
}

// extractEvents runs the binding's extractors over every transaction of the
// surviving apply blocks, in block order then transaction order.
func extractEvents(binding subroute.Binding, blocks []chainevent.Block) []chainevent.DomainEvent {
	var events []chainevent.DomainEvent
	for _, block := range blocks {
		for _, tx := range block.Transactions {
			for _, extractor := range binding.Extractors {
				events = append(events, extractor.Extract(tx, block.Identifier)...)
			}
		}
	}
	return events
}

// reportAnomalies hands anomalies to the background monitor without ever
// blocking batch processing. When the feed is saturated the notice is handled
// inline instead of dropped.
func (s *service) reportAnomalies(ctx context.Context, notice AnomalyNotice) {
	if !chflow.TrySend(s.anomalyCh, notice) {
		s.anomalyHandler(ctx, notice)
	}
}

// execute runs op through the configured retry policy, or directly when none
// was provided.
func (s *service) execute(ctx context.Context, op func() error) error {
	if s.retry == nil {
		return op()
	}
	return s.retry.Execute(ctx, op)
}
