package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gabapcia/hookrelay/internal/chainevent"
	"github.com/gabapcia/hookrelay/internal/extract"
	"github.com/gabapcia/hookrelay/internal/pkg/logger"
	"github.com/gabapcia/hookrelay/internal/reorg"
	"github.com/gabapcia/hookrelay/internal/subroute"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Initialize logger for tests to prevent nil pointer dereference
	_ = logger.Init(logger.WithLevel("error")) // Use error level to reduce test output
}

// reconcilerStub is an in-test reorg.Service with canned results.
type reconcilerStub struct {
	rec          reorg.Reconciliation
	reconcileErr error
	commitErr    error

	reconcileCalls int
	commitCalls    int
}

func (r *reconcilerStub) Reconcile(_ context.Context, batch chainevent.Batch) (reorg.Reconciliation, error) {
	r.reconcileCalls++
	if r.reconcileErr != nil {
		return reorg.Reconciliation{}, r.reconcileErr
	}

	rec := r.rec
	rec.SubscriptionID = batch.SubscriptionID
	return rec, nil
}

func (r *reconcilerStub) Commit(_ context.Context, _ reorg.Reconciliation) error {
	r.commitCalls++
	return r.commitErr
}

// lockerStub hands out no-op releases and can be forced busy.
type lockerStub struct {
	err      error
	acquired int
	released int
}

func (l *lockerStub) AcquireSubscription(_ context.Context, _ string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}

	l.acquired++
	return func() { l.released++ }, nil
}

// recordingHandler captures its deliveries and can fail or panic on demand.
type recordingHandler struct {
	mu          sync.Mutex
	events      []chainevent.DomainEvent
	retractions []chainevent.RetractionEvent
	calls       int

	err      error
	panicMsg string
}

func (h *recordingHandler) Handle(_ context.Context, events []chainevent.DomainEvent, retractions []chainevent.RetractionEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.calls++
	h.events = append(h.events, events...)
	h.retractions = append(h.retractions, retractions...)

	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	return h.err
}

func swapBlock(height uint64, hash, txHash string) chainevent.Block {
	return chainevent.Block{
		Identifier: chainevent.BlockIdentifier{Index: height, Hash: hash},
		Transactions: []chainevent.Transaction{
			{
				Identifier: chainevent.TransactionIdentifier{Hash: txHash},
				Metadata: chainevent.TransactionMetadata{
					Success: true,
					ReceiptEvents: []chainevent.ReceiptEvent{
						{Data: chainevent.ReceiptEventData{
							Topic: chainevent.ReceiptTopicSwap,
							Fields: map[string]any{
								"dx": "100", "dy": "95",
								"token_x": "STX", "token_y": "xBTC",
							},
						}},
					},
				},
			},
		},
	}
}

func TestProcess(t *testing.T) {
	const subID = "dex-swap/main"

	t.Run("extracts and delivers events to every handler", func(t *testing.T) {
		applied := swapBlock(100, "0xaaa", "0xtx1")
		reconciler := &reconcilerStub{
			rec: reorg.Reconciliation{
				ApplyBlocks:  []chainevent.Block{applied},
				NextState:    reorg.SubscriptionState{LastConfirmedHeight: 100, LastConfirmedHash: "0xaaa"},
				StateChanged: true,
			},
		}
		locker := &lockerStub{}

		first := &recordingHandler{}
		second := &recordingHandler{}
		router := subroute.NewBuilder().
			BindPrefix("dex-swap/",
				subroute.Binding{Name: "first", Handler: first, Extractors: []extract.Extractor{extract.NewSwapExtractor()}},
				subroute.Binding{Name: "second", Handler: second, Extractors: []extract.Extractor{extract.NewSwapExtractor()}},
			).
			Build()

		svc := New(router, reconciler, locker)

		outcome, err := svc.Process(t.Context(), chainevent.Batch{
			SubscriptionID: subID,
			Apply:          []chainevent.Block{applied},
		})

		require.NoError(t, err)
		assert.NotEmpty(t, outcome.IngestID)
		assert.Equal(t, subID, outcome.SubscriptionID)
		assert.False(t, outcome.HasHandlerFailures())
		assert.Equal(t, map[chainevent.EventKind]int{chainevent.EventKindSwap: 2}, outcome.EventCounts)

		assert.Len(t, first.events, 1)
		assert.Len(t, second.events, 1)
		assert.Equal(t, 1, reconciler.commitCalls)
		assert.Equal(t, 1, locker.released)
	})

	t.Run("a failing handler does not block its sibling", func(t *testing.T) {
		applied := swapBlock(100, "0xaaa", "0xtx1")
		reconciler := &reconcilerStub{
			rec: reorg.Reconciliation{ApplyBlocks: []chainevent.Block{applied}},
		}

		failing := &recordingHandler{err: errors.New("sink unavailable")}
		healthy := &recordingHandler{}
		router := subroute.NewBuilder().
			BindPrefix("dex-swap/",
				subroute.Binding{Name: "failing", Handler: failing, Extractors: []extract.Extractor{extract.NewSwapExtractor()}},
				subroute.Binding{Name: "healthy", Handler: healthy, Extractors: []extract.Extractor{extract.NewSwapExtractor()}},
			).
			Build()

		svc := New(router, reconciler, &lockerStub{})

		outcome, err := svc.Process(t.Context(), chainevent.Batch{
			SubscriptionID: subID,
			Apply:          []chainevent.Block{applied},
		})

		require.NoError(t, err)
		assert.True(t, outcome.HasHandlerFailures())
		assert.False(t, outcome.HandlerResults["failing"].OK)
		assert.Contains(t, outcome.HandlerResults["failing"].Error, "sink unavailable")
		assert.True(t, outcome.HandlerResults["healthy"].OK)
		assert.Len(t, healthy.events, 1)
	})

	t.Run("a panicking handler is contained", func(t *testing.T) {
		applied := swapBlock(100, "0xaaa", "0xtx1")
		reconciler := &reconcilerStub{
			rec: reorg.Reconciliation{ApplyBlocks: []chainevent.Block{applied}},
		}

		panicking := &recordingHandler{panicMsg: "nil map write"}
		healthy := &recordingHandler{}
		router := subroute.NewBuilder().
			BindPrefix("dex-swap/",
				subroute.Binding{Name: "panicking", Handler: panicking},
				subroute.Binding{Name: "healthy", Handler: healthy},
			).
			Build()

		svc := New(router, reconciler, &lockerStub{})

		outcome, err := svc.Process(t.Context(), chainevent.Batch{
			SubscriptionID: subID,
			Apply:          []chainevent.Block{applied},
		})

		require.NoError(t, err)
		assert.False(t, outcome.HandlerResults["panicking"].OK)
		assert.Contains(t, outcome.HandlerResults["panicking"].Error, "handler panic")
		assert.True(t, outcome.HandlerResults["healthy"].OK)
	})

	t.Run("retractions reach every handler", func(t *testing.T) {
		reconciler := &reconcilerStub{
			rec: reorg.Reconciliation{
				Retractions: []chainevent.RetractionEvent{
					{TransactionHash: "0xtx2", BlockHeight: 101, BlockHash: "0xbbb"},
				},
				StateChanged: true,
				NextState:    reorg.SubscriptionState{LastConfirmedHeight: 100},
			},
		}

		handler := &recordingHandler{}
		router := subroute.NewBuilder().
			BindPrefix("dex-swap/", subroute.Binding{Name: "sink", Handler: handler}).
			Build()

		svc := New(router, reconciler, &lockerStub{})

		outcome, err := svc.Process(t.Context(), chainevent.Batch{
			SubscriptionID: subID,
			Rollback:       []chainevent.Block{{Identifier: chainevent.BlockIdentifier{Index: 101, Hash: "0xbbb"}}},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, outcome.Retractions)
		require.Len(t, handler.retractions, 1)
		assert.Equal(t, "0xtx2", handler.retractions[0].TransactionHash)
	})

	t.Run("unresolvable subscription is accepted without touching state", func(t *testing.T) {
		reconciler := &reconcilerStub{}
		router := subroute.NewBuilder().
			BindPrefix("dex-swap/", subroute.Binding{Name: "sink", Handler: &recordingHandler{}}).
			Build()

		svc := New(router, reconciler, &lockerStub{})

		outcome, err := svc.Process(t.Context(), chainevent.Batch{
			SubscriptionID: "unknown/main",
			Apply:          []chainevent.Block{swapBlock(100, "0xaaa", "0xtx1")},
		})

		require.NoError(t, err)
		assert.Empty(t, outcome.HandlerResults)
		assert.Zero(t, reconciler.reconcileCalls)
		assert.Zero(t, reconciler.commitCalls)
	})

	t.Run("malformed batch is rejected before locking", func(t *testing.T) {
		locker := &lockerStub{}
		svc := New(subroute.NewBuilder().Build(), &reconcilerStub{}, locker)

		_, err := svc.Process(t.Context(), chainevent.Batch{})

		require.Error(t, err)
		assert.ErrorIs(t, err, chainevent.ErrMalformedBatch)
		assert.Zero(t, locker.acquired)
	})

	t.Run("busy subscription propagates the lock error", func(t *testing.T) {
		locker := &lockerStub{err: ErrSubscriptionBusy}
		svc := New(subroute.NewBuilder().Build(), &reconcilerStub{}, locker)

		_, err := svc.Process(t.Context(), chainevent.Batch{SubscriptionID: subID})

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSubscriptionBusy)
	})

	t.Run("reconcile failure fails the batch before any delivery", func(t *testing.T) {
		reconciler := &reconcilerStub{reconcileErr: errors.New("storage down")}
		handler := &recordingHandler{}
		router := subroute.NewBuilder().
			BindPrefix("dex-swap/", subroute.Binding{Name: "sink", Handler: handler}).
			Build()

		svc := New(router, reconciler, &lockerStub{})

		_, err := svc.Process(t.Context(), chainevent.Batch{SubscriptionID: subID})

		require.Error(t, err)
		assert.Zero(t, handler.calls)
	})

	t.Run("commit failure fails the batch before any delivery", func(t *testing.T) {
		reconciler := &reconcilerStub{commitErr: errors.New("write timeout")}
		handler := &recordingHandler{}
		router := subroute.NewBuilder().
			BindPrefix("dex-swap/", subroute.Binding{Name: "sink", Handler: handler}).
			Build()

		svc := New(router, reconciler, &lockerStub{})

		_, err := svc.Process(t.Context(), chainevent.Batch{SubscriptionID: subID})

		require.Error(t, err)
		assert.Zero(t, handler.calls)
	})

	t.Run("anomalies are flagged on the outcome", func(t *testing.T) {
		reconciler := &reconcilerStub{
			rec: reorg.Reconciliation{
				Anomalies: []reorg.Anomaly{
					{Reason: "rollback height above confirmed head, delivery out of order", BlockHeight: 105, BlockHash: "0xfff"},
				},
			},
		}
		router := subroute.NewBuilder().
			BindPrefix("dex-swap/", subroute.Binding{Name: "sink", Handler: &recordingHandler{}}).
			Build()

		svc := New(router, reconciler, &lockerStub{})

		outcome, err := svc.Process(t.Context(), chainevent.Batch{SubscriptionID: subID})

		require.NoError(t, err)
		assert.True(t, outcome.Anomalous)
		require.Len(t, outcome.Anomalies, 1)
		assert.Equal(t, uint64(105), outcome.Anomalies[0].BlockHeight)
	})

	t.Run("duplicate skips are counted on the outcome", func(t *testing.T) {
		reconciler := &reconcilerStub{
			rec: reorg.Reconciliation{SkippedHeights: []uint64{100, 101}},
		}
		router := subroute.NewBuilder().
			BindPrefix("dex-swap/", subroute.Binding{Name: "sink", Handler: &recordingHandler{}}).
			Build()

		svc := New(router, reconciler, &lockerStub{})

		outcome, err := svc.Process(t.Context(), chainevent.Batch{SubscriptionID: subID})

		require.NoError(t, err)
		assert.Equal(t, 2, outcome.SkippedDuplicates)
	})
}

func TestStartClose(t *testing.T) {
	t.Run("start twice returns an error", func(t *testing.T) {
		svc := New(subroute.NewBuilder().Build(), &reconcilerStub{}, &lockerStub{})

		require.NoError(t, svc.Start(t.Context()))
		defer svc.Close()

		err := svc.Start(t.Context())
		assert.ErrorIs(t, err, ErrServiceAlreadyStarted)
	})

	t.Run("close without start is safe", func(t *testing.T) {
		svc := New(subroute.NewBuilder().Build(), &reconcilerStub{}, &lockerStub{})

		svc.Close()
	})

	t.Run("anomaly notices reach the configured handler", func(t *testing.T) {
		reconciler := &reconcilerStub{
			rec: reorg.Reconciliation{
				Anomalies: []reorg.Anomaly{{Reason: "rollback received before any confirmed state", BlockHeight: 100}},
			},
		}
		router := subroute.NewBuilder().
			BindPrefix("dex-swap/", subroute.Binding{Name: "sink", Handler: &recordingHandler{}}).
			Build()

		noticed := make(chan AnomalyNotice, 1)
		svc := New(router, reconciler, &lockerStub{}, WithAnomalyHandler(func(_ context.Context, notice AnomalyNotice) {
			noticed <- notice
		}))

		require.NoError(t, svc.Start(t.Context()))
		defer svc.Close()

		_, err := svc.Process(t.Context(), chainevent.Batch{SubscriptionID: "dex-swap/main"})
		require.NoError(t, err)

		select {
		case notice := <-noticed:
			assert.Equal(t, "dex-swap/main", notice.SubscriptionID)
			require.Len(t, notice.Anomalies, 1)
		case <-time.After(time.Second):
			t.Fatal("anomaly notice was never delivered")
		}
	})
}
