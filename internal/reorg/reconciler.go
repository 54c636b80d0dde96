package reorg

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/gabapcia/hookrelay/internal/chainevent"
	"github.com/gabapcia/hookrelay/internal/pkg/logger"
	"github.com/gabapcia/hookrelay/internal/pkg/types"
)

// RollbackOrder declares how the upstream orders rollback blocks inside one
// batch when a reorg retracts more than one block. The indexer's contract
// does not pin this down, so it is configuration rather than an assumption
// baked into iteration order.
type RollbackOrder string

const (
	// RollbackOldestFirst means rollback blocks arrive lowest height first.
	// This is the default.
	RollbackOldestFirst RollbackOrder = "oldest-first"

	// RollbackNewestFirst means rollback blocks arrive highest height first.
	RollbackNewestFirst RollbackOrder = "newest-first"
)

// Anomaly records a reconciliation expectation that did not hold, such as a
// rollback above the confirmed head. Anomalies never abort processing; they
// are surfaced on the batch outcome for operator visibility.
type Anomaly struct {
	Reason      string `json:"reason"`
	BlockHeight uint64 `json:"blockHeight"`
	BlockHash   string `json:"blockHash"`
}

// Reconciliation is the outcome of reconciling one batch against the
// subscription's confirmed state. It tells the dispatch engine which apply
// blocks are genuinely new, which retractions to deliver, and what the
// confirmed state becomes once the batch is committed.
type Reconciliation struct {
	SubscriptionID string

	// Retractions compensate the transactions of rolled-back blocks, one
	// per transaction, in rollback processing order.
	Retractions []chainevent.RetractionEvent

	// ApplyBlocks are the apply blocks that advanced the chain. Blocks at or
	// below the confirmed height are absent here: they were already
	// processed and delivering them again would double-process.
	ApplyBlocks []chainevent.Block

	// SkippedHeights lists the apply block heights absorbed as duplicates.
	SkippedHeights []uint64

	// Anomalies carries every ordering expectation the batch violated.
	Anomalies []Anomaly

	// NextState is the confirmed state after this batch; meaningful only
	// when StateChanged is true.
	NextState    SubscriptionState
	StateChanged bool
}

// Service reconciles batches and commits the resulting state. Reconcile is
// read-only with respect to storage; Commit persists. The split keeps the
// confirmed-state write as the final step of batch processing, after the
// whole reconciliation has completed in full.
type Service interface {
	// Reconcile loads the subscription's confirmed state and classifies the
	// batch's rollback and apply blocks against it. It returns an error only
	// when state cannot be loaded; ordering violations become Anomalies on
	// the result instead.
	Reconcile(ctx context.Context, batch chainevent.Batch) (Reconciliation, error)

	// Commit persists the reconciliation's NextState. It is a no-op when the
	// batch did not change confirmed state.
	Commit(ctx context.Context, rec Reconciliation) error
}

type service struct {
	storage       StateStorage
	rollbackOrder RollbackOrder
}

var _ Service = (*service)(nil)

// config holds the reconciler's adjustable settings.
type config struct {
	rollbackOrder RollbackOrder
}

// Option customizes the reconciler.
type Option func(*config)

// WithRollbackOrder declares the order the upstream delivers rollback blocks
// in. Default: RollbackOldestFirst.
func WithRollbackOrder(order RollbackOrder) Option {
	return func(c *config) {
		c.rollbackOrder = order
	}
}

// New builds a reconciler over the given state storage.
func New(storage StateStorage, opts ...Option) *service {
	cfg := config{
		rollbackOrder: RollbackOldestFirst,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &service{
		storage:       storage,
		rollbackOrder: cfg.rollbackOrder,
	}
}

// Reconcile implements Service.
func (s *service) Reconcile(ctx context.Context, batch chainevent.Batch) (Reconciliation, error) {
	rec := Reconciliation{SubscriptionID: batch.SubscriptionID}

	state, err := s.storage.LoadSubscriptionState(ctx, batch.SubscriptionID)
	initialized := true
	if err != nil {
		if !errors.Is(err, ErrStateNotFound) {
			return Reconciliation{}, fmt.Errorf("load subscription state: %w", err)
		}

		initialized = false
		state = SubscriptionState{}
	}

	if initialized && s.isFullReplay(ctx, batch, state) {
		// The batch's final apply block is exactly the confirmed tip, so
		// every effect of this batch has already been delivered. Confirmed
		// state stays untouched and no handler sees any of it again.
		return rec, nil
	}

	var (
		confirmedStart  = state.LastConfirmedHeight
		confirmedHeight = state.LastConfirmedHeight
		confirmedHash   = state.LastConfirmedHash
	)

	// Rollbacks are logically un-applied before apply blocks replay the
	// canonical history. Processing is normalized to oldest-first regardless
	// of the upstream's delivery order.
	for _, block := range s.rollbackOldestFirst(batch.Rollback) {
		height := block.Identifier.Index

		if initialized && height > confirmedStart {
			rec.Anomalies = append(rec.Anomalies, Anomaly{
				Reason:      "rollback height above confirmed head, delivery out of order",
				BlockHeight: height,
				BlockHash:   block.Identifier.Hash,
			})
		}
		if !initialized {
			rec.Anomalies = append(rec.Anomalies, Anomaly{
				Reason:      "rollback received before any confirmed state",
				BlockHeight: height,
				BlockHash:   block.Identifier.Hash,
			})
		}

		// Compensation is never dropped, anomalous or not: downstream state
		// built from these transactions must be undone either way.
		for _, tx := range block.Transactions {
			rec.Retractions = append(rec.Retractions, chainevent.RetractionEvent{
				TransactionHash: tx.Identifier.Hash,
				BlockHeight:     height,
				BlockHash:       block.Identifier.Hash,
			})
		}

		if initialized && height > 0 && height-1 < confirmedHeight {
			confirmedHeight = height - 1
			confirmedHash = "" // the new tip's hash is unknown until a replacement applies
		}
	}

	for _, block := range batch.Apply {
		height := block.Identifier.Index

		if initialized && height <= confirmedHeight {
			// At-least-once delivery: an apply block at or below the
			// confirmed height was already processed. Absorb it silently.
			rec.SkippedHeights = append(rec.SkippedHeights, height)
			logger.Info(ctx, "apply block already processed, skipping",
				"subscription.id", batch.SubscriptionID,
				"block.height", height,
				"block.hash", block.Identifier.Hash,
			)
			continue
		}

		rec.ApplyBlocks = append(rec.ApplyBlocks, block)
		confirmedHeight = block.Identifier.Index
		confirmedHash = block.Identifier.Hash
		initialized = true
	}

	next := SubscriptionState{
		LastConfirmedHeight: confirmedHeight,
		LastConfirmedHash:   confirmedHash,
	}
	if initialized && next != state {
		rec.NextState = next
		rec.StateChanged = true
	}

	return rec, nil
}

// Commit implements Service.
func (s *service) Commit(ctx context.Context, rec Reconciliation) error {
	if !rec.StateChanged {
		return nil
	}

	if err := s.storage.SaveSubscriptionState(ctx, rec.SubscriptionID, rec.NextState); err != nil {
		return fmt.Errorf("save subscription state: %w", err)
	}

	return nil
}

// isFullReplay reports whether the batch's final apply block matches the
// confirmed tip exactly, meaning the whole batch was already processed.
func (s *service) isFullReplay(ctx context.Context, batch chainevent.Batch, state SubscriptionState) bool {
	if len(batch.Apply) == 0 {
		return false
	}

	tip := batch.Apply[len(batch.Apply)-1].Identifier
	if tip.Index != state.LastConfirmedHeight || tip.Hash != state.LastConfirmedHash {
		return false
	}

	logger.Info(ctx, "batch already confirmed, absorbing replay",
		"subscription.id", batch.SubscriptionID,
		"block.height", tip.Index,
		"block.hash", tip.Hash,
	)
	return true
}

// rollbackOldestFirst returns the rollback blocks ordered lowest height
// first, reversing the slice when the upstream delivers newest-first. Blocks
// rolled back at the same height more than once are collapsed so a
// transaction is retracted a single time per batch.
func (s *service) rollbackOldestFirst(rollback []chainevent.Block) []chainevent.Block {
	if len(rollback) == 0 {
		return nil
	}

	blocks := slices.Clone(rollback)
	if s.rollbackOrder == RollbackNewestFirst {
		slices.Reverse(blocks)
	}

	seen := types.NewSet[chainevent.BlockIdentifier]()
	deduped := blocks[:0]
	for _, block := range blocks {
		if seen.Has(block.Identifier) {
			continue
		}
		seen.Add(block.Identifier)
		deduped = append(deduped, block)
	}

	return deduped
}
