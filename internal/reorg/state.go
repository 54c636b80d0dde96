// Package reorg reconciles apply/rollback batches against per-subscription
// confirmed-block state. It is the component that turns a chain
// reorganization into compensating retraction events instead of silently
// replaying history, and the duplicate-skip rule it enforces is the system's
// defense against the upstream's at-least-once delivery.
package reorg

import (
	"context"
	"errors"
)

// ErrStateNotFound is returned by LoadSubscriptionState when no state has
// been persisted yet for the requested subscription, i.e. the subscription is
// still uninitialized.
var ErrStateNotFound = errors.New("no state found for subscription")

// SubscriptionState is the confirmed chain position for one subscription. It
// is owned exclusively by this package and mutates only when a batch is
// processed successfully.
type SubscriptionState struct {
	// LastConfirmedHeight is the height of the newest block confirmed for
	// the subscription.
	LastConfirmedHeight uint64 `json:"lastConfirmedHeight"`

	// LastConfirmedHash is the hash of that block. It may be empty right
	// after a rollback-only batch, when the new tip's hash is unknown.
	LastConfirmedHash string `json:"lastConfirmedHash"`
}

// StateStorage persists SubscriptionState per subscription identifier.
// Implementations must provide atomic per-key semantics: a concurrent reader
// never observes a torn write for the same key.
type StateStorage interface {
	// LoadSubscriptionState returns the persisted state for the
	// subscription, or ErrStateNotFound when none exists yet.
	LoadSubscriptionState(ctx context.Context, subscriptionID string) (SubscriptionState, error)

	// SaveSubscriptionState overwrites the persisted state for the
	// subscription.
	SaveSubscriptionState(ctx context.Context, subscriptionID string, state SubscriptionState) error
}
