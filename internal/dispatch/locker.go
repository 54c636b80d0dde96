package dispatch

import (
	"context"
	"errors"
)

// ErrSubscriptionBusy indicates another batch for the same subscription is
// being processed right now. The batch should be reported as a transient
// failure so the sender retries it; batches for one subscription are strictly
// sequential while different subscriptions proceed in parallel.
var ErrSubscriptionBusy = errors.New("subscription is busy with another batch")

// SubscriptionLocker scopes mutual exclusion to one subscription identifier.
// The in-memory implementation backs single-process deployments; a shared
// store (e.g. Redis) is required when several instances receive deliveries
// for the same subscriptions.
type SubscriptionLocker interface {
	// AcquireSubscription grants the exclusive right to process a batch for
	// the subscription. The returned release function must be called on
	// every exit path, including handler failure. Implementations may block
	// until the lock is free or return ErrSubscriptionBusy immediately.
	AcquireSubscription(ctx context.Context, subscriptionID string) (release func(), err error)
}
