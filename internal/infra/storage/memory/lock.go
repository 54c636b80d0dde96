package memory

import (
	"context"

	"github.com/gabapcia/hookrelay/internal/dispatch"
	"github.com/gabapcia/hookrelay/internal/pkg/types"
)

// SubscriptionLocker serializes batches per subscription inside one process
// using a keyed mutex. Acquire blocks until the subscription is free, so
// concurrent deliveries for the same subscription queue up instead of
// failing.
type SubscriptionLocker struct {
	locks *types.KeyedMutex[string]
}

var _ dispatch.SubscriptionLocker = (*SubscriptionLocker)(nil)

// NewSubscriptionLocker returns an in-process subscription locker.
func NewSubscriptionLocker() *SubscriptionLocker {
	return &SubscriptionLocker{
		locks: types.NewKeyedMutex[string](),
	}
}

// AcquireSubscription implements dispatch.SubscriptionLocker.
func (l *SubscriptionLocker) AcquireSubscription(_ context.Context, subscriptionID string) (func(), error) {
	return l.locks.Lock(subscriptionID), nil
}
