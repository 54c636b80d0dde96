package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/gabapcia/hookrelay/internal/dispatch"
	"github.com/gabapcia/hookrelay/internal/pkg/logger"
)

const (
	// dispatchKeyPrefix namespaces the per-subscription processing locks.
	dispatchKeyPrefix = "dispatch"

	// subscriptionLockTTL bounds how long a crashed instance can hold a
	// subscription hostage before its lock expires.
	subscriptionLockTTL = 2 * time.Minute
)

// subscriptionLockKey builds the lock key for one subscription. The format is:
//
//	"dispatch:lock:<subscriptionID>"
func subscriptionLockKey(subscriptionID string) string {
	return fmt.Sprintf("%s:lock:%s", dispatchKeyPrefix, subscriptionID)
}

// AcquireSubscription claims the processing lock for the subscription via
// SETNX with a TTL. When another instance holds the lock it returns
// dispatch.ErrSubscriptionBusy, which the caller surfaces as a transient
// failure so the sender retries the batch later.
func (c *client) AcquireSubscription(ctx context.Context, subscriptionID string) (func(), error) {
	key := subscriptionLockKey(subscriptionID)

	ok, err := c.conn.SetNX(ctx, key, "", subscriptionLockTTL).Result()
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, dispatch.ErrSubscriptionBusy
	}

	release := func() {
		// Release must not inherit a canceled request context.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := c.conn.Del(ctx, key).Err(); err != nil {
			logger.Error(ctx, "failed to release subscription lock",
				"subscription.id", subscriptionID,
				"error", err,
			)
		}
	}

	return release, nil
}

// Ensure the client satisfies the dispatch locker contract at compile time.
var _ dispatch.SubscriptionLocker = new(client)
