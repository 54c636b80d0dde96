package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gabapcia/hookrelay/internal/reorg"

	"github.com/redis/go-redis/v9"
)

// reorgKeyPrefix namespaces every key holding reconciler state.
const reorgKeyPrefix = "reorg"

// subscriptionStateKey builds the key holding one subscription's confirmed
// state. The format is:
//
//	"reorg:state:<subscriptionID>"
func subscriptionStateKey(subscriptionID string) string {
	return fmt.Sprintf("%s:state:%s", reorgKeyPrefix, subscriptionID)
}

// LoadSubscriptionState fetches and decodes the confirmed state for the given
// subscription. A missing key maps to reorg.ErrStateNotFound so the
// reconciler treats the subscription as uninitialized.
func (c *client) LoadSubscriptionState(ctx context.Context, subscriptionID string) (reorg.SubscriptionState, error) {
	key := subscriptionStateKey(subscriptionID)

	val, err := c.conn.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = reorg.ErrStateNotFound
		}

		return reorg.SubscriptionState{}, err
	}

	var state reorg.SubscriptionState
	if err := json.Unmarshal(val, &state); err != nil {
		return reorg.SubscriptionState{}, err
	}

	return state, nil
}

// SaveSubscriptionState encodes and overwrites the confirmed state for the
// given subscription. The key carries no expiration; confirmed positions
// survive restarts. The single SET keeps per-key writes atomic.
func (c *client) SaveSubscriptionState(ctx context.Context, subscriptionID string, state reorg.SubscriptionState) error {
	val, err := json.Marshal(state)
	if err != nil {
		return err
	}

	key := subscriptionStateKey(subscriptionID)
	return c.conn.Set(ctx, key, val, 0).Err()
}

// Compile-time assertion that the client implements the reconciler's storage.
var _ reorg.StateStorage = new(client)
