// Package memory provides in-process implementations of the subscription
// state store and the subscription locker. They back single-process
// deployments and tests; multi-instance deployments need the redis package
// so state and locks are shared.
package memory

import (
	"context"
	"sync"

	"github.com/gabapcia/hookrelay/internal/reorg"
)

// StateStorage keeps subscription state in a mutex-guarded map.
type StateStorage struct {
	mu     sync.RWMutex
	states map[string]reorg.SubscriptionState
}

var _ reorg.StateStorage = (*StateStorage)(nil)

// NewStateStorage returns an empty in-memory state store.
func NewStateStorage() *StateStorage {
	return &StateStorage{
		states: make(map[string]reorg.SubscriptionState),
	}
}

// LoadSubscriptionState implements reorg.StateStorage.
func (s *StateStorage) LoadSubscriptionState(_ context.Context, subscriptionID string) (reorg.SubscriptionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[subscriptionID]
	if !ok {
		return reorg.SubscriptionState{}, reorg.ErrStateNotFound
	}

	return state, nil
}

// SaveSubscriptionState implements reorg.StateStorage.
func (s *StateStorage) SaveSubscriptionState(_ context.Context, subscriptionID string, state reorg.SubscriptionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[subscriptionID] = state
	return nil
}
