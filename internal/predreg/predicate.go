package predreg

import (
	"context"

	"github.com/gabapcia/hookrelay/internal/pkg/validator"

	"github.com/google/uuid"
)

// Predicate describes one subscription registered against the external
// chain-indexing service: which on-chain activity to match and where to push
// the resulting batches. The indexer references it afterwards only by its
// subscription identifier.
type Predicate struct {
	UUID           string `validate:"required,uuid4"` // registry-side identity
	SubscriptionID string `validate:"required"`       // identifier deliveries will carry
	Network        string `validate:"required"`       // chain scope (e.g. "mainnet", "testnet")
	MatchRule      string `validate:"required"`       // indexer-specific match expression
	CallbackURL    string `validate:"required,url"`   // where batches are pushed
}

// RegistryClient talks to the external registry API. Registration is
// configuration, not part of the batch processing path.
type RegistryClient interface {
	// RegisterPredicate submits the predicate and returns once the registry
	// acknowledged it.
	RegisterPredicate(ctx context.Context, predicate Predicate) error

	// DeregisterPredicate removes the predicate identified by its UUID.
	DeregisterPredicate(ctx context.Context, predicateUUID string) error
}

// buildPredicate assembles and validates a Predicate, minting a UUID when the
// caller did not provide one.
func buildPredicate(predicateUUID, subscriptionID, network, matchRule, callbackURL string) (Predicate, error) {
	if predicateUUID == "" {
		predicateUUID = uuid.NewString()
	}

	predicate := Predicate{
		UUID:           predicateUUID,
		SubscriptionID: subscriptionID,
		Network:        network,
		MatchRule:      matchRule,
		CallbackURL:    callbackURL,
	}

	return predicate, validator.Validate(predicate)
}
