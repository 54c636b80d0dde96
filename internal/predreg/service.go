// Package predreg registers and removes predicates on the external
// chain-indexing service. It validates operator input and delegates the API
// interaction to the configured RegistryClient.
package predreg

import "context"

// Service is the operator-facing entrypoint for predicate management.
type Service interface {
	// Register validates and submits a predicate. When predicateUUID is
	// empty a new UUID is generated. It returns the UUID under which the
	// predicate was registered.
	Register(ctx context.Context, predicateUUID, subscriptionID, network, matchRule, callbackURL string) (string, error)

	// Deregister removes a previously registered predicate by UUID.
	Deregister(ctx context.Context, predicateUUID string) error
}

// service is the concrete implementation backed by a RegistryClient.
type service struct {
	registry RegistryClient
}

var _ Service = (*service)(nil)

// New creates the predicate registration service.
func New(registry RegistryClient) *service {
	return &service{
		registry: registry,
	}
}

// Register implements Service.
func (s *service) Register(ctx context.Context, predicateUUID, subscriptionID, network, matchRule, callbackURL string) (string, error) {
	predicate, err := buildPredicate(predicateUUID, subscriptionID, network, matchRule, callbackURL)
	if err != nil {
		return "", err
	}

	if err := s.registry.RegisterPredicate(ctx, predicate); err != nil {
		return "", err
	}

	return predicate.UUID, nil
}

// Deregister implements Service.
func (s *service) Deregister(ctx context.Context, predicateUUID string) error {
	return s.registry.DeregisterPredicate(ctx, predicateUUID)
}
