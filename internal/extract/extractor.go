// Package extract projects generic transactions into typed domain events.
// Extractors are pure and never fail: malformed or missing fields degrade to
// "no event", which keeps ingestion resilient against upstream schema drift.
// Extractors are independent of each other; a single transaction may satisfy
// several of them at once, and no extractor takes precedence over another.
package extract

import "github.com/gabapcia/hookrelay/internal/chainevent"

// Extractor projects one transaction into zero or more domain events.
type Extractor interface {
	// Name identifies the extractor in handler bindings and logs.
	Name() string

	// Extract returns the domain events present in the transaction, which
	// executed in the block identified by blockID. It has no side effects and
	// returns an empty result instead of an error for anything it cannot
	// interpret. Transactions that failed execution yield nothing.
	Extract(tx chainevent.Transaction, blockID chainevent.BlockIdentifier) []chainevent.DomainEvent
}
