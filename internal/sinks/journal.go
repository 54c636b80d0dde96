// Package sinks provides the handler implementations bound by default:
// a journal sink that records every delivered event and retraction to a
// durable feed, and a webhook sink that pushes alerts to an external URL.
// Both satisfy the subroute.Handler contract and hold their own side effects;
// the dispatch engine knows nothing about them.
package sinks

import "context"

// JournalEntry is one record of the delivered-event feed.
type JournalEntry struct {
	Pipeline string `json:"pipeline"` // name of the handler pipeline that received it
	Kind     string `json:"kind"`     // domain event kind, or "retraction"
	TxHash   string `json:"txHash"`
	Payload  []byte `json:"payload"` // JSON document of the event
}

// retractionKind tags compensating entries in the journal.
const retractionKind = "retraction"

// Journal appends delivered-event records to a durable feed. The Redis
// implementation writes to a stream; consumers replay it to rebuild
// downstream state.
type Journal interface {
	AppendEntry(ctx context.Context, entry JournalEntry) error
}
