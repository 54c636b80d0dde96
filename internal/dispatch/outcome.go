package dispatch

import (
	"github.com/gabapcia/hookrelay/internal/chainevent"
	"github.com/gabapcia/hookrelay/internal/reorg"
)

// HandlerResult is one handler's verdict for a batch.
type HandlerResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BatchOutcome aggregates everything one batch produced: per-handler results,
// delivery counts, and any reconciliation anomalies. It is returned to the
// inbound endpoint for observability; the wire contract toward the sender
// remains the HTTP status code alone.
type BatchOutcome struct {
	// IngestID correlates this processing run across log entries.
	IngestID string `json:"ingestId"`

	SubscriptionID string `json:"subscriptionId"`

	// HandlerResults maps handler name to its result. Empty when the
	// subscription resolved to no handlers.
	HandlerResults map[string]HandlerResult `json:"handlerResults"`

	// EventCounts totals the domain events delivered, per kind, summed over
	// every handler that received them.
	EventCounts map[chainevent.EventKind]int `json:"eventCounts,omitempty"`

	// Retractions is the number of compensating events this batch emitted.
	Retractions int `json:"retractions"`

	// SkippedDuplicates counts apply blocks absorbed by the duplicate-skip
	// rule.
	SkippedDuplicates int `json:"skippedDuplicates"`

	// Anomalous flags that reconciliation observed at least one ordering
	// violation; Anomalies carries the details. Processing still completed.
	Anomalous bool            `json:"anomalous"`
	Anomalies []reorg.Anomaly `json:"anomalies,omitempty"`
}

// HasHandlerFailures reports whether any handler rejected its delivery.
func (o BatchOutcome) HasHandlerFailures() bool {
	for _, result := range o.HandlerResults {
		if !result.OK {
			return true
		}
	}
	return false
}
