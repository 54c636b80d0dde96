package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gabapcia/hookrelay/internal/chainevent"
	"github.com/gabapcia/hookrelay/internal/subroute"
)

// eventLog journals every event and retraction it receives. Retractions are
// recorded first, mirroring the rollback-before-apply ordering of the batch
// itself, so a feed consumer compensates stale history before reading the
// replacement events.
type eventLog struct {
	pipeline string
	journal  Journal
}

var _ subroute.Handler = (*eventLog)(nil)

// NewEventLog returns a handler that appends everything delivered to the
// named pipeline to the journal.
func NewEventLog(pipeline string, journal Journal) *eventLog {
	return &eventLog{
		pipeline: pipeline,
		journal:  journal,
	}
}

// Handle implements subroute.Handler.
func (h *eventLog) Handle(ctx context.Context, events []chainevent.DomainEvent, retractions []chainevent.RetractionEvent) error {
	for _, retraction := range retractions {
		payload, err := json.Marshal(retraction)
		if err != nil {
			return fmt.Errorf("encode retraction %q: %w", retraction.TransactionHash, err)
		}

		entry := JournalEntry{
			Pipeline: h.pipeline,
			Kind:     retractionKind,
			TxHash:   retraction.TransactionHash,
			Payload:  payload,
		}
		if err := h.journal.AppendEntry(ctx, entry); err != nil {
			return fmt.Errorf("journal retraction %q: %w", retraction.TransactionHash, err)
		}
	}

	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", event.Kind(), err)
		}

		entry := JournalEntry{
			Pipeline: h.pipeline,
			Kind:     string(event.Kind()),
			TxHash:   event.TransactionHash(),
			Payload:  payload,
		}
		if err := h.journal.AppendEntry(ctx, entry); err != nil {
			return fmt.Errorf("journal %s event: %w", event.Kind(), err)
		}
	}

	return nil
}
