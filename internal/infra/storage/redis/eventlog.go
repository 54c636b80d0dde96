package redis

import (
	"context"
	"fmt"

	"github.com/gabapcia/hookrelay/internal/sinks"

	"github.com/redis/go-redis/v9"
)

const (
	// eventlogKeyPrefix namespaces the delivered-event journal.
	eventlogKeyPrefix = "eventlog"

	// eventlogMaxLen caps the stream length (approximately) so the journal
	// does not grow without bound when no consumer trims it.
	eventlogMaxLen = 100_000
)

// eventlogStreamKey builds the stream key for one pipeline's journal. The
// format is:
//
//	"eventlog:stream:<pipeline>"
func eventlogStreamKey(pipeline string) string {
	return fmt.Sprintf("%s:stream:%s", eventlogKeyPrefix, pipeline)
}

// AppendEntry appends a delivered-event record to the pipeline's stream.
func (c *client) AppendEntry(ctx context.Context, entry sinks.JournalEntry) error {
	return c.conn.XAdd(ctx, &redis.XAddArgs{
		Stream: eventlogStreamKey(entry.Pipeline),
		MaxLen: eventlogMaxLen,
		Approx: true,
		Values: map[string]any{
			"kind":    entry.Kind,
			"txHash":  entry.TxHash,
			"payload": entry.Payload,
		},
	}).Err()
}

// Compile-time assertion that the client implements the journal contract.
var _ sinks.Journal = new(client)
