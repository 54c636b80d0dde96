package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gabapcia/hookrelay/internal/chainevent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// journalStub records appended entries and can be forced to fail.
type journalStub struct {
	entries []JournalEntry
	err     error
}

func (j *journalStub) AppendEntry(_ context.Context, entry JournalEntry) error {
	if j.err != nil {
		return j.err
	}

	j.entries = append(j.entries, entry)
	return nil
}

func TestEventLogHandle(t *testing.T) {
	t.Run("journals retractions before events", func(t *testing.T) {
		journal := &journalStub{}
		handler := NewEventLog("dex-swaps", journal)

		events := []chainevent.DomainEvent{
			chainevent.SwapEvent{TxHash: "0xtx2", AmountIn: 100, AmountOut: 95, TokenIn: "STX", TokenOut: "xBTC", BlockHeight: 101},
		}
		retractions := []chainevent.RetractionEvent{
			{TransactionHash: "0xtx1", BlockHeight: 101, BlockHash: "0xbbb"},
		}

		err := handler.Handle(t.Context(), events, retractions)

		require.NoError(t, err)
		require.Len(t, journal.entries, 2)

		assert.Equal(t, "retraction", journal.entries[0].Kind)
		assert.Equal(t, "0xtx1", journal.entries[0].TxHash)
		assert.Equal(t, "dex-swaps", journal.entries[0].Pipeline)

		assert.Equal(t, string(chainevent.EventKindSwap), journal.entries[1].Kind)
		assert.Equal(t, "0xtx2", journal.entries[1].TxHash)
	})

	t.Run("payload round-trips through json", func(t *testing.T) {
		journal := &journalStub{}
		handler := NewEventLog("whale-alerts", journal)

		events := []chainevent.DomainEvent{
			chainevent.WhaleEvent{TxHash: "0xtx3", Amount: 5_000_000, FromSender: "SP0", ToAccount: "SP1", BlockHeight: 102},
		}

		err := handler.Handle(t.Context(), events, nil)

		require.NoError(t, err)
		require.Len(t, journal.entries, 1)

		var decoded chainevent.WhaleEvent
		require.NoError(t, json.Unmarshal(journal.entries[0].Payload, &decoded))
		assert.Equal(t, events[0], chainevent.DomainEvent(decoded))
	})

	t.Run("empty delivery journals nothing", func(t *testing.T) {
		journal := &journalStub{}
		handler := NewEventLog("dex-swaps", journal)

		err := handler.Handle(t.Context(), nil, nil)

		require.NoError(t, err)
		assert.Empty(t, journal.entries)
	})

	t.Run("preserves event delivery order", func(t *testing.T) {
		journal := &journalStub{}
		handler := NewEventLog("liquidity-events", journal)

		events := []chainevent.DomainEvent{
			chainevent.LiquidityEvent{TxHash: "0xtx1", Change: chainevent.LiquidityAdd, Actor: "SP0", BlockHeight: 100},
			chainevent.LiquidityEvent{TxHash: "0xtx2", Change: chainevent.LiquidityRemove, Actor: "SP1", BlockHeight: 100},
		}

		err := handler.Handle(t.Context(), events, nil)

		require.NoError(t, err)
		require.Len(t, journal.entries, 2)
		assert.Equal(t, "0xtx1", journal.entries[0].TxHash)
		assert.Equal(t, "0xtx2", journal.entries[1].TxHash)
	})

	t.Run("journal failure fails the delivery", func(t *testing.T) {
		journal := &journalStub{err: errors.New("stream unavailable")}
		handler := NewEventLog("dex-swaps", journal)

		events := []chainevent.DomainEvent{
			chainevent.SwapEvent{TxHash: "0xtx1"},
		}

		err := handler.Handle(t.Context(), events, nil)

		require.Error(t, err)
		assert.ErrorContains(t, err, "stream unavailable")
	})
}
