package extract

import (
	"testing"

	"github.com/gabapcia/hookrelay/internal/chainevent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiquidityExtractor(t *testing.T) {
	extractor := NewLiquidityExtractor()
	blockID := chainevent.BlockIdentifier{Index: 300, Hash: "0xccc"}

	t.Run("maps a mint receipt to a liquidity add", func(t *testing.T) {
		tx := chainevent.Transaction{
			Identifier: chainevent.TransactionIdentifier{Hash: "0xtx1"},
			Metadata: chainevent.TransactionMetadata{
				Success: true,
				Sender:  "SP0",
				ReceiptEvents: []chainevent.ReceiptEvent{
					{Data: chainevent.ReceiptEventData{Topic: chainevent.ReceiptTopicMint}},
				},
			},
		}

		events := extractor.Extract(tx, blockID)

		require.Len(t, events, 1)
		liq, ok := events[0].(chainevent.LiquidityEvent)
		require.True(t, ok)
		assert.Equal(t, chainevent.LiquidityAdd, liq.Change)
		assert.Equal(t, "SP0", liq.Actor)
		assert.Equal(t, "0xtx1", liq.TxHash)
		assert.Equal(t, uint64(300), liq.BlockHeight)
	})

	t.Run("maps a burn receipt to a liquidity remove", func(t *testing.T) {
		tx := chainevent.Transaction{
			Identifier: chainevent.TransactionIdentifier{Hash: "0xtx2"},
			Metadata: chainevent.TransactionMetadata{
				Success: true,
				Sender:  "SP1",
				ReceiptEvents: []chainevent.ReceiptEvent{
					{Data: chainevent.ReceiptEventData{Topic: chainevent.ReceiptTopicBurn}},
				},
			},
		}

		events := extractor.Extract(tx, blockID)

		require.Len(t, events, 1)
		liq := events[0].(chainevent.LiquidityEvent)
		assert.Equal(t, chainevent.LiquidityRemove, liq.Change)
		assert.Equal(t, "SP1", liq.Actor)
	})

	t.Run("preserves receipt order across mixed topics", func(t *testing.T) {
		tx := chainevent.Transaction{
			Identifier: chainevent.TransactionIdentifier{Hash: "0xtx3"},
			Metadata: chainevent.TransactionMetadata{
				Success: true,
				Sender:  "SP2",
				ReceiptEvents: []chainevent.ReceiptEvent{
					{Data: chainevent.ReceiptEventData{Topic: chainevent.ReceiptTopicBurn}},
					{Data: chainevent.ReceiptEventData{Topic: chainevent.ReceiptTopicSwap}},
					{Data: chainevent.ReceiptEventData{Topic: chainevent.ReceiptTopicMint}},
				},
			},
		}

		events := extractor.Extract(tx, blockID)

		require.Len(t, events, 2)
		assert.Equal(t, chainevent.LiquidityRemove, events[0].(chainevent.LiquidityEvent).Change)
		assert.Equal(t, chainevent.LiquidityAdd, events[1].(chainevent.LiquidityEvent).Change)
	})

	t.Run("emits nothing for a failed transaction", func(t *testing.T) {
		tx := chainevent.Transaction{
			Metadata: chainevent.TransactionMetadata{
				Success: false,
				ReceiptEvents: []chainevent.ReceiptEvent{
					{Data: chainevent.ReceiptEventData{Topic: chainevent.ReceiptTopicMint}},
				},
			},
		}

		events := extractor.Extract(tx, blockID)

		assert.Empty(t, events)
	})

	t.Run("emits nothing without mint or burn receipts", func(t *testing.T) {
		tx := chainevent.Transaction{
			Metadata: chainevent.TransactionMetadata{
				Success: true,
				ReceiptEvents: []chainevent.ReceiptEvent{
					{Data: chainevent.ReceiptEventData{Topic: chainevent.ReceiptTopicSwap}},
				},
			},
		}

		events := extractor.Extract(tx, blockID)

		assert.Empty(t, events)
	})
}
