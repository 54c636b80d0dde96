package extract

import "github.com/gabapcia/hookrelay/internal/chainevent"

// liquidityExtractor scans receipt events for pool mint and burn topics.
type liquidityExtractor struct{}

var _ Extractor = liquidityExtractor{}

// NewLiquidityExtractor returns the extractor for liquidity add/remove
// receipt events.
func NewLiquidityExtractor() Extractor {
	return liquidityExtractor{}
}

// Name implements Extractor.
func (liquidityExtractor) Name() string {
	return "liquidity"
}

// Extract emits a LiquidityEvent for every "mint" (add) or "burn" (remove)
// receipt event, attributed to the transaction sender.
func (liquidityExtractor) Extract(tx chainevent.Transaction, blockID chainevent.BlockIdentifier) []chainevent.DomainEvent {
	if !tx.Metadata.Success {
		return nil
	}

	var events []chainevent.DomainEvent
	for _, receipt := range tx.Metadata.ReceiptEvents {
		var change chainevent.LiquidityChange
		switch receipt.Data.Topic {
		case chainevent.ReceiptTopicMint:
			change = chainevent.LiquidityAdd
		case chainevent.ReceiptTopicBurn:
			change = chainevent.LiquidityRemove
		default:
			continue
		}

		events = append(events, chainevent.LiquidityEvent{
			TxHash:      tx.Identifier.Hash,
			Change:      change,
			Actor:       tx.Metadata.Sender,
			BlockHeight: blockID.Index,
		})
	}

	return events
}
