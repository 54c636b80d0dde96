package extract

import "github.com/gabapcia/hookrelay/internal/chainevent"

// swapExtractor scans receipt events for DEX swap topics.
type swapExtractor struct{}

var _ Extractor = swapExtractor{}

// NewSwapExtractor returns the extractor for DEX swap receipt events.
func NewSwapExtractor() Extractor {
	return swapExtractor{}
}

// Name implements Extractor.
func (swapExtractor) Name() string {
	return "swap"
}

// Extract emits one SwapEvent per "swap" receipt event carrying numeric dx/dy
// amounts and non-empty token identifiers. Receipt events missing any of
// those fields are skipped silently.
func (swapExtractor) Extract(tx chainevent.Transaction, blockID chainevent.BlockIdentifier) []chainevent.DomainEvent {
	if !tx.Metadata.Success {
		return nil
	}

	var events []chainevent.DomainEvent
	for _, receipt := range tx.Metadata.ReceiptEvents {
		if receipt.Data.Topic != chainevent.ReceiptTopicSwap {
			continue
		}

		dx, ok := receipt.Data.IntField("dx")
		if !ok {
			continue
		}

		dy, ok := receipt.Data.IntField("dy")
		if !ok {
			continue
		}

		tokenX, ok := receipt.Data.StringField("token_x")
		if !ok {
			continue
		}

		tokenY, ok := receipt.Data.StringField("token_y")
		if !ok {
			continue
		}

		events = append(events, chainevent.SwapEvent{
			TxHash:      tx.Identifier.Hash,
			AmountIn:    dx,
			AmountOut:   dy,
			TokenIn:     tokenX,
			TokenOut:    tokenY,
			BlockHeight: blockID.Index,
		})
	}

	return events
}
