package extract

import "github.com/gabapcia/hookrelay/internal/chainevent"

// whaleExtractor flags credit operations at or above a configured threshold.
//
// The threshold is injected at construction rather than read from process
// state, so differently configured instances can coexist in tests and in
// multi-tenant deployments.
type whaleExtractor struct {
	threshold int64 // minimum absolute credit amount, in base units
}

var _ Extractor = whaleExtractor{}

// NewWhaleExtractor returns an extractor that emits a WhaleEvent for every
// credit whose absolute amount is greater than or equal to threshold.
func NewWhaleExtractor(threshold int64) Extractor {
	return whaleExtractor{threshold: threshold}
}

// Name implements Extractor.
func (whaleExtractor) Name() string {
	return "whale"
}

// Extract scans the transaction's operations for credits meeting the
// threshold. Operations without an amount are skipped.
func (e whaleExtractor) Extract(tx chainevent.Transaction, blockID chainevent.BlockIdentifier) []chainevent.DomainEvent {
	if !tx.Metadata.Success {
		return nil
	}

	var events []chainevent.DomainEvent
	for _, op := range tx.Operations {
		if op.Type != chainevent.OperationCredit || op.Amount == nil {
			continue
		}

		amount := op.Amount.Value
		if amount < 0 {
			amount = -amount
		}

		if amount < e.threshold {
			continue
		}

		events = append(events, chainevent.WhaleEvent{
			TxHash:      tx.Identifier.Hash,
			Amount:      amount,
			FromSender:  tx.Metadata.Sender,
			ToAccount:   op.Account.Address,
			BlockHeight: blockID.Index,
		})
	}

	return events
}
