package chainevent

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gabapcia/hookrelay/internal/pkg/validator"
)

// ErrMalformedBatch indicates a structurally invalid batch payload: missing
// apply/rollback sets, a missing subscription identifier, or apply blocks out
// of order. Malformed batches are rejected before any state is touched and
// must be fixed by the sender rather than retried as-is.
var ErrMalformedBatch = errors.New("malformed event batch")

// Batch is the unit of delivery from the chain-indexing service: the blocks
// to roll back and the blocks to apply for one subscription. Rollback blocks
// are logically un-applied before apply blocks are replayed, so a reorg always
// retracts stale history before the canonical history lands. A batch is never
// partially processed.
type Batch struct {
	Apply          []Block `json:"apply"`
	Rollback       []Block `json:"rollback"`
	SubscriptionID string  `json:"subscriptionId"`
	IsStreaming    bool    `json:"isStreaming"`
}

// batchPayload is the decode envelope. Pointer slices distinguish "key
// absent" from "empty array": a rollback-only batch legitimately carries an
// empty apply set, but a payload without the apply key at all is malformed.
type batchPayload struct {
	Apply          *[]Block `json:"apply" validate:"required"`
	Rollback       *[]Block `json:"rollback" validate:"required"`
	SubscriptionID string   `json:"subscriptionId" validate:"required"`
	IsStreaming    bool     `json:"isStreaming"`
}

// DecodeBatch parses and validates an inbound batch payload. Any structural
// problem is reported wrapped in ErrMalformedBatch.
func DecodeBatch(data []byte) (Batch, error) {
	var payload batchPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Batch{}, fmt.Errorf("%w: %w", ErrMalformedBatch, err)
	}

	if err := validator.Validate(payload); err != nil {
		return Batch{}, fmt.Errorf("%w: %w", ErrMalformedBatch, err)
	}

	batch := Batch{
		Apply:          *payload.Apply,
		Rollback:       *payload.Rollback,
		SubscriptionID: payload.SubscriptionID,
		IsStreaming:    payload.IsStreaming,
	}

	return batch, batch.Validate()
}

// Validate checks the batch invariants that hold independently of any
// subscription state: a present subscription identifier and apply heights
// that never decrease within the batch.
func (b Batch) Validate() error {
	if b.SubscriptionID == "" {
		return fmt.Errorf("%w: missing subscription identifier", ErrMalformedBatch)
	}

	for i := 1; i < len(b.Apply); i++ {
		prev, curr := b.Apply[i-1].Identifier.Index, b.Apply[i].Identifier.Index
		if curr < prev {
			return fmt.Errorf("%w: apply block %d at height %d precedes height %d", ErrMalformedBatch, i, curr, prev)
		}
	}

	return nil
}
