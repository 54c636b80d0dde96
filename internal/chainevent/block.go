// Package chainevent defines the wire model for event batches pushed by the
// chain-indexing service, along with the typed domain events the rest of the
// system works with. A batch carries blocks to apply and blocks to roll back
// for a single subscription; block and transaction ordering inside a batch is
// significant and preserved as delivered.
package chainevent

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// BlockIdentifier uniquely identifies a block by height and hash. Identifiers
// are immutable once observed.
type BlockIdentifier struct {
	Index uint64 `json:"index"` // block height
	Hash  string `json:"hash"`  // opaque block hash
}

// Block is one block as delivered by the indexer, with its transactions in
// the order they executed.
type Block struct {
	Identifier   BlockIdentifier `json:"identifier"`
	Timestamp    int64           `json:"timestamp"` // unix seconds
	Transactions []Transaction   `json:"transactions"`
}

// TransactionIdentifier identifies a transaction by hash.
type TransactionIdentifier struct {
	Hash string `json:"hash"`
}

// Transaction is a generic on-chain transaction: ordered operations plus
// execution metadata, including any receipt events the contract emitted.
type Transaction struct {
	Identifier TransactionIdentifier `json:"identifier"`
	Operations []Operation           `json:"operations"`
	Metadata   TransactionMetadata   `json:"metadata"`
}

// TransactionMetadata carries execution outcome and receipt events.
// A transaction with Success == false is observable but contributes no domain
// events downstream.
type TransactionMetadata struct {
	Success       bool           `json:"success"`
	Sender        string         `json:"sender"`
	ReceiptEvents []ReceiptEvent `json:"receiptEvents"`
}

// OperationType classifies a balance-affecting operation.
type OperationType string

const (
	OperationCredit OperationType = "credit"
	OperationDebit  OperationType = "debit"
)

// OperationAmount is a signed amount in base units of a currency.
type OperationAmount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

// OperationAccount names the account an operation touched.
type OperationAccount struct {
	Address string `json:"address"`
}

// Operation is one balance movement inside a transaction. Amount may be
// absent for operations that do not carry a value.
type Operation struct {
	Type    OperationType    `json:"type"`
	Amount  *OperationAmount `json:"amount,omitempty"`
	Account OperationAccount `json:"account"`
}

// ReceiptEvent is one event emitted during transaction execution.
type ReceiptEvent struct {
	Data ReceiptEventData `json:"data"`
}

// ReceiptEventData is the loosely-typed payload of a receipt event: a topic
// naming the event plus topic-specific fields. Fields are decoded once here
// and interpreted by extractors; unknown topics and missing fields are
// tolerated rather than rejected, since the upstream schema drifts.
type ReceiptEventData struct {
	Topic  string
	Fields map[string]any
}

// Receipt event topics the extractors understand.
const (
	ReceiptTopicSwap = "swap"
	ReceiptTopicMint = "mint"
	ReceiptTopicBurn = "burn"
)

// UnmarshalJSON splits the payload into the topic and the remaining fields.
// Numbers are kept as json.Number so large base-unit amounts survive intact.
func (d *ReceiptEventData) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	topic, _ := raw["topic"].(string)
	delete(raw, "topic")

	d.Topic = topic
	d.Fields = raw
	return nil
}

// MarshalJSON restores the flat wire shape with the topic inlined among the
// remaining fields.
func (d ReceiptEventData) MarshalJSON() ([]byte, error) {
	raw := make(map[string]any, len(d.Fields)+1)
	for k, v := range d.Fields {
		raw[k] = v
	}
	raw["topic"] = d.Topic
	return json.Marshal(raw)
}

// StringField returns the named field as a non-empty string. The second
// return value is false when the field is absent, empty, or not a string.
func (d ReceiptEventData) StringField(key string) (string, bool) {
	s, ok := d.Fields[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// IntField returns the named field as an int64. JSON numbers and numeric
// strings are both accepted; anything else reports false.
func (d ReceiptEventData) IntField(key string) (int64, bool) {
	switch v := d.Fields[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
