package chainevent

// EventKind tags a domain event variant. Receipt payloads are decoded into
// exactly one of these at extraction time, so downstream consumers switch on
// the kind instead of re-inspecting loose JSON.
type EventKind string

const (
	EventKindSwap      EventKind = "swap"
	EventKindWhale     EventKind = "whale_transfer"
	EventKindLiquidity EventKind = "liquidity"
)

// DomainEvent is one typed event projected out of a transaction by an
// extractor.
type DomainEvent interface {
	// Kind reports which variant this event is.
	Kind() EventKind

	// TransactionHash identifies the transaction the event was extracted
	// from, so retractions can be correlated downstream.
	TransactionHash() string
}

// SwapEvent is a DEX trade: amounts are in base units of the respective
// tokens. Scaling for display is a presentation concern and happens elsewhere.
type SwapEvent struct {
	TxHash      string `json:"txHash"`
	AmountIn    int64  `json:"amountIn"`
	AmountOut   int64  `json:"amountOut"`
	TokenIn     string `json:"tokenIn"`
	TokenOut    string `json:"tokenOut"`
	BlockHeight uint64 `json:"blockHeight"`
}

func (e SwapEvent) Kind() EventKind         { return EventKindSwap }
func (e SwapEvent) TransactionHash() string { return e.TxHash }

// WhaleEvent is a credit at or above the configured large-transfer threshold.
// Amount is the absolute value of the credited amount in base units.
type WhaleEvent struct {
	TxHash      string `json:"txHash"`
	Amount      int64  `json:"amount"`
	FromSender  string `json:"fromSender"`
	ToAccount   string `json:"toAccount"`
	BlockHeight uint64 `json:"blockHeight"`
}

func (e WhaleEvent) Kind() EventKind         { return EventKindWhale }
func (e WhaleEvent) TransactionHash() string { return e.TxHash }

// LiquidityChange says whether liquidity was added to or removed from a pool.
type LiquidityChange string

const (
	LiquidityAdd    LiquidityChange = "add"
	LiquidityRemove LiquidityChange = "remove"
)

// LiquidityEvent is a pool mint or burn attributed to the transaction sender.
type LiquidityEvent struct {
	TxHash      string          `json:"txHash"`
	Change      LiquidityChange `json:"change"`
	Actor       string          `json:"actor"`
	BlockHeight uint64          `json:"blockHeight"`
}

func (e LiquidityEvent) Kind() EventKind         { return EventKindLiquidity }
func (e LiquidityEvent) TransactionHash() string { return e.TxHash }

// RetractionEvent compensates a previously delivered transaction whose block
// was rolled back by a chain reorganization. Handlers holding derived state
// use it to undo the transaction's effects.
type RetractionEvent struct {
	TransactionHash string `json:"txHash"`
	BlockHeight     uint64 `json:"blockHeight"`
	BlockHash       string `json:"blockHash"`
}
