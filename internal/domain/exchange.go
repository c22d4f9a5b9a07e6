package domain

import "context"

// OrderAck is the exchange's typed view of an order after placement or a
// status poll. The core never parses venue wire formats directly.
type OrderAck struct {
	ExchangeOrderID int64
	Status          OrderStatus
	FilledQuantity  float64
	AvgFillPrice    float64
}

// Exchange is the venue collaborator. The order executor is the only component
// allowed to call the order endpoints.
type Exchange interface {
	// PlaceOrder submits a proposal. The idempotency token is client-assigned
	// and reused across retries so the venue can deduplicate.
	PlaceOrder(ctx context.Context, proposal *OrderProposal, idempotencyToken string) (*OrderAck, error)
	GetOrderStatus(ctx context.Context, symbol string, exchangeOrderID int64) (*OrderAck, error)
	CancelOrder(ctx context.Context, symbol string, exchangeOrderID int64) error
	GetMarketSnapshot(ctx context.Context, symbol string) (*MarketSnapshot, error)
}

// BracketPlacer is implemented by exchanges that can hold stop-loss and
// take-profit orders venue-side, closing whatever quantity is open.
type BracketPlacer interface {
	PlaceBracketOrders(ctx context.Context, position *Position) (slOrderID, tpOrderID int64, err error)
}
