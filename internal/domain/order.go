package domain

import "time"

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

const (
	OrderPending         OrderStatus = "PENDING"
	OrderSubmitted       OrderStatus = "SUBMITTED"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCancelled       OrderStatus = "CANCELLED"
	OrderFailed          OrderStatus = "FAILED"
)

// Terminal reports whether the status is absorbing. A terminal order never
// transitions again.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderFilled, OrderCancelled, OrderFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal lifecycle step.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case OrderPending:
		return next == OrderSubmitted || next == OrderCancelled || next == OrderFailed
	case OrderSubmitted:
		return next == OrderPartiallyFilled || next == OrderFilled ||
			next == OrderCancelled || next == OrderFailed
	case OrderPartiallyFilled:
		return next == OrderPartiallyFilled || next == OrderFilled ||
			next == OrderCancelled || next == OrderFailed
	}
	return false
}

// OrderProposal is a risk-sized trade the executor is asked to place.
// Built by the risk engine from a signal plus portfolio state; immutable.
type OrderProposal struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Direction    Direction `json:"direction"`
	Quantity     float64   `json:"quantity"`
	EntryPrice   float64   `json:"entryPrice"` // reference, fills may differ
	StopLoss     float64   `json:"stopLoss"`
	TakeProfit   float64   `json:"takeProfit"`
	RiskFraction float64   `json:"riskFraction"` // fraction of capital risked
	ReduceOnly   bool      `json:"reduceOnly"`   // true when closing a position
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Validate checks the proposal is well formed before submission.
// A reduce-only proposal carries no bracket prices, so SL/TP are not checked.
func (p *OrderProposal) Validate() error {
	if p == nil {
		return &ValidationError{Field: "proposal", Reason: "nil proposal"}
	}
	if p.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "symbol is required"}
	}
	if p.Direction != DirectionLong && p.Direction != DirectionShort {
		return &ValidationError{Field: "direction", Reason: "direction must be LONG or SHORT"}
	}
	if p.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "quantity must be positive"}
	}
	if p.EntryPrice <= 0 {
		return &ValidationError{Field: "entryPrice", Reason: "entry price must be positive"}
	}
	if p.ReduceOnly {
		return nil
	}
	switch p.Direction {
	case DirectionLong:
		if !(p.StopLoss < p.EntryPrice && p.EntryPrice < p.TakeProfit) {
			return &ValidationError{Field: "stopLoss", Reason: "long requires SL < entry < TP"}
		}
	case DirectionShort:
		if !(p.TakeProfit < p.EntryPrice && p.EntryPrice < p.StopLoss) {
			return &ValidationError{Field: "stopLoss", Reason: "short requires TP < entry < SL"}
		}
	}
	return nil
}

// Notional returns quantity x entry price, the capital the proposal commits.
func (p *OrderProposal) Notional() float64 {
	return p.Quantity * p.EntryPrice
}

// Order is the executor's record of a submitted proposal. Owned exclusively by
// the executor until terminal, then handed to the portfolio manager as a fact.
type Order struct {
	Proposal        *OrderProposal `json:"proposal"`
	ClientOrderID   string         `json:"clientOrderId"` // idempotency token, assigned once
	ExchangeOrderID int64          `json:"exchangeOrderId,omitempty"`
	SLOrderID       int64          `json:"slOrderId,omitempty"` // exchange-side stop bracket
	TPOrderID       int64          `json:"tpOrderId,omitempty"` // exchange-side profit bracket
	Status          OrderStatus    `json:"status"`
	FilledQuantity  float64        `json:"filledQuantity"`
	AvgFillPrice    float64        `json:"avgFillPrice"`
	Attempts        int            `json:"attempts"`
	FailReason      string         `json:"failReason,omitempty"`
	SubmittedAt     time.Time      `json:"submittedAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Transition moves the order to next, rejecting illegal lifecycle steps.
func (o *Order) Transition(next OrderStatus) error {
	if !o.Status.CanTransition(next) {
		return &InvariantViolation{
			Symbol: o.Proposal.Symbol,
			Reason: "illegal order transition " + string(o.Status) + " -> " + string(next),
		}
	}
	o.Status = next
	o.UpdatedAt = time.Now()
	return nil
}

// Terminal reports whether the order reached an absorbing state.
func (o *Order) Terminal() bool {
	return o.Status.Terminal()
}
