package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/config"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

// OrderExecutor submits proposals to the exchange and tracks each order to a
// terminal state. It is the only component that talks to the venue's order
// endpoints. Transient errors are retried with bounded exponential backoff;
// after the attempt ceiling the order fails loudly, it is never dropped.
type OrderExecutor struct {
	exchange domain.Exchange
	notifier domain.Notifier
	cfg      config.ExecutorConfig
	dryRun   bool

	mu     sync.Mutex
	orders map[string]*domain.Order // keyed by proposal ID, dedupes resubmission
}

func NewOrderExecutor(exchange domain.Exchange, notifier domain.Notifier, cfg config.ExecutorConfig, dryRun bool) *OrderExecutor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if dryRun {
		log.Println("OrderExecutor running in DRY RUN mode, fills are simulated")
	}
	return &OrderExecutor{
		exchange: exchange,
		notifier: notifier,
		cfg:      cfg,
		dryRun:   dryRun,
		orders:   make(map[string]*domain.Order),
	}
}

// Submit places a proposal. Submitting the same proposal again returns the
// order already created for it; the client order ID acts as the idempotency
// token and is reused across every retry of one submission.
func (x *OrderExecutor) Submit(ctx context.Context, proposal *domain.OrderProposal) (*domain.Order, error) {
	if err := proposal.Validate(); err != nil {
		return nil, err
	}

	x.mu.Lock()
	if existing, ok := x.orders[proposal.ID]; ok {
		x.mu.Unlock()
		return existing, nil
	}
	order := &domain.Order{
		Proposal:      proposal,
		ClientOrderID: uuid.NewString(),
		Status:        domain.OrderPending,
		SubmittedAt:   time.Now(),
		UpdatedAt:     time.Now(),
	}
	x.orders[proposal.ID] = order
	x.mu.Unlock()

	if x.dryRun {
		x.simulateFill(order)
		return order, nil
	}

	if x.cfg.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.cfg.SubmitTimeout)
		defer cancel()
	}

	var lastErr error
	backoff := x.cfg.RetryBackoff
	for attempt := 1; attempt <= x.cfg.MaxAttempts; attempt++ {
		order.Attempts = attempt

		ack, err := x.exchange.PlaceOrder(ctx, proposal, order.ClientOrderID)
		if err == nil {
			if terr := order.Transition(domain.OrderSubmitted); terr != nil {
				return order, terr
			}
			x.applyAck(order, ack)
			return order, nil
		}
		lastErr = err

		if domain.IsRejection(err) || domain.IsValidation(err) {
			x.fail(order, err.Error())
			return order, err
		}
		if !domain.IsTransient(err) {
			x.fail(order, err.Error())
			return order, err
		}

		log.Printf("Transient error submitting %s (attempt %d/%d): %v",
			proposal.Symbol, attempt, x.cfg.MaxAttempts, err)

		if attempt == x.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			x.fail(order, "submission timed out: "+ctx.Err().Error())
			return order, lastErr
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	x.fail(order, fmt.Sprintf("retry ceiling reached after %d attempts: %v", x.cfg.MaxAttempts, lastErr))
	return order, lastErr
}

// Poll refreshes a non-terminal order from the exchange. Terminal orders are
// left untouched.
func (x *OrderExecutor) Poll(ctx context.Context, order *domain.Order) error {
	if order.Terminal() || x.dryRun {
		return nil
	}
	ack, err := x.exchange.GetOrderStatus(ctx, order.Proposal.Symbol, order.ExchangeOrderID)
	if err != nil {
		return err
	}
	x.applyAck(order, ack)
	return nil
}

// Cancel asks the venue to cancel a non-terminal order.
func (x *OrderExecutor) Cancel(ctx context.Context, order *domain.Order) error {
	if order.Terminal() {
		return &domain.InvariantViolation{
			Symbol: order.Proposal.Symbol,
			Reason: "cannot cancel order in terminal state " + string(order.Status),
		}
	}
	if !x.dryRun && order.ExchangeOrderID != 0 {
		if err := x.exchange.CancelOrder(ctx, order.Proposal.Symbol, order.ExchangeOrderID); err != nil {
			return err
		}
	}
	return order.Transition(domain.OrderCancelled)
}

// InflightOrders returns tracked orders that have not reached a terminal
// state. The orchestrator polls these at the start of each cycle so a slow
// fill never blocks scheduling. Terminal orders encountered here have already
// been booked, so they are evicted to keep the map from growing one entry per
// trade for the life of the process.
func (x *OrderExecutor) InflightOrders() []*domain.Order {
	x.mu.Lock()
	defer x.mu.Unlock()
	var out []*domain.Order
	for id, o := range x.orders {
		if o.Terminal() {
			delete(x.orders, id)
			continue
		}
		out = append(out, o)
	}
	return out
}

// HasInflight reports whether a non-terminal order is working for the symbol.
// A working order occupies its symbol: no new proposal may be sized for it
// until the order resolves, or the venue could hold a position the portfolio
// never sees.
func (x *OrderExecutor) HasInflight(symbol string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, o := range x.orders {
		if !o.Terminal() && o.Proposal.Symbol == symbol {
			return true
		}
	}
	return false
}

// simulateFill fills the order immediately at the proposal's reference price.
func (x *OrderExecutor) simulateFill(order *domain.Order) {
	_ = order.Transition(domain.OrderSubmitted)
	order.FilledQuantity = order.Proposal.Quantity
	order.AvgFillPrice = order.Proposal.EntryPrice
	_ = order.Transition(domain.OrderFilled)
	log.Printf("Simulated fill: %s %s %.6f @ %.4f",
		order.Proposal.Direction, order.Proposal.Symbol, order.FilledQuantity, order.AvgFillPrice)
}

// applyAck folds an exchange acknowledgment into the order, respecting the
// terminal-state guard.
func (x *OrderExecutor) applyAck(order *domain.Order, ack *domain.OrderAck) {
	if ack == nil {
		return
	}
	if ack.ExchangeOrderID != 0 {
		order.ExchangeOrderID = ack.ExchangeOrderID
	}
	if ack.FilledQuantity > 0 {
		order.FilledQuantity = ack.FilledQuantity
	}
	if ack.AvgFillPrice > 0 {
		order.AvgFillPrice = ack.AvgFillPrice
	}
	if ack.Status != "" && ack.Status != order.Status {
		if err := order.Transition(ack.Status); err != nil {
			log.Printf("Ignoring illegal status update for %s: %v", order.Proposal.Symbol, err)
		}
	}
}

func (x *OrderExecutor) fail(order *domain.Order, reason string) {
	order.FailReason = reason
	if err := order.Transition(domain.OrderFailed); err != nil {
		log.Printf("Order fail transition: %v", err)
		return
	}
	log.Printf("Order FAILED for %s: %s", order.Proposal.Symbol, reason)
	if x.notifier != nil {
		x.notifier.Notify(domain.EventOrderFailed,
			fmt.Sprintf("Order failed: %s", order.Proposal.Symbol),
			reason,
			map[string]string{
				"symbol":        order.Proposal.Symbol,
				"clientOrderId": order.ClientOrderID,
				"status":        string(order.Status),
			})
	}
}
