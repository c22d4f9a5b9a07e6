package usecase

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/config"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

var (
	ErrFlatSignal          = errors.New("signal carries no trade intent")
	ErrDuplicatePosition   = errors.New("position already open in this direction")
	ErrInsufficientCapital = errors.New("available capital below minimum notional")
	ErrExposureLimit       = errors.New("max portfolio exposure reached")
	ErrSizeTooSmall        = errors.New("sized quantity floors to zero")
)

// RiskEngine converts signals into sized order proposals under the configured
// capital limits. Settings are read under a lock on every call so a mid-cycle
// update is picked up by the next proposal, never a stale snapshot.
type RiskEngine struct {
	mu  sync.RWMutex
	cfg config.RiskConfig
}

func NewRiskEngine(cfg config.RiskConfig) *RiskEngine {
	return &RiskEngine{cfg: cfg}
}

// Settings returns the current risk configuration.
func (e *RiskEngine) Settings() config.RiskConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// UpdateSettings replaces the risk configuration.
func (e *RiskEngine) UpdateSettings(cfg config.RiskConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// Size turns a signal plus portfolio state into an order proposal.
//
// Position size = (available capital x risk per trade) / stop distance,
// floored to the lot size. A floored-to-zero size is rejected, never rounded
// up. An open position in the same direction is rejected (no pyramiding); an
// open position in the opposite direction yields a reduce-only close proposal.
func (e *RiskEngine) Size(sig domain.Signal, state *domain.PortfolioState) (*domain.OrderProposal, error) {
	if sig.Flat() {
		return nil, ErrFlatSignal
	}
	if sig.Price <= 0 {
		return nil, &domain.ValidationError{Field: "price", Reason: "signal price must be positive"}
	}

	cfg := e.Settings()

	if pos, ok := state.Positions[sig.Symbol]; ok {
		if pos.Direction == sig.Direction {
			return nil, ErrDuplicatePosition
		}
		// Opposite-direction signal closes the open position instead of
		// stacking a new entry.
		return e.CloseProposal(pos, sig.Price, "SIGNAL"), nil
	}

	if state.AvailableCapital < cfg.MinNotional {
		return nil, ErrInsufficientCapital
	}

	entry := sig.Price
	stopDistance := entry * cfg.StopLossPct
	if stopDistance <= 0 {
		return nil, &domain.ValidationError{Field: "stopLossPct", Reason: "stop distance must be positive"}
	}

	riskCapital := state.AvailableCapital * cfg.RiskPerTrade
	quantity := floorToLot(riskCapital/stopDistance, cfg.LotSize)
	if quantity <= 0 {
		return nil, ErrSizeTooSmall
	}

	notional := quantity * entry
	if notional < cfg.MinNotional {
		return nil, ErrInsufficientCapital
	}
	if cfg.MaxExposurePct > 0 && state.Exposure()+notional > cfg.MaxExposurePct*state.Equity() {
		return nil, ErrExposureLimit
	}

	var stopLoss, takeProfit float64
	switch sig.Direction {
	case domain.DirectionLong:
		stopLoss = entry * (1 - cfg.StopLossPct)
		takeProfit = entry * (1 + cfg.TakeProfitPct)
	case domain.DirectionShort:
		stopLoss = entry * (1 + cfg.StopLossPct)
		takeProfit = entry * (1 - cfg.TakeProfitPct)
	}

	return &domain.OrderProposal{
		ID:           uuid.NewString(),
		Symbol:       sig.Symbol,
		Direction:    sig.Direction,
		Quantity:     quantity,
		EntryPrice:   entry,
		StopLoss:     stopLoss,
		TakeProfit:   takeProfit,
		RiskFraction: cfg.RiskPerTrade,
		Reason:       fmt.Sprintf("%s: %s", sig.Strategy, sig.Reason),
		CreatedAt:    time.Now(),
	}, nil
}

// CloseProposal builds a reduce-only market proposal that flattens the given
// position at the reference price.
func (e *RiskEngine) CloseProposal(pos *domain.Position, price float64, reason string) *domain.OrderProposal {
	return &domain.OrderProposal{
		ID:         uuid.NewString(),
		Symbol:     pos.Symbol,
		Direction:  pos.Direction.Opposite(),
		Quantity:   pos.Quantity,
		EntryPrice: price,
		ReduceOnly: true,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}
}

func floorToLot(quantity, lotSize float64) float64 {
	if lotSize <= 0 {
		return quantity
	}
	return math.Floor(quantity/lotSize) * lotSize
}
