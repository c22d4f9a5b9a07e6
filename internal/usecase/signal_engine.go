package usecase

import (
	"time"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

// SignalEngine polls registered strategies in priority order. Registration
// order is the priority: the first strategy returning a non-flat signal wins
// and later strategies are not consulted. Conflicting reads are never averaged.
type SignalEngine struct {
	strategies []domain.Strategy
}

func NewSignalEngine(strategies ...domain.Strategy) *SignalEngine {
	return &SignalEngine{strategies: strategies}
}

// Register appends a strategy at the lowest priority.
func (e *SignalEngine) Register(s domain.Strategy) {
	e.strategies = append(e.strategies, s)
}

// Strategies returns the registered strategies in priority order.
func (e *SignalEngine) Strategies() []domain.Strategy {
	return e.strategies
}

// Generate runs the window through the registry and returns the winning
// signal, or a flat signal when no strategy has an opinion. Pure computation
// over the supplied window.
func (e *SignalEngine) Generate(window *domain.SnapshotWindow) domain.Signal {
	for _, s := range e.strategies {
		sig := s.Generate(window)
		if !sig.Flat() {
			return sig
		}
	}
	return domain.Signal{
		Symbol:    window.Symbol,
		Direction: domain.DirectionFlat,
		Timestamp: time.Now(),
	}
}
