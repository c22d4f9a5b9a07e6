package repository

import (
	"sync"
	"time"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

// InMemoryPortfolioRepository keeps portfolio state and trade history in
// process memory. Used in dry-run setups and tests where persistence across
// restarts does not matter.
type InMemoryPortfolioRepository struct {
	mu     sync.RWMutex
	state  *domain.PortfolioState
	trades []*domain.ClosedTrade
}

func NewInMemoryPortfolioRepository() *InMemoryPortfolioRepository {
	return &InMemoryPortfolioRepository{}
}

func (r *InMemoryPortfolioRepository) SaveState(state *domain.PortfolioState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Deep copy so later mutations by the caller do not leak in.
	cp := *state
	cp.Positions = make(map[string]*domain.Position, len(state.Positions))
	for sym, pos := range state.Positions {
		p := *pos
		cp.Positions[sym] = &p
	}
	r.state = &cp
	return nil
}

func (r *InMemoryPortfolioRepository) LoadState() (*domain.PortfolioState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state == nil {
		return nil, nil
	}
	cp := *r.state
	cp.Positions = make(map[string]*domain.Position, len(r.state.Positions))
	for sym, pos := range r.state.Positions {
		p := *pos
		cp.Positions[sym] = &p
	}
	return &cp, nil
}

func (r *InMemoryPortfolioRepository) AppendClosedTrade(trade *domain.ClosedTrade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := *trade
	r.trades = append(r.trades, &t)
	return nil
}

func (r *InMemoryPortfolioRepository) GetClosedTrades(fromTime time.Time) []*domain.ClosedTrade {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.ClosedTrade, 0, len(r.trades))
	for _, t := range r.trades {
		if t.ClosedAt.Before(fromTime) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out
}

var _ domain.PortfolioRepository = (*InMemoryPortfolioRepository)(nil)
