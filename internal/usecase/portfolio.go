package usecase

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

// PortfolioManager is the single writer of portfolio state. It books terminal
// orders into positions and capital, enforces one open position per symbol,
// and persists every mutation through the repository.
type PortfolioManager struct {
	repo     domain.PortfolioRepository
	notifier domain.Notifier

	mu    sync.Mutex
	state *domain.PortfolioState

	symMu sync.Mutex
	locks map[string]*sync.Mutex // per-symbol, serializes open/close per market
}

// NewPortfolioManager loads persisted state, falling back to a fresh portfolio
// with the given capital when none exists.
func NewPortfolioManager(repo domain.PortfolioRepository, notifier domain.Notifier, initialCapital float64) (*PortfolioManager, error) {
	state, err := repo.LoadState()
	if err != nil {
		return nil, fmt.Errorf("load portfolio state: %w", err)
	}
	if state == nil {
		state = domain.NewPortfolioState(initialCapital)
		if err := repo.SaveState(state); err != nil {
			return nil, fmt.Errorf("save initial portfolio state: %w", err)
		}
		log.Printf("Starting fresh portfolio with capital %.2f", initialCapital)
	} else {
		log.Printf("Recovered portfolio: capital %.2f, %d open positions",
			state.AvailableCapital, len(state.Positions))
	}
	return &PortfolioManager{
		repo:     repo,
		notifier: notifier,
		state:    state,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

func (m *PortfolioManager) symbolLock(symbol string) *sync.Mutex {
	m.symMu.Lock()
	defer m.symMu.Unlock()
	l, ok := m.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		m.locks[symbol] = l
	}
	return l
}

// State returns a deep copy of the current portfolio state.
func (m *PortfolioManager) State() *domain.PortfolioState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyState()
}

func (m *PortfolioManager) copyState() *domain.PortfolioState {
	cp := *m.state
	cp.Positions = make(map[string]*domain.Position, len(m.state.Positions))
	for sym, pos := range m.state.Positions {
		p := *pos
		cp.Positions[sym] = &p
	}
	return &cp
}

// HasPosition reports whether a position is open for the symbol.
func (m *PortfolioManager) HasPosition(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.state.Positions[symbol]
	return ok
}

// Position returns a copy of the open position for the symbol, or nil.
func (m *PortfolioManager) Position(symbol string) *domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.state.Positions[symbol]
	if !ok {
		return nil
	}
	p := *pos
	return &p
}

// Apply books a terminal order into the portfolio. Filled entries open a
// position; filled reduce-only orders close one; cancelled orders with a
// partial fill are booked at the filled quantity. Non-terminal orders are an
// error: the executor must finish the lifecycle first.
func (m *PortfolioManager) Apply(order *domain.Order, exitReason string) error {
	if !order.Terminal() {
		return &domain.InvariantViolation{
			Symbol: order.Proposal.Symbol,
			Reason: "cannot apply non-terminal order in state " + string(order.Status),
		}
	}

	symbol := order.Proposal.Symbol
	lock := m.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	switch order.Status {
	case domain.OrderFailed:
		return nil // nothing filled, nothing to book
	case domain.OrderCancelled:
		if order.FilledQuantity <= 0 {
			return nil
		}
		// Partial fill survived the cancel; book what actually filled.
	case domain.OrderFilled:
	}

	if order.Proposal.ReduceOnly {
		return m.bookClose(order, exitReason)
	}
	return m.bookOpen(order)
}

func (m *PortfolioManager) bookOpen(order *domain.Order) error {
	symbol := order.Proposal.Symbol

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.Positions[symbol]; ok {
		return &domain.InvariantViolation{
			Symbol: symbol,
			Reason: "position already open, refusing second open",
		}
	}

	qty := order.FilledQuantity
	price := order.AvgFillPrice
	if qty <= 0 || price <= 0 {
		return &domain.InvariantViolation{
			Symbol: symbol,
			Reason: fmt.Sprintf("terminal filled order has qty %.8f price %.8f", qty, price),
		}
	}

	cost := qty * price
	if cost > m.state.AvailableCapital {
		return &domain.InvariantViolation{
			Symbol: symbol,
			Reason: fmt.Sprintf("fill cost %.2f exceeds available capital %.2f", cost, m.state.AvailableCapital),
		}
	}

	pos := &domain.Position{
		Symbol:     symbol,
		Direction:  order.Proposal.Direction,
		Quantity:   qty,
		EntryPrice: price,
		StopLoss:   order.Proposal.StopLoss,
		TakeProfit: order.Proposal.TakeProfit,
		OpenedAt:   time.Now(),
	}
	m.state.Positions[symbol] = pos
	m.state.AvailableCapital -= cost
	m.touchAndPersist()

	log.Printf("📈 Opened %s %s %.6f @ %.4f (SL %.4f, TP %.4f)",
		pos.Direction, symbol, qty, price, pos.StopLoss, pos.TakeProfit)
	if m.notifier != nil {
		m.notifier.Notify(domain.EventPositionOpened,
			fmt.Sprintf("Opened %s %s", pos.Direction, symbol),
			fmt.Sprintf("%.6f @ %.4f", qty, price),
			map[string]string{"symbol": symbol, "direction": string(pos.Direction)})
	}
	return nil
}

func (m *PortfolioManager) bookClose(order *domain.Order, exitReason string) error {
	symbol := order.Proposal.Symbol

	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.state.Positions[symbol]
	if !ok {
		return &domain.InvariantViolation{
			Symbol: symbol,
			Reason: "reduce-only fill with no open position",
		}
	}

	exitPrice := order.AvgFillPrice
	if exitPrice <= 0 {
		exitPrice = order.Proposal.EntryPrice
	}
	pnl := pos.UnrealizedPnL(exitPrice)
	notional := pos.Notional()
	pnlPct := 0.0
	if notional > 0 {
		pnlPct = pnl / notional
	}
	if exitReason == "" {
		exitReason = order.Proposal.Reason
	}

	closedAt := time.Now()
	trade := &domain.ClosedTrade{
		ID:              uuid.NewString(),
		Symbol:          symbol,
		Direction:       pos.Direction,
		Quantity:        pos.Quantity,
		EntryPrice:      pos.EntryPrice,
		ExitPrice:       exitPrice,
		ProfitLoss:      pnl,
		ProfitLossPct:   pnlPct,
		ExitReason:      exitReason,
		OpenedAt:        pos.OpenedAt,
		ClosedAt:        closedAt,
		DurationSeconds: int(closedAt.Sub(pos.OpenedAt).Seconds()),
	}

	delete(m.state.Positions, symbol)
	// Return the committed notional plus realized PnL; a full round trip at
	// the entry price leaves capital exactly unchanged.
	m.state.AvailableCapital += notional + pnl

	equity := m.state.Equity()
	if equity > m.state.PeakEquity {
		m.state.PeakEquity = equity
	} else if m.state.PeakEquity > 0 {
		dd := (m.state.PeakEquity - equity) / m.state.PeakEquity
		if dd > m.state.MaxDrawdown {
			m.state.MaxDrawdown = dd
		}
	}
	m.touchAndPersist()

	if err := m.repo.AppendClosedTrade(trade); err != nil {
		log.Printf("Failed to persist closed trade %s: %v", trade.ID, err)
	}

	log.Printf("📉 Closed %s %s @ %.4f, PnL %.2f (%.2f%%), reason %s",
		pos.Direction, symbol, exitPrice, pnl, pnlPct*100, exitReason)
	if m.notifier != nil {
		m.notifier.Notify(domain.EventPositionClosed,
			fmt.Sprintf("Closed %s %s", pos.Direction, symbol),
			fmt.Sprintf("PnL %.2f (%.2f%%), %s", pnl, pnlPct*100, exitReason),
			map[string]string{"symbol": symbol, "exitReason": exitReason})
	}
	return nil
}

// touchAndPersist stamps the state and writes it through. Caller holds m.mu.
func (m *PortfolioManager) touchAndPersist() {
	m.state.UpdatedAt = time.Now()
	if err := m.repo.SaveState(m.state); err != nil {
		log.Printf("Failed to persist portfolio state: %v", err)
	}
}

// Stats summarizes closed trades since fromTime.
func (m *PortfolioManager) Stats(fromTime time.Time) *domain.PortfolioStats {
	trades := m.repo.GetClosedTrades(fromTime)

	stats := &domain.PortfolioStats{TotalTrades: len(trades)}
	if len(trades) == 0 {
		m.mu.Lock()
		stats.MaxDrawdown = m.state.MaxDrawdown
		m.mu.Unlock()
		return stats
	}

	wins := 0
	totalDuration := 0
	for _, t := range trades {
		if t.ProfitLoss > 0 {
			wins++
		}
		stats.TotalProfit += t.ProfitLoss
		totalDuration += t.DurationSeconds
	}
	stats.WinRate = float64(wins) / float64(len(trades))
	stats.AvgDuration = totalDuration / len(trades)

	m.mu.Lock()
	if m.state.InitialCapital > 0 {
		stats.TotalProfitPct = stats.TotalProfit / m.state.InitialCapital
	}
	stats.MaxDrawdown = m.state.MaxDrawdown
	m.mu.Unlock()
	return stats
}
