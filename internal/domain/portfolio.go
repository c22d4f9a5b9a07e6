package domain

import "time"

// Position is one open futures position. At most one open position per symbol
// exists at any time; the portfolio manager enforces this.
type Position struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entryPrice"`
	StopLoss   float64   `json:"stopLoss"`
	TakeProfit float64   `json:"takeProfit"`
	OpenedAt   time.Time `json:"openedAt"`
}

// UnrealizedPnL values the position against the given mark price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return (price - p.EntryPrice) * p.Quantity * p.Direction.Sign()
}

// Notional returns quantity x entry price.
func (p *Position) Notional() float64 {
	return p.Quantity * p.EntryPrice
}

// ShouldExit checks the mark price against the position's bracket levels.
// Returns the exit reason ("SL_HIT" or "TP_HIT") or empty when the position holds.
func (p *Position) ShouldExit(price float64) string {
	switch p.Direction {
	case DirectionLong:
		if p.StopLoss > 0 && price <= p.StopLoss {
			return "SL_HIT"
		}
		if p.TakeProfit > 0 && price >= p.TakeProfit {
			return "TP_HIT"
		}
	case DirectionShort:
		if p.StopLoss > 0 && price >= p.StopLoss {
			return "SL_HIT"
		}
		if p.TakeProfit > 0 && price <= p.TakeProfit {
			return "TP_HIT"
		}
	}
	return ""
}

// ClosedTrade is one finished round trip, appended to history at close time.
type ClosedTrade struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Direction       Direction `json:"direction"`
	Quantity        float64   `json:"quantity"`
	EntryPrice      float64   `json:"entryPrice"`
	ExitPrice       float64   `json:"exitPrice"`
	ProfitLoss      float64   `json:"profitLoss"`
	ProfitLossPct   float64   `json:"profitLossPct"`
	ExitReason      string    `json:"exitReason"` // "SL_HIT", "TP_HIT", "MAX_TIME", "SIGNAL", "MANUAL"
	OpenedAt        time.Time `json:"openedAt"`
	ClosedAt        time.Time `json:"closedAt"`
	DurationSeconds int       `json:"durationSeconds"`
}

// PortfolioState is the authoritative record of capital and open positions.
// Mutated only by the portfolio manager in response to terminal orders.
type PortfolioState struct {
	InitialCapital   float64              `json:"initialCapital"`
	AvailableCapital float64              `json:"availableCapital"`
	Positions        map[string]*Position `json:"positions"` // keyed by symbol
	PeakEquity       float64              `json:"peakEquity"`
	MaxDrawdown      float64              `json:"maxDrawdown"` // fraction, peak to trough
	UpdatedAt        time.Time            `json:"updatedAt"`
}

// NewPortfolioState starts a portfolio with the given capital and no positions.
func NewPortfolioState(initialCapital float64) *PortfolioState {
	return &PortfolioState{
		InitialCapital:   initialCapital,
		AvailableCapital: initialCapital,
		Positions:        make(map[string]*Position),
		PeakEquity:       initialCapital,
		UpdatedAt:        time.Now(),
	}
}

// Exposure returns the total notional committed to open positions.
func (s *PortfolioState) Exposure() float64 {
	total := 0.0
	for _, p := range s.Positions {
		total += p.Notional()
	}
	return total
}

// Equity returns available capital plus committed notional.
func (s *PortfolioState) Equity() float64 {
	return s.AvailableCapital + s.Exposure()
}

// PortfolioStats summarizes closed-trade performance for a period.
type PortfolioStats struct {
	TotalTrades    int     `json:"totalTrades"`
	WinRate        float64 `json:"winRate"`
	TotalProfit    float64 `json:"totalProfit"`
	TotalProfitPct float64 `json:"totalProfitPct"`
	AvgDuration    int     `json:"avgDuration"`
	MaxDrawdown    float64 `json:"maxDrawdown"`
}

// PortfolioRepository persists portfolio state and the append-only trade log.
// State is written after every mutation and read back at startup.
type PortfolioRepository interface {
	SaveState(state *PortfolioState) error
	LoadState() (*PortfolioState, error)
	AppendClosedTrade(trade *ClosedTrade) error
	GetClosedTrades(fromTime time.Time) []*ClosedTrade
}
