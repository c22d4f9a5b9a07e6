package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/repository"
)

func newTestPortfolio(t *testing.T, capital float64) (*PortfolioManager, *repository.InMemoryPortfolioRepository) {
	t.Helper()
	repo := repository.NewInMemoryPortfolioRepository()
	pm, err := NewPortfolioManager(repo, nil, capital)
	require.NoError(t, err)
	return pm, repo
}

func filledOrder(p *domain.OrderProposal, qty, price float64) *domain.Order {
	return &domain.Order{
		Proposal:       p,
		ClientOrderID:  "c-" + p.ID,
		Status:         domain.OrderFilled,
		FilledQuantity: qty,
		AvgFillPrice:   price,
	}
}

func TestApplyOpensPosition(t *testing.T) {
	pm, _ := newTestPortfolio(t, 1000)

	require.NoError(t, pm.Apply(filledOrder(entryProposal("p1"), 0.5, 100), ""))

	state := pm.State()
	require.InDelta(t, 950.0, state.AvailableCapital, 1e-9)
	pos := state.Positions["BTCUSDT"]
	require.NotNil(t, pos)
	require.InDelta(t, 0.5, pos.Quantity, 1e-9)
	require.InDelta(t, 100.0, pos.EntryPrice, 1e-9)
	require.InDelta(t, 98.0, pos.StopLoss, 1e-9)
}

func TestRoundTripAtEntryPriceIsExact(t *testing.T) {
	pm, _ := newTestPortfolio(t, 1000)

	require.NoError(t, pm.Apply(filledOrder(entryProposal("p1"), 0.5, 100), ""))

	closeProposal := entryProposal("p2")
	closeProposal.Direction = domain.DirectionShort
	closeProposal.ReduceOnly = true
	require.NoError(t, pm.Apply(filledOrder(closeProposal, 0.5, 100), "SIGNAL"))

	state := pm.State()
	require.InDelta(t, 1000.0, state.AvailableCapital, 1e-9)
	require.Empty(t, state.Positions)
}

func TestCloseBooksPnLAndTrade(t *testing.T) {
	pm, repo := newTestPortfolio(t, 1000)

	require.NoError(t, pm.Apply(filledOrder(entryProposal("p1"), 0.5, 100), ""))

	closeProposal := entryProposal("p2")
	closeProposal.Direction = domain.DirectionShort
	closeProposal.ReduceOnly = true
	require.NoError(t, pm.Apply(filledOrder(closeProposal, 0.5, 104), "TP_HIT"))

	state := pm.State()
	// 950 back from notional 50 plus pnl (104-100)*0.5 = 2.
	require.InDelta(t, 1002.0, state.AvailableCapital, 1e-9)

	trades := repo.GetClosedTrades(time.Time{})
	require.Len(t, trades, 1)
	require.Equal(t, "TP_HIT", trades[0].ExitReason)
	require.InDelta(t, 2.0, trades[0].ProfitLoss, 1e-9)
	require.InDelta(t, 0.04, trades[0].ProfitLossPct, 1e-9)
}

func TestApplyNonTerminalRejected(t *testing.T) {
	pm, _ := newTestPortfolio(t, 1000)

	order := filledOrder(entryProposal("p1"), 0.5, 100)
	order.Status = domain.OrderSubmitted
	err := pm.Apply(order, "")
	require.Error(t, err)
	require.True(t, domain.IsInvariant(err))
}

func TestApplyDuplicateOpenRejected(t *testing.T) {
	pm, _ := newTestPortfolio(t, 1000)

	require.NoError(t, pm.Apply(filledOrder(entryProposal("p1"), 0.5, 100), ""))
	err := pm.Apply(filledOrder(entryProposal("p2"), 0.5, 100), "")
	require.Error(t, err)
	require.True(t, domain.IsInvariant(err))

	// First position is untouched.
	state := pm.State()
	require.Len(t, state.Positions, 1)
	require.InDelta(t, 950.0, state.AvailableCapital, 1e-9)
}

func TestConcurrentOpensYieldOnePosition(t *testing.T) {
	pm, _ := newTestPortfolio(t, 1000)

	var wg sync.WaitGroup
	results := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p := entryProposal("p" + string(rune('0'+n)))
			results[n] = pm.Apply(filledOrder(p, 0.5, 100), "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	require.Equal(t, 1, succeeded)
	require.Len(t, pm.State().Positions, 1)
	require.InDelta(t, 950.0, pm.State().AvailableCapital, 1e-9)
}

func TestCancelledPartialFillIsBooked(t *testing.T) {
	pm, _ := newTestPortfolio(t, 1000)

	order := filledOrder(entryProposal("p1"), 0.2, 100)
	order.Status = domain.OrderCancelled
	require.NoError(t, pm.Apply(order, ""))

	state := pm.State()
	pos := state.Positions["BTCUSDT"]
	require.NotNil(t, pos)
	require.InDelta(t, 0.2, pos.Quantity, 1e-9)
	require.InDelta(t, 980.0, state.AvailableCapital, 1e-9)
}

func TestFailedOrderBooksNothing(t *testing.T) {
	pm, _ := newTestPortfolio(t, 1000)

	order := filledOrder(entryProposal("p1"), 0, 0)
	order.Status = domain.OrderFailed
	require.NoError(t, pm.Apply(order, ""))
	require.Empty(t, pm.State().Positions)
	require.InDelta(t, 1000.0, pm.State().AvailableCapital, 1e-9)
}

func TestCloseWithoutPositionRejected(t *testing.T) {
	pm, _ := newTestPortfolio(t, 1000)

	closeProposal := entryProposal("p1")
	closeProposal.ReduceOnly = true
	err := pm.Apply(filledOrder(closeProposal, 0.5, 100), "SIGNAL")
	require.Error(t, err)
	require.True(t, domain.IsInvariant(err))
}

func TestStateRecoveredFromRepository(t *testing.T) {
	repo := repository.NewInMemoryPortfolioRepository()
	pm, err := NewPortfolioManager(repo, nil, 1000)
	require.NoError(t, err)
	require.NoError(t, pm.Apply(filledOrder(entryProposal("p1"), 0.5, 100), ""))

	recovered, err := NewPortfolioManager(repo, nil, 999) // capital arg ignored on recovery
	require.NoError(t, err)
	state := recovered.State()
	require.InDelta(t, 950.0, state.AvailableCapital, 1e-9)
	require.Len(t, state.Positions, 1)
}
