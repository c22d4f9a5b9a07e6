package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/config"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

func testBotConfig() config.Config {
	cfg := config.Default()
	cfg.Symbols = []string{"BTCUSDT"}
	cfg.WindowSize = 10
	cfg.DryRun = false
	cfg.Risk = testRiskConfig()
	cfg.Executor = testExecutorConfig()
	return cfg
}

func newTestOrchestrator(t *testing.T, ex *fakeExchange, capital float64) (*Orchestrator, *PortfolioManager, *OrderExecutor) {
	t.Helper()
	pm, _ := newTestPortfolio(t, capital)
	executor := NewOrderExecutor(ex, nil, testExecutorConfig(), false)
	o := NewOrchestrator(
		testBotConfig(), ex, nil,
		NewSignalEngine(longStub("always-long")),
		NewRiskEngine(testRiskConfig()),
		executor, pm, nil,
	)
	return o, pm, executor
}

// A symbol with a working order must not be sized again: until the order
// resolves, the portfolio does not reflect its capital, and a second entry
// would break the one-position-per-symbol invariant on the venue side.
func TestCycleWorkingOrderOccupiesSymbol(t *testing.T) {
	ex := &fakeExchange{
		placeResults: []placeResult{{ack: submittedAck()}},
		statusAck:    submittedAck(), // order keeps working across polls
	}
	o, pm, _ := newTestOrchestrator(t, ex, 1000)

	o.Cycle(context.Background())
	require.Equal(t, 1, ex.placeCalls)
	require.Empty(t, pm.State().Positions)

	// Same long signal next cycle, order still not filled: nothing new is sent.
	o.Cycle(context.Background())
	require.Equal(t, 1, ex.placeCalls)
	require.Empty(t, pm.State().Positions)

	// Once the fill arrives the position is booked exactly once.
	ex.statusAck = &domain.OrderAck{
		ExchangeOrderID: 42,
		Status:          domain.OrderFilled,
		FilledQuantity:  5,
		AvgFillPrice:    100,
	}
	o.Cycle(context.Background())
	require.Equal(t, 1, ex.placeCalls)
	require.Len(t, pm.State().Positions, 1)
	require.InDelta(t, 500.0, pm.State().AvailableCapital, 1e-9)
}

func TestClosePositionBlockedWhileOrderWorking(t *testing.T) {
	ex := &fakeExchange{
		placeResults: []placeResult{{ack: submittedAck()}},
		statusAck:    submittedAck(),
	}
	o, pm, executor := newTestOrchestrator(t, ex, 1000)

	require.NoError(t, pm.Apply(filledOrder(entryProposal("p0"), 0.5, 100), ""))

	// No exit condition triggers at price 100, so the working order comes from
	// a direct submission rather than the cycle.
	_, err := executor.Submit(context.Background(), entryProposal("p1"))
	require.NoError(t, err)

	err = o.ClosePosition(context.Background(), "BTCUSDT", "MANUAL")
	require.Error(t, err)
	require.Contains(t, err.Error(), "still working")
}
