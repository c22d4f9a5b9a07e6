package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

func TestSaveAndLoadStateIsIsolated(t *testing.T) {
	repo := NewInMemoryPortfolioRepository()

	loaded, err := repo.LoadState()
	require.NoError(t, err)
	require.Nil(t, loaded)

	state := domain.NewPortfolioState(1000)
	state.Positions["BTCUSDT"] = &domain.Position{
		Symbol: "BTCUSDT", Direction: domain.DirectionLong, Quantity: 1, EntryPrice: 100,
	}
	require.NoError(t, repo.SaveState(state))

	// Mutating the caller's copy must not leak into the stored state.
	state.AvailableCapital = 0
	state.Positions["BTCUSDT"].Quantity = 99

	loaded, err = repo.LoadState()
	require.NoError(t, err)
	require.InDelta(t, 1000.0, loaded.AvailableCapital, 1e-9)
	require.InDelta(t, 1.0, loaded.Positions["BTCUSDT"].Quantity, 1e-9)
}

func TestGetClosedTradesFiltersByTime(t *testing.T) {
	repo := NewInMemoryPortfolioRepository()
	now := time.Now()

	old := &domain.ClosedTrade{ID: "t1", Symbol: "BTCUSDT", ClosedAt: now.Add(-48 * time.Hour)}
	recent := &domain.ClosedTrade{ID: "t2", Symbol: "ETHUSDT", ClosedAt: now.Add(-1 * time.Hour)}
	require.NoError(t, repo.AppendClosedTrade(old))
	require.NoError(t, repo.AppendClosedTrade(recent))

	trades := repo.GetClosedTrades(now.Add(-24 * time.Hour))
	require.Len(t, trades, 1)
	require.Equal(t, "t2", trades[0].ID)

	all := repo.GetClosedTrades(time.Time{})
	require.Len(t, all, 2)
}

func TestTokenRepository(t *testing.T) {
	repo := NewTokenRepository()
	require.Equal(t, 0, repo.GetTokenCount())

	repo.RegisterToken("tok-1", "android")
	repo.RegisterToken("tok-2", "ios")
	repo.RegisterToken("tok-1", "android") // re-register is an update, not a dup
	require.Equal(t, 2, repo.GetTokenCount())
	require.ElementsMatch(t, []string{"tok-1", "tok-2"}, repo.GetAllTokens())

	repo.UnregisterToken("tok-1")
	require.Equal(t, 1, repo.GetTokenCount())
}
