package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

// stubStrategy always returns a fixed signal.
type stubStrategy struct {
	name string
	sig  domain.Signal
}

func (s *stubStrategy) Name() string     { return s.name }
func (s *stubStrategy) MinLookback() int { return 1 }
func (s *stubStrategy) Generate(_ *domain.SnapshotWindow) domain.Signal {
	return s.sig
}

func flatStub(name string) *stubStrategy {
	return &stubStrategy{name: name, sig: domain.Signal{Direction: domain.DirectionFlat, Strategy: name}}
}

func longStub(name string) *stubStrategy {
	return &stubStrategy{name: name, sig: domain.Signal{
		Symbol: "BTCUSDT", Direction: domain.DirectionLong, Confidence: 0.8, Strategy: name, Price: 100,
	}}
}

func TestGenerateFirstNonFlatWins(t *testing.T) {
	engine := NewSignalEngine(flatStub("first"), longStub("second"))
	engine.Register(longStub("third"))
	window := domain.NewSnapshotWindow("BTCUSDT", 10)

	sig := engine.Generate(window)
	require.Equal(t, "second", sig.Strategy)
	require.Equal(t, domain.DirectionLong, sig.Direction)
}

func TestGenerateAllFlat(t *testing.T) {
	engine := NewSignalEngine(flatStub("a"), flatStub("b"))
	window := domain.NewSnapshotWindow("BTCUSDT", 10)

	sig := engine.Generate(window)
	require.True(t, sig.Flat())
	require.Equal(t, "BTCUSDT", sig.Symbol)
}

func makeWindow(symbol string, closes []float64, volume float64) *domain.SnapshotWindow {
	w := domain.NewSnapshotWindow(symbol, len(closes))
	base := time.Now().Add(-time.Duration(len(closes)) * time.Minute)
	for i, c := range closes {
		w.Append(domain.MarketSnapshot{
			Symbol:    symbol,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			LastPrice: c,
			Volume:    volume,
		})
	}
	return w
}

func TestMomentumInsufficientLookbackIsFlat(t *testing.T) {
	s := NewMomentumStrategy(DefaultMomentumConfig())
	window := makeWindow("BTCUSDT", []float64{100, 101, 102}, 5000)

	sig := s.Generate(window)
	require.True(t, sig.Flat())
}

func TestMomentumUptrendGoesLong(t *testing.T) {
	s := NewMomentumStrategy(DefaultMomentumConfig())

	// Steady climb: price above both MAs, fast above slow, strong momentum.
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	window := makeWindow("BTCUSDT", closes, 5000)

	sig := s.Generate(window)
	require.Equal(t, domain.DirectionLong, sig.Direction)
	require.GreaterOrEqual(t, sig.Confidence, 0.6)
	require.InDelta(t, closes[len(closes)-1], sig.Price, 1e-9)
}

func TestMomentumLowVolumeIsFlat(t *testing.T) {
	s := NewMomentumStrategy(DefaultMomentumConfig())
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	window := makeWindow("BTCUSDT", closes, 10) // below MinVolume

	require.True(t, s.Generate(window).Flat())
}

func TestMeanReversionOversoldGoesLong(t *testing.T) {
	s := NewMeanReversionStrategy(DefaultMeanReversionConfig())

	// Stable around 100, then a sharp drop stretches the z-score negative
	// while momentum stays negative.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	closes[27] = 99
	closes[28] = 98
	closes[29] = 96
	window := makeWindow("BTCUSDT", closes, 5000)

	sig := s.Generate(window)
	require.Equal(t, domain.DirectionLong, sig.Direction)
	require.GreaterOrEqual(t, sig.Confidence, 0.7)
}

func TestMeanReversionQuietMarketIsFlat(t *testing.T) {
	s := NewMeanReversionStrategy(DefaultMeanReversionConfig())
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + 0.1*float64(i%3)
	}
	window := makeWindow("BTCUSDT", closes, 5000)

	require.True(t, s.Generate(window).Flat())
}
