package usecase

import (
	"fmt"
	"math"
	"time"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/infrastructure/indicators"
)

// MeanReversionConfig tunes the mean-reversion strategy.
type MeanReversionConfig struct {
	LookbackPeriod      int
	ZScoreThreshold     float64
	MomentumPeriod      int
	RSIPeriod           int
	MinVolume           float64
	ConfidenceThreshold float64
	TrendVetoPct        float64 // skip when the lookback move exceeds this fraction
}

// DefaultMeanReversionConfig mirrors the stock parameters the bot shipped with.
func DefaultMeanReversionConfig() MeanReversionConfig {
	return MeanReversionConfig{
		LookbackPeriod:      20,
		ZScoreThreshold:     2.0,
		MomentumPeriod:      10,
		RSIPeriod:           14,
		MinVolume:           1000,
		ConfidenceThreshold: 0.7,
		TrendVetoPct:        0.1,
	}
}

// MeanReversionStrategy fades statistical extremes: a price stretched beyond
// the z-score threshold from its rolling mean, still moving away from it and
// confirmed by RSI, is expected to revert. Strong trends veto the signal.
type MeanReversionStrategy struct {
	cfg MeanReversionConfig
}

func NewMeanReversionStrategy(cfg MeanReversionConfig) *MeanReversionStrategy {
	if cfg.LookbackPeriod <= 1 || cfg.ZScoreThreshold <= 0 {
		cfg = DefaultMeanReversionConfig()
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = 14
	}
	return &MeanReversionStrategy{cfg: cfg}
}

func (s *MeanReversionStrategy) Name() string { return "mean_reversion" }

func (s *MeanReversionStrategy) MinLookback() int { return s.cfg.LookbackPeriod }

func (s *MeanReversionStrategy) Generate(window *domain.SnapshotWindow) domain.Signal {
	flat := domain.Signal{
		Symbol:    window.Symbol,
		Direction: domain.DirectionFlat,
		Strategy:  s.Name(),
		Timestamp: time.Now(),
	}

	if window.Len() < s.cfg.LookbackPeriod {
		return flat
	}
	last := window.Last()
	if s.cfg.MinVolume > 0 && last.Volume < s.cfg.MinVolume {
		return flat
	}

	closes := window.Closes()
	price := closes[len(closes)-1]
	mean := indicators.SMA(closes, s.cfg.LookbackPeriod)
	stdDev := indicators.StdDev(closes, s.cfg.LookbackPeriod)
	if stdDev == 0 || mean == 0 {
		return flat
	}

	zScore := (price - mean) / stdDev
	momentum := indicators.RateOfChange(closes, minInt(s.cfg.MomentumPeriod, len(closes)-1))
	rsiSeries := indicators.CalculateRSI(closes, s.cfg.RSIPeriod)
	rsi := rsiSeries[len(rsiSeries)-1]

	// Mean reversion has no edge inside a strong trend.
	trendStrength := math.Abs(indicators.RateOfChange(closes, s.cfg.LookbackPeriod-1))
	if s.cfg.TrendVetoPct > 0 && trendStrength > s.cfg.TrendVetoPct {
		return flat
	}

	direction := domain.DirectionFlat
	reason := ""
	if zScore < -s.cfg.ZScoreThreshold && momentum < 0 && rsi < 40 {
		direction = domain.DirectionLong
		reason = fmt.Sprintf("oversold, z-score %.2f, RSI %.0f, negative momentum", zScore, rsi)
	} else if zScore > s.cfg.ZScoreThreshold && momentum > 0 && rsi > 60 {
		direction = domain.DirectionShort
		reason = fmt.Sprintf("overbought, z-score %.2f, RSI %.0f, positive momentum", zScore, rsi)
	}
	if direction == domain.DirectionFlat {
		return flat
	}

	confidence := minFloat(0.9, 0.5+math.Abs(zScore)*0.1)
	volatility := stdDev / mean
	if volatility > 0.05 {
		confidence *= 0.8
	} else if volatility < 0.02 {
		confidence = minFloat(1.0, confidence*1.1)
	}

	if confidence < s.cfg.ConfidenceThreshold {
		return flat
	}

	return domain.Signal{
		Symbol:     window.Symbol,
		Direction:  direction,
		Confidence: confidence,
		Strategy:   s.Name(),
		Price:      price,
		Reason:     reason,
		Timestamp:  time.Now(),
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
