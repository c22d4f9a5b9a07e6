package usecase

import (
	"fmt"
	"time"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/infrastructure/indicators"
)

// MomentumConfig tunes the momentum strategy.
type MomentumConfig struct {
	FastPeriod          int
	SlowPeriod          int
	MomentumThreshold   float64 // fractional move over FastPeriod, e.g. 0.02
	RSIPeriod           int
	MinVolume           float64
	ConfidenceThreshold float64
}

// DefaultMomentumConfig mirrors the stock parameters the bot shipped with.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		FastPeriod:          10,
		SlowPeriod:          30,
		MomentumThreshold:   0.02,
		RSIPeriod:           14,
		MinVolume:           1000,
		ConfidenceThreshold: 0.6,
	}
}

// MomentumStrategy trades EMA crossovers confirmed by price momentum and the
// regression slope of the window. Confidence grows with the number of aligned
// conditions and is dampened in high volatility or at stretched RSI levels.
type MomentumStrategy struct {
	cfg MomentumConfig
}

func NewMomentumStrategy(cfg MomentumConfig) *MomentumStrategy {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 || cfg.FastPeriod >= cfg.SlowPeriod {
		cfg = DefaultMomentumConfig()
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = 14
	}
	return &MomentumStrategy{cfg: cfg}
}

func (s *MomentumStrategy) Name() string { return "momentum" }

func (s *MomentumStrategy) MinLookback() int { return s.cfg.SlowPeriod }

func (s *MomentumStrategy) Generate(window *domain.SnapshotWindow) domain.Signal {
	flat := domain.Signal{
		Symbol:    window.Symbol,
		Direction: domain.DirectionFlat,
		Strategy:  s.Name(),
		Timestamp: time.Now(),
	}

	if window.Len() < s.cfg.SlowPeriod {
		return flat
	}
	last := window.Last()
	if s.cfg.MinVolume > 0 && last.Volume < s.cfg.MinVolume {
		return flat
	}

	closes := window.Closes()
	price := closes[len(closes)-1]
	fastSeries := indicators.CalculateEMA(closes, s.cfg.FastPeriod)
	slowSeries := indicators.CalculateEMA(closes, s.cfg.SlowPeriod)
	fastEMA := fastSeries[len(fastSeries)-1]
	slowEMA := slowSeries[len(slowSeries)-1]
	momentum := indicators.RateOfChange(closes, s.cfg.FastPeriod)
	slope := indicators.Slope(closes[len(closes)-s.cfg.SlowPeriod:])

	var bullish, bearish []string
	if momentum > s.cfg.MomentumThreshold {
		bullish = append(bullish, fmt.Sprintf("momentum +%.2f%%", momentum*100))
	} else if momentum < -s.cfg.MomentumThreshold {
		bearish = append(bearish, fmt.Sprintf("momentum %.2f%%", momentum*100))
	}
	if fastEMA > slowEMA {
		if price > fastEMA {
			bullish = append(bullish, "price above fast EMA, fast EMA > slow EMA")
		}
	} else {
		if price < fastEMA {
			bearish = append(bearish, "price below fast EMA, fast EMA < slow EMA")
		}
	}
	if price > slowEMA {
		bullish = append(bullish, "price above slow EMA")
	} else {
		bearish = append(bearish, "price below slow EMA")
	}
	if price > 0 {
		normSlope := slope / price
		if normSlope > 0.0005 {
			bullish = append(bullish, "rising regression slope")
		} else if normSlope < -0.0005 {
			bearish = append(bearish, "falling regression slope")
		}
	}

	direction := domain.DirectionFlat
	confidence := 0.0
	reason := ""
	if len(bullish) >= 2 {
		direction = domain.DirectionLong
		confidence = minFloat(0.9, 0.3+float64(len(bullish))*0.2)
		reason = joinReasons(bullish)
	} else if len(bearish) >= 2 {
		direction = domain.DirectionShort
		confidence = minFloat(0.9, 0.3+float64(len(bearish))*0.2)
		reason = joinReasons(bearish)
	}

	// High volatility reduces conviction, so does a stretched RSI.
	if fastEMA > 0 {
		volatility := indicators.StdDev(closes, s.cfg.FastPeriod) / fastEMA
		if volatility > 0.05 {
			confidence *= 0.8
		}
	}
	rsi := indicators.CalculateRSI(closes, s.cfg.RSIPeriod)
	if lastRSI := rsi[len(rsi)-1]; lastRSI > 0 {
		if (direction == domain.DirectionLong && lastRSI > 80) ||
			(direction == domain.DirectionShort && lastRSI < 20) {
			confidence *= 0.85
		}
	}

	if direction == domain.DirectionFlat || confidence < s.cfg.ConfidenceThreshold {
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

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
