package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RiskConfig holds the sizing limits the risk engine enforces.
type RiskConfig struct {
	RiskPerTrade     float64 // fraction of available capital risked per trade
	MaxExposurePct   float64 // max total notional as fraction of capital
	StopLossPct      float64 // SL distance as fraction of entry price
	TakeProfitPct    float64 // TP distance as fraction of entry price
	MinNotional      float64 // exchange minimum tradable notional in quote units
	LotSize          float64 // quantity step; sizes are floored to this
}

// ExecutorConfig bounds submission retries and status polling.
type ExecutorConfig struct {
	MaxAttempts   int
	RetryBackoff  time.Duration // base backoff, doubled per attempt
	SubmitTimeout time.Duration
	PollInterval  time.Duration
}

// Config is the full bot configuration, resolved once at startup.
type Config struct {
	Symbols          []string
	CycleInterval    time.Duration
	MaxCycleDuration time.Duration
	WindowSize       int
	DryRun           bool
	InitialCapital   float64
	MaxPositionAge   time.Duration // 0 disables the age exit
	Leverage         int           // set on the venue per symbol at startup

	Risk     RiskConfig
	Executor ExecutorConfig

	DatabaseURL      string
	BinanceAPIKey    string
	BinanceSecretKey string
	BinanceTestnet   bool
	HTTPAddr         string
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		Symbols:          []string{"BTCUSDT", "ETHUSDT"},
		CycleInterval:    1 * time.Minute,
		MaxCycleDuration: 45 * time.Second,
		WindowSize:       100,
		DryRun:           true, // safe default, no real orders
		InitialCapital:   10000,
		MaxPositionAge:   30 * time.Minute,
		Leverage:         1,
		Risk: RiskConfig{
			RiskPerTrade:   0.01,
			MaxExposurePct: 0.5,
			StopLossPct:    0.02,
			TakeProfitPct:  0.04,
			MinNotional:    10,
			LotSize:        0.001,
		},
		Executor: ExecutorConfig{
			MaxAttempts:   3,
			RetryBackoff:  500 * time.Millisecond,
			SubmitTimeout: 15 * time.Second,
			PollInterval:  2 * time.Second,
		},
		HTTPAddr: ":8080",
	}
}

// FromEnv resolves configuration from environment variables, falling back to
// defaults for anything unset or unparsable.
func FromEnv() Config {
	cfg := Default()

	if v := strings.TrimSpace(os.Getenv("SYMBOLS")); v != "" {
		parts := strings.Split(v, ",")
		symbols := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.ToUpper(strings.TrimSpace(p)); s != "" {
				symbols = append(symbols, s)
			}
		}
		if len(symbols) > 0 {
			cfg.Symbols = symbols
		}
	}
	if d, ok := envDuration("CYCLE_INTERVAL"); ok {
		cfg.CycleInterval = d
	}
	if d, ok := envDuration("MAX_CYCLE_DURATION"); ok {
		cfg.MaxCycleDuration = d
	}
	if n, ok := envInt("WINDOW_SIZE"); ok && n > 0 {
		cfg.WindowSize = n
	}
	if b, ok := envBool("DRY_RUN"); ok {
		cfg.DryRun = b
	}
	if f, ok := envFloat("INITIAL_CAPITAL"); ok && f > 0 {
		cfg.InitialCapital = f
	}
	if d, ok := envDuration("MAX_POSITION_AGE"); ok {
		cfg.MaxPositionAge = d
	}
	if n, ok := envInt("LEVERAGE"); ok && n > 0 {
		cfg.Leverage = n
	}

	if f, ok := envFloat("RISK_PER_TRADE"); ok && f > 0 {
		cfg.Risk.RiskPerTrade = f
	}
	if f, ok := envFloat("MAX_EXPOSURE_PCT"); ok && f > 0 {
		cfg.Risk.MaxExposurePct = f
	}
	if f, ok := envFloat("STOP_LOSS_PCT"); ok && f > 0 {
		cfg.Risk.StopLossPct = f
	}
	if f, ok := envFloat("TAKE_PROFIT_PCT"); ok && f > 0 {
		cfg.Risk.TakeProfitPct = f
	}
	if f, ok := envFloat("MIN_NOTIONAL"); ok && f > 0 {
		cfg.Risk.MinNotional = f
	}
	if f, ok := envFloat("LOT_SIZE"); ok && f > 0 {
		cfg.Risk.LotSize = f
	}

	if n, ok := envInt("ORDER_MAX_ATTEMPTS"); ok && n > 0 {
		cfg.Executor.MaxAttempts = n
	}
	if d, ok := envDuration("ORDER_RETRY_BACKOFF"); ok {
		cfg.Executor.RetryBackoff = d
	}
	if d, ok := envDuration("ORDER_SUBMIT_TIMEOUT"); ok {
		cfg.Executor.SubmitTimeout = d
	}
	if d, ok := envDuration("ORDER_POLL_INTERVAL"); ok {
		cfg.Executor.PollInterval = d
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.BinanceAPIKey = strings.TrimSpace(os.Getenv("BINANCE_API_KEY"))
	cfg.BinanceSecretKey = strings.TrimSpace(os.Getenv("BINANCE_SECRET_KEY"))
	if b, ok := envBool("BINANCE_TESTNET"); ok {
		cfg.BinanceTestnet = b
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}

	return cfg
}

func envFloat(key string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envDuration(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envBool(key string) (bool, bool) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
