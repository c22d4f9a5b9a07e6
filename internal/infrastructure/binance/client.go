package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

const (
	FapiBaseURL    = "https://fapi.binance.com"
	TestnetBaseURL = "https://testnet.binancefuture.com"
)

// Client handles unauthenticated Binance Futures market data requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = FapiBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type ticker24h struct {
	Symbol             string `json:"symbol"`
	PriceChangePercent string `json:"priceChangePercent"`
	OpenPrice          string `json:"openPrice"`
	LastPrice          string `json:"lastPrice"`
	QuoteVolume        string `json:"quoteVolume"`
	CloseTime          int64  `json:"closeTime"`
}

// GetMarketSnapshot fetches the 24hr ticker for one symbol and maps it to a
// snapshot. Errors are classified so the caller can decide whether to retry.
func (c *Client) GetMarketSnapshot(ctx context.Context, symbol string) (*domain.MarketSnapshot, error) {
	url := fmt.Sprintf("%s/fapi/v1/ticker/24hr?symbol=%s", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransientExchangeError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, fmt.Sprintf("ticker request for %s", symbol))
	}

	var t ticker24h
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, err
	}

	last, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lastPrice %q: %w", t.LastPrice, err)
	}
	open, _ := strconv.ParseFloat(t.OpenPrice, 64)
	volume, _ := strconv.ParseFloat(t.QuoteVolume, 64)
	pctChange, _ := strconv.ParseFloat(t.PriceChangePercent, 64)

	ts := time.Now()
	if t.CloseTime > 0 {
		ts = time.UnixMilli(t.CloseTime)
	}

	return &domain.MarketSnapshot{
		Symbol:             t.Symbol,
		Timestamp:          ts,
		OpenPrice:          open,
		LastPrice:          last,
		Volume:             volume,
		PriceChangePercent: pctChange,
	}, nil
}

// GetHistoricalSnapshots backfills snapshots from 1m klines, oldest first.
// Binance returns each kline as a mixed array:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, ...]
func (c *Client) GetHistoricalSnapshots(ctx context.Context, symbol string, limit int) ([]domain.MarketSnapshot, error) {
	url := fmt.Sprintf("%s/fapi/v1/klines?symbol=%s&interval=1m&limit=%d", c.baseURL, symbol, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransientExchangeError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, fmt.Sprintf("klines request for %s", symbol))
	}

	var klines [][]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return nil, err
	}

	snaps := make([]domain.MarketSnapshot, 0, len(klines))
	for _, k := range klines {
		if len(k) < 8 {
			continue
		}
		open, _ := parseValue(k[1])
		closePrice, _ := parseValue(k[4])
		quoteVolume, _ := parseValue(k[7])
		closeTime, _ := parseValue(k[6])
		if closePrice <= 0 {
			continue
		}
		pctChange := 0.0
		if open > 0 {
			pctChange = (closePrice - open) / open * 100
		}
		snaps = append(snaps, domain.MarketSnapshot{
			Symbol:             symbol,
			Timestamp:          time.UnixMilli(int64(closeTime)),
			OpenPrice:          open,
			LastPrice:          closePrice,
			Volume:             quoteVolume,
			PriceChangePercent: pctChange,
		})
	}
	return snaps, nil
}

func parseValue(v interface{}) (float64, error) {
	switch val := v.(type) {
	case string:
		return strconv.ParseFloat(val, 64)
	case float64:
		return val, nil
	}
	return 0, fmt.Errorf("unexpected kline value type %T", v)
}

// classifyStatus maps an HTTP status with no parsable body into the error
// taxonomy: rate limits and server errors are retryable, the rest are not.
func classifyStatus(statusCode int, what string) error {
	if statusCode == http.StatusTooManyRequests || statusCode == 418 || statusCode >= 500 {
		return &domain.TransientExchangeError{
			Err: fmt.Errorf("%s failed with status %d", what, statusCode),
		}
	}
	return &domain.ExchangeRejection{
		Code:    statusCode,
		Message: fmt.Sprintf("%s failed with status %d", what, statusCode),
	}
}
