package binance

import (
	"context"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

// Futures composes the public market data client and the authenticated trading
// client behind the domain Exchange interface. The trading client may be nil
// when no credentials are configured; order operations then fail fast instead
// of panicking, which keeps dry-run setups safe.
type Futures struct {
	market  *Client
	trading *TradingClient
}

func NewFutures(market *Client, trading *TradingClient) *Futures {
	return &Futures{market: market, trading: trading}
}

var errNoCredentials = &domain.ExchangeRejection{
	Message: "no API credentials configured, order endpoints unavailable",
}

func (f *Futures) PlaceOrder(ctx context.Context, proposal *domain.OrderProposal, idempotencyToken string) (*domain.OrderAck, error) {
	if f.trading == nil {
		return nil, errNoCredentials
	}
	return f.trading.PlaceOrder(ctx, proposal, idempotencyToken)
}

func (f *Futures) GetOrderStatus(ctx context.Context, symbol string, exchangeOrderID int64) (*domain.OrderAck, error) {
	if f.trading == nil {
		return nil, errNoCredentials
	}
	return f.trading.GetOrderStatus(ctx, symbol, exchangeOrderID)
}

func (f *Futures) CancelOrder(ctx context.Context, symbol string, exchangeOrderID int64) error {
	if f.trading == nil {
		return errNoCredentials
	}
	return f.trading.CancelOrder(ctx, symbol, exchangeOrderID)
}

func (f *Futures) GetMarketSnapshot(ctx context.Context, symbol string) (*domain.MarketSnapshot, error) {
	return f.market.GetMarketSnapshot(ctx, symbol)
}

func (f *Futures) GetHistoricalSnapshots(ctx context.Context, symbol string, limit int) ([]domain.MarketSnapshot, error) {
	return f.market.GetHistoricalSnapshots(ctx, symbol, limit)
}

// PlaceBracketOrders implements domain.BracketPlacer.
func (f *Futures) PlaceBracketOrders(ctx context.Context, position *domain.Position) (int64, int64, error) {
	if f.trading == nil {
		return 0, 0, errNoCredentials
	}
	return f.trading.PlaceBracketOrders(ctx, position)
}
