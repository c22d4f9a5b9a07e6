package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/config"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

// fakeExchange scripts PlaceOrder outcomes: one entry per expected call.
type fakeExchange struct {
	placeResults []placeResult
	placeCalls   int
	statusAck    *domain.OrderAck
	cancelled    []int64
	tokens       []string
}

type placeResult struct {
	ack *domain.OrderAck
	err error
}

func (f *fakeExchange) PlaceOrder(_ context.Context, _ *domain.OrderProposal, token string) (*domain.OrderAck, error) {
	f.tokens = append(f.tokens, token)
	if f.placeCalls >= len(f.placeResults) {
		return nil, errors.New("unexpected PlaceOrder call")
	}
	r := f.placeResults[f.placeCalls]
	f.placeCalls++
	return r.ack, r.err
}

func (f *fakeExchange) GetOrderStatus(_ context.Context, _ string, _ int64) (*domain.OrderAck, error) {
	return f.statusAck, nil
}

func (f *fakeExchange) CancelOrder(_ context.Context, _ string, id int64) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeExchange) GetMarketSnapshot(_ context.Context, symbol string) (*domain.MarketSnapshot, error) {
	return &domain.MarketSnapshot{Symbol: symbol, LastPrice: 100, Timestamp: time.Now()}, nil
}

func testExecutorConfig() config.ExecutorConfig {
	return config.ExecutorConfig{
		MaxAttempts:  3,
		RetryBackoff: time.Millisecond,
	}
}

func entryProposal(id string) *domain.OrderProposal {
	return &domain.OrderProposal{
		ID:         id,
		Symbol:     "BTCUSDT",
		Direction:  domain.DirectionLong,
		Quantity:   0.5,
		EntryPrice: 100,
		StopLoss:   98,
		TakeProfit: 104,
		CreatedAt:  time.Now(),
	}
}

func transientErr() error {
	return &domain.TransientExchangeError{Err: errors.New("connection reset")}
}

func submittedAck() *domain.OrderAck {
	return &domain.OrderAck{ExchangeOrderID: 42, Status: domain.OrderSubmitted}
}

func TestSubmitRetriesTransientThenSucceeds(t *testing.T) {
	ex := &fakeExchange{placeResults: []placeResult{
		{err: transientErr()},
		{err: transientErr()},
		{ack: submittedAck()},
	}}
	x := NewOrderExecutor(ex, nil, testExecutorConfig(), false)

	order, err := x.Submit(context.Background(), entryProposal("p1"))
	require.NoError(t, err)
	require.Equal(t, domain.OrderSubmitted, order.Status)
	require.Equal(t, 3, order.Attempts)
	require.EqualValues(t, 42, order.ExchangeOrderID)

	// Every retry must reuse the same idempotency token.
	require.Len(t, ex.tokens, 3)
	require.Equal(t, ex.tokens[0], ex.tokens[1])
	require.Equal(t, ex.tokens[1], ex.tokens[2])
}

func TestSubmitFailsAtRetryCeiling(t *testing.T) {
	ex := &fakeExchange{placeResults: []placeResult{
		{err: transientErr()},
		{err: transientErr()},
		{err: transientErr()},
	}}
	x := NewOrderExecutor(ex, nil, testExecutorConfig(), false)

	order, err := x.Submit(context.Background(), entryProposal("p1"))
	require.Error(t, err)
	require.True(t, domain.IsTransient(err))
	require.Equal(t, domain.OrderFailed, order.Status)
	require.Equal(t, 3, ex.placeCalls)
	require.NotEmpty(t, order.FailReason)
}

func TestSubmitRejectionNotRetried(t *testing.T) {
	ex := &fakeExchange{placeResults: []placeResult{
		{err: &domain.ExchangeRejection{Code: -2019, Message: "margin is insufficient"}},
	}}
	x := NewOrderExecutor(ex, nil, testExecutorConfig(), false)

	order, err := x.Submit(context.Background(), entryProposal("p1"))
	require.Error(t, err)
	require.True(t, domain.IsRejection(err))
	require.Equal(t, domain.OrderFailed, order.Status)
	require.Equal(t, 1, ex.placeCalls)
}

func TestSubmitIdempotent(t *testing.T) {
	ex := &fakeExchange{placeResults: []placeResult{{ack: submittedAck()}}}
	x := NewOrderExecutor(ex, nil, testExecutorConfig(), false)

	proposal := entryProposal("p1")
	first, err := x.Submit(context.Background(), proposal)
	require.NoError(t, err)

	second, err := x.Submit(context.Background(), proposal)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, ex.placeCalls)
}

func TestSubmitInvalidProposalNotSent(t *testing.T) {
	ex := &fakeExchange{}
	x := NewOrderExecutor(ex, nil, testExecutorConfig(), false)

	bad := entryProposal("p1")
	bad.Quantity = 0
	_, err := x.Submit(context.Background(), bad)
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))
	require.Equal(t, 0, ex.placeCalls)
}

func TestDryRunFillsImmediately(t *testing.T) {
	ex := &fakeExchange{}
	x := NewOrderExecutor(ex, nil, testExecutorConfig(), true)

	order, err := x.Submit(context.Background(), entryProposal("p1"))
	require.NoError(t, err)
	require.Equal(t, domain.OrderFilled, order.Status)
	require.InDelta(t, 0.5, order.FilledQuantity, 1e-9)
	require.InDelta(t, 100.0, order.AvgFillPrice, 1e-9)
	require.Equal(t, 0, ex.placeCalls)
}

func TestPollAppliesStatus(t *testing.T) {
	ex := &fakeExchange{
		placeResults: []placeResult{{ack: submittedAck()}},
		statusAck: &domain.OrderAck{
			ExchangeOrderID: 42,
			Status:          domain.OrderFilled,
			FilledQuantity:  0.5,
			AvgFillPrice:    100.2,
		},
	}
	x := NewOrderExecutor(ex, nil, testExecutorConfig(), false)

	order, err := x.Submit(context.Background(), entryProposal("p1"))
	require.NoError(t, err)

	require.NoError(t, x.Poll(context.Background(), order))
	require.Equal(t, domain.OrderFilled, order.Status)
	require.InDelta(t, 100.2, order.AvgFillPrice, 1e-9)
	require.Empty(t, x.InflightOrders())
}

func TestInflightOrdersEvictSettled(t *testing.T) {
	ex := &fakeExchange{
		placeResults: []placeResult{{ack: submittedAck()}},
		statusAck: &domain.OrderAck{
			ExchangeOrderID: 42,
			Status:          domain.OrderFilled,
			FilledQuantity:  0.5,
			AvgFillPrice:    100,
		},
	}
	x := NewOrderExecutor(ex, nil, testExecutorConfig(), false)

	order, err := x.Submit(context.Background(), entryProposal("p1"))
	require.NoError(t, err)
	require.True(t, x.HasInflight("BTCUSDT"))
	require.False(t, x.HasInflight("ETHUSDT"))

	require.NoError(t, x.Poll(context.Background(), order))
	require.False(t, x.HasInflight("BTCUSDT"))

	// The settled order is dropped from tracking, not retained forever.
	require.Empty(t, x.InflightOrders())
	require.Empty(t, x.orders)
}

func TestCancelTerminalOrderRejected(t *testing.T) {
	ex := &fakeExchange{}
	x := NewOrderExecutor(ex, nil, testExecutorConfig(), true)

	order, err := x.Submit(context.Background(), entryProposal("p1"))
	require.NoError(t, err)
	require.True(t, order.Terminal())

	err = x.Cancel(context.Background(), order)
	require.Error(t, err)
	require.True(t, domain.IsInvariant(err))
}
