package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

// TradingClient handles authenticated Binance Futures requests. Every order
// placement carries a client-assigned newClientOrderId so a retried request
// after a timeout cannot double-fill.
type TradingClient struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewTradingClient(apiKey, secretKey string, testnet bool) *TradingClient {
	baseURL := FapiBaseURL
	if testnet {
		baseURL = TestnetBaseURL
	}
	return &TradingClient{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// statusMap translates Binance order statuses into the lifecycle.
var statusMap = map[string]domain.OrderStatus{
	"NEW":              domain.OrderSubmitted,
	"PARTIALLY_FILLED": domain.OrderPartiallyFilled,
	"FILLED":           domain.OrderFilled,
	"CANCELED":         domain.OrderCancelled,
	"EXPIRED":          domain.OrderCancelled,
	"REJECTED":         domain.OrderFailed,
}

type orderResponse struct {
	OrderID     int64  `json:"orderId"`
	Symbol      string `json:"symbol"`
	Status      string `json:"status"`
	ExecutedQty string `json:"executedQty"`
	AvgPrice    string `json:"avgPrice"`
}

func (r *orderResponse) toAck() *domain.OrderAck {
	executed, _ := strconv.ParseFloat(r.ExecutedQty, 64)
	avgPrice, _ := strconv.ParseFloat(r.AvgPrice, 64)
	status, ok := statusMap[r.Status]
	if !ok {
		status = domain.OrderSubmitted
	}
	return &domain.OrderAck{
		ExchangeOrderID: r.OrderID,
		Status:          status,
		FilledQuantity:  executed,
		AvgFillPrice:    avgPrice,
	}
}

// PlaceOrder submits a MARKET order for the proposal.
func (c *TradingClient) PlaceOrder(ctx context.Context, proposal *domain.OrderProposal, idempotencyToken string) (*domain.OrderAck, error) {
	side := "BUY"
	if proposal.Direction == domain.DirectionShort {
		side = "SELL"
	}

	params := url.Values{}
	params.Set("symbol", proposal.Symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", fmt.Sprintf("%.8f", proposal.Quantity))
	params.Set("newClientOrderId", idempotencyToken)
	params.Set("newOrderRespType", "RESULT")
	if proposal.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	body, err := c.signedRequest(ctx, http.MethodPost, "/fapi/v1/order", params)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.toAck(), nil
}

// GetOrderStatus polls the venue for the order's current state.
func (c *TradingClient) GetOrderStatus(ctx context.Context, symbol string, exchangeOrderID int64) (*domain.OrderAck, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(exchangeOrderID, 10))

	body, err := c.signedRequest(ctx, http.MethodGet, "/fapi/v1/order", params)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.toAck(), nil
}

// CancelOrder cancels a working order.
func (c *TradingClient) CancelOrder(ctx context.Context, symbol string, exchangeOrderID int64) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(exchangeOrderID, 10))

	_, err := c.signedRequest(ctx, http.MethodDelete, "/fapi/v1/order", params)
	return err
}

// PlaceBracketOrders arms venue-side STOP_MARKET brackets on an open position.
// closePosition=true makes each bracket flatten whatever quantity is open at
// trigger time, so partial fills are always fully covered.
func (c *TradingClient) PlaceBracketOrders(ctx context.Context, position *domain.Position) (int64, int64, error) {
	side := "SELL"
	if position.Direction == domain.DirectionShort {
		side = "BUY"
	}

	slID, err := c.placeClosePositionStop(ctx, position.Symbol, side, "STOP_MARKET", position.StopLoss)
	if err != nil {
		return 0, 0, fmt.Errorf("stop loss: %w", err)
	}
	tpID, err := c.placeClosePositionStop(ctx, position.Symbol, side, "TAKE_PROFIT_MARKET", position.TakeProfit)
	if err != nil {
		return slID, 0, fmt.Errorf("take profit: %w", err)
	}
	return slID, tpID, nil
}

func (c *TradingClient) placeClosePositionStop(ctx context.Context, symbol, side, orderType string, stopPrice float64) (int64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", orderType)
	params.Set("stopPrice", fmt.Sprintf("%.8f", stopPrice))
	params.Set("closePosition", "true")
	params.Set("workingType", "MARK_PRICE")
	params.Set("priceProtect", "true")

	body, err := c.signedRequest(ctx, http.MethodPost, "/fapi/v1/order", params)
	if err != nil {
		return 0, err
	}

	var resp struct {
		OrderID int64 `json:"orderId"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, err
	}
	return resp.OrderID, nil
}

// SetLeverage sets the leverage for a symbol.
func (c *TradingClient) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(leverage))

	_, err := c.signedRequest(ctx, http.MethodPost, "/fapi/v1/leverage", params)
	return err
}

// TestConnection verifies the API credentials against the account endpoint.
func (c *TradingClient) TestConnection(ctx context.Context) error {
	_, err := c.signedRequest(ctx, http.MethodGet, "/fapi/v2/account", nil)
	return err
}

// signedRequest signs the params with HMAC SHA256, sends the request, and
// classifies failures into the retryable/terminal taxonomy.
func (c *TradingClient) signedRequest(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("signature", c.sign(params.Encode()))

	fullURL := c.baseURL + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransientExchangeError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransientExchangeError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyAPIError(resp.StatusCode, body)
	}
	return body, nil
}

// classifyAPIError parses Binance's {code, msg} error body. Rate limits
// (429/418) and server errors retry; everything else is a hard rejection.
func classifyAPIError(statusCode int, body []byte) error {
	var parsed struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	_ = json.Unmarshal(body, &parsed)

	if statusCode == http.StatusTooManyRequests || statusCode == 418 || statusCode >= 500 {
		return &domain.TransientExchangeError{
			Err: fmt.Errorf("status %d (code=%d): %s", statusCode, parsed.Code, parsed.Msg),
		}
	}
	msg := parsed.Msg
	if msg == "" {
		msg = string(body)
	}
	code := parsed.Code
	if code == 0 {
		code = statusCode
	}
	return &domain.ExchangeRejection{Code: code, Message: msg}
}

// sign creates the HMAC SHA256 signature over the query string.
func (c *TradingClient) sign(message string) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
