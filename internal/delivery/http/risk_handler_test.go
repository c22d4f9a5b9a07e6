package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/config"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/usecase"
)

func testRiskEngine() *usecase.RiskEngine {
	return usecase.NewRiskEngine(config.RiskConfig{
		RiskPerTrade:   0.01,
		MaxExposurePct: 0.5,
		StopLossPct:    0.02,
		TakeProfitPct:  0.04,
		MinNotional:    10,
		LotSize:        2,
	})
}

func postSettings(t *testing.T, h *RiskHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/risk/settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleSettings(rec, req)
	return rec
}

// A partial update must only touch the fields it names. Zeroing the rest
// would silently disable lot flooring and the exposure cap.
func TestSettingsPartialUpdateKeepsUnsetFields(t *testing.T) {
	engine := testRiskEngine()
	h := NewRiskHandler(engine)

	rec := postSettings(t, h, `{"riskPerTrade":0.02}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cfg := engine.Settings()
	require.InDelta(t, 0.02, cfg.RiskPerTrade, 1e-9)
	require.InDelta(t, 0.5, cfg.MaxExposurePct, 1e-9)
	require.InDelta(t, 0.02, cfg.StopLossPct, 1e-9)
	require.InDelta(t, 0.04, cfg.TakeProfitPct, 1e-9)
	require.InDelta(t, 10.0, cfg.MinNotional, 1e-9)
	require.InDelta(t, 2.0, cfg.LotSize, 1e-9)
}

func TestSettingsRejectsOutOfRangeValues(t *testing.T) {
	engine := testRiskEngine()
	h := NewRiskHandler(engine)

	require.Equal(t, http.StatusBadRequest, postSettings(t, h, `{"riskPerTrade":0.5}`).Code)
	require.Equal(t, http.StatusBadRequest, postSettings(t, h, `{"lotSize":0}`).Code)
	require.Equal(t, http.StatusBadRequest, postSettings(t, h, `{"stopLossPct":-0.02}`).Code)

	// Rejected updates leave the limits untouched.
	cfg := engine.Settings()
	require.InDelta(t, 0.01, cfg.RiskPerTrade, 1e-9)
	require.InDelta(t, 2.0, cfg.LotSize, 1e-9)
	require.InDelta(t, 0.02, cfg.StopLossPct, 1e-9)
}

func TestSettingsGetReturnsCurrentLimits(t *testing.T) {
	h := NewRiskHandler(testRiskEngine())

	req := httptest.NewRequest(http.MethodGet, "/api/risk/settings", nil)
	rec := httptest.NewRecorder()
	h.HandleSettings(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"riskPerTrade":0.01`)
	require.Contains(t, rec.Body.String(), `"lotSize":2`)
}
