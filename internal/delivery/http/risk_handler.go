package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/config"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/usecase"
)

// RiskHandler reads and updates the risk engine's limits at runtime.
type RiskHandler struct {
	risk *usecase.RiskEngine
}

func NewRiskHandler(risk *usecase.RiskEngine) *RiskHandler {
	return &RiskHandler{risk: risk}
}

type riskSettingsPayload struct {
	RiskPerTrade   float64 `json:"riskPerTrade"`
	MaxExposurePct float64 `json:"maxExposurePct"`
	StopLossPct    float64 `json:"stopLossPct"`
	TakeProfitPct  float64 `json:"takeProfitPct"`
	MinNotional    float64 `json:"minNotional"`
	LotSize        float64 `json:"lotSize"`
}

// riskSettingsUpdate uses pointers so an omitted field keeps its current
// value instead of being zeroed by the decoder.
type riskSettingsUpdate struct {
	RiskPerTrade   *float64 `json:"riskPerTrade"`
	MaxExposurePct *float64 `json:"maxExposurePct"`
	StopLossPct    *float64 `json:"stopLossPct"`
	TakeProfitPct  *float64 `json:"takeProfitPct"`
	MinNotional    *float64 `json:"minNotional"`
	LotSize        *float64 `json:"lotSize"`
}

// HandleSettings serves GET (current limits) and POST (merge new limits over
// the current ones).
func (h *RiskHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg := h.risk.Settings()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(riskSettingsPayload{
			RiskPerTrade:   cfg.RiskPerTrade,
			MaxExposurePct: cfg.MaxExposurePct,
			StopLossPct:    cfg.StopLossPct,
			TakeProfitPct:  cfg.TakeProfitPct,
			MinNotional:    cfg.MinNotional,
			LotSize:        cfg.LotSize,
		})

	case http.MethodPost:
		var req riskSettingsUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		cfg := h.risk.Settings()
		if req.RiskPerTrade != nil {
			cfg.RiskPerTrade = *req.RiskPerTrade
		}
		if req.MaxExposurePct != nil {
			cfg.MaxExposurePct = *req.MaxExposurePct
		}
		if req.StopLossPct != nil {
			cfg.StopLossPct = *req.StopLossPct
		}
		if req.TakeProfitPct != nil {
			cfg.TakeProfitPct = *req.TakeProfitPct
		}
		if req.MinNotional != nil {
			cfg.MinNotional = *req.MinNotional
		}
		if req.LotSize != nil {
			cfg.LotSize = *req.LotSize
		}

		if err := validateRiskConfig(cfg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		h.risk.UpdateSettings(cfg)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func validateRiskConfig(cfg config.RiskConfig) error {
	if cfg.RiskPerTrade <= 0 || cfg.RiskPerTrade > 0.1 {
		return errors.New("riskPerTrade must be in (0, 0.1]")
	}
	if cfg.StopLossPct <= 0 || cfg.TakeProfitPct <= 0 {
		return errors.New("stopLossPct and takeProfitPct must be positive")
	}
	if cfg.MaxExposurePct <= 0 || cfg.MaxExposurePct > 1 {
		return errors.New("maxExposurePct must be in (0, 1]")
	}
	if cfg.MinNotional <= 0 || cfg.LotSize <= 0 {
		return errors.New("minNotional and lotSize must be positive")
	}
	return nil
}
