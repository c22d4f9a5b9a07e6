package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/usecase"
)

// PositionCloser closes an open position at the current market price.
type PositionCloser interface {
	ClosePosition(ctx context.Context, symbol, reason string) error
}

// PortfolioHandler exposes the operator's read and manual-close surface.
type PortfolioHandler struct {
	portfolio *usecase.PortfolioManager
	repo      domain.PortfolioRepository
	closer    PositionCloser
}

func NewPortfolioHandler(portfolio *usecase.PortfolioManager, repo domain.PortfolioRepository, closer PositionCloser) *PortfolioHandler {
	return &PortfolioHandler{
		portfolio: portfolio,
		repo:      repo,
		closer:    closer,
	}
}

// HandleState returns the current portfolio state.
func (h *PortfolioHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.portfolio.State())
}

// HandleTrades returns closed trades, default last 24 hours, ?hours=N to widen.
func (h *PortfolioHandler) HandleTrades(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}

	trades := h.repo.GetClosedTrades(time.Now().Add(-time.Duration(hours) * time.Hour))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trades)
}

// HandleStats returns aggregate performance, same ?hours window as trades.
func (h *PortfolioHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}

	stats := h.portfolio.Stats(time.Now().Add(-time.Duration(hours) * time.Hour))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

type closePositionRequest struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// HandleClosePosition manually flattens an open position.
func (h *PortfolioHandler) HandleClosePosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req closePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		http.Error(w, "Symbol is required", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		req.Reason = "MANUAL"
	}

	if err := h.closer.ClosePosition(r.Context(), req.Symbol, req.Reason); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Close order submitted for " + req.Symbol,
	})
}
