package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/quantclear/fofnav/internal/api/response"
	"github.com/quantclear/fofnav/internal/backtest"
	"github.com/quantclear/fofnav/internal/service"
	"github.com/quantclear/fofnav/internal/validation"
)

// BacktestHandler handles backtest HTTP requests
type BacktestHandler struct {
	backtestService *service.BacktestService
}

// NewBacktestHandler creates a new BacktestHandler
func NewBacktestHandler(backtestService *service.BacktestService) *BacktestHandler {
	return &BacktestHandler{
		backtestService: backtestService,
	}
}

// BacktestRequest represents a backtest request body
type BacktestRequest struct {
	Weights            map[string]decimal.Decimal `json:"weights"`
	StartDate          string                     `json:"start_date"`
	EndDate            string                     `json:"end_date"`
	Benchmarks         []string                   `json:"benchmarks,omitempty"`
	IncentiveRatio     decimal.Decimal            `json:"incentive_ratio"`
	IncentivePrecision int32                      `json:"incentive_precision"`
}

// Run simulates a weight vector over a historical window.
//
// Endpoint: POST /api/backtest
// Response: 200 OK with the simulated path and summary statistics
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	start, err := validation.ParseDate(req.StartDate)
	if err != nil {
		respondServiceError(w, err, "invalid start_date")
		return
	}
	end, err := validation.ParseDate(req.EndDate)
	if err != nil {
		respondServiceError(w, err, "invalid end_date")
		return
	}
	if err := validation.ValidateDateRange(start, end); err != nil {
		respondServiceError(w, err, "invalid date range")
		return
	}

	result, err := h.backtestService.Run(backtest.Spec{
		Weights:            req.Weights,
		Start:              start,
		End:                end,
		Benchmarks:         req.Benchmarks,
		IncentiveRatio:     req.IncentiveRatio,
		IncentivePrecision: req.IncentivePrecision,
	})
	if err != nil {
		respondServiceError(w, err, "backtest failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
