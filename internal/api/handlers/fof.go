package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quantclear/fofnav/internal/fin"
	"github.com/quantclear/fofnav/internal/service"
	"github.com/quantclear/fofnav/internal/validation"
)

// FofHandler handles FOF product and series HTTP requests
type FofHandler struct {
	fofService *service.FofService
	navService *service.NavService
}

// NewFofHandler creates a new FofHandler
func NewFofHandler(fofService *service.FofService, navService *service.NavService) *FofHandler {
	return &FofHandler{
		fofService: fofService,
		navService: navService,
	}
}

// ProductResponse represents the product listing response
type ProductResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	InceptionDate string `json:"inception_date"`
	IncentiveMode string `json:"incentive_mode"`
	IsCalculating bool   `json:"is_calculating"`
}

// Products gets basic information for every registered FOF.
//
// Endpoint: GET /api/fof
func (h *FofHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.fofService.GetAllProducts()
	if err != nil {
		respondServiceError(w, err, "failed to retrieve products")
		return
	}

	response := make([]ProductResponse, len(products))
	for i, p := range products {
		response[i] = ProductResponse{
			ID:            p.ID,
			Name:          p.Name,
			InceptionDate: p.InceptionDate.Format(fin.DateFormat),
			IncentiveMode: p.IncentiveMode,
			IsCalculating: p.IsCalculating,
		}
	}
	respondJSON(w, http.StatusOK, response)
}

// NavSeries returns the committed NAV series of a FOF, oldest first.
//
// Endpoint: GET /api/fof/{fofId}/nav
func (h *FofHandler) NavSeries(w http.ResponseWriter, r *http.Request) {
	fofID := chi.URLParam(r, "fofId")

	series, err := h.fofService.GetNavSeries(fofID)
	if err != nil {
		respondServiceError(w, err, "failed to retrieve nav series")
		return
	}
	respondJSON(w, http.StatusOK, series)
}

// Nav returns the NAV row of a single day.
//
// Endpoint: GET /api/fof/{fofId}/nav/{date}
func (h *FofHandler) Nav(w http.ResponseWriter, r *http.Request) {
	fofID := chi.URLParam(r, "fofId")

	date, err := validation.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		respondServiceError(w, err, "invalid date")
		return
	}

	row, err := h.fofService.GetNav(fofID, date)
	if err != nil {
		respondServiceError(w, err, "failed to retrieve nav")
		return
	}
	respondJSON(w, http.StatusOK, row)
}

// Positions returns the per-day position snapshots of a FOF.
//
// Endpoint: GET /api/fof/{fofId}/positions
func (h *FofHandler) Positions(w http.ResponseWriter, r *http.Request) {
	fofID := chi.URLParam(r, "fofId")

	positions, err := h.fofService.GetPositions(fofID)
	if err != nil {
		respondServiceError(w, err, "failed to retrieve positions")
		return
	}
	respondJSON(w, http.StatusOK, positions)
}

// PositionDetails returns the latest per-fund lot details of a FOF.
//
// Endpoint: GET /api/fof/{fofId}/positions/details
func (h *FofHandler) PositionDetails(w http.ResponseWriter, r *http.Request) {
	fofID := chi.URLParam(r, "fofId")

	details, err := h.fofService.GetPositionDetails(fofID)
	if err != nil {
		respondServiceError(w, err, "failed to retrieve position details")
		return
	}
	respondJSON(w, http.StatusOK, details)
}

// Investors returns every investor summary of a FOF.
//
// Endpoint: GET /api/fof/{fofId}/investors
func (h *FofHandler) Investors(w http.ResponseWriter, r *http.Request) {
	fofID := chi.URLParam(r, "fofId")

	investors, err := h.fofService.GetInvestors(fofID)
	if err != nil {
		respondServiceError(w, err, "failed to retrieve investors")
		return
	}
	respondJSON(w, http.StatusOK, investors)
}

// Investor returns a single investor's summary.
//
// Endpoint: GET /api/fof/{fofId}/investors/{investorId}
func (h *FofHandler) Investor(w http.ResponseWriter, r *http.Request) {
	fofID := chi.URLParam(r, "fofId")
	investorID := chi.URLParam(r, "investorId")

	investor, err := h.fofService.GetInvestor(fofID, investorID)
	if err != nil {
		respondServiceError(w, err, "failed to retrieve investor")
		return
	}
	respondJSON(w, http.StatusOK, investor)
}

// Statements returns the account statement series of a FOF.
//
// Endpoint: GET /api/fof/{fofId}/statements
func (h *FofHandler) Statements(w http.ResponseWriter, r *http.Request) {
	fofID := chi.URLParam(r, "fofId")

	statements, err := h.fofService.GetStatements(fofID)
	if err != nil {
		respondServiceError(w, err, "failed to retrieve statements")
		return
	}
	respondJSON(w, http.StatusOK, statements)
}

// RecalculateResponse represents the recalculation trigger response
type RecalculateResponse struct {
	Days     int    `json:"days"`
	Warnings int    `json:"warnings"`
	Through  string `json:"through"`
}

// Recalculate triggers a NAV run for a FOF. The optional "through" query
// parameter bounds the run; it defaults to yesterday. Returns 409 Conflict
// when a run is already in progress.
//
// Endpoint: POST /api/fof/{fofId}/recalculate
func (h *FofHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	fofID := chi.URLParam(r, "fofId")

	through := fin.Day(time.Now().UTC()).AddDate(0, 0, -1)
	if v := r.URL.Query().Get("through"); v != "" {
		parsed, err := validation.ParseDate(v)
		if err != nil {
			respondServiceError(w, err, "invalid through date")
			return
		}
		through = parsed
	}

	// Runs can take a while on long event logs; don't tie them to the
	// request's lifetime.
	result, err := h.navService.Recalculate(context.Background(), fofID, through, false)
	if err != nil {
		respondServiceError(w, err, "nav run failed")
		return
	}
	respondJSON(w, http.StatusOK, RecalculateResponse{
		Days:     len(result.Nav),
		Warnings: len(result.Warnings),
		Through:  through.Format(fin.DateFormat),
	})
}
