package handlers

import (
	"errors"
	"net/http"

	"github.com/quantclear/fofnav/internal/api/response"
	"github.com/quantclear/fofnav/internal/apperrors"
)

// respondJSON sends a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	response.RespondJSON(w, status, data)
}

// respondServiceError maps service-layer errors to HTTP status codes.
func respondServiceError(w http.ResponseWriter, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrProductNotFound),
		errors.Is(err, apperrors.ErrInvestorNotFound),
		errors.Is(err, apperrors.ErrFundNavNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrCalculationInProgress):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrInvalidUUID),
		errors.Is(err, apperrors.ErrInvalidDateRange),
		errors.Is(err, apperrors.ErrInvalidWeights),
		errors.Is(err, apperrors.ErrEmptyID):
		status = http.StatusBadRequest
	}

	response.RespondError(w, status, message, err.Error())
}
