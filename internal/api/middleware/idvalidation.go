// Package middleware provides HTTP middleware for request validation and processing.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quantclear/fofnav/internal/api/response"
	"github.com/quantclear/fofnav/internal/validation"
)

// ValidateFofIDMiddleware validates that the fofId URL parameter is present.
// Product IDs imported from upstream trust systems are not always UUIDs, so
// only non-emptiness is enforced here.
// Returns 400 Bad Request if the FOF ID is missing.
//
// Example usage in router:
//
//	r.Route("/{fofId}", func(r chi.Router) {
//	    r.Use(middleware.ValidateFofIDMiddleware)
//	    r.Get("/nav", handler.NavSeries)
//	})
func ValidateFofIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fofID := chi.URLParam(r, "fofId")

		if err := validation.ValidateID(fofID); err != nil {
			response.RespondError(w, http.StatusBadRequest, "valid FOF ID is required", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
