package middleware

import (
	"github.com/go-chi/cors"
)

// NewCORS builds the CORS policy for the read surface. The API is a
// credential-free JSON reporting layer, so only plain content-type requests
// are allowed through.
func NewCORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	})
}
