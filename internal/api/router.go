package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/quantclear/fofnav/internal/api/handlers"
	custommiddleware "github.com/quantclear/fofnav/internal/api/middleware"
	"github.com/quantclear/fofnav/internal/config"
	"github.com/quantclear/fofnav/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	fofService *service.FofService,
	navService *service.NavService,
	backtestService *service.BacktestService,
	cfg *config.Config,
	log logrus.FieldLogger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/fof", func(r chi.Router) {
			fofHandler := handlers.NewFofHandler(fofService, navService)
			r.Get("/", fofHandler.Products)

			r.Route("/{fofId}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateFofIDMiddleware)
				r.Get("/nav", fofHandler.NavSeries)
				r.Get("/nav/{date}", fofHandler.Nav)
				r.Get("/positions", fofHandler.Positions)
				r.Get("/positions/details", fofHandler.PositionDetails)
				r.Get("/investors", fofHandler.Investors)
				r.Get("/investors/{investorId}", fofHandler.Investor)
				r.Get("/statements", fofHandler.Statements)
				r.Post("/recalculate", fofHandler.Recalculate)
			})
		})

		r.Route("/backtest", func(r chi.Router) {
			backtestHandler := handlers.NewBacktestHandler(backtestService)
			r.Post("/", backtestHandler.Run)
		})
	})

	return r
}
