package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/quantclear/fofnav/internal/api"
	"github.com/quantclear/fofnav/internal/config"
	"github.com/quantclear/fofnav/internal/database"
	"github.com/quantclear/fofnav/internal/fin"
	"github.com/quantclear/fofnav/internal/repository"
	"github.com/quantclear/fofnav/internal/service"
)

func main() {
	log := logrus.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Infof("Connected to database: %s", cfg.Database.Path)

	// Create repositories
	productRepo := repository.NewProductRepository(db)
	eventRepo := repository.NewEventRepository(db)
	fundNavRepo := repository.NewFundNavRepository(db)
	navRepo := repository.NewNavRepository(db)
	investorRepo := repository.NewInvestorRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	correctionRepo := repository.NewCorrectionRepository(db)

	// Create services
	systemService := service.NewSystemService(db)
	navService := service.NewNavService(
		db,
		productRepo,
		eventRepo,
		fundNavRepo,
		navRepo,
		investorRepo,
		auditRepo,
		correctionRepo,
		log,
	)
	fofService := service.NewFofService(
		productRepo,
		navRepo,
		investorRepo,
		auditRepo,
	)
	backtestService := service.NewBacktestService(fundNavRepo)

	// Nightly recalculation: replay every product through yesterday once
	// the underlying fund navs have settled.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Recalc.Schedule, func() {
		through := fin.Day(time.Now().UTC()).AddDate(0, 0, -1)
		if err := navService.RecalculateAll(context.Background(), through); err != nil {
			log.WithError(err).Error("nightly recalculation failed")
		}
	}); err != nil {
		log.Fatalf("Invalid recalc schedule %q: %v", cfg.Recalc.Schedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(systemService, fofService, navService, backtestService, cfg, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
