package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/quantclear/fofnav/internal/engine"
	"github.com/quantclear/fofnav/internal/model"
	"github.com/quantclear/fofnav/internal/repository"
)

// NavService orchestrates a NAV calculation run: it acquires the per-product
// lock, loads the full snapshot, hands it to the engine, and commits every
// output series in one transaction.
type NavService struct {
	db             *sql.DB
	productRepo    *repository.ProductRepository
	eventRepo      *repository.EventRepository
	fundNavRepo    *repository.FundNavRepository
	navRepo        *repository.NavRepository
	investorRepo   *repository.InvestorRepository
	auditRepo      *repository.AuditRepository
	correctionRepo *repository.CorrectionRepository
	log            logrus.FieldLogger
}

// NewNavService creates a new NavService with the provided repository dependencies.
func NewNavService(
	db *sql.DB,
	productRepo *repository.ProductRepository,
	eventRepo *repository.EventRepository,
	fundNavRepo *repository.FundNavRepository,
	navRepo *repository.NavRepository,
	investorRepo *repository.InvestorRepository,
	auditRepo *repository.AuditRepository,
	correctionRepo *repository.CorrectionRepository,
	log logrus.FieldLogger,
) *NavService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &NavService{
		db:             db,
		productRepo:    productRepo,
		eventRepo:      eventRepo,
		fundNavRepo:    fundNavRepo,
		navRepo:        navRepo,
		investorRepo:   investorRepo,
		auditRepo:      auditRepo,
		correctionRepo: correctionRepo,
		log:            log,
	}
}

// Recalculate replays the FOF from day one through the given date and
// commits the produced series. Returns ErrCalculationInProgress when another
// run holds the product's lock. With dryRun set, nothing is persisted and
// the result is returned for inspection.
func (s *NavService) Recalculate(ctx context.Context, fofID string, through time.Time, dryRun bool) (*engine.Result, error) {
	// Dry runs write nothing, so they don't need the lock.
	if !dryRun {
		if err := s.productRepo.TryLock(fofID); err != nil {
			return nil, err
		}
		defer func() {
			if err := s.productRepo.Unlock(fofID); err != nil {
				s.log.WithField("fof", fofID).WithError(err).Error("failed to release calculation lock")
			}
		}()
	}

	product, err := s.productRepo.Get(fofID)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadSnapshot(ctx, product, through)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result, err := engine.Run(ctx, snap, s.log.WithField("fof", fofID))
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"fof":      fofID,
		"days":     len(result.Nav),
		"warnings": len(result.Warnings),
		"elapsed":  time.Since(started).String(),
	}).Info("nav run complete")

	if dryRun {
		return result, nil
	}
	if err := s.persist(fofID, result); err != nil {
		return nil, err
	}
	return result, nil
}

// RecalculateAll runs every registered product through the given date. Used
// by the nightly schedule; a failing product is logged and skipped so one
// bad event log cannot stall the rest.
func (s *NavService) RecalculateAll(ctx context.Context, through time.Time) error {
	products, err := s.productRepo.List()
	if err != nil {
		return err
	}
	var failed int
	for _, p := range products {
		if _, err := s.Recalculate(ctx, p.ID, through, false); err != nil {
			failed++
			s.log.WithField("fof", p.ID).WithError(err).Error("nav run failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d nav runs failed", failed, len(products))
	}
	return nil
}

// loadSnapshot gathers the engine's full input. Events and corrections load
// concurrently; fund series load afterwards, once the event log reveals
// which funds the FOF ever held.
func (s *NavService) loadSnapshot(ctx context.Context, product model.Product, through time.Time) (engine.Snapshot, error) {
	snap := engine.Snapshot{Product: product, Through: through}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		events, err := s.eventRepo.List(product.ID, through)
		if err != nil {
			return err
		}
		snap.Events = events
		return nil
	})
	g.Go(func() error {
		corrections, err := s.correctionRepo.ListManual(product.ID, through)
		if err != nil {
			return err
		}
		snap.Corrections = corrections
		return nil
	})
	if err := g.Wait(); err != nil {
		return engine.Snapshot{}, err
	}

	fundIDs := eventFunds(snap.Events)
	prices, err := s.fundNavRepo.GetSeries(fundIDs, product.EffectiveStart().AddDate(-1, 0, 0), through)
	if err != nil {
		return engine.Snapshot{}, err
	}
	snap.Prices = prices
	return snap, nil
}

// persist writes every output series in a single transaction so readers
// never observe a half-committed run.
func (s *NavService) persist(fofID string, result *engine.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.navRepo.WithTx(tx).ReplaceSeries(fofID, result.Nav, result.Positions); err != nil {
		return err
	}
	if err := s.navRepo.WithTx(tx).ReplaceDetails(fofID, result.PositionDetails); err != nil {
		return err
	}
	if err := s.investorRepo.WithTx(tx).Replace(fofID, result.Investors); err != nil {
		return err
	}
	if err := s.auditRepo.WithTx(tx).Replace(
		fofID, result.Fees, result.Interest, result.InTransit, result.Statements,
	); err != nil {
		return err
	}
	if err := s.correctionRepo.WithTx(tx).ReplaceDrift(fofID, result.DriftCorrections); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit nav run: %w", err)
	}
	return nil
}

func eventFunds(events []model.Event) []string {
	seen := map[string]bool{}
	funds := []string{}
	for _, e := range events {
		if e.FundID == "" || seen[e.FundID] {
			continue
		}
		seen[e.FundID] = true
		funds = append(funds, e.FundID)
	}
	return funds
}
