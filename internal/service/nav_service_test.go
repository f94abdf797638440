package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/quantclear/fofnav/internal/apperrors"
	"github.com/quantclear/fofnav/internal/model"
	"github.com/quantclear/fofnav/internal/repository"
	"github.com/quantclear/fofnav/internal/service"
	"github.com/quantclear/fofnav/internal/testutil"
)

func newNavService(db *sql.DB) *service.NavService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return service.NewNavService(
		db,
		repository.NewProductRepository(db),
		repository.NewEventRepository(db),
		repository.NewFundNavRepository(db),
		repository.NewNavRepository(db),
		repository.NewInvestorRepository(db),
		repository.NewAuditRepository(db),
		repository.NewCorrectionRepository(db),
		log,
	)
}

// seedFirstWeek loads one FOF into the database: a 1,000,000 subscription on
// inception day, a 900,000 hedge purchase confirming the next day, and two
// hedge NAV observations ending at 1.01.
func seedFirstWeek(t *testing.T, db *sql.DB) model.Product {
	t.Helper()

	product := testutil.NewProduct().
		WithInception(testutil.Date(t, "2021-01-04")).
		Build(t, db)

	testutil.NewEvent(product.ID, model.EventInvestorSubscribe).
		WithInvestor("inv-1").
		WithAmount("1000000").WithShare("1000000").WithNav("1").
		On(testutil.Date(t, "2021-01-04")).
		Build(t, db)
	testutil.NewEvent(product.ID, model.EventAssetPurchase).
		WithFund("hedge-1", model.AssetHedge).
		WithAmount("900000").WithShare("900000").WithNav("1").
		WithWaterLine("1.05").
		On(testutil.Date(t, "2021-01-04")).
		ConfirmedOn(testutil.Date(t, "2021-01-05")).
		Build(t, db)

	testutil.CreateFundNav(t, db, "hedge-1", model.AssetHedge, testutil.Point(t, "2021-01-05", "1.00", "1.00"))
	testutil.CreateFundNav(t, db, "hedge-1", model.AssetHedge, testutil.Point(t, "2021-01-06", "1.01", "1.01"))

	return product
}

// TestNavService_Recalculate tests the full run: load, engine, commit.
//
// WHY: This is the path the nightly schedule and the recalculation endpoint
// share. The committed tables, not the in-memory result, are what the API
// serves, so the assertions read everything back from the database.
func TestNavService_Recalculate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newNavService(db)
	product := seedFirstWeek(t, db)
	through := testutil.Date(t, "2021-01-06")

	result, err := svc.Recalculate(context.Background(), product.ID, through, false)
	if err != nil {
		t.Fatalf("Recalculate() returned unexpected error: %v", err)
	}
	if len(result.Nav) != 3 {
		t.Fatalf("run produced %d days, want 3", len(result.Nav))
	}

	t.Run("nav series committed", func(t *testing.T) {
		row, err := repository.NewNavRepository(db).GetNav(product.ID, through)
		if err != nil {
			t.Fatalf("GetNav() returned unexpected error: %v", err)
		}
		if !row.Nav.Equal(testutil.Dec(t, "1.009")) {
			t.Errorf("committed nav = %s, want 1.0090", row.Nav)
		}
		if !row.Volume.Equal(testutil.Dec(t, "1000000")) {
			t.Errorf("committed volume = %s, want 1000000", row.Volume)
		}
	})

	t.Run("investor positions committed", func(t *testing.T) {
		investors, err := repository.NewInvestorRepository(db).List(product.ID)
		if err != nil {
			t.Fatalf("List() returned unexpected error: %v", err)
		}
		if len(investors) != 1 {
			t.Fatalf("committed %d investors, want 1", len(investors))
		}
		if !investors[0].LeftShare.Equal(testutil.Dec(t, "1000000")) {
			t.Errorf("left share = %s, want 1000000", investors[0].LeftShare)
		}
	})

	t.Run("lock released after the run", func(t *testing.T) {
		got, err := repository.NewProductRepository(db).Get(product.ID)
		if err != nil {
			t.Fatalf("Get() returned unexpected error: %v", err)
		}
		if got.IsCalculating {
			t.Error("calculation lock still held after the run")
		}
	})

	t.Run("rerun reproduces the series", func(t *testing.T) {
		if _, err := svc.Recalculate(context.Background(), product.ID, through, false); err != nil {
			t.Fatalf("second Recalculate() returned unexpected error: %v", err)
		}
		rows, err := repository.NewNavRepository(db).GetNavSeries(product.ID)
		if err != nil {
			t.Fatalf("GetNavSeries() returned unexpected error: %v", err)
		}
		if len(rows) != 3 {
			t.Errorf("series after rerun has %d rows, want 3", len(rows))
		}
	})
}

// TestNavService_LockRefusal tests the concurrent-run guard.
func TestNavService_LockRefusal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newNavService(db)
	product := testutil.NewProduct().Calculating().Build(t, db)

	_, err := svc.Recalculate(context.Background(), product.ID, testutil.Date(t, "2021-01-06"), false)
	if !errors.Is(err, apperrors.ErrCalculationInProgress) {
		t.Errorf("Recalculate() error = %v, want ErrCalculationInProgress", err)
	}
}

// TestNavService_DryRun tests that a dry run computes without committing.
//
// WHY: Dry runs back the what-if endpoint; they must leave the tables
// untouched and must work even while a real run holds the lock.
func TestNavService_DryRun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newNavService(db)
	product := seedFirstWeek(t, db)
	through := testutil.Date(t, "2021-01-06")

	result, err := svc.Recalculate(context.Background(), product.ID, through, true)
	if err != nil {
		t.Fatalf("dry Recalculate() returned unexpected error: %v", err)
	}
	if len(result.Nav) != 3 {
		t.Errorf("dry run produced %d days, want 3", len(result.Nav))
	}

	rows, err := repository.NewNavRepository(db).GetNavSeries(product.ID)
	if err != nil {
		t.Fatalf("GetNavSeries() returned unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("dry run committed %d nav rows, want 0", len(rows))
	}

	t.Run("works while the lock is held", func(t *testing.T) {
		if err := repository.NewProductRepository(db).TryLock(product.ID); err != nil {
			t.Fatalf("TryLock() returned unexpected error: %v", err)
		}
		if _, err := svc.Recalculate(context.Background(), product.ID, through, true); err != nil {
			t.Errorf("dry Recalculate() under lock returned unexpected error: %v", err)
		}
	})
}

// TestNavService_RecalculateAll tests the nightly sweep semantics: a failing
// product is skipped, the rest still commit, and the failure is reported.
func TestNavService_RecalculateAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newNavService(db)
	good := seedFirstWeek(t, db)

	bad := testutil.NewProduct().
		WithInception(testutil.Date(t, "2021-01-04")).
		Build(t, db)
	// Confirmation predating application makes the event log inconsistent.
	testutil.NewEvent(bad.ID, model.EventInvestorSubscribe).
		WithInvestor("inv-1").
		WithAmount("1000").WithShare("1000").WithNav("1").
		On(testutil.Date(t, "2021-01-05")).
		ConfirmedOn(testutil.Date(t, "2021-01-04")).
		Build(t, db)

	err := svc.RecalculateAll(context.Background(), testutil.Date(t, "2021-01-06"))
	if err == nil {
		t.Fatal("RecalculateAll() returned nil, want an error for the bad product")
	}

	rows, navErr := repository.NewNavRepository(db).GetNavSeries(good.ID)
	if navErr != nil {
		t.Fatalf("GetNavSeries() returned unexpected error: %v", navErr)
	}
	if len(rows) != 3 {
		t.Errorf("good product has %d committed rows, want 3", len(rows))
	}

	badLock, getErr := repository.NewProductRepository(db).Get(bad.ID)
	if getErr != nil {
		t.Fatalf("Get() returned unexpected error: %v", getErr)
	}
	if badLock.IsCalculating {
		t.Error("failed run left the calculation lock held")
	}
}
