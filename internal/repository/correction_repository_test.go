package repository_test

import (
	"testing"

	"github.com/quantclear/fofnav/internal/model"
	"github.com/quantclear/fofnav/internal/repository"
	"github.com/quantclear/fofnav/internal/testutil"
)

// TestCorrectionRepository_ListManual tests the engine-input view of the
// correction table.
//
// WHY: Drift rows the engine wrote for audit must never come back as engine
// input; folding them into the next run's net assets would compound the
// drift run over run.
func TestCorrectionRepository_ListManual(t *testing.T) {
	db := testutil.SetupTestDB(t)
	product := testutil.NewProduct().Build(t, db)
	repo := repository.NewCorrectionRepository(db)

	manual := model.Correction{
		FofID:  product.ID,
		Date:   testutil.Date(t, "2021-01-05"),
		Amount: testutil.Dec(t, "-12.50"),
		Reason: "trustee restatement",
	}
	if err := repo.Create(manual); err != nil {
		t.Fatalf("Create() returned unexpected error: %v", err)
	}
	drift := model.Correction{
		FofID:  product.ID,
		Date:   testutil.Date(t, "2021-01-06"),
		Amount: testutil.Dec(t, "0.03"),
	}
	if err := repo.ReplaceDrift(product.ID, []model.Correction{drift}); err != nil {
		t.Fatalf("ReplaceDrift() returned unexpected error: %v", err)
	}

	t.Run("excludes drift rows", func(t *testing.T) {
		got, err := repo.ListManual(product.ID, testutil.Date(t, "2021-12-31"))
		if err != nil {
			t.Fatalf("ListManual() returned unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("ListManual() returned %d corrections, want only the manual one", len(got))
		}
		if got[0].Reason != "trustee restatement" || !got[0].Amount.Equal(manual.Amount) {
			t.Errorf("correction = %+v, want the manual restatement", got[0])
		}
	})

	t.Run("horizon filter", func(t *testing.T) {
		got, err := repo.ListManual(product.ID, testutil.Date(t, "2021-01-04"))
		if err != nil {
			t.Fatalf("ListManual() returned unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("ListManual() before the correction date returned %d rows, want 0", len(got))
		}
	})
}

// TestCorrectionRepository_ReplaceDrift tests that each run owns the drift
// series: rewriting replaces earlier drift rows and leaves manual rows alone.
func TestCorrectionRepository_ReplaceDrift(t *testing.T) {
	db := testutil.SetupTestDB(t)
	product := testutil.NewProduct().Build(t, db)
	repo := repository.NewCorrectionRepository(db)

	if err := repo.Create(model.Correction{
		FofID:  product.ID,
		Date:   testutil.Date(t, "2021-01-04"),
		Amount: testutil.Dec(t, "5"),
		Reason: "manual adjustment",
	}); err != nil {
		t.Fatalf("Create() returned unexpected error: %v", err)
	}

	first := []model.Correction{
		{FofID: product.ID, Date: testutil.Date(t, "2021-01-05"), Amount: testutil.Dec(t, "0.01")},
		{FofID: product.ID, Date: testutil.Date(t, "2021-01-06"), Amount: testutil.Dec(t, "0.02")},
	}
	if err := repo.ReplaceDrift(product.ID, first); err != nil {
		t.Fatalf("first ReplaceDrift() returned unexpected error: %v", err)
	}
	second := []model.Correction{
		{FofID: product.ID, Date: testutil.Date(t, "2021-01-05"), Amount: testutil.Dec(t, "0.04")},
	}
	if err := repo.ReplaceDrift(product.ID, second); err != nil {
		t.Fatalf("second ReplaceDrift() returned unexpected error: %v", err)
	}

	var total int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM nav_correction WHERE fof_id = ?`, product.ID,
	).Scan(&total); err != nil {
		t.Fatalf("Failed to count corrections: %v", err)
	}
	if total != 2 {
		t.Errorf("correction rows = %d, want manual + one rewritten drift row", total)
	}

	manual, err := repo.ListManual(product.ID, testutil.Date(t, "2021-12-31"))
	if err != nil {
		t.Fatalf("ListManual() returned unexpected error: %v", err)
	}
	if len(manual) != 1 || manual[0].Reason != "manual adjustment" {
		t.Errorf("manual corrections after rewrite = %+v, want the original adjustment", manual)
	}
}
