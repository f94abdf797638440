package repository_test

import (
	"testing"

	"github.com/quantclear/fofnav/internal/model"
	"github.com/quantclear/fofnav/internal/repository"
	"github.com/quantclear/fofnav/internal/testutil"
)

// TestFundNavRepository_GetSeries tests window filtering and fill order.
//
// WHY: The engine forward-fills from GetSeries output, so the points must
// come back date-ascending and restricted to the requested window; anything
// else silently values holdings at the wrong observation.
func TestFundNavRepository_GetSeries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewFundNavRepository(db)

	// Inserted out of order on purpose.
	testutil.CreateFundNav(t, db, "hedge-1", model.AssetHedge, testutil.Point(t, "2021-01-06", "1.02", "1.02"))
	testutil.CreateFundNav(t, db, "hedge-1", model.AssetHedge, testutil.Point(t, "2021-01-04", "1.00", "1.00"))
	testutil.CreateFundNav(t, db, "hedge-1", model.AssetHedge, testutil.Point(t, "2021-01-05", "1.01", "1.01"))
	testutil.CreateFundNav(t, db, "mmf-1", model.AssetMonetary, testutil.Point(t, "2021-01-05", "1", "1"))
	testutil.CreateFundNav(t, db, "other", model.AssetHedge, testutil.Point(t, "2021-01-05", "9", "9"))

	series, err := repo.GetSeries([]string{"hedge-1", "mmf-1"},
		testutil.Date(t, "2021-01-04"), testutil.Date(t, "2021-01-05"))
	if err != nil {
		t.Fatalf("GetSeries() returned unexpected error: %v", err)
	}

	if len(series) != 2 {
		t.Fatalf("GetSeries() returned %d series, want 2", len(series))
	}
	if _, ok := series["other"]; ok {
		t.Error("GetSeries() returned a fund that was not requested")
	}

	hedge := series["hedge-1"]
	if hedge.AssetType != model.AssetHedge {
		t.Errorf("asset type = %s, want %s", hedge.AssetType, model.AssetHedge)
	}
	if len(hedge.Points) != 2 {
		t.Fatalf("hedge-1 has %d points, want 2 inside the window", len(hedge.Points))
	}
	if !hedge.Points[0].Date.Before(hedge.Points[1].Date) {
		t.Error("points are not date-ascending")
	}
	if !hedge.Points[1].UnitNav.Equal(testutil.Dec(t, "1.01")) {
		t.Errorf("unit nav = %s, want 1.01", hedge.Points[1].UnitNav)
	}
}

// TestFundNavRepository_Upsert tests that a second observation for the same
// day replaces the first instead of erroring.
func TestFundNavRepository_Upsert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewFundNavRepository(db)

	testutil.CreateFundNav(t, db, "hedge-1", model.AssetHedge, testutil.Point(t, "2021-01-04", "1.00", "1.00"))
	// Trustee restates the day.
	testutil.CreateFundNav(t, db, "hedge-1", model.AssetHedge, testutil.Point(t, "2021-01-04", "1.005", "1.005"))

	series, err := repo.GetSeries([]string{"hedge-1"},
		testutil.Date(t, "2021-01-01"), testutil.Date(t, "2021-01-31"))
	if err != nil {
		t.Fatalf("GetSeries() returned unexpected error: %v", err)
	}
	points := series["hedge-1"].Points
	if len(points) != 1 {
		t.Fatalf("found %d points for the day, want 1", len(points))
	}
	if !points[0].UnitNav.Equal(testutil.Dec(t, "1.005")) {
		t.Errorf("unit nav after restatement = %s, want 1.005", points[0].UnitNav)
	}
}
