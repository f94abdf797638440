package repository_test

import (
	"testing"

	"github.com/quantclear/fofnav/internal/model"
	"github.com/quantclear/fofnav/internal/repository"
	"github.com/quantclear/fofnav/internal/testutil"
)

// TestEventRepository_RoundTrip tests that split-dated events survive the
// round trip intact, including the optional columns.
func TestEventRepository_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	product := testutil.NewProduct().Build(t, db)

	created := testutil.NewEvent(product.ID, model.EventAssetPurchase).
		WithFund("hedge-1", model.AssetHedge).
		WithAmount("900000").
		WithShare("900000").
		WithNav("1").
		WithWaterLine("1.05").
		On(testutil.Date(t, "2021-01-04")).
		ConfirmedOn(testutil.Date(t, "2021-01-05")).
		DepositedOn(testutil.Date(t, "2021-01-06")).
		Build(t, db)

	events, err := repository.NewEventRepository(db).List(product.ID, testutil.Date(t, "2021-01-31"))
	if err != nil {
		t.Fatalf("List() returned unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("List() returned %d events, want 1", len(events))
	}

	got := events[0]
	if got.ID != created.ID {
		t.Errorf("id = %s, want %s", got.ID, created.ID)
	}
	if got.Type != model.EventAssetPurchase {
		t.Errorf("type = %s, want %s", got.Type, model.EventAssetPurchase)
	}
	if got.FundID != "hedge-1" || got.AssetType != model.AssetHedge {
		t.Errorf("fund = %s/%s, want hedge-1/%s", got.FundID, got.AssetType, model.AssetHedge)
	}
	if !got.AppliedDate.Equal(testutil.Date(t, "2021-01-04")) {
		t.Errorf("applied = %s, want 2021-01-04", got.AppliedDate)
	}
	if !got.ConfirmedDate.Equal(testutil.Date(t, "2021-01-05")) {
		t.Errorf("confirmed = %s, want 2021-01-05", got.ConfirmedDate)
	}
	if !got.DepositedDate.Equal(testutil.Date(t, "2021-01-06")) {
		t.Errorf("deposited = %s, want 2021-01-06", got.DepositedDate)
	}
	if !got.Amount.Equal(created.Amount) || !got.Share.Equal(created.Share) {
		t.Errorf("amount/share = %s/%s, want %s/%s", got.Amount, got.Share, created.Amount, created.Share)
	}
	if !got.WaterLine.Equal(created.WaterLine) {
		t.Errorf("water line = %s, want %s", got.WaterLine, created.WaterLine)
	}
}

// TestEventRepository_ListOrderAndWindow tests the replay contract of List.
//
// WHY: The engine consumes events in (applied_date, id) order and must not
// see events applied after the horizon; a wrong ORDER BY here corrupts every
// downstream day silently.
func TestEventRepository_ListOrderAndWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	product := testutil.NewProduct().Build(t, db)
	repo := repository.NewEventRepository(db)

	// Inserted out of order on purpose.
	testutil.NewEvent(product.ID, model.EventInvestorSubscribe).
		WithID("e-03").WithInvestor("inv-1").WithAmount("100").
		On(testutil.Date(t, "2021-01-06")).Build(t, db)
	testutil.NewEvent(product.ID, model.EventInvestorSubscribe).
		WithID("e-02").WithInvestor("inv-1").WithAmount("100").
		On(testutil.Date(t, "2021-01-04")).Build(t, db)
	testutil.NewEvent(product.ID, model.EventInvestorSubscribe).
		WithID("e-01").WithInvestor("inv-1").WithAmount("100").
		On(testutil.Date(t, "2021-01-04")).Build(t, db)

	t.Run("replay order", func(t *testing.T) {
		events, err := repo.List(product.ID, testutil.Date(t, "2021-01-31"))
		if err != nil {
			t.Fatalf("List() returned unexpected error: %v", err)
		}
		var ids []string
		for _, e := range events {
			ids = append(ids, e.ID)
		}
		want := []string{"e-01", "e-02", "e-03"}
		for i := range want {
			if i >= len(ids) || ids[i] != want[i] {
				t.Fatalf("List() order = %v, want %v", ids, want)
			}
		}
	})

	t.Run("horizon excludes later applications", func(t *testing.T) {
		events, err := repo.List(product.ID, testutil.Date(t, "2021-01-05"))
		if err != nil {
			t.Fatalf("List() returned unexpected error: %v", err)
		}
		if len(events) != 2 {
			t.Errorf("List() through 01-05 returned %d events, want 2", len(events))
		}
	})

	t.Run("other products are invisible", func(t *testing.T) {
		other := testutil.NewProduct().Build(t, db)
		events, err := repo.List(other.ID, testutil.Date(t, "2021-01-31"))
		if err != nil {
			t.Fatalf("List() returned unexpected error: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("List() for other product returned %d events, want 0", len(events))
		}
	})
}
