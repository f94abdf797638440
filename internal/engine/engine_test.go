package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quantclear/fofnav/internal/apperrors"
	"github.com/quantclear/fofnav/internal/engine"
	"github.com/quantclear/fofnav/internal/fin"
	"github.com/quantclear/fofnav/internal/model"
)

func day(t *testing.T, str string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", str)
	if err != nil {
		t.Fatalf("bad date %q: %v", str, err)
	}
	return d.UTC()
}

// firstWeekSnapshot is a single investor funding a single hedge-fund
// purchase: subscribe 1,000,000 at nav 1 on inception day, buy 900,000 of
// hedge-1 confirming the next day, hedge nav rising to 1.01 the day after.
// The purchase carries a 1.05 water line, so no incentive fee accrues.
func firstWeekSnapshot(t *testing.T) engine.Snapshot {
	t.Helper()
	d1 := day(t, "2021-01-04")
	d2 := day(t, "2021-01-05")
	d3 := day(t, "2021-01-06")

	return engine.Snapshot{
		Product: model.Product{
			ID:            "fof-1",
			Name:          "Test FOF",
			InceptionDate: d1,
			IncentiveMode: model.IncentiveAssetHighWaterMark,
		},
		Events: []model.Event{
			{
				ID: "e1", FofID: "fof-1", Type: model.EventInvestorSubscribe, Status: model.StatusDone,
				InvestorID:  "inv-1",
				AppliedDate: d1, ConfirmedDate: d1, DepositedDate: d1,
				Amount: fin.MustDecimal("1000000"), Share: fin.MustDecimal("1000000"), Nav: fin.MustDecimal("1"),
			},
			{
				ID: "e2", FofID: "fof-1", Type: model.EventAssetPurchase, Status: model.StatusDone,
				FundID: "hedge-1", AssetType: model.AssetHedge,
				AppliedDate: d1, ConfirmedDate: d2, DepositedDate: d1,
				Amount: fin.MustDecimal("900000"), Share: fin.MustDecimal("900000"),
				Nav: fin.MustDecimal("1"), WaterLine: fin.MustDecimal("1.05"),
			},
		},
		Prices: map[string]model.Series{
			"hedge-1": {FundID: "hedge-1", AssetType: model.AssetHedge, Points: []model.PricePoint{
				{Date: d2, UnitNav: fin.MustDecimal("1.00"), AccNav: fin.MustDecimal("1.00")},
				{Date: d3, UnitNav: fin.MustDecimal("1.01"), AccNav: fin.MustDecimal("1.01")},
			}},
		},
		Through: d3,
	}
}

// TestRun_FirstWeek tests the daily NAV series of the canonical first week.
//
// WHY: This is the end-to-end arithmetic the whole engine exists for:
// NAV(2021-01-06) = round((900000*1.01 + 100000) / 1000000, 4) = 1.0090.
func TestRun_FirstWeek(t *testing.T) {
	res, err := engine.Run(context.Background(), firstWeekSnapshot(t), nil)
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if len(res.Nav) != 3 {
		t.Fatalf("nav rows = %d, want 3", len(res.Nav))
	}

	wantNavs := []string{"1", "1", "1.009"}
	for i, want := range wantNavs {
		if !res.Nav[i].Nav.Equal(fin.MustDecimal(want)) {
			t.Errorf("nav[%d] = %s, want %s", i, res.Nav[i].Nav, want)
		}
	}

	last := res.Nav[len(res.Nav)-1]
	if !last.Volume.Equal(fin.MustDecimal("1000000")) {
		t.Errorf("volume = %s, want 1000000", last.Volume)
	}
	if !last.MV.Equal(fin.MustDecimal("1009000")) {
		t.Errorf("net assets = %s, want 1009000", last.MV)
	}
	if !last.Ret.Equal(fin.MustDecimal("0.009")) {
		t.Errorf("ret = %s, want 0.009", last.Ret)
	}
}

// TestRun_UniversalProperties checks the invariants every run must satisfy.
//
// WHY: Share conservation, the MV identity, cash non-negativity, and replay
// idempotence hold for any event log; a regression in any of them corrupts
// committed series silently.
func TestRun_UniversalProperties(t *testing.T) {
	snap := firstWeekSnapshot(t)
	res, err := engine.Run(context.Background(), snap, nil)
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	t.Run("share conservation", func(t *testing.T) {
		total := fin.MustDecimal("0")
		for _, inv := range res.Investors {
			total = total.Add(inv.LeftShare)
		}
		lastVolume := res.Nav[len(res.Nav)-1].Volume
		if !total.Equal(lastVolume) {
			t.Errorf("investor shares %s != volume %s", total, lastVolume)
		}
	})

	t.Run("mv identity within tolerance", func(t *testing.T) {
		for _, row := range res.Nav {
			diff := row.Nav.Mul(row.Volume).Sub(row.MV).Abs()
			tolerance := row.Volume.Mul(fin.MustDecimal("0.01"))
			if diff.GreaterThan(tolerance) {
				t.Errorf("%s: |nav*volume - net assets| = %s exceeds %s",
					row.Date.Format("2006-01-02"), diff, tolerance)
			}
		}
	})

	t.Run("cash non-negativity", func(t *testing.T) {
		for _, row := range res.Statements {
			if row.Cash.IsNegative() {
				t.Errorf("%s: cash = %s", row.Date.Format("2006-01-02"), row.Cash)
			}
		}
	})

	t.Run("replay idempotence", func(t *testing.T) {
		again, err := engine.Run(context.Background(), snap, nil)
		if err != nil {
			t.Fatalf("second Run() returned unexpected error: %v", err)
		}
		if len(again.Nav) != len(res.Nav) {
			t.Fatalf("second run produced %d rows, first %d", len(again.Nav), len(res.Nav))
		}
		for i := range res.Nav {
			a, b := res.Nav[i], again.Nav[i]
			if !a.Date.Equal(b.Date) || !a.Nav.Equal(b.Nav) || !a.Volume.Equal(b.Volume) || !a.MV.Equal(b.MV) {
				t.Errorf("row %d differs between runs: %+v vs %+v", i, a, b)
			}
		}
	})

	t.Run("fee accrual monotonicity", func(t *testing.T) {
		prev := fin.MustDecimal("0")
		for _, row := range res.Fees {
			cum := row.CumManagement.Add(row.CumCustodian).Add(row.CumAdministrative)
			if cum.LessThan(prev) {
				t.Errorf("%s: cumulative fees decreased %s -> %s",
					row.Date.Format("2006-01-02"), prev, cum)
			}
			prev = cum
		}
	})
}

// TestRun_RaisingPeriodInterest tests the pre-inception interest day.
//
// WHY: When the raising cutoff precedes inception the engine must still emit
// a row for the cutoff day, carrying the fixed interest in net assets:
// round((1000000 + 77.78) / 1000000, 4) = 1.0001.
func TestRun_RaisingPeriodInterest(t *testing.T) {
	cutoff := day(t, "2020-12-20")
	snap := engine.Snapshot{
		Product: model.Product{
			ID:                    "fof-2",
			InceptionDate:         day(t, "2020-12-21"),
			IncentiveMode:         model.IncentiveAssetHighWaterMark,
			RaisingInterestAmount: fin.MustDecimal("77.78"),
			RaisingInterestUntil:  cutoff,
		},
		Events: []model.Event{{
			ID: "e1", FofID: "fof-2", Type: model.EventInvestorSubscribe, Status: model.StatusDone,
			InvestorID:  "inv-1",
			AppliedDate: cutoff, ConfirmedDate: cutoff, DepositedDate: cutoff,
			Amount: fin.MustDecimal("1000000"), Share: fin.MustDecimal("1000000"), Nav: fin.MustDecimal("1"),
		}},
		Through: cutoff,
	}

	res, err := engine.Run(context.Background(), snap, nil)
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	if len(res.Nav) != 1 {
		t.Fatalf("nav rows = %d, want 1", len(res.Nav))
	}
	if !res.Nav[0].Nav.Equal(fin.MustDecimal("1.0001")) {
		t.Errorf("nav = %s, want 1.0001", res.Nav[0].Nav)
	}
}

// TestRun_AbortsOnInconsistentEvents tests the abort-the-run policy.
//
// WHY: A bad event log must never produce partial numbers for the offending
// day: validation failures abort before any day, mid-run failures keep only
// the complete days before the failure.
func TestRun_AbortsOnInconsistentEvents(t *testing.T) {
	t.Run("duplicate event id", func(t *testing.T) {
		snap := firstWeekSnapshot(t)
		snap.Events[1].ID = snap.Events[0].ID
		_, err := engine.Run(context.Background(), snap, nil)
		if !errors.Is(err, apperrors.ErrDuplicateEventID) {
			t.Errorf("Run() error = %v, want ErrDuplicateEventID", err)
		}
	})

	t.Run("confirmation before application", func(t *testing.T) {
		snap := firstWeekSnapshot(t)
		snap.Events[1].ConfirmedDate = day(t, "2021-01-03")
		_, err := engine.Run(context.Background(), snap, nil)
		if !errors.Is(err, apperrors.ErrConfirmedBeforeApplied) {
			t.Errorf("Run() error = %v, want ErrConfirmedBeforeApplied", err)
		}
	})

	t.Run("unsupported incentive mode", func(t *testing.T) {
		snap := firstWeekSnapshot(t)
		snap.Product.IncentiveMode = model.IncentiveSingleCustom
		_, err := engine.Run(context.Background(), snap, nil)
		if !errors.Is(err, apperrors.ErrUnsupportedIncentiveMode) {
			t.Errorf("Run() error = %v, want ErrUnsupportedIncentiveMode", err)
		}
	})

	t.Run("mid-run failure keeps prior days", func(t *testing.T) {
		snap := firstWeekSnapshot(t)
		// Second purchase the fund cannot pay for, landing on day two.
		d2 := day(t, "2021-01-05")
		snap.Events = append(snap.Events, model.Event{
			ID: "e3", FofID: "fof-1", Type: model.EventAssetPurchase, Status: model.StatusDone,
			FundID: "hedge-1", AssetType: model.AssetHedge,
			AppliedDate: d2, ConfirmedDate: d2, DepositedDate: d2,
			Amount: fin.MustDecimal("500000"), Share: fin.MustDecimal("500000"),
		})
		res, err := engine.Run(context.Background(), snap, nil)
		if !errors.Is(err, apperrors.ErrInsufficientCash) {
			t.Fatalf("Run() error = %v, want ErrInsufficientCash", err)
		}
		if len(res.Nav) != 1 {
			t.Errorf("nav rows after abort = %d, want 1 (only the clean day)", len(res.Nav))
		}
	})
}

// TestRun_HonorsCancellation tests context cancellation at day boundaries.
func TestRun_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Run(ctx, firstWeekSnapshot(t), nil)
	if !errors.Is(err, apperrors.ErrRunCancelled) {
		t.Errorf("Run() error = %v, want ErrRunCancelled", err)
	}
}

// TestRun_InvestorPositions tests the investor summary produced by a run.
//
// WHY: The investor's virtual NAV accrues against their own water line, not
// the fund's: with the FOF at 1.0090 and a lot opened at 1, the 20% accrual
// on the 0.0090 excess nets to 1.0072 per unit.
func TestRun_InvestorPositions(t *testing.T) {
	res, err := engine.Run(context.Background(), firstWeekSnapshot(t), nil)
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	if len(res.Investors) != 1 {
		t.Fatalf("investors = %d, want 1", len(res.Investors))
	}

	inv := res.Investors[0]
	if inv.InvestorID != "inv-1" {
		t.Errorf("investor id = %s, want inv-1", inv.InvestorID)
	}
	if !inv.LeftShare.Equal(fin.MustDecimal("1000000")) {
		t.Errorf("left share = %s, want 1000000", inv.LeftShare)
	}
	// gross round(1.009*1000000) = 1009000, accrual round(round(1000000*0.009)*0.2) = 1800,
	// v_nav = round(1007200/1000000, 4) = 1.0072
	if !inv.VNav.Equal(fin.MustDecimal("1.0072")) {
		t.Errorf("investor v_nav = %s, want 1.0072", inv.VNav)
	}
	if !inv.MV.Equal(fin.MustDecimal("1007200")) {
		t.Errorf("investor mv = %s, want 1007200", inv.MV)
	}
}

// TestRun_SameDayOrderIndependence tests that reordering events of the same
// type within a day does not change the run.
//
// WHY: Callers hand the engine events in whatever order the store returned
// them; two subscriptions landing on the same day must produce the same
// series either way, or a replay after a reindex restates history.
func TestRun_SameDayOrderIndependence(t *testing.T) {
	d1 := day(t, "2021-01-04")
	d2 := day(t, "2021-01-05")

	subA := model.Event{
		ID: "e1", FofID: "fof-1", Type: model.EventInvestorSubscribe, Status: model.StatusDone,
		InvestorID:  "inv-1",
		AppliedDate: d1, ConfirmedDate: d1, DepositedDate: d1,
		Amount: fin.MustDecimal("600000"), Share: fin.MustDecimal("600000"), Nav: fin.MustDecimal("1"),
	}
	subB := model.Event{
		ID: "e2", FofID: "fof-1", Type: model.EventInvestorSubscribe, Status: model.StatusDone,
		InvestorID:  "inv-2",
		AppliedDate: d1, ConfirmedDate: d1, DepositedDate: d1,
		Amount: fin.MustDecimal("400000"), Share: fin.MustDecimal("400000"), Nav: fin.MustDecimal("1"),
	}

	snapshot := func(events ...model.Event) engine.Snapshot {
		return engine.Snapshot{
			Product: model.Product{
				ID:            "fof-1",
				InceptionDate: d1,
				IncentiveMode: model.IncentiveAssetHighWaterMark,
			},
			Events:  events,
			Through: d2,
		}
	}

	ab, err := engine.Run(context.Background(), snapshot(subA, subB), nil)
	if err != nil {
		t.Fatalf("Run(a,b) returned unexpected error: %v", err)
	}
	ba, err := engine.Run(context.Background(), snapshot(subB, subA), nil)
	if err != nil {
		t.Fatalf("Run(b,a) returned unexpected error: %v", err)
	}

	if len(ab.Nav) != len(ba.Nav) {
		t.Fatalf("row counts differ: %d vs %d", len(ab.Nav), len(ba.Nav))
	}
	for i := range ab.Nav {
		x, y := ab.Nav[i], ba.Nav[i]
		if !x.Date.Equal(y.Date) || !x.Nav.Equal(y.Nav) || !x.Volume.Equal(y.Volume) || !x.MV.Equal(y.MV) {
			t.Errorf("row %d differs between orderings: %+v vs %+v", i, x, y)
		}
	}
	if !ab.Nav[len(ab.Nav)-1].Volume.Equal(fin.MustDecimal("1000000")) {
		t.Errorf("volume = %s, want 1000000", ab.Nav[len(ab.Nav)-1].Volume)
	}
}

// TestRun_MissingPriceWarns tests the forward-fill-then-warn policy.
//
// WHY: A fund with no observation yet cannot be valued; the day's market
// value excludes it and the run records a warning instead of guessing.
func TestRun_MissingPriceWarns(t *testing.T) {
	snap := firstWeekSnapshot(t)
	snap.Prices = map[string]model.Series{}

	res, err := engine.Run(context.Background(), snap, nil)
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected warnings for unpriceable holding, got none")
	}
}
