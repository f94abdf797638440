package valuation_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantclear/fofnav/internal/fin"
	"github.com/quantclear/fofnav/internal/model"
	"github.com/quantclear/fofnav/internal/valuation"
)

func lot(share, waterLine string) model.Lot {
	return model.Lot{
		ID:              "lot-1",
		FundID:          "fund-1",
		OpenDate:        time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC),
		OpenNav:         fin.MustDecimal("1"),
		OpenShare:       fin.MustDecimal(share),
		WaterLine:       fin.MustDecimal(waterLine),
		RemainingShare:  fin.MustDecimal(share),
		RemainingAmount: fin.MustDecimal(share),
	}
}

// TestAssetHighWaterMark_Accrual tests the incentive-fee accrual rounding.
//
// WHY: The accrual must reproduce the trustee's figures digit for digit: the
// excess leg is rounded to cents before the ratio applies, then the product
// is rounded again. Any other order drifts from the official NAV.
func TestAssetHighWaterMark_Accrual(t *testing.T) {
	policy := valuation.NewAssetHighWaterMark(fin.MustDecimal("0.2"), 4)

	t.Run("single lot above water line", func(t *testing.T) {
		// 1000 shares, water line 1.00, acc nav 1.50:
		// round(1000*0.50, 2) * 0.20 = 100.00
		accrual := policy.Accrual([]model.Lot{lot("1000", "1.00")}, fin.MustDecimal("1.50"))
		if !accrual.Equal(fin.MustDecimal("100")) {
			t.Errorf("Accrual = %s, want 100", accrual)
		}
	})

	t.Run("no accrual at or below water line", func(t *testing.T) {
		for _, acc := range []string{"1.00", "0.95"} {
			accrual := policy.Accrual([]model.Lot{lot("1000", "1.00")}, fin.MustDecimal(acc))
			if !accrual.IsZero() {
				t.Errorf("Accrual at acc nav %s = %s, want 0", acc, accrual)
			}
		}
	})

	t.Run("lots accrue against their own water lines", func(t *testing.T) {
		lots := []model.Lot{lot("1000", "1.00"), lot("1000", "1.40")}
		// First lot: round(1000*0.50)*0.2 = 100; second: round(1000*0.10)*0.2 = 20.
		accrual := policy.Accrual(lots, fin.MustDecimal("1.50"))
		if !accrual.Equal(fin.MustDecimal("120")) {
			t.Errorf("Accrual = %s, want 120", accrual)
		}
	})

	t.Run("closed lots are skipped", func(t *testing.T) {
		closed := lot("1000", "1.00")
		closed.RemainingShare = decimal.Zero
		accrual := policy.Accrual([]model.Lot{closed}, fin.MustDecimal("1.50"))
		if !accrual.IsZero() {
			t.Errorf("Accrual over closed lot = %s, want 0", accrual)
		}
	})
}

// TestAssetHighWaterMark_VirtualNav tests the per-unit effective NAV.
//
// WHY: v_nav is the number holdings are actually carried at. The literal
// case pins the full sequence: gross leg, accrual, division, final rounding.
func TestAssetHighWaterMark_VirtualNav(t *testing.T) {
	policy := valuation.NewAssetHighWaterMark(fin.MustDecimal("0.2"), 4)

	t.Run("nets the accrual from the gross leg", func(t *testing.T) {
		// unit nav 1.50, 1000 shares: gross 1500, accrual 100,
		// v_nav = round(1400/1000, 4) = 1.4000
		v, ok := policy.VirtualNav([]model.Lot{lot("1000", "1.00")}, fin.MustDecimal("1.50"), fin.MustDecimal("1.50"))
		if !ok {
			t.Fatal("VirtualNav() not ok for open lots")
		}
		if !v.Equal(fin.MustDecimal("1.4")) {
			t.Errorf("VirtualNav = %s, want 1.4000", v)
		}
	})

	t.Run("never exceeds unit nav, equals it under the water line", func(t *testing.T) {
		cases := []struct {
			name    string
			water   string
			unitNav string
		}{
			{"above water line", "1.00", "1.50"},
			{"at water line", "1.50", "1.50"},
			{"under water line", "2.00", "1.50"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				unit := fin.MustDecimal(tc.unitNav)
				v, ok := policy.VirtualNav([]model.Lot{lot("1000", tc.water)}, unit, unit)
				if !ok {
					t.Fatal("VirtualNav() not ok for open lots")
				}
				if v.GreaterThan(unit) {
					t.Errorf("v_nav %s exceeds unit nav %s", v, unit)
				}
				underWater := !unit.GreaterThan(fin.MustDecimal(tc.water))
				if underWater && !v.Equal(unit) {
					t.Errorf("v_nav %s != unit nav %s with no excess", v, unit)
				}
			})
		}
	})

	t.Run("not ok without open shares", func(t *testing.T) {
		if _, ok := policy.VirtualNav(nil, fin.MustDecimal("1.5"), fin.MustDecimal("1.5")); ok {
			t.Error("VirtualNav() ok for empty lot list")
		}
	})
}

// TestCollapseLots tests the deduct-reward settlement.
//
// WHY: Crystallizing the incentive fee replaces every parcel with one lot
// water-lined at the deduction NAV; getting the share arithmetic wrong here
// double-charges the next accrual period.
func TestCollapseLots(t *testing.T) {
	date := time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC)

	t.Run("merges lots and resets the water line", func(t *testing.T) {
		lots := []model.Lot{lot("600", "1.00"), lot("400", "1.20")}
		out := valuation.CollapseLots(lots, fin.MustDecimal("50"), decimal.Zero, fin.MustDecimal("1.50"), date, "deduct-1")

		if len(out) != 1 {
			t.Fatalf("CollapseLots returned %d lots, want 1", len(out))
		}
		if !out[0].RemainingShare.Equal(fin.MustDecimal("950")) {
			t.Errorf("RemainingShare = %s, want 950", out[0].RemainingShare)
		}
		if !out[0].WaterLine.Equal(fin.MustDecimal("1.50")) {
			t.Errorf("WaterLine = %s, want 1.50", out[0].WaterLine)
		}
		if !out[0].OpenDate.Equal(date) {
			t.Errorf("OpenDate = %s, want %s", out[0].OpenDate, date)
		}
	})

	t.Run("reinvested parcel offsets the deduction", func(t *testing.T) {
		lots := []model.Lot{lot("1000", "1.00")}
		out := valuation.CollapseLots(lots, fin.MustDecimal("100"), fin.MustDecimal("40"), fin.MustDecimal("1.50"), date, "deduct-2")
		if len(out) != 1 {
			t.Fatalf("CollapseLots returned %d lots, want 1", len(out))
		}
		if !out[0].RemainingShare.Equal(fin.MustDecimal("940")) {
			t.Errorf("RemainingShare = %s, want 940", out[0].RemainingShare)
		}
	})

	t.Run("full deduction leaves no lot", func(t *testing.T) {
		lots := []model.Lot{lot("100", "1.00")}
		out := valuation.CollapseLots(lots, fin.MustDecimal("100"), decimal.Zero, fin.MustDecimal("1.50"), date, "deduct-3")
		if len(out) != 0 {
			t.Errorf("CollapseLots returned %d lots, want 0", len(out))
		}
	})
}
