// Package valuation computes post-incentive-fee effective NAVs. The incentive
// fee accrues against each lot's own water line, so two parcels of the same
// fund bought on different days value differently until the fee crystallizes.
package valuation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantclear/fofnav/internal/fin"
	"github.com/quantclear/fofnav/internal/model"
)

// FeePolicy turns a lot list and a price observation into an incentive-fee
// accrual and a virtual NAV. Only the asset high-water-mark mode is
// implemented; new settlement modes plug in here.
type FeePolicy interface {
	// Accrual is the total incentive fee accrued but not yet crystallized
	// across the given lots at the given accumulated NAV.
	Accrual(lots []model.Lot, accNav decimal.Decimal) decimal.Decimal

	// VirtualNav is the per-unit effective NAV: unit-NAV gross leg minus the
	// accrual, divided by total shares. ok is false when no shares are open.
	VirtualNav(lots []model.Lot, unitNav, accNav decimal.Decimal) (decimal.Decimal, bool)

	// VirtualNavAccumulated is the simplified variant that values the gross
	// leg at the accumulated NAV. Used for investor-level valuation where the
	// FOF pays no dividends and unit and accumulated NAV coincide.
	VirtualNavAccumulated(lots []model.Lot, accNav decimal.Decimal) (decimal.Decimal, bool)
}

// AssetHighWaterMark accrues ratio * excess over each lot's water line.
type AssetHighWaterMark struct {
	Ratio     decimal.Decimal
	Precision int32
}

// NewAssetHighWaterMark builds the policy, substituting the conventional
// defaults (0.2, 4) for missing parameters.
func NewAssetHighWaterMark(ratio decimal.Decimal, precision int32) AssetHighWaterMark {
	if ratio.IsZero() {
		ratio = decimal.NewFromFloat(0.2)
	}
	if precision == 0 {
		precision = 4
	}
	return AssetHighWaterMark{Ratio: ratio, Precision: precision}
}

// Accrual sums the per-lot incentive accruals. The rounding sequence matches
// the trustee: the excess leg is rounded to cents before the ratio is applied,
// and the product is rounded to cents again.
func (p AssetHighWaterMark) Accrual(lots []model.Lot, accNav decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range lots {
		if !lot.Open() {
			continue
		}
		excess := accNav.Sub(lot.WaterLine)
		if !excess.IsPositive() {
			continue
		}
		fee := fin.RoundAmount(fin.RoundAmount(lot.RemainingShare.Mul(excess)).Mul(p.Ratio))
		total = total.Add(fee)
	}
	return total
}

// VirtualNav values the lots at unitNav gross, nets the accrual measured at
// accNav, and divides back to a per-unit figure.
func (p AssetHighWaterMark) VirtualNav(lots []model.Lot, unitNav, accNav decimal.Decimal) (decimal.Decimal, bool) {
	shares := model.TotalShare(lots)
	if !shares.IsPositive() {
		return decimal.Zero, false
	}
	gross := fin.RoundAmount(unitNav.Mul(shares))
	net := gross.Sub(p.Accrual(lots, accNav))
	return fin.RoundNav(net.Div(shares), p.Precision), true
}

// VirtualNavAccumulated is VirtualNav with accNav on both legs.
func (p AssetHighWaterMark) VirtualNavAccumulated(lots []model.Lot, accNav decimal.Decimal) (decimal.Decimal, bool) {
	return p.VirtualNav(lots, accNav, accNav)
}

// NetMarketValue is the lots' market value after the incentive accrual,
// without the final per-unit division. The engine aggregates this directly so
// holding-level and NAV-level rounding cannot diverge.
func (p AssetHighWaterMark) NetMarketValue(lots []model.Lot, unitNav, accNav decimal.Decimal) decimal.Decimal {
	shares := model.TotalShare(lots)
	if !shares.IsPositive() {
		return decimal.Zero
	}
	gross := fin.RoundAmount(unitNav.Mul(shares))
	return gross.Sub(p.Accrual(lots, accNav))
}

// SeriesPoint is one computed virtual-NAV observation.
type SeriesPoint struct {
	Date time.Time
	VNav decimal.Decimal
}

// Series computes v_nav for a fixed lot set on every date in dates,
// forward-filling the price series. Dates before the first observation are
// skipped rather than guessed.
func Series(p FeePolicy, lots []model.Lot, prices model.Series, dates []time.Time) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(dates))
	for _, d := range dates {
		point, ok := prices.At(d)
		if !ok {
			continue
		}
		acc := point.AccNav
		if acc.IsZero() {
			acc = point.UnitNav
		}
		v, ok := p.VirtualNav(lots, point.UnitNav, acc)
		if !ok {
			continue
		}
		out = append(out, SeriesPoint{Date: d, VNav: v})
	}
	return out
}

// CollapseLots implements the deduct-reward settlement: all lots of a fund
// merge into a single lot whose share count drops by the deducted parcel
// (plus any reinvested parcel) and whose water line resets to the
// deduction-date NAV.
func CollapseLots(lots []model.Lot, deducted, reinvested, nav decimal.Decimal, date time.Time, id string) []model.Lot {
	total := model.TotalShare(lots).Sub(deducted).Add(reinvested)
	if !total.IsPositive() {
		return nil
	}
	amount := decimal.Zero
	fundID := ""
	for _, l := range lots {
		amount = amount.Add(l.RemainingAmount)
		fundID = l.FundID
	}
	return []model.Lot{{
		ID:              id,
		FundID:          fundID,
		OpenDate:        date,
		OpenNav:         nav,
		OpenAmount:      amount,
		OpenShare:       total,
		WaterLine:       nav,
		RemainingShare:  total,
		RemainingAmount: amount,
	}}
}
