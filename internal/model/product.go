package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Incentive-fee modes. Only the asset high-water-mark mode is implemented;
// the single-lot custom modes exist in trustee data and are enumerated so the
// engine can refuse them explicitly instead of mispricing.
const (
	IncentiveAssetHighWaterMark = "asset_hwm"
	IncentiveSingleCustom       = "single_custom_hwm"
)

// Product is the static configuration of one FOF. A run is a pure function of
// (Product, event log, price series); nothing here changes during a run except
// the IsCalculating flag, which is the process-wide re-entrancy lock bit.
type Product struct {
	ID            string
	Name          string
	InceptionDate time.Time

	// Per-year fee rates, e.g. 0.015 for 1.5%.
	ManagementRate     decimal.Decimal
	CustodianRate      decimal.Decimal
	AdministrativeRate decimal.Decimal

	// DepositRate is the per-year interest rate on idle cash (360-day basis).
	DepositRate decimal.Decimal

	// SubscribeFeeRate is charged on investor subscriptions outside the NAV.
	SubscribeFeeRate decimal.Decimal

	IncentiveMode      string
	IncentiveRatio     decimal.Decimal
	IncentivePrecision int32

	// RaisingInterestAmount is the fixed interest accrued on investor cash
	// during the raising window, included in net assets on every day up to
	// and including RaisingInterestUntil.
	RaisingInterestAmount decimal.Decimal
	RaisingInterestUntil  time.Time

	// TrustComputedVNav selects the fallback direction when an external hedge
	// NAV is missing: false trusts the external series (skip the date after
	// forward-fill fails), true backfills with the engine's own virtual NAV.
	TrustComputedVNav bool

	// DriftTolerance bounds |nav*volume - net_assets_fixed| before the drift
	// is recorded in the correction series. Zero means one cent per unit.
	DriftTolerance decimal.Decimal

	IsCalculating bool
}

// IncentiveRatioOrDefault returns the configured incentive ratio, or 0.2 when unset.
func (p Product) IncentiveRatioOrDefault() decimal.Decimal {
	if p.IncentiveRatio.IsZero() {
		return decimal.NewFromFloat(0.2)
	}
	return p.IncentiveRatio
}

// IncentivePrecisionOrDefault returns the configured virtual-NAV precision, or 4 when unset.
func (p Product) IncentivePrecisionOrDefault() int32 {
	if p.IncentivePrecision == 0 {
		return 4
	}
	return p.IncentivePrecision
}

// EffectiveStart is the first day the engine emits rows for: the inception
// date, pulled earlier when raising-period interest was booked before it.
func (p Product) EffectiveStart() time.Time {
	if !p.RaisingInterestUntil.IsZero() && p.RaisingInterestUntil.Before(p.InceptionDate) {
		return p.RaisingInterestUntil
	}
	return p.InceptionDate
}
