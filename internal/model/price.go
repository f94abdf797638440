package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one observation of an underlying fund's NAV series.
// AccNav minus UnitNav is the cumulative per-share dividend ever paid.
type PricePoint struct {
	Date    time.Time
	UnitNav decimal.Decimal
	AccNav  decimal.Decimal

	// VNav is the externally supplied post-incentive-fee NAV, when the
	// trustee publishes one. Optional.
	VNav decimal.Decimal

	// AdjNav is the dividend-reinvested series. Optional.
	AdjNav decimal.Decimal

	// DailyProfit is the per-10,000-unit daily profit of monetary funds.
	DailyProfit decimal.Decimal
}

// Series is the ordered NAV history of a single fund, oldest first.
type Series struct {
	FundID    string
	AssetType AssetType
	Points    []PricePoint
}

// At returns the most recent observation on or before d (forward fill).
// ok is false when the fund has no observation that early; callers must then
// exclude the fund from that day's valuation.
func (s Series) At(d time.Time) (PricePoint, bool) {
	var last PricePoint
	found := false
	for _, p := range s.Points {
		if p.Date.After(d) {
			break
		}
		last = p
		found = true
	}
	return last, found
}

// On returns the exact observation for d, if one exists.
func (s Series) On(d time.Time) (PricePoint, bool) {
	for _, p := range s.Points {
		if p.Date.Equal(d) {
			return p, true
		}
		if p.Date.After(d) {
			break
		}
	}
	return PricePoint{}, false
}

// First returns the oldest observation.
func (s Series) First() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[0], true
}

// Last returns the newest observation.
func (s Series) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}
