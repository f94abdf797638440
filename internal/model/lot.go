package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is a single share parcel carrying its own water line and cost basis.
// The same shape serves both sides of the book: FOF-held hedge-fund parcels
// and investor-held FOF parcels.
type Lot struct {
	// ID is the event that opened the lot. Synthetic lots (backtest, reward
	// collapse) carry generated IDs.
	ID string

	FundID     string
	InvestorID string

	OpenDate   time.Time
	OpenNav    decimal.Decimal
	OpenAmount decimal.Decimal
	OpenShare  decimal.Decimal

	// WaterLine is the high-water mark the incentive fee is measured against.
	WaterLine decimal.Decimal

	RemainingShare  decimal.Decimal
	RemainingAmount decimal.Decimal
}

// Open reports whether the lot still holds shares.
func (l Lot) Open() bool {
	return l.RemainingShare.IsPositive()
}

// TotalShare sums the remaining shares of a lot list.
func TotalShare(lots []Lot) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lots {
		total = total.Add(l.RemainingShare)
	}
	return total
}

// ConsumeFIFO subtracts share from the oldest open lots first, the way
// redemptions consume parcels. A partially consumed lot's remaining amount is
// scaled proportionally so the surviving cost basis stays per-share constant.
// It returns the surviving lots and the share it could not satisfy.
func ConsumeFIFO(lots []Lot, share decimal.Decimal) ([]Lot, decimal.Decimal) {
	remaining := make([]Lot, 0, len(lots))
	for _, l := range lots {
		if share.IsZero() || !l.Open() {
			if l.Open() {
				remaining = append(remaining, l)
			}
			continue
		}
		if l.RemainingShare.GreaterThan(share) {
			ratio := l.RemainingShare.Sub(share).Div(l.RemainingShare)
			l.RemainingAmount = l.RemainingAmount.Mul(ratio)
			l.RemainingShare = l.RemainingShare.Sub(share)
			share = decimal.Zero
			remaining = append(remaining, l)
		} else {
			share = share.Sub(l.RemainingShare)
		}
	}
	return remaining, share
}
