package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantclear/fofnav/internal/fin"
	"github.com/quantclear/fofnav/internal/model"
)

// FeeAccrual is one day's fee charge, split by fee type.
type FeeAccrual struct {
	Management     decimal.Decimal
	Custodian      decimal.Decimal
	Administrative decimal.Decimal
}

// Total sums the three legs.
func (f FeeAccrual) Total() decimal.Decimal {
	return f.Management.Add(f.Custodian).Add(f.Administrative)
}

// AccrueFees charges the per-year fee rates against the previous day's net
// assets, dividing by the calendar-day count of the year containing d.
// Each leg is rounded to cents independently; the cumulative balances are
// only reduced by the matching fee-transfer incidental events.
func (s *State) AccrueFees(d time.Time, prevNetAssets decimal.Decimal, p model.Product) FeeAccrual {
	if !prevNetAssets.IsPositive() {
		return FeeAccrual{}
	}
	days := decimal.NewFromInt(fin.FeeDays(d))
	acc := FeeAccrual{
		Management:     fin.RoundAmount(prevNetAssets.Mul(p.ManagementRate).Div(days)),
		Custodian:      fin.RoundAmount(prevNetAssets.Mul(p.CustodianRate).Div(days)),
		Administrative: fin.RoundAmount(prevNetAssets.Mul(p.AdministrativeRate).Div(days)),
	}
	s.CumManagement = s.CumManagement.Add(acc.Management)
	s.CumCustodian = s.CumCustodian.Add(acc.Custodian)
	s.CumAdministrative = s.CumAdministrative.Add(acc.Administrative)
	return acc
}

// AccrueDepositInterest accrues one day of interest on today's cash balance
// over the 360-day basis and returns the daily figure.
func (s *State) AccrueDepositInterest(d time.Time, p model.Product) decimal.Decimal {
	if p.DepositRate.IsZero() || !s.Cash.IsPositive() {
		return decimal.Zero
	}
	daily := fin.RoundAmount(s.Cash.Mul(p.DepositRate).Div(decimal.NewFromInt(fin.InterestDayBasis)))
	s.CumInterest = s.CumInterest.Add(daily)
	return daily
}

// RaisingInterest is the fixed raising-period interest included in net assets
// on every day up to and including the product's cutoff date.
func RaisingInterest(d time.Time, p model.Product) decimal.Decimal {
	if p.RaisingInterestUntil.IsZero() || fin.Day(d).After(p.RaisingInterestUntil) {
		return decimal.Zero
	}
	return p.RaisingInterestAmount
}
