// Package engine runs the daily FOF accounting loop: it advances the
// calendar one day at a time, applies the day's events to the holdings
// ledger, accrues fees and interest, values every holding (hedge funds at
// their virtual NAV), and commits one NAV row per day. The loop is a pure
// function of its snapshot; all I/O happens before and after it.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/quantclear/fofnav/internal/apperrors"
	"github.com/quantclear/fofnav/internal/fin"
	"github.com/quantclear/fofnav/internal/ledger"
	"github.com/quantclear/fofnav/internal/model"
	"github.com/quantclear/fofnav/internal/valuation"
)

// Snapshot is the fully loaded, immutable input of one run.
type Snapshot struct {
	Product model.Product

	// Events sorted by (applied date ASC, id ASC).
	Events []model.Event

	// Prices maps fund ID to its NAV series.
	Prices map[string]model.Series

	// Corrections is the manual error-correction series, date ASC.
	Corrections []model.Correction

	// Through is the last day to compute, inclusive (typically yesterday).
	Through time.Time
}

// Warning records a recoverable condition resolved within a daily step.
type Warning struct {
	Date    time.Time `json:"date"`
	FundID  string    `json:"fundId,omitempty"`
	Message string    `json:"message"`
}

// Result carries every output series of a run.
type Result struct {
	Nav             []model.NavRow
	Positions       []model.PositionRow
	PositionDetails []model.PositionDetailRow
	Investors       []model.InvestorPosition

	Fees       []model.FeeAccrualRow
	Interest   []model.InterestAccrualRow
	InTransit  []model.CashInTransitRow
	Statements []model.AccountStatementRow

	// DriftCorrections are the recorded precision drifts; they are audit
	// output and are not folded back into net assets.
	DriftCorrections []model.Correction

	Warnings []Warning
}

type priceBook map[string]model.Series

func (b priceBook) At(fundID string, d time.Time) (model.PricePoint, bool) {
	s, ok := b[fundID]
	if !ok {
		return model.PricePoint{}, false
	}
	return s.At(d)
}

// Run executes the daily loop over the snapshot. Inconsistent events abort
// the run: the returned result holds every complete day before the failure
// and no row for the offending date or later. Cancellation is honored at day
// boundaries only, leaving state at the previous day's close.
func Run(ctx context.Context, snap Snapshot, log logrus.FieldLogger) (*Result, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := validate(snap); err != nil {
		return nil, err
	}

	policy := valuation.NewAssetHighWaterMark(
		snap.Product.IncentiveRatioOrDefault(),
		snap.Product.IncentivePrecisionOrDefault(),
	)
	book := priceBook(snap.Prices)
	state := ledger.New(snap.Product.ID)
	res := &Result{}

	byDay := indexEventsByDay(snap.Events)
	start := runStart(snap)
	if start.IsZero() || snap.Through.Before(start) {
		return res, nil
	}
	emitFrom := snap.Product.EffectiveStart()

	var (
		prevNet  decimal.Decimal
		firstNav decimal.Decimal
		lastVNav = map[string]decimal.Decimal{}
	)

	for d := start; !d.After(fin.Day(snap.Through)); d = fin.NextDay(d) {
		select {
		case <-ctx.Done():
			return res, fmt.Errorf("%w at %s: %v", apperrors.ErrRunCancelled, d.Format(fin.DateFormat), ctx.Err())
		default:
		}

		if err := state.ApplyDay(d, byDay[dayKey(d)], book); err != nil {
			return res, fmt.Errorf("apply %s: %w", d.Format(fin.DateFormat), err)
		}

		var fees ledger.FeeAccrual
		if d.After(snap.Product.InceptionDate) {
			fees = state.AccrueFees(d, prevNet, snap.Product)
		}
		var dailyInterest decimal.Decimal
		if !d.Before(snap.Product.InceptionDate) {
			dailyInterest = state.AccrueDepositInterest(d, snap.Product)
		}

		mv, entries := valueHoldings(d, state, book, policy, snap.Product.TrustComputedVNav, lastVNav, res, log)

		netAssets := mv.
			Add(state.Cash).
			Add(state.CashInTransit).
			Add(state.DepositInTransit).
			Add(state.CumInterest).
			Add(ledger.RaisingInterest(d, snap.Product)).
			Sub(state.AccruedFees()).
			Sub(state.OtherDebt)
		netFixed := netAssets.Add(correctionsThrough(snap.Corrections, d))
		prevNet = netAssets

		if d.Before(emitFrom) {
			continue
		}

		nav := state.LastNav
		if state.Volume.IsPositive() {
			nav = fin.RoundNav(netFixed.Div(state.Volume), fin.NavPlaces)
			state.LastNav = nav

			drift := netFixed.Sub(nav.Mul(state.Volume))
			if drift.Abs().GreaterThan(driftTolerance(snap.Product, state.Volume)) {
				res.DriftCorrections = append(res.DriftCorrections, model.Correction{
					FofID:  snap.Product.ID,
					Date:   d,
					Amount: drift,
					Reason: "precision drift",
				})
				log.WithFields(logrus.Fields{
					"fof":   snap.Product.ID,
					"date":  d.Format(fin.DateFormat),
					"drift": drift.String(),
				}).Warn("nav precision drift recorded")
			}
		}
		if firstNav.IsZero() && !nav.IsZero() {
			firstNav = nav
		}
		ret := decimal.Zero
		if firstNav.IsPositive() {
			ret = fin.RoundNav(nav.Div(firstNav).Sub(decimal.NewFromInt(1)), fin.NavPlaces)
		}

		res.Nav = append(res.Nav, model.NavRow{
			FofID:  snap.Product.ID,
			Date:   d,
			Nav:    nav,
			AccNav: nav,
			AdjNav: nav,
			Volume: state.Volume,
			MV:     netFixed,
			Ret:    ret,
		})
		res.Positions = append(res.Positions, model.PositionRow{
			FofID:    snap.Product.ID,
			Date:     d,
			Holdings: entries,
		})
		res.Fees = append(res.Fees, model.FeeAccrualRow{
			FofID:             snap.Product.ID,
			Date:              d,
			Management:        fees.Management,
			Custodian:         fees.Custodian,
			Administrative:    fees.Administrative,
			CumManagement:     state.CumManagement,
			CumCustodian:      state.CumCustodian,
			CumAdministrative: state.CumAdministrative,
		})
		res.Interest = append(res.Interest, model.InterestAccrualRow{
			FofID:       snap.Product.ID,
			Date:        d,
			Cash:        state.Cash,
			Daily:       dailyInterest,
			CumInterest: state.CumInterest,
		})
		res.InTransit = append(res.InTransit, model.CashInTransitRow{
			FofID:            snap.Product.ID,
			Date:             d,
			CashInTransit:    state.CashInTransit,
			DepositInTransit: state.DepositInTransit,
			OtherDebt:        state.OtherDebt,
		})
		res.Statements = append(res.Statements, model.AccountStatementRow{
			FofID:          snap.Product.ID,
			Date:           d,
			Cash:           state.Cash,
			NetAssets:      netAssets,
			NetAssetsFixed: netFixed,
			AccruedFees:    state.AccruedFees(),
			AccruedInt:     state.CumInterest,
		})
	}

	res.PositionDetails = positionDetails(snap, state, policy, lastVNav)
	res.Investors = investorPositions(snap.Product, state, policy)
	return res, nil
}

// valueHoldings prices every holding for the day and returns the total
// market value plus the position snapshot. Hedge funds are valued at their
// post-incentive-fee net market value; funds whose series cannot be
// forward-filled are excluded for the day with a warning, unless the product
// trusts the engine's own virtual NAV as a backfill.
func valueHoldings(
	d time.Time,
	state *ledger.State,
	book priceBook,
	policy valuation.AssetHighWaterMark,
	trustComputed bool,
	lastVNav map[string]decimal.Decimal,
	res *Result,
	log logrus.FieldLogger,
) (decimal.Decimal, []model.PositionEntry) {
	total := decimal.Zero
	entries := make([]model.PositionEntry, 0, len(state.Shares))

	for _, fundID := range sortedFunds(state.Shares) {
		share := state.Shares[fundID]
		assetType := state.AssetTypes[fundID]
		entry := model.PositionEntry{FundID: fundID, AssetType: assetType, Share: share}
		if !share.IsPositive() {
			entries = append(entries, entry)
			continue
		}

		point, ok := book.At(fundID, d)
		switch {
		case ok && assetType == model.AssetHedge && len(state.Lots[fundID]) > 0:
			acc := point.AccNav
			if acc.IsZero() {
				acc = point.UnitNav
			}
			total = total.Add(policy.NetMarketValue(state.Lots[fundID], point.UnitNav, acc))
			if v, vok := policy.VirtualNav(state.Lots[fundID], point.UnitNav, acc); vok {
				entry.Nav = v
				lastVNav[fundID] = v
			}
		case ok:
			nav := point.UnitNav
			if assetType == model.AssetMonetary && !nav.IsPositive() {
				nav = decimal.NewFromInt(1)
			}
			entry.Nav = nav
			total = total.Add(fin.RoundAmount(share.Mul(nav)))
			lastVNav[fundID] = nav
		case trustComputed && lastVNav[fundID].IsPositive():
			entry.Nav = lastVNav[fundID]
			total = total.Add(fin.RoundAmount(share.Mul(lastVNav[fundID])))
			res.Warnings = append(res.Warnings, Warning{
				Date: d, FundID: fundID,
				Message: "missing nav backfilled with computed virtual nav",
			})
		default:
			res.Warnings = append(res.Warnings, Warning{
				Date: d, FundID: fundID,
				Message: "no nav observation; fund excluded from day's market value",
			})
			log.WithFields(logrus.Fields{
				"fund": fundID,
				"date": d.Format(fin.DateFormat),
			}).Warn("missing nav observation")
		}
		entries = append(entries, entry)
	}
	return total, entries
}

// validate enforces the log-level invariants before any state is built:
// unique event IDs, applied-date order, and confirmation never preceding
// application.
func validate(snap Snapshot) error {
	if snap.Product.IncentiveMode != "" && snap.Product.IncentiveMode != model.IncentiveAssetHighWaterMark {
		return fmt.Errorf("%w: %s", apperrors.ErrUnsupportedIncentiveMode, snap.Product.IncentiveMode)
	}
	seen := make(map[string]struct{}, len(snap.Events))
	var prev time.Time
	for _, e := range snap.Events {
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: %s", apperrors.ErrDuplicateEventID, e.ID)
		}
		seen[e.ID] = struct{}{}
		if e.AppliedDate.Before(prev) {
			return fmt.Errorf("%w: event %s", apperrors.ErrNonMonotoneEvents, e.ID)
		}
		prev = e.AppliedDate
		if !e.ConfirmedDate.IsZero() && e.ConfirmedDate.Before(fin.Day(e.AppliedDate)) {
			return fmt.Errorf("%w: event %s", apperrors.ErrConfirmedBeforeApplied, e.ID)
		}
		if e.Amount.IsNegative() || e.Share.IsNegative() {
			return fmt.Errorf("%w: event %s", apperrors.ErrNegativeAmount, e.ID)
		}
	}
	return nil
}

// runStart is the first day the fold has to see: the earliest event effect
// or the emit start, whichever comes first.
func runStart(snap Snapshot) time.Time {
	start := snap.Product.EffectiveStart()
	for _, e := range snap.Events {
		for _, t := range []time.Time{e.AppliedDate, e.ConfirmedDate, e.DepositedDate} {
			if !t.IsZero() {
				start = fin.MinDay(start, t)
			}
		}
	}
	return fin.Day(start)
}

func dayKey(d time.Time) string {
	return d.Format(fin.DateFormat)
}

// indexEventsByDay lists each event under every day one of its effects lands
// on, preserving log order within a day.
func indexEventsByDay(events []model.Event) map[string][]model.Event {
	idx := map[string][]model.Event{}
	for _, e := range events {
		days := map[string]struct{}{}
		for _, t := range []time.Time{e.AppliedDate, e.ConfirmedDate, e.DepositedDate} {
			if !t.IsZero() {
				days[dayKey(fin.Day(t))] = struct{}{}
			}
		}
		for k := range days {
			idx[k] = append(idx[k], e)
		}
	}
	return idx
}

func correctionsThrough(corrections []model.Correction, d time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, c := range corrections {
		if c.Date.After(d) {
			break
		}
		total = total.Add(c.Amount)
	}
	return total
}

func driftTolerance(p model.Product, volume decimal.Decimal) decimal.Decimal {
	if p.DriftTolerance.IsPositive() {
		return p.DriftTolerance
	}
	// Default: one cent per outstanding unit.
	return fin.RoundAmount(volume.Mul(decimal.NewFromFloat(0.01)))
}

func sortedFunds(shares map[string]decimal.Decimal) []string {
	funds := make([]string, 0, len(shares))
	for id := range shares {
		funds = append(funds, id)
	}
	sort.Strings(funds)
	return funds
}
