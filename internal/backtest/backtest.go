// Package backtest simulates the FOF accounting logic over historical prices:
// a fixed weight vector, holdings valued at their virtual NAV against a
// synthetic water line, rebalanced whenever the quoted universe changes.
package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantclear/fofnav/internal/apperrors"
	"github.com/quantclear/fofnav/internal/fin"
	"github.com/quantclear/fofnav/internal/model"
	"github.com/quantclear/fofnav/internal/valuation"
)

// Initial portfolio scale: 10,000,000 cash against 10,000,000 synthetic
// units, so the synthetic NAV starts at exactly 1.
var initialCapital = decimal.New(10_000_000, 0)

// syntheticLotShare sizes the single lot used for per-fund virtual NAV.
var syntheticLotShare = decimal.New(10_000, 0)

// Spec is one backtest request.
type Spec struct {
	// Weights maps fund ID to target weight; weights must be non-negative
	// and sum to 1 within tolerance.
	Weights map[string]decimal.Decimal

	Start time.Time
	End   time.Time

	Benchmarks []string

	IncentiveRatio     decimal.Decimal
	IncentivePrecision int32
}

// PathPoint is one simulated day, in all three variants.
type PathPoint struct {
	Date time.Time `json:"date"`

	// Nav is the rebalanced, virtual-NAV series (the headline path).
	Nav decimal.Decimal `json:"nav"`

	// NavUnrebalanced holds the day-one shares throughout.
	NavUnrebalanced decimal.Decimal `json:"navUnrebalanced"`

	// NavRaw rebalances but values holdings at raw unit NAV.
	NavRaw decimal.Decimal `json:"navRaw"`
}

// Result is the simulated path plus summary statistics.
type Result struct {
	Summary    Summary            `json:"summary"`
	Path       []PathPoint        `json:"path"`
	Benchmarks map[string]Summary `json:"benchmarks,omitempty"`

	// Dropped lists funds excluded for having no observation in the window.
	Dropped []string `json:"dropped,omitempty"`
}

// Run simulates the weight vector over [start, end]. tradingDays may be nil,
// in which case the union of observation dates in the window is used.
func Run(spec Spec, prices map[string]model.Series, tradingDays []time.Time) (*Result, error) {
	if err := validateWeights(spec.Weights); err != nil {
		return nil, err
	}
	if spec.Start.After(spec.End) {
		return nil, fmt.Errorf("%w: %s after %s",
			apperrors.ErrInvalidDateRange,
			spec.Start.Format(fin.DateFormat), spec.End.Format(fin.DateFormat))
	}

	res := &Result{}

	// Drop funds with no observation inside the window; renormalize later
	// against the quoted set per day.
	funds := make([]string, 0, len(spec.Weights))
	for id := range spec.Weights {
		series, ok := prices[id]
		if !ok || !hasObservation(series, spec.Start, spec.End) {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		funds = append(funds, id)
	}
	sort.Strings(funds)
	sort.Strings(res.Dropped)
	if len(funds) == 0 {
		return nil, fmt.Errorf("%w: no fund has observations in window", apperrors.ErrNoPriceHistory)
	}

	days := tradingDays
	if len(days) == 0 {
		days = observationDays(prices, funds, spec.Start, spec.End)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: empty trading calendar", apperrors.ErrNoPriceHistory)
	}

	policy := valuation.NewAssetHighWaterMark(spec.IncentiveRatio, spec.IncentivePrecision)
	vnav := virtualQuotes(policy, prices, funds, days)
	raw := rawQuotes(prices, funds, days)

	rebalanced := newPortfolio(spec.Weights, true)
	unrebalanced := newPortfolio(spec.Weights, false)
	rawPort := newPortfolio(spec.Weights, true)

	for _, d := range days {
		p := PathPoint{Date: d}
		p.Nav = rebalanced.step(d, vnav)
		p.NavUnrebalanced = unrebalanced.step(d, vnav)
		p.NavRaw = rawPort.step(d, raw)
		res.Path = append(res.Path, p)
	}

	res.Summary = Summarize(spec.Start, res.Path, func(p PathPoint) decimal.Decimal { return p.Nav })

	if len(spec.Benchmarks) > 0 {
		res.Benchmarks = map[string]Summary{}
		for _, id := range spec.Benchmarks {
			series, ok := prices[id]
			if !ok {
				continue
			}
			res.Benchmarks[id] = summarizeSeries(spec.Start, series, days)
		}
	}
	return res, nil
}

// quoteFn resolves a fund's usable quote for a date.
type quoteFn func(fundID string, d time.Time) (decimal.Decimal, bool)

// virtualQuotes builds the per-fund virtual-NAV lookup: a single synthetic
// lot per fund whose water line is the accumulated NAV on the first
// in-window observation.
func virtualQuotes(policy valuation.AssetHighWaterMark, prices map[string]model.Series, funds []string, days []time.Time) quoteFn {
	lots := map[string][]model.Lot{}
	for _, id := range funds {
		series := prices[id]
		point, ok := series.At(days[0])
		if !ok {
			// First quote appears mid-window; anchor the water line there.
			if first, fok := series.First(); fok {
				point = first
			}
		}
		water := point.AccNav
		if water.IsZero() {
			water = point.UnitNav
		}
		lots[id] = []model.Lot{{
			ID:              "synthetic-" + id,
			FundID:          id,
			OpenDate:        days[0],
			OpenNav:         point.UnitNav,
			OpenShare:       syntheticLotShare,
			WaterLine:       water,
			RemainingShare:  syntheticLotShare,
			RemainingAmount: point.UnitNav.Mul(syntheticLotShare),
		}}
	}
	return func(fundID string, d time.Time) (decimal.Decimal, bool) {
		point, ok := prices[fundID].At(d)
		if !ok {
			return decimal.Decimal{}, false
		}
		acc := point.AccNav
		if acc.IsZero() {
			acc = point.UnitNav
		}
		return policy.VirtualNav(lots[fundID], point.UnitNav, acc)
	}
}

func rawQuotes(prices map[string]model.Series, funds []string, _ []time.Time) quoteFn {
	set := map[string]struct{}{}
	for _, id := range funds {
		set[id] = struct{}{}
	}
	return func(fundID string, d time.Time) (decimal.Decimal, bool) {
		if _, ok := set[fundID]; !ok {
			return decimal.Decimal{}, false
		}
		point, ok := prices[fundID].At(d)
		if !ok || !point.UnitNav.IsPositive() {
			return decimal.Decimal{}, false
		}
		return point.UnitNav, true
	}
}

// portfolio is the simulated book of one variant.
type portfolio struct {
	weights   map[string]decimal.Decimal
	rebalance bool

	shares map[string]decimal.Decimal
	quoted []string
	opened bool
}

func newPortfolio(weights map[string]decimal.Decimal, rebalance bool) *portfolio {
	return &portfolio{weights: weights, rebalance: rebalance, shares: map[string]decimal.Decimal{}}
}

// step advances one trading day and returns the synthetic NAV. The book
// rebalances to target weights whenever the set of quoted funds changes from
// the previous rebalance day (always on day one); otherwise shares are held.
func (p *portfolio) step(d time.Time, quote quoteFn) decimal.Decimal {
	quoted := make([]string, 0, len(p.weights))
	for id := range p.weights {
		if _, ok := quote(id, d); ok {
			quoted = append(quoted, id)
		}
	}
	sort.Strings(quoted)

	needRebalance := !p.opened || (p.rebalance && !equalSets(quoted, p.quoted))
	if needRebalance && len(quoted) > 0 {
		mv := p.marketValue(d, quote)
		if !p.opened {
			mv = initialCapital
			p.opened = true
		}
		total := decimal.Zero
		for _, id := range quoted {
			total = total.Add(p.weights[id])
		}
		p.shares = map[string]decimal.Decimal{}
		if total.IsPositive() {
			for _, id := range quoted {
				price, _ := quote(id, d)
				target := mv.Mul(p.weights[id]).Div(total)
				p.shares[id] = target.Div(price)
			}
		}
		p.quoted = quoted
	}
	return fin.RoundNav(p.marketValue(d, quote).Div(initialCapital), fin.NavPlaces)
}

func (p *portfolio) marketValue(d time.Time, quote quoteFn) decimal.Decimal {
	if !p.opened {
		return initialCapital
	}
	mv := decimal.Zero
	for id, share := range p.shares {
		if price, ok := quote(id, d); ok {
			mv = mv.Add(share.Mul(price))
		}
	}
	return mv
}

func validateWeights(weights map[string]decimal.Decimal) error {
	if len(weights) == 0 {
		return apperrors.ErrInvalidWeights
	}
	total := decimal.Zero
	for id, w := range weights {
		if w.IsNegative() {
			return fmt.Errorf("%w: %s is negative", apperrors.ErrInvalidWeights, id)
		}
		total = total.Add(w)
	}
	if total.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(decimal.NewFromFloat(0.001)) {
		return fmt.Errorf("%w: sum %s", apperrors.ErrInvalidWeights, total.String())
	}
	return nil
}

func hasObservation(s model.Series, start, end time.Time) bool {
	for _, p := range s.Points {
		if !p.Date.Before(start) && !p.Date.After(end) {
			return true
		}
	}
	return false
}

// observationDays is the sorted union of observation dates across the funds
// inside the window.
func observationDays(prices map[string]model.Series, funds []string, start, end time.Time) []time.Time {
	set := map[string]time.Time{}
	for _, id := range funds {
		for _, p := range prices[id].Points {
			if p.Date.Before(start) || p.Date.After(end) {
				continue
			}
			d := fin.Day(p.Date)
			set[d.Format(fin.DateFormat)] = d
		}
	}
	days := make([]time.Time, 0, len(set))
	for _, d := range set {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func summarizeSeries(start time.Time, series model.Series, days []time.Time) Summary {
	path := make([]PathPoint, 0, len(days))
	for _, d := range days {
		if point, ok := series.At(d); ok && point.UnitNav.IsPositive() {
			path = append(path, PathPoint{Date: d, Nav: point.UnitNav})
		}
	}
	return Summarize(start, path, func(p PathPoint) decimal.Decimal { return p.Nav })
}
