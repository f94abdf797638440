package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// tradingDaysPerYear is the annualization convention for returns and vol.
const tradingDaysPerYear = 252.0

// Summary is the statistics block printed for a simulated NAV path.
// Unlike the accounting series, analytics are plain float64: they feed
// comparisons, not trustee reconciliation.
type Summary struct {
	StartDate        time.Time `json:"startDate"`
	Days             int       `json:"days"`
	TotalReturn      float64   `json:"totalReturn"`
	AnnualizedReturn float64   `json:"annualizedReturn"`
	AnnualizedVol    float64   `json:"annualizedVol"`
	WeeklyWinRate    float64   `json:"weeklyWinRate"`
	MaxDrawdown      float64   `json:"maxDrawdown"`
	Sharpe           float64   `json:"sharpe"`
}

// Summarize computes the summary statistics of one NAV path.
func Summarize(start time.Time, path []PathPoint, nav func(PathPoint) decimal.Decimal) Summary {
	s := Summary{StartDate: start, Days: len(path)}
	if len(path) < 2 {
		return s
	}

	navs := make([]float64, len(path))
	for i, p := range path {
		navs[i] = nav(p).InexactFloat64()
	}
	first, last := navs[0], navs[len(navs)-1]
	if first <= 0 {
		return s
	}

	s.TotalReturn = last/first - 1
	years := float64(len(path)) / tradingDaysPerYear
	if years > 0 && last > 0 {
		s.AnnualizedReturn = math.Pow(last/first, 1/years) - 1
	}

	daily := make([]float64, 0, len(navs)-1)
	for i := 1; i < len(navs); i++ {
		if navs[i-1] > 0 {
			daily = append(daily, navs[i]/navs[i-1]-1)
		}
	}
	s.AnnualizedVol = stddev(daily) * math.Sqrt(tradingDaysPerYear)
	if s.AnnualizedVol > 0 {
		s.Sharpe = s.AnnualizedReturn / s.AnnualizedVol
	}
	s.MaxDrawdown = maxDrawdown(navs)
	s.WeeklyWinRate = weeklyWinRate(path, navs)
	return s
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(xs) - 1)
	return math.Sqrt(variance)
}

// maxDrawdown is the largest peak-to-trough decline, reported as a
// non-negative fraction.
func maxDrawdown(navs []float64) float64 {
	peak := navs[0]
	mdd := 0.0
	for _, v := range navs {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := 1 - v/peak; dd > mdd {
				mdd = dd
			}
		}
	}
	return mdd
}

// weeklyWinRate groups the path into ISO weeks and reports the share of
// weeks with a positive return.
func weeklyWinRate(path []PathPoint, navs []float64) float64 {
	type week struct{ first, last float64 }
	weeks := map[string]*week{}
	order := []string{}
	for i, p := range path {
		y, w := p.Date.ISOWeek()
		key := fmt.Sprintf("%04d-%02d", y, w)
		if _, ok := weeks[key]; !ok {
			weeks[key] = &week{first: navs[i], last: navs[i]}
			order = append(order, key)
		} else {
			weeks[key].last = navs[i]
		}
	}
	if len(order) == 0 {
		return 0
	}
	wins := 0
	for _, key := range order {
		if w := weeks[key]; w.first > 0 && w.last/w.first > 1 {
			wins++
		}
	}
	return float64(wins) / float64(len(order))
}
