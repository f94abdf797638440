package service

import (
	"sort"
	"time"

	"github.com/quantclear/fofnav/internal/backtest"
	"github.com/quantclear/fofnav/internal/repository"
)

// BacktestService loads the price history a backtest needs and runs the
// simulation. It never touches the FOF event log; backtests are pure
// what-if runs over the fund NAV archive.
type BacktestService struct {
	fundNavRepo *repository.FundNavRepository
}

// NewBacktestService creates a new BacktestService with the provided repository dependencies.
func NewBacktestService(fundNavRepo *repository.FundNavRepository) *BacktestService {
	return &BacktestService{fundNavRepo: fundNavRepo}
}

// Run loads the NAV series of the weighted funds plus benchmarks and
// simulates the portfolio over [spec.Start, spec.End].
func (s *BacktestService) Run(spec backtest.Spec) (*backtest.Result, error) {
	return s.RunWithCalendar(spec, nil)
}

// RunWithCalendar is Run with an explicit trading calendar instead of the
// union of observation dates.
func (s *BacktestService) RunWithCalendar(spec backtest.Spec, tradingDays []time.Time) (*backtest.Result, error) {
	fundIDs := make([]string, 0, len(spec.Weights)+len(spec.Benchmarks))
	for id := range spec.Weights {
		fundIDs = append(fundIDs, id)
	}
	fundIDs = append(fundIDs, spec.Benchmarks...)
	sort.Strings(fundIDs)

	// One year of lead-in so day one can forward-fill sparse series.
	prices, err := s.fundNavRepo.GetSeries(fundIDs, spec.Start.AddDate(-1, 0, 0), spec.End)
	if err != nil {
		return nil, err
	}
	return backtest.Run(spec, prices, tradingDays)
}
