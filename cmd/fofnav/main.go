// Command fofnav drives the accounting engine from the command line:
// "calc-nav" replays one product's event log and commits its NAV series,
// "backtest" simulates a weight vector over the fund NAV archive.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/quantclear/fofnav/internal/apperrors"
	"github.com/quantclear/fofnav/internal/backtest"
	"github.com/quantclear/fofnav/internal/config"
	"github.com/quantclear/fofnav/internal/database"
	"github.com/quantclear/fofnav/internal/fin"
	"github.com/quantclear/fofnav/internal/repository"
	"github.com/quantclear/fofnav/internal/service"
)

// Exit codes: 0 success, 2 inconsistent input data, 3 unrecoverable error
// (lock held, missing product, I/O).
const (
	exitOK           = 0
	exitUsage        = 1
	exitInconsistent = 2
	exitFailed       = 3
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUsage)
	}

	log := logrus.New()

	switch os.Args[1] {
	case "calc-nav":
		os.Exit(runCalcNav(os.Args[2:], log))
	case "backtest":
		os.Exit(runBacktest(os.Args[2:], log))
	default:
		usage()
		os.Exit(exitUsage)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  fofnav calc-nav --fof <id> [--through <date>] [--dry-run]
  fofnav backtest --funds <id:weight,...> --start <date> --end <date> [--benchmark <id,...>] [--csv <path>]`)
}

func runCalcNav(args []string, log *logrus.Logger) int {
	fs := flag.NewFlagSet("calc-nav", flag.ExitOnError)
	fofID := fs.String("fof", "", "FOF product ID")
	throughStr := fs.String("through", "", "last day to compute, inclusive (default yesterday)")
	dryRun := fs.Bool("dry-run", false, "compute without persisting")
	_ = fs.Parse(args)

	if *fofID == "" {
		fmt.Fprintln(os.Stderr, "calc-nav: --fof is required")
		return exitUsage
	}

	through := fin.Day(time.Now().UTC()).AddDate(0, 0, -1)
	if *throughStr != "" {
		parsed, err := time.Parse(fin.DateFormat, *throughStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "calc-nav: invalid --through date %q\n", *throughStr)
			return exitUsage
		}
		through = parsed.UTC()
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		return exitFailed
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Error("failed to open database")
		return exitFailed
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Error("failed to run migrations")
		return exitFailed
	}

	navService := service.NewNavService(
		db,
		repository.NewProductRepository(db),
		repository.NewEventRepository(db),
		repository.NewFundNavRepository(db),
		repository.NewNavRepository(db),
		repository.NewInvestorRepository(db),
		repository.NewAuditRepository(db),
		repository.NewCorrectionRepository(db),
		log,
	)

	result, err := navService.Recalculate(context.Background(), *fofID, through, *dryRun)
	if err != nil {
		log.WithError(err).Error("nav run failed")
		if isInconsistentData(err) {
			return exitInconsistent
		}
		return exitFailed
	}

	fmt.Printf("fof=%s\n", *fofID)
	fmt.Printf("through=%s\n", through.Format(fin.DateFormat))
	fmt.Printf("days=%d\n", len(result.Nav))
	fmt.Printf("warnings=%d\n", len(result.Warnings))
	if len(result.Nav) > 0 {
		last := result.Nav[len(result.Nav)-1]
		fmt.Printf("nav=%s\n", last.Nav.String())
		fmt.Printf("volume=%s\n", last.Volume.String())
	}
	return exitOK
}

// isInconsistentData reports whether the failure came from the event log
// itself rather than the environment.
func isInconsistentData(err error) bool {
	for _, sentinel := range []error{
		apperrors.ErrDuplicateEventID,
		apperrors.ErrNonMonotoneEvents,
		apperrors.ErrConfirmedBeforeApplied,
		apperrors.ErrInsufficientCash,
		apperrors.ErrInsufficientShares,
		apperrors.ErrNegativeAmount,
		apperrors.ErrUnknownEventType,
		apperrors.ErrUnsupportedIncentiveMode,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func runBacktest(args []string, log *logrus.Logger) int {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	fundsStr := fs.String("funds", "", "comma-separated id:weight pairs")
	startStr := fs.String("start", "", "window start date")
	endStr := fs.String("end", "", "window end date")
	benchmarkStr := fs.String("benchmark", "", "comma-separated benchmark fund IDs")
	csvPath := fs.String("csv", "", "write the simulated path to this CSV file")
	ratioStr := fs.String("ratio", "0.2", "incentive fee ratio")
	precision := fs.Int("precision", 4, "virtual NAV rounding precision")
	_ = fs.Parse(args)

	weights, err := parseWeights(*fundsStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		return exitUsage
	}
	start, err := time.Parse(fin.DateFormat, *startStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: invalid --start date %q\n", *startStr)
		return exitUsage
	}
	end, err := time.Parse(fin.DateFormat, *endStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: invalid --end date %q\n", *endStr)
		return exitUsage
	}
	ratio, err := decimal.NewFromString(*ratioStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: invalid --ratio %q\n", *ratioStr)
		return exitUsage
	}

	var benchmarks []string
	if *benchmarkStr != "" {
		benchmarks = strings.Split(*benchmarkStr, ",")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		return exitFailed
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Error("failed to open database")
		return exitFailed
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Error("failed to run migrations")
		return exitFailed
	}

	backtestService := service.NewBacktestService(repository.NewFundNavRepository(db))
	result, err := backtestService.Run(backtest.Spec{
		Weights:            weights,
		Start:              start.UTC(),
		End:                end.UTC(),
		Benchmarks:         benchmarks,
		IncentiveRatio:     ratio,
		IncentivePrecision: int32(*precision),
	})
	if err != nil {
		log.WithError(err).Error("backtest failed")
		if errors.Is(err, apperrors.ErrInvalidWeights) || errors.Is(err, apperrors.ErrInvalidDateRange) {
			return exitInconsistent
		}
		return exitFailed
	}

	printSummary("", result.Summary)
	if len(result.Dropped) > 0 {
		fmt.Printf("dropped=%s\n", strings.Join(result.Dropped, ","))
	}
	benchmarkIDs := make([]string, 0, len(result.Benchmarks))
	for id := range result.Benchmarks {
		benchmarkIDs = append(benchmarkIDs, id)
	}
	sort.Strings(benchmarkIDs)
	for _, id := range benchmarkIDs {
		printSummary("benchmark."+id+".", result.Benchmarks[id])
	}

	if *csvPath != "" {
		if err := writePathCSV(*csvPath, result.Path); err != nil {
			log.WithError(err).Error("failed to write csv")
			return exitFailed
		}
	}
	return exitOK
}

func printSummary(prefix string, s backtest.Summary) {
	fmt.Printf("%sdays=%d\n", prefix, s.Days)
	fmt.Printf("%stotal_return=%s\n", prefix, formatFloat(s.TotalReturn))
	fmt.Printf("%sannualized_return=%s\n", prefix, formatFloat(s.AnnualizedReturn))
	fmt.Printf("%sannualized_vol=%s\n", prefix, formatFloat(s.AnnualizedVol))
	fmt.Printf("%ssharpe=%s\n", prefix, formatFloat(s.Sharpe))
	fmt.Printf("%smax_drawdown=%s\n", prefix, formatFloat(s.MaxDrawdown))
	fmt.Printf("%sweekly_win_rate=%s\n", prefix, formatFloat(s.WeeklyWinRate))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// parseWeights parses "id:weight,id:weight" pairs.
func parseWeights(s string) (map[string]decimal.Decimal, error) {
	if s == "" {
		return nil, fmt.Errorf("--funds is required")
	}
	weights := map[string]decimal.Decimal{}
	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("malformed fund weight %q, want id:weight", pair)
		}
		w, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("malformed weight in %q: %w", pair, err)
		}
		weights[parts[0]] = w
	}
	return weights, nil
}

func writePathCSV(path string, points []backtest.PathPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "nav", "nav_unrebalanced", "nav_raw"}); err != nil {
		return err
	}
	for _, p := range points {
		record := []string{
			p.Date.Format(fin.DateFormat),
			p.Nav.String(),
			p.NavUnrebalanced.String(),
			p.NavRaw.String(),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
