package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quantclear/fofnav/internal/model"
)

// FundNavRepository provides data access methods for the fund_nav table:
// the underlying hedge, mutual, and monetary fund NAV series.
type FundNavRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewFundNavRepository creates a new FundNavRepository with the provided database connection.
func NewFundNavRepository(db *sql.DB) *FundNavRepository {
	return &FundNavRepository{db: db}
}

func (r *FundNavRepository) WithTx(tx *sql.Tx) *FundNavRepository {
	return &FundNavRepository{db: r.db, tx: tx}
}

func (r *FundNavRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// GetSeries retrieves NAV series for the given fund IDs within the date
// range, grouped per fund and sorted date ASC (the forward-fill order).
func (r *FundNavRepository) GetSeries(fundIDs []string, startDate, endDate time.Time) (map[string]model.Series, error) {
	if len(fundIDs) == 0 {
		return map[string]model.Series{}, nil
	}

	placeholders := make([]string, len(fundIDs))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	//#nosec G202 -- Safe: placeholders are generated programmatically, not from user input
	query := `
        SELECT fund_id, date, asset_type, unit_nav, acc_nav, v_nav, adj_nav, daily_profit
        FROM fund_nav
        WHERE fund_id IN (` + strings.Join(placeholders, ",") + `)
        AND date >= ?
        AND date <= ?
        ORDER BY fund_id ASC, date ASC
    `

	args := make([]any, 0, len(fundIDs)+2)
	for _, id := range fundIDs {
		args = append(args, id)
	}
	args = append(args, startDate.Format("2006-01-02"))
	args = append(args, endDate.Format("2006-01-02"))

	rows, err := r.getQuerier().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund_nav: %w", err)
	}
	defer rows.Close()

	series := map[string]model.Series{}
	for rows.Next() {
		var (
			fundID, dateStr, assetType          string
			unit, acc, vnav, adj, dailyProfit   string
			point                               model.PricePoint
		)
		err := rows.Scan(&fundID, &dateStr, &assetType, &unit, &acc, &vnav, &adj, &dailyProfit)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund_nav: %w", err)
		}

		if point.Date, err = ParseTime(dateStr); err != nil {
			return nil, err
		}
		if point.UnitNav, err = ParseDecimal(unit); err != nil {
			return nil, err
		}
		if point.AccNav, err = ParseDecimal(acc); err != nil {
			return nil, err
		}
		if point.VNav, err = ParseDecimal(vnav); err != nil {
			return nil, err
		}
		if point.AdjNav, err = ParseDecimal(adj); err != nil {
			return nil, err
		}
		if point.DailyProfit, err = ParseDecimal(dailyProfit); err != nil {
			return nil, err
		}

		s := series[fundID]
		s.FundID = fundID
		s.AssetType = model.AssetType(assetType)
		s.Points = append(s.Points, point)
		series[fundID] = s
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund_nav: %w", err)
	}
	return series, nil
}

// Upsert writes one observation, replacing any existing row for the same
// fund and date.
func (r *FundNavRepository) Upsert(fundID string, assetType model.AssetType, point model.PricePoint) error {
	query := `
        INSERT INTO fund_nav (id, fund_id, date, asset_type, unit_nav, acc_nav, v_nav, adj_nav, daily_profit)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (fund_id, date) DO UPDATE SET
            asset_type = excluded.asset_type,
            unit_nav = excluded.unit_nav,
            acc_nav = excluded.acc_nav,
            v_nav = excluded.v_nav,
            adj_nav = excluded.adj_nav,
            daily_profit = excluded.daily_profit
    `
	_, err := r.getQuerier().Exec(query,
		uuid.NewString(),
		fundID,
		point.Date.Format("2006-01-02"),
		string(assetType),
		point.UnitNav.String(),
		point.AccNav.String(),
		point.VNav.String(),
		point.AdjNav.String(),
		point.DailyProfit.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fund_nav: %w", err)
	}
	return nil
}
