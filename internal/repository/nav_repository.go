package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantclear/fofnav/internal/apperrors"
	"github.com/quantclear/fofnav/internal/model"
)

// NavRepository provides data access methods for the produced FOF series:
// fof_nav, fof_position, and fof_position_detail.
type NavRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewNavRepository creates a new NavRepository with the provided database connection.
func NewNavRepository(db *sql.DB) *NavRepository {
	return &NavRepository{db: db}
}

func (r *NavRepository) WithTx(tx *sql.Tx) *NavRepository {
	return &NavRepository{db: r.db, tx: tx}
}

func (r *NavRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// ReplaceSeries deletes every committed row of the FOF and writes the new
// series. The engine replays deterministically from day one, so a rerun
// reproduces earlier rows and can safely overwrite them.
func (r *NavRepository) ReplaceSeries(fofID string, navRows []model.NavRow, positions []model.PositionRow) error {
	q := r.getQuerier()

	for _, table := range []string{"fof_nav", "fof_position"} {
		if _, err := q.Exec(`DELETE FROM `+table+` WHERE fof_id = ?`, fofID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	navQuery := `
        INSERT INTO fof_nav (fof_id, date, nav, acc_nav, adj_nav, volume, mv, ret)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	for _, row := range navRows {
		_, err := q.Exec(navQuery,
			row.FofID,
			row.Date.Format("2006-01-02"),
			row.Nav.String(),
			row.AccNav.String(),
			row.AdjNav.String(),
			row.Volume.String(),
			row.MV.String(),
			row.Ret.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert fof_nav: %w", err)
		}
	}

	posQuery := `INSERT INTO fof_position (fof_id, date, holdings) VALUES (?, ?, ?)`
	for _, row := range positions {
		holdings, err := json.Marshal(row.Holdings)
		if err != nil {
			return fmt.Errorf("failed to marshal holdings: %w", err)
		}
		if _, err := q.Exec(posQuery, row.FofID, row.Date.Format("2006-01-02"), string(holdings)); err != nil {
			return fmt.Errorf("failed to insert fof_position: %w", err)
		}
	}
	return nil
}

// ReplaceDetails rewrites the latest-only per-fund detail rows.
func (r *NavRepository) ReplaceDetails(fofID string, details []model.PositionDetailRow) error {
	q := r.getQuerier()

	if _, err := q.Exec(`DELETE FROM fof_position_detail WHERE fof_id = ?`, fofID); err != nil {
		return fmt.Errorf("failed to clear fof_position_detail: %w", err)
	}

	query := `
        INSERT INTO fof_position_detail (
            fof_id, fund_id, asset_type, confirmed_nav, water_line,
            unit_nav, acc_nav, v_nav, total_share, total_cost,
            latest_mv, total_ret, total_rr
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	for _, d := range details {
		confirmed, err := json.Marshal(d.ConfirmedNav)
		if err != nil {
			return fmt.Errorf("failed to marshal confirmed navs: %w", err)
		}
		water, err := json.Marshal(d.WaterLine)
		if err != nil {
			return fmt.Errorf("failed to marshal water lines: %w", err)
		}
		_, err = q.Exec(query,
			d.FofID,
			d.FundID,
			string(d.AssetType),
			string(confirmed),
			string(water),
			d.UnitNav.String(),
			d.AccNav.String(),
			d.VNav.String(),
			d.TotalShare.String(),
			d.TotalCost.String(),
			d.LatestMV.String(),
			d.TotalRet.String(),
			d.TotalRR.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert fof_position_detail: %w", err)
		}
	}
	return nil
}

// GetNavSeries retrieves the committed NAV series, oldest first.
func (r *NavRepository) GetNavSeries(fofID string) ([]model.NavRow, error) {
	query := `
        SELECT fof_id, date, nav, acc_nav, adj_nav, volume, mv, ret
        FROM fof_nav
        WHERE fof_id = ?
        ORDER BY date ASC
    `
	rows, err := r.getQuerier().Query(query, fofID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fof_nav: %w", err)
	}
	defer rows.Close()

	series := []model.NavRow{}
	for rows.Next() {
		var (
			row                                model.NavRow
			date                               string
			nav, acc, adj, volume, mv, ret     string
		)
		err := rows.Scan(&row.FofID, &date, &nav, &acc, &adj, &volume, &mv, &ret)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fof_nav: %w", err)
		}
		if row.Date, err = ParseTime(date); err != nil {
			return nil, err
		}
		if row.Nav, err = ParseDecimal(nav); err != nil {
			return nil, err
		}
		if row.AccNav, err = ParseDecimal(acc); err != nil {
			return nil, err
		}
		if row.AdjNav, err = ParseDecimal(adj); err != nil {
			return nil, err
		}
		if row.Volume, err = ParseDecimal(volume); err != nil {
			return nil, err
		}
		if row.MV, err = ParseDecimal(mv); err != nil {
			return nil, err
		}
		if row.Ret, err = ParseDecimal(ret); err != nil {
			return nil, err
		}
		series = append(series, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fof_nav: %w", err)
	}
	return series, nil
}

// GetNav retrieves the committed NAV row for a single day.
func (r *NavRepository) GetNav(fofID string, date time.Time) (model.NavRow, error) {
	query := `
        SELECT fof_id, date, nav, acc_nav, adj_nav, volume, mv, ret
        FROM fof_nav
        WHERE fof_id = ? AND date = ?
    `
	var (
		row                            model.NavRow
		dateStr                        string
		nav, acc, adj, volume, mv, ret string
	)
	err := r.getQuerier().QueryRow(query, fofID, date.Format("2006-01-02")).Scan(
		&row.FofID, &dateStr, &nav, &acc, &adj, &volume, &mv, &ret,
	)
	if err == sql.ErrNoRows {
		return model.NavRow{}, apperrors.ErrFundNavNotFound
	}
	if err != nil {
		return model.NavRow{}, fmt.Errorf("failed to query fof_nav: %w", err)
	}
	if row.Date, err = ParseTime(dateStr); err != nil {
		return model.NavRow{}, err
	}
	if row.Nav, err = ParseDecimal(nav); err != nil {
		return model.NavRow{}, err
	}
	if row.AccNav, err = ParseDecimal(acc); err != nil {
		return model.NavRow{}, err
	}
	if row.AdjNav, err = ParseDecimal(adj); err != nil {
		return model.NavRow{}, err
	}
	if row.Volume, err = ParseDecimal(volume); err != nil {
		return model.NavRow{}, err
	}
	if row.MV, err = ParseDecimal(mv); err != nil {
		return model.NavRow{}, err
	}
	if row.Ret, err = ParseDecimal(ret); err != nil {
		return model.NavRow{}, err
	}
	return row, nil
}

// GetPositions retrieves the per-day position snapshots, oldest first.
func (r *NavRepository) GetPositions(fofID string) ([]model.PositionRow, error) {
	query := `SELECT fof_id, date, holdings FROM fof_position WHERE fof_id = ? ORDER BY date ASC`

	rows, err := r.getQuerier().Query(query, fofID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fof_position: %w", err)
	}
	defer rows.Close()

	positions := []model.PositionRow{}
	for rows.Next() {
		var (
			row            model.PositionRow
			date, holdings string
		)
		if err := rows.Scan(&row.FofID, &date, &holdings); err != nil {
			return nil, fmt.Errorf("failed to scan fof_position: %w", err)
		}
		if row.Date, err = ParseTime(date); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(holdings), &row.Holdings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal holdings: %w", err)
		}
		positions = append(positions, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fof_position: %w", err)
	}
	return positions, nil
}

// GetDetails retrieves the latest per-fund position details.
func (r *NavRepository) GetDetails(fofID string) ([]model.PositionDetailRow, error) {
	query := `
        SELECT fof_id, fund_id, asset_type, confirmed_nav, water_line,
               unit_nav, acc_nav, v_nav, total_share, total_cost,
               latest_mv, total_ret, total_rr
        FROM fof_position_detail
        WHERE fof_id = ?
        ORDER BY fund_id ASC
    `
	rows, err := r.getQuerier().Query(query, fofID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fof_position_detail: %w", err)
	}
	defer rows.Close()

	details := []model.PositionDetailRow{}
	for rows.Next() {
		var (
			d                            model.PositionDetailRow
			confirmed, water             string
			unit, acc, vnav              string
			share, cost, mv, ret, rr     string
		)
		err := rows.Scan(
			&d.FofID, &d.FundID, &d.AssetType, &confirmed, &water,
			&unit, &acc, &vnav, &share, &cost, &mv, &ret, &rr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fof_position_detail: %w", err)
		}
		if err := json.Unmarshal([]byte(confirmed), &d.ConfirmedNav); err != nil {
			return nil, fmt.Errorf("failed to unmarshal confirmed navs: %w", err)
		}
		if err := json.Unmarshal([]byte(water), &d.WaterLine); err != nil {
			return nil, fmt.Errorf("failed to unmarshal water lines: %w", err)
		}
		if d.UnitNav, err = ParseDecimal(unit); err != nil {
			return nil, err
		}
		if d.AccNav, err = ParseDecimal(acc); err != nil {
			return nil, err
		}
		if d.VNav, err = ParseDecimal(vnav); err != nil {
			return nil, err
		}
		if d.TotalShare, err = ParseDecimal(share); err != nil {
			return nil, err
		}
		if d.TotalCost, err = ParseDecimal(cost); err != nil {
			return nil, err
		}
		if d.LatestMV, err = ParseDecimal(mv); err != nil {
			return nil, err
		}
		if d.TotalRet, err = ParseDecimal(ret); err != nil {
			return nil, err
		}
		if d.TotalRR, err = ParseDecimal(rr); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fof_position_detail: %w", err)
	}
	return details, nil
}
