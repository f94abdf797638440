package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quantclear/fofnav/internal/model"
)

// EventRepository provides data access methods for the fof_event table.
type EventRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewEventRepository creates a new EventRepository with the provided database connection.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) WithTx(tx *sql.Tx) *EventRepository {
	return &EventRepository{db: r.db, tx: tx}
}

func (r *EventRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// List retrieves every event of a FOF applied up to and including upTo,
// sorted (applied_date ASC, id ASC) — the replay order of the engine.
func (r *EventRepository) List(fofID string, upTo time.Time) ([]model.Event, error) {
	query := `
        SELECT id, fof_id, type, kind, status, fund_id, asset_type, investor_id,
               applied_date, confirmed_date, deposited_date,
               amount, share, nav, water_line, reinvest_share
        FROM fof_event
        WHERE fof_id = ? AND applied_date <= ?
        ORDER BY applied_date ASC, id ASC
    `

	rows, err := r.getQuerier().Query(query, fofID, upTo.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query fof_event: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var (
			e                                  model.Event
			kind, fundID, investorID           sql.NullString
			applied                            string
			confirmed, deposited               sql.NullString
			amount, share, nav, water, reShare string
		)
		err := rows.Scan(
			&e.ID,
			&e.FofID,
			&e.Type,
			&kind,
			&e.Status,
			&fundID,
			&e.AssetType,
			&investorID,
			&applied,
			&confirmed,
			&deposited,
			&amount,
			&share,
			&nav,
			&water,
			&reShare,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fof_event: %w", err)
		}

		e.Kind = model.IncidentalKind(kind.String)
		e.FundID = fundID.String
		e.InvestorID = investorID.String

		if e.AppliedDate, err = ParseTime(applied); err != nil {
			return nil, err
		}
		if e.ConfirmedDate, err = ScanNullableDate(confirmed); err != nil {
			return nil, err
		}
		if e.DepositedDate, err = ScanNullableDate(deposited); err != nil {
			return nil, err
		}
		if e.Amount, err = ParseDecimal(amount); err != nil {
			return nil, err
		}
		if e.Share, err = ParseDecimal(share); err != nil {
			return nil, err
		}
		if e.Nav, err = ParseDecimal(nav); err != nil {
			return nil, err
		}
		if e.WaterLine, err = ParseDecimal(water); err != nil {
			return nil, err
		}
		if e.ReinvestShare, err = ParseDecimal(reShare); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fof_event: %w", err)
	}
	return events, nil
}

// Create inserts a new event record.
func (r *EventRepository) Create(e model.Event) error {
	query := `
        INSERT INTO fof_event (
            id, fof_id, type, kind, status, fund_id, asset_type, investor_id,
            applied_date, confirmed_date, deposited_date,
            amount, share, nav, water_line, reinvest_share
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.getQuerier().Exec(query,
		e.ID,
		e.FofID,
		string(e.Type),
		string(e.Kind),
		string(e.Status),
		e.FundID,
		string(e.AssetType),
		e.InvestorID,
		e.AppliedDate.Format("2006-01-02"),
		NullableDate(e.ConfirmedDate),
		NullableDate(e.DepositedDate),
		e.Amount.String(),
		e.Share.String(),
		e.Nav.String(),
		e.WaterLine.String(),
		e.ReinvestShare.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert fof_event: %w", err)
	}
	return nil
}
