package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quantclear/fofnav/internal/model"
)

// CorrectionRepository provides data access methods for the nav_correction
// table: manual adjustments entered by operators plus drift amounts the
// engine records for audit.
type CorrectionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewCorrectionRepository creates a new CorrectionRepository with the provided database connection.
func NewCorrectionRepository(db *sql.DB) *CorrectionRepository {
	return &CorrectionRepository{db: db}
}

func (r *CorrectionRepository) WithTx(tx *sql.Tx) *CorrectionRepository {
	return &CorrectionRepository{db: r.db, tx: tx}
}

func (r *CorrectionRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// DriftReason marks corrections the engine records for precision drift.
// They are audit output, not engine input: feeding them back would fold the
// drift into the next run's net assets.
const DriftReason = "precision drift"

// ListManual retrieves the operator-entered corrections of a FOF dated up to
// and including upTo, oldest first. Drift records are excluded.
func (r *CorrectionRepository) ListManual(fofID string, upTo time.Time) ([]model.Correction, error) {
	query := `
        SELECT fof_id, date, amount, reason
        FROM nav_correction
        WHERE fof_id = ? AND date <= ? AND reason != ?
        ORDER BY date ASC, id ASC
    `
	rows, err := r.getQuerier().Query(query, fofID, upTo.Format("2006-01-02"), DriftReason)
	if err != nil {
		return nil, fmt.Errorf("failed to query nav_correction: %w", err)
	}
	defer rows.Close()

	corrections := []model.Correction{}
	for rows.Next() {
		var (
			c            model.Correction
			date, amount string
		)
		if err := rows.Scan(&c.FofID, &date, &amount, &c.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan nav_correction: %w", err)
		}
		if c.Date, err = ParseTime(date); err != nil {
			return nil, err
		}
		if c.Amount, err = ParseDecimal(amount); err != nil {
			return nil, err
		}
		corrections = append(corrections, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nav_correction: %w", err)
	}
	return corrections, nil
}

// ReplaceDrift rewrites the drift records of a FOF. Each run reproduces its
// own drift series, so old rows are dropped first.
func (r *CorrectionRepository) ReplaceDrift(fofID string, corrections []model.Correction) error {
	q := r.getQuerier()

	if _, err := q.Exec(
		`DELETE FROM nav_correction WHERE fof_id = ? AND reason = ?`, fofID, DriftReason,
	); err != nil {
		return fmt.Errorf("failed to clear drift corrections: %w", err)
	}
	for _, c := range corrections {
		c.Reason = DriftReason
		if err := r.Create(c); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts a correction record.
func (r *CorrectionRepository) Create(c model.Correction) error {
	query := `INSERT INTO nav_correction (id, fof_id, date, amount, reason) VALUES (?, ?, ?, ?, ?)`
	_, err := r.getQuerier().Exec(query,
		uuid.NewString(),
		c.FofID,
		c.Date.Format("2006-01-02"),
		c.Amount.String(),
		c.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert nav_correction: %w", err)
	}
	return nil
}
