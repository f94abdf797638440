package repository

import (
	"database/sql"
	"fmt"

	"github.com/quantclear/fofnav/internal/apperrors"
	"github.com/quantclear/fofnav/internal/model"
)

// InvestorRepository provides data access methods for the investor_position
// table, the latest-only per-investor summary.
type InvestorRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewInvestorRepository creates a new InvestorRepository with the provided database connection.
func NewInvestorRepository(db *sql.DB) *InvestorRepository {
	return &InvestorRepository{db: db}
}

func (r *InvestorRepository) WithTx(tx *sql.Tx) *InvestorRepository {
	return &InvestorRepository{db: r.db, tx: tx}
}

func (r *InvestorRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// Replace rewrites the investor summary rows of a FOF.
func (r *InvestorRepository) Replace(fofID string, positions []model.InvestorPosition) error {
	q := r.getQuerier()

	if _, err := q.Exec(`DELETE FROM investor_position WHERE fof_id = ?`, fofID); err != nil {
		return fmt.Errorf("failed to clear investor_position: %w", err)
	}

	query := `
        INSERT INTO investor_position (
            fof_id, investor_id, amount, left_amount, share, left_share,
            v_nav, mv, total_ret, total_rr
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	for _, p := range positions {
		_, err := q.Exec(query,
			p.FofID,
			p.InvestorID,
			p.Amount.String(),
			p.LeftAmount.String(),
			p.Share.String(),
			p.LeftShare.String(),
			p.VNav.String(),
			p.MV.String(),
			p.TotalRet.String(),
			p.TotalRR.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert investor_position: %w", err)
		}
	}
	return nil
}

// List retrieves every investor summary of a FOF.
func (r *InvestorRepository) List(fofID string) ([]model.InvestorPosition, error) {
	query := `
        SELECT fof_id, investor_id, amount, left_amount, share, left_share,
               v_nav, mv, total_ret, total_rr
        FROM investor_position
        WHERE fof_id = ?
        ORDER BY investor_id ASC
    `
	rows, err := r.getQuerier().Query(query, fofID)
	if err != nil {
		return nil, fmt.Errorf("failed to query investor_position: %w", err)
	}
	defer rows.Close()

	positions := []model.InvestorPosition{}
	for rows.Next() {
		p, err := scanInvestorPosition(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investor_position: %w", err)
		}
		positions = append(positions, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investor_position: %w", err)
	}
	return positions, nil
}

// Get retrieves a single investor's summary.
func (r *InvestorRepository) Get(fofID, investorID string) (model.InvestorPosition, error) {
	query := `
        SELECT fof_id, investor_id, amount, left_amount, share, left_share,
               v_nav, mv, total_ret, total_rr
        FROM investor_position
        WHERE fof_id = ? AND investor_id = ?
    `
	row := r.getQuerier().QueryRow(query, fofID, investorID)
	p, err := scanInvestorPosition(row.Scan)
	if err == sql.ErrNoRows {
		return model.InvestorPosition{}, apperrors.ErrInvestorNotFound
	}
	if err != nil {
		return model.InvestorPosition{}, fmt.Errorf("failed to query investor_position: %w", err)
	}
	return p, nil
}

func scanInvestorPosition(scan func(dest ...any) error) (model.InvestorPosition, error) {
	var (
		p                                 model.InvestorPosition
		amount, leftAmount, share         string
		leftShare, vnav, mv, ret, rr      string
	)
	err := scan(
		&p.FofID,
		&p.InvestorID,
		&amount,
		&leftAmount,
		&share,
		&leftShare,
		&vnav,
		&mv,
		&ret,
		&rr,
	)
	if err != nil {
		return model.InvestorPosition{}, err
	}

	if p.Amount, err = ParseDecimal(amount); err != nil {
		return model.InvestorPosition{}, err
	}
	if p.LeftAmount, err = ParseDecimal(leftAmount); err != nil {
		return model.InvestorPosition{}, err
	}
	if p.Share, err = ParseDecimal(share); err != nil {
		return model.InvestorPosition{}, err
	}
	if p.LeftShare, err = ParseDecimal(leftShare); err != nil {
		return model.InvestorPosition{}, err
	}
	if p.VNav, err = ParseDecimal(vnav); err != nil {
		return model.InvestorPosition{}, err
	}
	if p.MV, err = ParseDecimal(mv); err != nil {
		return model.InvestorPosition{}, err
	}
	if p.TotalRet, err = ParseDecimal(ret); err != nil {
		return model.InvestorPosition{}, err
	}
	if p.TotalRR, err = ParseDecimal(rr); err != nil {
		return model.InvestorPosition{}, err
	}
	return p, nil
}
