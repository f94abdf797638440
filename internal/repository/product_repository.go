package repository

import (
	"database/sql"
	"fmt"

	"github.com/quantclear/fofnav/internal/apperrors"
	"github.com/quantclear/fofnav/internal/model"
)

// ProductRepository provides data access methods for the fof_product table,
// including the per-product calculation lock bit.
type ProductRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewProductRepository creates a new ProductRepository with the provided database connection.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) WithTx(tx *sql.Tx) *ProductRepository {
	return &ProductRepository{db: r.db, tx: tx}
}

func (r *ProductRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const productColumns = `
    id, name, inception_date, management_rate, custodian_rate,
    administrative_rate, deposit_rate, subscribe_fee_rate, incentive_mode,
    incentive_ratio, incentive_precision, raising_interest_amount,
    raising_interest_until, trust_computed_vnav, drift_tolerance, is_calculating
`

// Get retrieves a single FOF product by ID.
func (r *ProductRepository) Get(productID string) (model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM fof_product WHERE id = ?`

	row := r.getQuerier().QueryRow(query, productID)
	p, err := scanProduct(row.Scan)
	if err == sql.ErrNoRows {
		return model.Product{}, apperrors.ErrProductNotFound
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("failed to query fof_product: %w", err)
	}
	return p, nil
}

// List retrieves every registered FOF product.
func (r *ProductRepository) List() ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM fof_product ORDER BY id ASC`

	rows, err := r.getQuerier().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fof_product: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fof_product: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fof_product: %w", err)
	}
	return products, nil
}

// Create inserts a new FOF product.
func (r *ProductRepository) Create(p model.Product) error {
	query := `
        INSERT INTO fof_product (` + productColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.getQuerier().Exec(query,
		p.ID,
		p.Name,
		p.InceptionDate.Format("2006-01-02"),
		p.ManagementRate.String(),
		p.CustodianRate.String(),
		p.AdministrativeRate.String(),
		p.DepositRate.String(),
		p.SubscribeFeeRate.String(),
		p.IncentiveMode,
		p.IncentiveRatio.String(),
		p.IncentivePrecision,
		p.RaisingInterestAmount.String(),
		NullableDate(p.RaisingInterestUntil),
		p.TrustComputedVNav,
		p.DriftTolerance.String(),
		p.IsCalculating,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fof_product: %w", err)
	}
	return nil
}

// TryLock atomically sets the is_calculating flag. It returns
// ErrCalculationInProgress when the flag is already held, so two concurrent
// runs for the same FOF cannot both proceed.
func (r *ProductRepository) TryLock(productID string) error {
	result, err := r.getQuerier().Exec(
		`UPDATE fof_product SET is_calculating = TRUE WHERE id = ? AND is_calculating = FALSE`,
		productID,
	)
	if err != nil {
		return fmt.Errorf("failed to acquire calculation lock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check calculation lock: %w", err)
	}
	if affected == 0 {
		// Either the product is missing or another run holds the lock.
		if _, err := r.Get(productID); err != nil {
			return err
		}
		return apperrors.ErrCalculationInProgress
	}
	return nil
}

// Unlock clears the is_calculating flag. Callers must invoke it on every
// exit path of a run, including failures.
func (r *ProductRepository) Unlock(productID string) error {
	if _, err := r.getQuerier().Exec(
		`UPDATE fof_product SET is_calculating = FALSE WHERE id = ?`, productID,
	); err != nil {
		return fmt.Errorf("failed to release calculation lock: %w", err)
	}
	return nil
}

func scanProduct(scan func(dest ...any) error) (model.Product, error) {
	var (
		p                                  model.Product
		inception                          string
		mgmt, cust, admin, deposit, subFee string
		ratio, raisingAmount, drift        string
		raisingUntil                       sql.NullString
	)
	err := scan(
		&p.ID,
		&p.Name,
		&inception,
		&mgmt,
		&cust,
		&admin,
		&deposit,
		&subFee,
		&p.IncentiveMode,
		&ratio,
		&p.IncentivePrecision,
		&raisingAmount,
		&raisingUntil,
		&p.TrustComputedVNav,
		&drift,
		&p.IsCalculating,
	)
	if err != nil {
		return model.Product{}, err
	}

	if p.InceptionDate, err = ParseTime(inception); err != nil {
		return model.Product{}, err
	}
	if p.RaisingInterestUntil, err = ScanNullableDate(raisingUntil); err != nil {
		return model.Product{}, err
	}
	if p.ManagementRate, err = ParseDecimal(mgmt); err != nil {
		return model.Product{}, err
	}
	if p.CustodianRate, err = ParseDecimal(cust); err != nil {
		return model.Product{}, err
	}
	if p.AdministrativeRate, err = ParseDecimal(admin); err != nil {
		return model.Product{}, err
	}
	if p.DepositRate, err = ParseDecimal(deposit); err != nil {
		return model.Product{}, err
	}
	if p.SubscribeFeeRate, err = ParseDecimal(subFee); err != nil {
		return model.Product{}, err
	}
	if p.IncentiveRatio, err = ParseDecimal(ratio); err != nil {
		return model.Product{}, err
	}
	if p.RaisingInterestAmount, err = ParseDecimal(raisingAmount); err != nil {
		return model.Product{}, err
	}
	if p.DriftTolerance, err = ParseDecimal(drift); err != nil {
		return model.Product{}, err
	}
	return p, nil
}
