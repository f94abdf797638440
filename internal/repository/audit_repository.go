package repository

import (
	"database/sql"
	"fmt"

	"github.com/quantclear/fofnav/internal/model"
)

// AuditRepository provides data access methods for the daily audit tables:
// fee_accrual_daily, interest_accrual_daily, cash_in_transit_daily, and
// account_statement_daily. These series exist so an operator can reconcile
// every component of the NAV against the custodian's records.
type AuditRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewAuditRepository creates a new AuditRepository with the provided database connection.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) WithTx(tx *sql.Tx) *AuditRepository {
	return &AuditRepository{db: r.db, tx: tx}
}

func (r *AuditRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// Replace rewrites all four audit series of a FOF in one pass.
func (r *AuditRepository) Replace(
	fofID string,
	fees []model.FeeAccrualRow,
	interest []model.InterestAccrualRow,
	transit []model.CashInTransitRow,
	statements []model.AccountStatementRow,
) error {
	q := r.getQuerier()

	tables := []string{
		"fee_accrual_daily",
		"interest_accrual_daily",
		"cash_in_transit_daily",
		"account_statement_daily",
	}
	for _, table := range tables {
		if _, err := q.Exec(`DELETE FROM `+table+` WHERE fof_id = ?`, fofID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	feeQuery := `
        INSERT INTO fee_accrual_daily (
            fof_id, date, management, custodian, administrative,
            cum_management, cum_custodian, cum_administrative
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	for _, row := range fees {
		_, err := q.Exec(feeQuery,
			row.FofID,
			row.Date.Format("2006-01-02"),
			row.Management.String(),
			row.Custodian.String(),
			row.Administrative.String(),
			row.CumManagement.String(),
			row.CumCustodian.String(),
			row.CumAdministrative.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert fee_accrual_daily: %w", err)
		}
	}

	interestQuery := `
        INSERT INTO interest_accrual_daily (fof_id, date, cash, daily, cum_interest)
        VALUES (?, ?, ?, ?, ?)
    `
	for _, row := range interest {
		_, err := q.Exec(interestQuery,
			row.FofID,
			row.Date.Format("2006-01-02"),
			row.Cash.String(),
			row.Daily.String(),
			row.CumInterest.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert interest_accrual_daily: %w", err)
		}
	}

	transitQuery := `
        INSERT INTO cash_in_transit_daily (fof_id, date, cash_in_transit, deposit_in_transit, other_debt)
        VALUES (?, ?, ?, ?, ?)
    `
	for _, row := range transit {
		_, err := q.Exec(transitQuery,
			row.FofID,
			row.Date.Format("2006-01-02"),
			row.CashInTransit.String(),
			row.DepositInTransit.String(),
			row.OtherDebt.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert cash_in_transit_daily: %w", err)
		}
	}

	statementQuery := `
        INSERT INTO account_statement_daily (
            fof_id, date, cash, net_assets, net_assets_fixed, accrued_fees, accrued_interest
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	for _, row := range statements {
		_, err := q.Exec(statementQuery,
			row.FofID,
			row.Date.Format("2006-01-02"),
			row.Cash.String(),
			row.NetAssets.String(),
			row.NetAssetsFixed.String(),
			row.AccruedFees.String(),
			row.AccruedInt.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert account_statement_daily: %w", err)
		}
	}
	return nil
}

// GetStatements retrieves the account statement series, oldest first.
func (r *AuditRepository) GetStatements(fofID string) ([]model.AccountStatementRow, error) {
	query := `
        SELECT fof_id, date, cash, net_assets, net_assets_fixed, accrued_fees, accrued_interest
        FROM account_statement_daily
        WHERE fof_id = ?
        ORDER BY date ASC
    `
	rows, err := r.getQuerier().Query(query, fofID)
	if err != nil {
		return nil, fmt.Errorf("failed to query account_statement_daily: %w", err)
	}
	defer rows.Close()

	statements := []model.AccountStatementRow{}
	for rows.Next() {
		var (
			row                              model.AccountStatementRow
			date                             string
			cash, net, fixed, fees, interest string
		)
		err := rows.Scan(&row.FofID, &date, &cash, &net, &fixed, &fees, &interest)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account_statement_daily: %w", err)
		}
		if row.Date, err = ParseTime(date); err != nil {
			return nil, err
		}
		if row.Cash, err = ParseDecimal(cash); err != nil {
			return nil, err
		}
		if row.NetAssets, err = ParseDecimal(net); err != nil {
			return nil, err
		}
		if row.NetAssetsFixed, err = ParseDecimal(fixed); err != nil {
			return nil, err
		}
		if row.AccruedFees, err = ParseDecimal(fees); err != nil {
			return nil, err
		}
		if row.AccruedInt, err = ParseDecimal(interest); err != nil {
			return nil, err
		}
		statements = append(statements, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account_statement_daily: %w", err)
	}
	return statements, nil
}

// GetFeeAccruals retrieves the fee accrual series, oldest first.
func (r *AuditRepository) GetFeeAccruals(fofID string) ([]model.FeeAccrualRow, error) {
	query := `
        SELECT fof_id, date, management, custodian, administrative,
               cum_management, cum_custodian, cum_administrative
        FROM fee_accrual_daily
        WHERE fof_id = ?
        ORDER BY date ASC
    `
	rows, err := r.getQuerier().Query(query, fofID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fee_accrual_daily: %w", err)
	}
	defer rows.Close()

	accruals := []model.FeeAccrualRow{}
	for rows.Next() {
		var (
			row                                model.FeeAccrualRow
			date                               string
			mgmt, cust, admin                  string
			cumMgmt, cumCust, cumAdmin         string
		)
		err := rows.Scan(&row.FofID, &date, &mgmt, &cust, &admin, &cumMgmt, &cumCust, &cumAdmin)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fee_accrual_daily: %w", err)
		}
		if row.Date, err = ParseTime(date); err != nil {
			return nil, err
		}
		if row.Management, err = ParseDecimal(mgmt); err != nil {
			return nil, err
		}
		if row.Custodian, err = ParseDecimal(cust); err != nil {
			return nil, err
		}
		if row.Administrative, err = ParseDecimal(admin); err != nil {
			return nil, err
		}
		if row.CumManagement, err = ParseDecimal(cumMgmt); err != nil {
			return nil, err
		}
		if row.CumCustodian, err = ParseDecimal(cumCust); err != nil {
			return nil, err
		}
		if row.CumAdministrative, err = ParseDecimal(cumAdmin); err != nil {
			return nil, err
		}
		accruals = append(accruals, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fee_accrual_daily: %w", err)
	}
	return accruals, nil
}
