package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"credit-circuit/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no report matches the lookup.
var ErrNotFound = errors.New("report not found")

// Store persists the period reports of the banks.
type Store interface {
	// SaveReport stores r, replacing any report of the same bank and period.
	SaveReport(ctx context.Context, r model.BankReport) error
	// SaveReports stores the reports of one period together.
	SaveReports(ctx context.Context, reports []model.BankReport) error
	GetReport(ctx context.Context, bank string, period int) (*model.BankReport, error)
	// ListReports returns the reports of bank in period order.
	ListReports(ctx context.Context, bank string) ([]model.BankReport, error)
	LatestReport(ctx context.Context, bank string) (*model.BankReport, error)
	// Banks returns the names of the banks with at least one report.
	Banks(ctx context.Context) ([]string, error)
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects to the database, retrying for a few seconds, and
// creates the schema.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	var pool *pgxpool.Pool
	var err error

	for i := 0; i < 5; i++ {
		pool, err = pgxpool.New(ctx, connString)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to database after retries: %w", err)
	}

	store := &PostgresStore{db: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	return store, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.db.Close()
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
    CREATE TABLE IF NOT EXISTS bank_reports (
        bank TEXT NOT NULL,
        period INTEGER NOT NULL,
        assets BIGINT NOT NULL,
        liabilities BIGINT NOT NULL,
        capital BIGINT NOT NULL,
        capital_ratio NUMERIC(19, 5) NOT NULL,
        short_term_loans BIGINT NOT NULL,
        long_term_loans BIGINT NOT NULL,
        doubtful_debt BIGINT NOT NULL,
        accounts INTEGER NOT NULL,
        bankruptcies INTEGER NOT NULL,
        cancelled_debt BIGINT NOT NULL,
        cancelled_deposits BIGINT NOT NULL,
        interest BIGINT NOT NULL,
        new_loans BIGINT NOT NULL,
        repaid_loans BIGINT NOT NULL,
        dividend_declared BIGINT NOT NULL,
        dividend_paid BIGINT NOT NULL,
        recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        PRIMARY KEY (bank, period)
    );`
	_, err := s.db.Exec(ctx, query)
	return err
}

const reportColumns = `bank, period, assets, liabilities, capital, capital_ratio,
	short_term_loans, long_term_loans, doubtful_debt, accounts, bankruptcies,
	cancelled_debt, cancelled_deposits, interest, new_loans, repaid_loans,
	dividend_declared, dividend_paid`

const upsertReport = `
	INSERT INTO bank_reports (` + reportColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	ON CONFLICT (bank, period) DO UPDATE SET
		assets = EXCLUDED.assets,
		liabilities = EXCLUDED.liabilities,
		capital = EXCLUDED.capital,
		capital_ratio = EXCLUDED.capital_ratio,
		short_term_loans = EXCLUDED.short_term_loans,
		long_term_loans = EXCLUDED.long_term_loans,
		doubtful_debt = EXCLUDED.doubtful_debt,
		accounts = EXCLUDED.accounts,
		bankruptcies = EXCLUDED.bankruptcies,
		cancelled_debt = EXCLUDED.cancelled_debt,
		cancelled_deposits = EXCLUDED.cancelled_deposits,
		interest = EXCLUDED.interest,
		new_loans = EXCLUDED.new_loans,
		repaid_loans = EXCLUDED.repaid_loans,
		dividend_declared = EXCLUDED.dividend_declared,
		dividend_paid = EXCLUDED.dividend_paid,
		recorded_at = NOW()`

func reportArgs(r model.BankReport) []any {
	return []any{
		r.Bank, r.Period, r.Assets, r.Liabilities, r.Capital, r.CapitalRatio,
		r.ShortTermLoans, r.LongTermLoans, r.DoubtfulDebt, r.Accounts, r.Bankruptcies,
		r.CancelledDebt, r.CancelledDeposits, r.Interest, r.NewLoans, r.RepaidLoans,
		r.DividendDeclared, r.DividendPaid,
	}
}

func scanReport(row pgx.Row) (*model.BankReport, error) {
	var r model.BankReport
	err := row.Scan(
		&r.Bank, &r.Period, &r.Assets, &r.Liabilities, &r.Capital, &r.CapitalRatio,
		&r.ShortTermLoans, &r.LongTermLoans, &r.DoubtfulDebt, &r.Accounts, &r.Bankruptcies,
		&r.CancelledDebt, &r.CancelledDeposits, &r.Interest, &r.NewLoans, &r.RepaidLoans,
		&r.DividendDeclared, &r.DividendPaid,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveReport upserts one report. Saving the same report twice is a no-op.
func (s *PostgresStore) SaveReport(ctx context.Context, r model.BankReport) error {
	if _, err := s.db.Exec(ctx, upsertReport, reportArgs(r)...); err != nil {
		return fmt.Errorf("could not save report of %s for period %d: %w", r.Bank, r.Period, err)
	}
	return nil
}

// SaveReports upserts the reports within one database transaction, so a
// period is either stored for every bank or for none.
func (s *PostgresStore) SaveReports(ctx context.Context, reports []model.BankReport) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	for _, r := range reports {
		if _, err := tx.Exec(ctx, upsertReport, reportArgs(r)...); err != nil {
			return fmt.Errorf("could not save report of %s for period %d: %w", r.Bank, r.Period, err)
		}
	}
	return tx.Commit(ctx)
}

// GetReport retrieves the report of bank for period.
func (s *PostgresStore) GetReport(ctx context.Context, bank string, period int) (*model.BankReport, error) {
	query := "SELECT " + reportColumns + " FROM bank_reports WHERE bank = $1 AND period = $2"
	r, err := scanReport(s.db.QueryRow(ctx, query, bank, period))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// LatestReport retrieves the report of bank with the highest period.
func (s *PostgresStore) LatestReport(ctx context.Context, bank string) (*model.BankReport, error) {
	query := "SELECT " + reportColumns + " FROM bank_reports WHERE bank = $1 ORDER BY period DESC LIMIT 1"
	r, err := scanReport(s.db.QueryRow(ctx, query, bank))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// ListReports returns every report of bank, oldest first. An unknown bank
// yields an empty list.
func (s *PostgresStore) ListReports(ctx context.Context, bank string) ([]model.BankReport, error) {
	query := "SELECT " + reportColumns + " FROM bank_reports WHERE bank = $1 ORDER BY period"
	rows, err := s.db.Query(ctx, query, bank)
	if err != nil {
		return nil, fmt.Errorf("could not query reports of %s: %w", bank, err)
	}
	defer rows.Close()

	reports := []model.BankReport{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan report row: %w", err)
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// Banks lists the bank names in alphabetical order.
func (s *PostgresStore) Banks(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, "SELECT DISTINCT bank FROM bank_reports ORDER BY bank")
	if err != nil {
		return nil, fmt.Errorf("could not query banks: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
