package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
)

const (
	table        = "broker_transactions"
	balanceTable = "account_balances"
)

const schema = `
CREATE TABLE IF NOT EXISTS broker_transactions (
	id                 BIGSERIAL PRIMARY KEY,
	statement_id       TEXT NOT NULL,
	trade_date         DATE NOT NULL,
	settle_date        DATE,
	broker             TEXT NOT NULL,
	account_id         TEXT,
	transaction_type   TEXT NOT NULL,
	symbol             TEXT,
	quantity           NUMERIC,
	price              NUMERIC,
	amount             NUMERIC NOT NULL,
	fee                NUMERIC NOT NULL DEFAULT 0,
	tax                NUMERIC NOT NULL DEFAULT 0,
	net_amount         NUMERIC,
	realized_gain_loss NUMERIC,
	currency           TEXT NOT NULL,
	order_id           TEXT,
	description        TEXT,
	source_line_ref    TEXT[],
	degraded           BOOLEAN NOT NULL DEFAULT FALSE,
	review_reason      TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS broker_transactions_statement_idx ON broker_transactions (statement_id);
ALTER TABLE broker_transactions ADD COLUMN IF NOT EXISTS realized_gain_loss NUMERIC;

CREATE TABLE IF NOT EXISTS account_balances (
	statement_id            TEXT PRIMARY KEY,
	broker                  TEXT NOT NULL,
	account_id              TEXT,
	statement_date          DATE,
	source_file             TEXT,
	beginning_account_value NUMERIC,
	deposits                NUMERIC,
	withdrawals             NUMERIC,
	cash_balance            NUMERIC,
	total_investments       NUMERIC,
	total_account_value     NUMERIC,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// columns matches the order of recordRow.
var columns = []string{
	"statement_id", "trade_date", "settle_date", "broker", "account_id",
	"transaction_type", "symbol", "quantity", "price", "amount", "fee", "tax",
	"net_amount", "realized_gain_loss", "currency", "order_id", "description",
	"source_line_ref", "degraded", "review_reason",
}

// balanceColumns matches the order of balanceRow. The figure columns are
// named after their models.BalanceField.
var balanceColumns = func() []string {
	cols := []string{"statement_id", "broker", "account_id", "statement_date", "source_file"}
	for _, f := range models.AllBalanceFields {
		cols = append(cols, string(f))
	}
	return cols
}()

// TransactionStore persists records to PostgreSQL.
type TransactionStore struct {
	pool *pgxpool.Pool
}

// Open connects to the database at url.
func Open(ctx context.Context, url string) (*TransactionStore, error) {
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &TransactionStore{pool: pool}, nil
}

// EnsureSchema creates the transactions table if it does not exist.
func (s *TransactionStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Write copies the records of one statement in a single COPY.
func (s *TransactionStore) Write(ctx context.Context, records []models.TransactionRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = recordRow(rec)
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy %d records: %w", len(records), err)
	}
	if int(n) != len(records) {
		return fmt.Errorf("copied %d of %d records", n, len(records))
	}
	return nil
}

// WriteBalances stores the summary figures of one statement. Statements
// without a summary section are skipped.
func (s *TransactionStore) WriteBalances(ctx context.Context, info *models.StatementInfo) error {
	if info == nil || info.Balances == nil {
		return nil
	}
	if _, err := s.pool.Exec(ctx, insertBalances(), balanceRow(info)...); err != nil {
		return fmt.Errorf("failed to write balances for %s: %w", info.StatementID, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *TransactionStore) Close() error {
	s.pool.Close()
	return nil
}

func recordRow(rec models.TransactionRecord) []any {
	refs := make([]string, len(rec.SourceLineRef))
	statementID := ""
	for i, r := range rec.SourceLineRef {
		refs[i] = r.String()
		statementID = r.StatementID
	}

	return []any{
		statementID,
		pgtype.Date{Time: rec.Date, Valid: true},
		optionalDate(rec.SettleDate),
		string(rec.Broker),
		nullable(rec.AccountID),
		string(rec.TransactionType),
		rec.Symbol,
		optionalNumeric(rec.Quantity),
		optionalNumeric(rec.Price),
		numeric(rec.Amount),
		numeric(rec.Fee),
		numeric(rec.Tax),
		optionalNumeric(rec.NetAmount),
		optionalNumeric(rec.RealizedGainLoss),
		rec.Currency,
		nullable(rec.OrderID),
		strings.TrimSpace(rec.Description),
		refs,
		rec.Degraded,
		nullable(rec.ReviewReason),
	}
}

func insertBalances() string {
	params := make([]string, len(balanceColumns))
	for i := range params {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (statement_id) DO NOTHING",
		balanceTable, strings.Join(balanceColumns, ", "), strings.Join(params, ", "))
}

func balanceRow(info *models.StatementInfo) []any {
	row := []any{
		info.StatementID,
		string(info.Broker),
		nullable(info.AccountID),
		pgtype.Date{Time: info.StatementDate, Valid: !info.StatementDate.IsZero()},
		nullable(info.SourcePath),
	}
	for _, f := range models.AllBalanceFields {
		row = append(row, optionalNumeric(info.Balances.Get(f)))
	}
	return row
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func optionalNumeric(d *decimal.Decimal) pgtype.Numeric {
	if d == nil {
		return pgtype.Numeric{}
	}
	return numeric(*d)
}

func optionalDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}

func nullable(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
