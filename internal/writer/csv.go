package writer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
)

// Columns is the CSV header for transaction records.
var Columns = []string{
	"date", "settle_date", "broker", "account_id", "transaction_type", "symbol",
	"quantity", "price", "amount", "fee", "tax", "net_amount", "realized_gain_loss",
	"currency", "order_id", "description", "source_line_ref", "degraded", "review_reason",
}

var balanceLabels = map[models.BalanceField]string{
	models.BalanceBeginning:   "# Beginning Account Value",
	models.BalanceDeposits:    "# Deposits",
	models.BalanceWithdrawals: "# Withdrawals",
	models.BalanceCash:        "# Cash Balance",
	models.BalanceInvestments: "# Total Investments",
	models.BalanceEnding:      "# Total Account Value",
}

const dateLayout = "2006-01-02"

// CSVWriter writes the records of one statement to CSV.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, info *models.StatementInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, info)
}

// Write writes transactions in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, info *models.StatementInfo) error {
	writer := csv.NewWriter(out)

	// Statement metadata as comment rows
	if w.IncludeHeader {
		meta := [][2]string{
			{"# Broker", string(info.Broker)},
			{"# Account Holder", info.AccountHolder},
			{"# Account Number", info.AccountID},
			{"# Currency", info.Currency},
		}
		if !info.StatementDate.IsZero() {
			meta = append(meta, [2]string{"# Statement Date", info.StatementDate.Format(dateLayout)})
		}
		if info.Balances != nil {
			for _, f := range models.AllBalanceFields {
				if v := info.Balances.Get(f); v != nil {
					meta = append(meta, [2]string{balanceLabels[f], formatDecimal(v)})
				}
			}
		}
		for _, m := range meta {
			if m[1] != "" {
				writer.Write(m[:])
			}
		}
	}

	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range info.Transactions {
		if err := writer.Write(Row(rec)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// CSVSink streams records from many statements into one CSV with a single
// header row. It is not safe for concurrent use.
type CSVSink struct {
	w       *csv.Writer
	started bool
}

func NewCSVSink(out io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(out)}
}

func (s *CSVSink) Write(_ context.Context, records []models.TransactionRecord) error {
	if !s.started {
		if err := s.w.Write(Columns); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
		s.started = true
	}
	for _, rec := range records {
		if err := s.w.Write(Row(rec)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	s.w.Flush()
	return s.w.Error()
}

// Close writes the header if nothing was written, so an empty run still
// produces a valid file.
func (s *CSVSink) Close() error {
	return s.Write(context.Background(), nil)
}

// Row renders a record in Columns order. Missing values are empty.
func Row(rec models.TransactionRecord) []string {
	refs := make([]string, len(rec.SourceLineRef))
	for i, r := range rec.SourceLineRef {
		refs[i] = r.String()
	}
	settle := ""
	if rec.SettleDate != nil {
		settle = rec.SettleDate.Format(dateLayout)
	}
	degraded := ""
	if rec.Degraded {
		degraded = strconv.FormatBool(true)
	}

	return []string{
		rec.Date.Format(dateLayout),
		settle,
		string(rec.Broker),
		rec.AccountID,
		string(rec.TransactionType),
		rec.SymbolString(),
		formatDecimal(rec.Quantity),
		formatDecimal(rec.Price),
		rec.Amount.String(),
		formatAmount(rec.Fee),
		formatAmount(rec.Tax),
		formatDecimal(rec.NetAmount),
		formatDecimal(rec.RealizedGainLoss),
		rec.Currency,
		rec.OrderID,
		rec.Description,
		strings.Join(refs, ";"),
		degraded,
		rec.ReviewReason,
	}
}

func formatDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func formatAmount(amount decimal.Decimal) string {
	if amount.IsZero() {
		return ""
	}
	return amount.String()
}
