package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
	"github.com/insightdelivered/broker-statement-converter/internal/parser"
)

// StatementResult is the outcome of one statement file.
type StatementResult struct {
	Path         string            `json:"path"`
	StatementID  string            `json:"statementId,omitempty"`
	Broker       models.BrokerType `json:"broker,omitempty"`
	AccountID    string            `json:"accountId,omitempty"`
	Records      int               `json:"records"`
	Degraded     int               `json:"degraded"`
	Suppressed   int               `json:"suppressed"`
	Unclassified int               `json:"unclassified"`
	Invalid      int               `json:"invalid"`
	Error        string            `json:"error,omitempty"`
}

// BrokerSummary counts files and records for one broker.
type BrokerSummary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Records   int `json:"records"`
}

// Report summarizes an ingestion run.
type Report struct {
	RunID      string                               `json:"runId"`
	StartedAt  time.Time                            `json:"startedAt"`
	FinishedAt time.Time                            `json:"finishedAt"`
	Statements []StatementResult                    `json:"statements"`
	Brokers    map[models.BrokerType]*BrokerSummary `json:"brokers"`
	Totals     map[string]decimal.Decimal           `json:"totals"`
	Counts     map[models.LineOutcome]int           `json:"lineOutcomes"`
	ByType     map[models.TransactionType]int       `json:"recordsByType"`
}

// NewReport starts an empty report.
func NewReport() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Brokers:   make(map[models.BrokerType]*BrokerSummary),
		Totals:    make(map[string]decimal.Decimal),
		Counts:    make(map[models.LineOutcome]int),
		ByType:    make(map[models.TransactionType]int),
	}
}

// Add records the outcome of one statement. info is ignored when err is set.
func (r *Report) Add(path string, info *models.StatementInfo, err error) {
	res := StatementResult{Path: path}
	if err != nil {
		res.Error = err.Error()
		broker := brokerOf(err)
		res.Broker = broker
		r.broker(broker).Failed++
		r.Statements = append(r.Statements, res)
		return
	}

	res.StatementID = info.StatementID
	res.Broker = info.Broker
	res.AccountID = info.AccountID
	res.Records = len(info.Transactions)
	res.Degraded = info.Count(models.OutcomeDegraded)
	res.Suppressed = info.Count(models.OutcomeSuppressed)
	res.Unclassified = info.Count(models.OutcomeUnclassified)
	res.Invalid = info.Count(models.OutcomeInvalid)
	r.Statements = append(r.Statements, res)

	b := r.broker(info.Broker)
	b.Succeeded++
	b.Records += res.Records

	for _, d := range info.DebugLines {
		r.Counts[d.Outcome]++
	}
	for _, tx := range info.Transactions {
		r.ByType[tx.TransactionType]++
		r.Totals[tx.Currency] = r.Totals[tx.Currency].Add(tx.Amount)
	}
}

// Finish stamps the end time.
func (r *Report) Finish() {
	r.FinishedAt = time.Now().UTC()
}

func (r *Report) broker(b models.BrokerType) *BrokerSummary {
	if b == "" {
		b = "UNKNOWN"
	}
	s, ok := r.Brokers[b]
	if !ok {
		s = &BrokerSummary{}
		r.Brokers[b] = s
	}
	return s
}

// Records is the number of records emitted, degraded ones included.
func (r *Report) Records() int {
	n := 0
	for _, s := range r.Statements {
		n += s.Records
	}
	return n
}

// Failed is the number of statements that failed outright.
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Statements {
		if s.Error != "" {
			n++
		}
	}
	return n
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Markdown renders the report as a markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Statement processing report\n\n")
	fmt.Fprintf(&b, "- Statements: %d processed, %d failed\n", len(r.Statements), r.Failed())
	fmt.Fprintf(&b, "- Records: %d emitted, %d flagged for review\n", r.Records(), r.Counts[models.OutcomeDegraded])
	fmt.Fprintf(&b, "- Lines: %d suppressed, %d unclassified, %d invalid\n\n",
		r.Counts[models.OutcomeSuppressed], r.Counts[models.OutcomeUnclassified], r.Counts[models.OutcomeInvalid])

	b.WriteString("## Brokers\n\n| Broker | Succeeded | Failed | Records |\n|---|---:|---:|---:|\n")
	for _, name := range sortedKeys(r.Brokers) {
		s := r.Brokers[name]
		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", name, s.Succeeded, s.Failed, s.Records)
	}

	if len(r.Totals) > 0 {
		b.WriteString("\n## Net cash flow\n\n| Currency | Total |\n|---|---:|\n")
		for _, cur := range sortedKeys(r.Totals) {
			fmt.Fprintf(&b, "| %s | %s |\n", cur, FormatAmount(r.Totals[cur], cur))
		}
	}

	if len(r.ByType) > 0 {
		b.WriteString("\n## Records by type\n\n| Type | Count |\n|---|---:|\n")
		for _, typ := range models.AllTransactionTypes {
			if n := r.ByType[typ]; n > 0 {
				fmt.Fprintf(&b, "| %s | %d |\n", typ, n)
			}
		}
	}

	if r.Failed() > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, s := range r.Statements {
			if s.Error != "" {
				fmt.Fprintf(&b, "- `%s`: %s\n", filepath.Base(s.Path), s.Error)
			}
		}
	}
	return b.String()
}

// FormatAmount formats amount in its currency's display format, e.g.
// $1,234.50. Unknown currencies fall back to the plain number and code.
func FormatAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return strings.TrimSpace(amount.StringFixed(2) + " " + currency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, currency).Display()
}

func brokerOf(err error) models.BrokerType {
	var se *parser.StatementError
	if errors.As(err, &se) {
		return se.Broker
	}
	return ""
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
