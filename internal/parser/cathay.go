package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Cathay Securities (國泰證券) trade history CSV export. Rows are already
// one record each, so there is no segmentation step.

var cathayProfile = &Profile{
	Broker:        models.BrokerCathay,
	Name:          "Cathay Securities",
	Currency:      "TWD",
	Rules:         cathayRules,
	DetectMarkers: []string{"國泰", "買賣別", "委託書號"},
	Layout: Layout{
		DateLayouts: []string{layoutSlashISO, layoutISO},
		Columns: &Columns{
			Date:     "日期",
			Name:     "股名",
			Symbol:   "股票代號",
			Side:     "買賣別",
			Quantity: "成交股數",
			Price:    "成交價",
			Cost:     "成本",
			Fee:      "手續費",
			Tax:      "交易稅",
			Net:      "淨收付金額",
			OrderID:  "委託書號",
		},
	},
}

// csvParser turns header-mapped CSV rows into records.
type csvParser struct {
	profile    *Profile
	engine     *Engine
	classifier *Classifier
}

func (p *csvParser) BrokerName() string { return p.profile.Name }

func (p *csvParser) Parse(st Statement) (*models.StatementInfo, error) {
	info := &models.StatementInfo{
		StatementID:   st.ID,
		SourcePath:    st.Path,
		Broker:        p.profile.Broker,
		StatementDate: st.DateHint,
		Currency:      p.profile.Currency,
	}
	log := p.engine.log.With().Str("statement", st.ID).Str("broker", string(p.profile.Broker)).Logger()
	cols := p.profile.Layout.Columns

	rows := 0
	for _, line := range st.Lines {
		if line.Fields == nil {
			continue
		}
		refs := []models.LineRef{line.Ref}
		debug := models.DebugLine{Refs: refs, Text: line.Text}

		if marker, ok := p.engine.Noise.Suppress(line.Text); ok {
			debug.Outcome, debug.Detail = models.OutcomeSuppressed, marker
			info.DebugLines = append(info.DebugLines, debug)
			log.Debug().Str("outcome", string(models.OutcomeSuppressed)).Str("marker", marker).Msg("disclaimer line dropped")
			continue
		}

		name := cell(line.Fields, cols.Name)
		dateText := cell(line.Fields, cols.Date)
		if name == "" || dateText == "" {
			debug.Outcome, debug.Detail = models.OutcomeSkipped, "missing name or date"
			info.DebugLines = append(info.DebugLines, debug)
			continue
		}
		rows++

		date, err := parseDate(dateText, p.profile.Layout.DateLayouts)
		if err != nil {
			debug.Outcome, debug.Detail = models.OutcomeSkipped, err.Error()
			info.DebugLines = append(info.DebugLines, debug)
			continue
		}

		rec, outcome, rule := p.record(line, date, refs, log)
		debug.Outcome, debug.Rule = outcome, rule
		if rec == nil {
			debug.Detail = "record rejected"
		} else {
			info.Transactions = append(info.Transactions, *rec)
			debug.Detail = rec.ReviewReason
		}
		info.DebugLines = append(info.DebugLines, debug)
	}

	if rows == 0 {
		return nil, &StatementError{Broker: p.profile.Broker, StatementID: st.ID, Err: ErrNoTransactionLines}
	}
	return info, nil
}

func (p *csvParser) record(line models.RawStatementLine, date time.Time, refs []models.LineRef, log zerolog.Logger) (*models.TransactionRecord, models.LineOutcome, string) {
	cols := p.profile.Layout.Columns
	side := cell(line.Fields, cols.Side)
	cls := p.classifier.Classify(side)

	amount, ok := cellDecimal(line.Fields, cols.Cost)
	if !ok || amount.IsZero() {
		amount, _ = cellDecimal(line.Fields, cols.Net)
	}

	rec := models.TransactionRecord{
		Date:            date,
		Broker:          p.profile.Broker,
		TransactionType: cls.Type,
		Amount:          cls.Type.NormalizeAmount(amount),
		Currency:        p.profile.Currency,
		OrderID:         cell(line.Fields, cols.OrderID),
		Description:     strings.TrimSpace(cell(line.Fields, cols.Name) + " " + side),
		SourceLineRef:   refs,
	}
	if fee, ok := cellDecimal(line.Fields, cols.Fee); ok {
		rec.Fee = fee.Abs()
	}
	if tax, ok := cellDecimal(line.Fields, cols.Tax); ok {
		rec.Tax = tax.Abs()
	}
	if net, ok := cellDecimal(line.Fields, cols.Net); ok {
		rec.NetAmount = &net
	}

	if cls.Type.CarriesSymbol() {
		sym := cell(line.Fields, cols.Symbol)
		if sym == "" {
			sym = cell(line.Fields, cols.Name)
		}
		rec.Symbol = &sym
	}

	var tokens []models.NumericToken
	for _, col := range []string{cols.Quantity, cols.Price} {
		if v, ok := cellDecimal(line.Fields, col); ok {
			tokens = append(tokens, models.NumericToken{RawText: cell(line.Fields, col), Value: v, IsNegative: v.IsNegative()})
		}
	}
	if cls.Type.IsTrade() || cls.Type == models.TypeDividend {
		if r, ok := p.engine.Reconciler.Reconcile(tokens, rec.Amount); ok {
			rec.Quantity, rec.Price = &r.Quantity, &r.Price
		} else if cls.Type.IsTrade() {
			rec.Degraded = true
			rec.ReviewReason = fmt.Sprintf("no quantity/price pair within %s of amount", p.engine.Reconciler.Thresholds().Tolerance)
		}
	}

	out, err := models.NewTransactionRecord(rec, p.engine.Reconciler.Thresholds().Tolerance)
	if err != nil {
		log.Error().Err(err).Str("outcome", string(models.OutcomeInvalid)).Str("line", line.Ref.String()).Msg("record failed validation")
		return nil, models.OutcomeInvalid, cls.Rule
	}
	switch {
	case !cls.Matched:
		log.Debug().Str("outcome", string(models.OutcomeUnclassified)).Str("side", side).Msg("unclassified row")
		return &out, models.OutcomeUnclassified, cls.Rule
	case out.Degraded:
		log.Info().Bool("degraded", true).Str("line", line.Ref.String()).Msg(out.ReviewReason)
		return &out, models.OutcomeDegraded, cls.Rule
	}
	return &out, models.OutcomeEmitted, cls.Rule
}

func cell(fields map[string]string, name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fields[name])
}

func cellDecimal(fields map[string]string, name string) (decimal.Decimal, bool) {
	s := strings.Trim(cell(fields, name), `"`)
	if s == "" || s == "-" {
		return decimal.Zero, false
	}
	v, err := parseDigits(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
