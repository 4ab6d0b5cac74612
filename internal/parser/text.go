package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// textParser parses statements extracted from PDF text using a Profile.
type textParser struct {
	profile    *Profile
	engine     *Engine
	classifier *Classifier
	segmenter  *Segmenter
}

func (p *textParser) BrokerName() string { return p.profile.Name }

// leadingIndex matches a row number printed before the date column.
var leadingIndex = regexp.MustCompile(`^\d{1,4}[.)]?\s+`)

// lineState carries what one logical line inherits from the ones before it.
type lineState struct {
	date   time.Time
	settle *time.Time
	ref    time.Time
}

func (p *textParser) Parse(st Statement) (*models.StatementInfo, error) {
	info := &models.StatementInfo{
		StatementID: st.ID,
		SourcePath:  st.Path,
		Broker:      p.profile.Broker,
		Currency:    p.profile.Currency,
	}
	p.readMetadata(info, st)

	log := p.engine.log.With().Str("statement", st.ID).Str("broker", string(p.profile.Broker)).Logger()

	logical := p.segmenter.Segment(p.profile.scope(st.Lines))
	if len(logical) == 0 {
		return nil, &StatementError{Broker: p.profile.Broker, StatementID: st.ID, Err: ErrNoTransactionLines}
	}

	state := lineState{ref: info.StatementDate}
	if state.ref.IsZero() {
		state.ref = time.Now().UTC()
	}

	dated := 0
	for _, ll := range logical {
		debug := p.parseLine(info, ll, &state, log)
		if debug.Outcome != models.OutcomeSkipped && debug.Outcome != models.OutcomeSuppressed {
			dated++
		}
		info.DebugLines = append(info.DebugLines, debug)
	}

	if dated == 0 {
		return nil, &StatementError{Broker: p.profile.Broker, StatementID: st.ID, Err: ErrNoTransactionLines}
	}

	log.Debug().
		Int("records", len(info.Transactions)).
		Int("suppressed", info.Count(models.OutcomeSuppressed)).
		Int("degraded", info.Count(models.OutcomeDegraded)).
		Msg("statement parsed")
	return info, nil
}

func (p *textParser) readMetadata(info *models.StatementInfo, st Statement) {
	layout := p.profile.Layout
	var all strings.Builder
	for _, l := range st.Lines {
		all.WriteString(l.Text)
		all.WriteByte('\n')
	}
	text := all.String()

	if layout.AccountID != nil {
		if m := layout.AccountID.FindStringSubmatch(text); m != nil {
			info.AccountID = m[1]
		}
	}
	if layout.AccountHolder != nil {
		if m := layout.AccountHolder.FindStringSubmatch(text); m != nil {
			info.AccountHolder = strings.TrimSpace(m[1])
		}
	}
	info.Balances = readBalances(layout.Summary, text)
	if layout.StatementDate != nil {
		if d, ok := layout.StatementDate(text); ok {
			info.StatementDate = d
			return
		}
	}
	info.StatementDate = st.DateHint
}

// parseLine turns one logical line into at most one record and reports
// what happened to it.
func (p *textParser) parseLine(info *models.StatementInfo, ll models.LogicalLine, state *lineState, log zerolog.Logger) models.DebugLine {
	debug := models.DebugLine{Refs: ll.Refs, Text: ll.Text}
	lineLog := log.With().Str("line", ll.Refs[0].String()).Logger()

	if marker, ok := p.engine.Noise.Suppress(ll.Text); ok {
		debug.Outcome, debug.Detail = models.OutcomeSuppressed, marker
		lineLog.Debug().Str("outcome", string(models.OutcomeSuppressed)).Str("marker", marker).Msg("disclaimer line dropped")
		return debug
	}

	rest, ok := p.splitDate(ll.Text, state)
	if !ok {
		debug.Outcome, debug.Detail = models.OutcomeSkipped, "no date"
		return debug
	}

	layout := p.profile.Layout
	if layout.AccountColumn != nil {
		rest = layout.AccountColumn.ReplaceAllString(rest, "")
	}

	cls := p.classifier.Classify(rest)
	debug.Rule = cls.Rule

	tokens, gainLoss := p.numbers(rest)
	var balance *models.NumericToken
	if layout.TrailingBalance && len(tokens) >= 2 {
		balance = &tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
	}

	rec := models.TransactionRecord{
		Date:            state.date,
		SettleDate:      state.settle,
		Broker:          p.profile.Broker,
		AccountID:       info.AccountID,
		TransactionType: cls.Type,
		Currency:        p.profile.Currency,
		Description:     cls.Description,
		SourceLineRef:   ll.Refs,
	}
	rec.RealizedGainLoss = gainLoss

	if cls.Type == models.TypeSplit {
		if !p.fillSplit(&rec, rest, tokens) {
			debug.Outcome, debug.Detail = models.OutcomeSkipped, "split without share count"
			return debug
		}
	} else {
		amountIdx := amountToken(tokens)
		if amountIdx < 0 {
			debug.Outcome, debug.Detail = models.OutcomeSkipped, "no amount"
			return debug
		}
		p.fillAmounts(&rec, rest, tokens, amountIdx)
	}

	if balance != nil {
		lineLog.Trace().Str("balance", balance.Value.String()).Msg("running balance dropped")
	}

	out, err := models.NewTransactionRecord(rec, p.engine.Reconciler.Thresholds().Tolerance)
	if err != nil {
		debug.Outcome, debug.Detail = models.OutcomeInvalid, err.Error()
		lineLog.Error().Err(err).Str("outcome", string(models.OutcomeInvalid)).Msg("record failed validation")
		return debug
	}
	info.Transactions = append(info.Transactions, out)

	switch {
	case !cls.Matched:
		debug.Outcome = models.OutcomeUnclassified
		lineLog.Debug().Str("outcome", string(models.OutcomeUnclassified)).Str("text", rest).Msg("no classification rule matched")
	case out.Degraded:
		debug.Outcome, debug.Detail = models.OutcomeDegraded, out.ReviewReason
		lineLog.Info().Bool("degraded", true).Str("type", string(out.TransactionType)).Str("amount", out.Amount.String()).Msg(out.ReviewReason)
	default:
		debug.Outcome = models.OutcomeEmitted
	}
	return debug
}

// splitDate strips the leading date columns, updating the inherited date.
// A line with no date of its own inherits the previous one when it opens
// a record or carries a cents amount.
func (p *textParser) splitDate(text string, state *lineState) (string, bool) {
	layout := p.profile.Layout
	m := layout.Date.FindStringSubmatchIndex(text)
	if m == nil {
		if loc := leadingIndex.FindStringIndex(text); loc != nil {
			if m2 := layout.Date.FindStringSubmatchIndex(text[loc[1]:]); m2 != nil {
				text = text[loc[1]:]
				m = m2
			}
		}
	}

	if m == nil {
		if state.date.IsZero() || !(p.segmenter.StartsRecord(text) || decimalPattern.MatchString(text)) {
			return "", false
		}
		return text, true
	}

	date, err := p.date(text[m[2]:m[3]], state.ref)
	if err != nil {
		return "", false
	}
	state.date = date
	state.settle = nil
	if len(m) > 5 && m[4] >= 0 {
		if settle, err := p.date(text[m[4]:m[5]], state.ref); err == nil {
			state.settle = &settle
		}
	}
	return text[m[1]:], true
}

func (p *textParser) date(s string, ref time.Time) (time.Time, error) {
	d, err := parseDate(s, p.profile.Layout.DateLayouts)
	if err != nil {
		return time.Time{}, err
	}
	if p.profile.Layout.YearlessDates {
		d = withYear(d, ref)
	}
	return d, nil
}

// numbers extracts the numeric tokens of rest, dropping row/sequence numbers
// printed before the description. A realized gain/loss figure is returned
// separately and never competes for the amount.
func (p *textParser) numbers(rest string) ([]models.NumericToken, *decimal.Decimal) {
	lead := firstLetter(rest)
	gainPattern := p.profile.Layout.GainLoss

	var (
		out  []models.NumericToken
		gain *decimal.Decimal
	)
	for tok := range Numbers(rest) {
		if tok.Position < lead && tok.Value.IsInteger() && !strings.Contains(tok.RawText, ".") {
			continue
		}
		if gainPattern != nil && gainPattern.MatchString(rest[tok.End:]) {
			v := tok.Value
			gain = &v
			continue
		}
		out = append(out, tok)
	}
	return out, gain
}

// readBalances reads the account summary figures, or returns nil when the
// statement has no summary block.
func readBalances(s *SummaryLayout, text string) *models.Balances {
	if s == nil {
		return nil
	}
	i := strings.Index(text, s.Start)
	if i < 0 {
		return nil
	}
	section := text[i+len(s.Start):]
	end := -1
	for _, marker := range s.End {
		if j := strings.Index(section, marker); j >= 0 && (end < 0 || j < end) {
			end = j
		}
	}
	if end < 0 {
		return nil
	}
	section = section[:end]

	b := &models.Balances{}
	for _, f := range s.Fields {
		m := f.Pattern.FindStringSubmatch(section)
		if m == nil {
			continue
		}
		if toks := ExtractNumbers(m[1]); len(toks) > 0 {
			b.Set(f.Field, toks[0].Value)
		}
	}
	if b.IsZero() {
		return nil
	}
	return b
}

// fillSplit records a split: the share count is the first non-zero number,
// the price is always zero and no cash moves.
func (p *textParser) fillSplit(rec *models.TransactionRecord, rest string, tokens []models.NumericToken) bool {
	for _, t := range tokens {
		if t.Value.IsZero() {
			continue
		}
		qty := t.Abs()
		price := decimal.Zero
		rec.Quantity, rec.Price = &qty, &price
		rec.Amount = decimal.Zero
		rec.Symbol = p.symbol(rest, tokens)
		return true
	}
	return false
}

func (p *textParser) fillAmounts(rec *models.TransactionRecord, rest string, tokens []models.NumericToken, amountIdx int) {
	amountTok := tokens[amountIdx]
	rec.Amount = rec.TransactionType.NormalizeAmount(amountTok.Value)

	switch rec.TransactionType {
	case models.TypeFee:
		rec.Fee = rec.Amount.Abs()
	case models.TypeTax:
		rec.Tax = rec.Amount.Abs()
	}

	if rec.TransactionType.CarriesSymbol() {
		rec.Symbol = p.symbol(rest, tokens)
	}

	if !rec.TransactionType.IsTrade() && rec.TransactionType != models.TypeDividend {
		return
	}

	others := make([]models.NumericToken, 0, len(tokens))
	for i, t := range tokens {
		if i != amountIdx && !t.Value.IsZero() {
			others = append(others, t)
		}
	}

	r, ok := p.engine.Reconciler.Reconcile(others, rec.Amount)
	if !ok {
		if rec.TransactionType.IsTrade() {
			rec.Degraded = true
			rec.ReviewReason = fmt.Sprintf("no quantity/price pair within %s of amount %s",
				p.engine.Reconciler.Thresholds().Tolerance, rec.Amount.Abs())
		}
		return
	}
	rec.Quantity, rec.Price = &r.Quantity, &r.Price

	if p.profile.Layout.FeeBetween {
		pricePos := others[r.PriceIndex].Position
		for i, t := range others {
			if i == r.QuantityIndex || i == r.PriceIndex || i == r.BalanceIndex {
				continue
			}
			if t.Position > pricePos && t.Position < amountTok.Position {
				rec.Fee = t.Abs()
				break
			}
		}
	}
}

// symbol prefers the profile's symbol column and falls back to the
// position-based extractor.
func (p *textParser) symbol(rest string, tokens []models.NumericToken) *string {
	if col := p.profile.Layout.SymbolColumn; col != nil {
		if m := col.FindStringSubmatch(rest); m != nil && !p.engine.Symbols.IsStopWord(m[1]) {
			s := m[1]
			return &s
		}
	}
	if c := p.engine.Symbols.Extract(rest, tokens); c != nil {
		s := c.Text
		return &s
	}
	return nil
}
