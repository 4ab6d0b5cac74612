package parser

import (
	"regexp"
	"time"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
)

// Profile describes one broker's statement format. Supporting a new broker
// means writing a new Profile; the parsing algorithm is shared.
type Profile struct {
	Broker   models.BrokerType
	Name     string
	Currency string

	// Rules is the ordered classification table.
	Rules []Rule

	// RecordStart matches the first line of a transaction record.
	RecordStart *regexp.Regexp
	// Tails are trailing figures merged into the record above them.
	Tails []*regexp.Regexp
	// Continuation lists the shapes of wrapped record text.
	Continuation []*regexp.Regexp

	// Transactions are read only between a SectionStart line and the next
	// SectionEnd line. With no start marker in the text, every line is read.
	SectionStart []string
	SectionEnd   []string
	// SkipLines drops column headers and similar rows (case-insensitive).
	SkipLines []string

	// DetectMarkers identify the broker from statement content.
	DetectMarkers []string

	Layout Layout
}

// Layout holds the positional conventions of a broker's transaction lines.
type Layout struct {
	// Date matches the leading date column. Group 1 is the trade date and
	// the optional group 2 the settlement date.
	Date        *regexp.Regexp
	DateLayouts []string
	// YearlessDates resolves MM/DD dates against the statement date.
	YearlessDates bool

	// AccountColumn matches a leading account-type column ("Cash", "Margin").
	AccountColumn *regexp.Regexp
	// TrailingBalance drops the last number on a line as a running balance.
	TrailingBalance bool
	// GainLoss matches the text following a realized gain/loss figure; such
	// figures are never the amount.
	GainLoss *regexp.Regexp
	// FeeBetween treats a number printed between price and amount as charges.
	FeeBetween bool
	// SymbolColumn captures the symbol from a fixed column when present.
	SymbolColumn *regexp.Regexp

	AccountID     *regexp.Regexp
	AccountHolder *regexp.Regexp
	StatementDate func(text string) (time.Time, bool)
	// Summary locates the account balances block.
	Summary *SummaryLayout

	// CSV layouts name the row columns instead.
	Columns *Columns
}

// SummaryLayout locates a statement's account summary: the text after
// Start up to the first End marker. Each field pattern captures its figure
// in group 1.
type SummaryLayout struct {
	Start  string
	End    []string
	Fields []SummaryField
}

// SummaryField reads one balance figure.
type SummaryField struct {
	Field   models.BalanceField
	Pattern *regexp.Regexp
}

// Columns maps record fields to CSV header names.
type Columns struct {
	Date     string
	Name     string
	Symbol   string
	Side     string
	Quantity string
	Price    string
	Cost     string
	Fee      string
	Tax      string
	Net      string
	OrderID  string
}

// Segmenter returns the continuation merger for p.
func (p *Profile) Segmenter() *Segmenter {
	return &Segmenter{RecordStart: p.RecordStart, Tails: p.Tails, Continuation: p.Continuation}
}

// Profiles lists every supported broker format.
var Profiles = map[models.BrokerType]*Profile{
	models.BrokerSchwab: schwabProfile,
	models.BrokerTDA:    tdaProfile,
	models.BrokerCathay: cathayProfile,
}

// scope returns the lines inside the profile's transaction sections with
// header rows removed.
func (p *Profile) scope(lines []models.RawStatementLine) []models.RawStatementLine {
	hasStart := false
	if len(p.SectionStart) > 0 {
		for _, l := range lines {
			if containsAny(l.Text, p.SectionStart) {
				hasStart = true
				break
			}
		}
	}

	var out []models.RawStatementLine
	inside := !hasStart
	for _, l := range lines {
		switch {
		case hasStart && containsAny(l.Text, p.SectionStart):
			inside = true
			continue
		case containsAny(l.Text, p.SectionEnd):
			if hasStart {
				inside = false
			}
			continue
		}
		if !inside || containsAny(l.Text, p.SkipLines) {
			continue
		}
		out = append(out, l)
	}
	return out
}
