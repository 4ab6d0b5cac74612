package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
)

var symbolWordPattern = regexp.MustCompile(`\b[A-Z]{1,6}\b`)

// DefaultStopWords are uppercase words that look like tickers but never are:
// corporate suffixes, transaction verbs, fund-name fragments and statement
// vocabulary.
var DefaultStopWords = []string{
	// corporate suffixes
	"INC", "CORP", "CO", "COS", "COMPANY", "LLC", "LTD", "LP", "PLC", "SA", "NV", "AG", "SE",
	"COM", "CL", "CLASS", "A", "B", "ADR", "ADS", "SPON", "SPONS", "ORD", "SHS", "SH", "NEW",
	"HLDGS", "HLDG", "HOLDING", "GROUP", "GRP", "INTL", "PFD", "UNIT", "UNITS", "TR", "TRUST",
	// fund-name fragments
	"ETF", "FUND", "FDS", "INDEX", "SMALL", "MID", "LARGE", "CAP", "TOTAL", "MARKET", "MKT",
	"STOCK", "STK", "BOND", "EQUITY", "GROWTH", "VALUE", "INCOME", "WORLD", "ALL",
	// transaction vocabulary
	"BUY", "SELL", "SOLD", "BOUGHT", "SALE", "PURCHASE", "FEE", "FEES", "ON", "FOR", "OF",
	"THE", "AND", "TO", "FROM", "IN", "AT", "BY", "SHARES", "SHARE", "DIV", "DIVIDEND",
	"INT", "INTEREST", "REINVEST", "CASH", "MARGIN", "OTHER", "JOURNAL", "TAX", "NRA",
	"ADJ", "EXP", "EXPENSE", "DEBIT", "CREDIT", "DEPOSIT", "TRANSFER", "SPLIT", "FORWARD",
	"QUAL", "NON", "WITHHELD", "FOREIGN", "RECEIVED", "PAID",
	// statement and institution vocabulary
	"USD", "TWD", "NTD", "FDIC", "SIPC", "IRA", "IRS", "NYSE", "AMEX", "SCHWAB", "TDA",
	"TD", "JUNG", "CHE", "LT", "ST", "CUSIP", "NA", "US", "USA", "ACH", "ATM", "WIRE",
	"EFT", "PAGE", "BANK", "PO", "BOX", "TFRD", "REIT",
}

// SymbolExtractor picks the most plausible ticker from a line.
type SymbolExtractor struct {
	stop map[string]struct{}
}

// NewSymbolExtractor returns an extractor that ignores the given stop words.
func NewSymbolExtractor(stopWords []string) *SymbolExtractor {
	stop := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		stop[strings.ToUpper(strings.TrimSpace(w))] = struct{}{}
	}
	return &SymbolExtractor{stop: stop}
}

// IsStopWord reports whether w is excluded from symbol candidates.
func (x *SymbolExtractor) IsStopWord(w string) bool {
	_, ok := x.stop[strings.ToUpper(w)]
	return ok
}

// Candidates lists every ticker-shaped word in line, split around the
// position of the first numeric token.
func (x *SymbolExtractor) Candidates(line string, tokens []models.NumericToken) []models.SymbolCandidate {
	boundary := len(line)
	if len(tokens) > 0 {
		boundary = tokens[0].Position
	}

	var out []models.SymbolCandidate
	for _, loc := range symbolWordPattern.FindAllStringIndex(line, -1) {
		word := line[loc[0]:loc[1]]
		if x.IsStopWord(word) || joinedWord(line, loc[0], loc[1]) {
			continue
		}
		out = append(out, models.SymbolCandidate{
			Text:                word,
			Position:            loc[0],
			IsBeforeFirstNumber: loc[0] < boundary,
		})
	}
	return out
}

// Extract returns the best candidate, or nil when the line has none.
// A candidate before the first number wins over one after it; within a
// side, the candidate nearest the first number wins.
func (x *SymbolExtractor) Extract(line string, tokens []models.NumericToken) *models.SymbolCandidate {
	var before, after *models.SymbolCandidate
	for _, c := range x.Candidates(line, tokens) {
		c := c
		if c.IsBeforeFirstNumber {
			before = &c
		} else if after == nil {
			after = &c
		}
	}
	if before != nil {
		return before
	}
	return after
}

// joinedWord reports whether the word at [start,end) is part of a larger
// token such as "S&P" or "MCDONALD'S".
func joinedWord(line string, start, end int) bool {
	joiners := "&'/"
	if start > 0 && strings.IndexByte(joiners, line[start-1]) >= 0 {
		return true
	}
	if end < len(line) && strings.IndexByte(joiners, line[end]) >= 0 {
		return true
	}
	return false
}
