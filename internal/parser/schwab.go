package parser

import (
	"fmt"
	"regexp"
	"time"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
)

// Schwab brokerage statements (post-merger layout).
//
// Transaction Details rows look like:
//
//	Date  Category  Action  Symbol/CUSIP  Description  Quantity  Price  Charges  Amount  Realized Gain/(Loss)
//	01/12 Sale META META PLATFORMS INC (45.0000) 536.6201 0.01 24,147.89 13,122.89,(LT)
//
// Dates carry no year; the year comes from the statement period. The issuer
// name often wraps, pushing the numeric columns onto the next line.

var schwabPeriodPattern = regexp.MustCompile(`Statement Period[\s\S]{0,80}?([A-Z][a-z]+)\s+\d{1,2}(?:,\s*\d{4})?\s*-\s*(?:([A-Z][a-z]+)\s+)?(\d{1,2}),\s*(\d{4})`)

var schwabProfile = &Profile{
	Broker:   models.BrokerSchwab,
	Name:     "Charles Schwab",
	Currency: "USD",
	Rules:    usBrokerRules,

	RecordStart: regexp.MustCompile(`^(?:\d{1,2}/\d{1,2}\s|(?:Deposit|Withdrawal|Interest|Dividend|Sale|Purchase|Buy|Reinvest|Expense|Journal|Qualified)\b)`),
	Tails: append([]*regexp.Regexp{
		// realized gain/loss wrapped onto its own line
		regexp.MustCompile(`^\(?[\d,]+\.\d+\)?,?\s*\((?:ST|LT)\)$`),
		regexp.MustCompile(`^,?\s*\((?:ST|LT)\)$`),
	}, DefaultTails...),
	Continuation: DefaultContinuations,

	SectionStart:  []string{"Transaction Details"},
	SectionEnd:    []string{"Total Transactions"},
	SkipLines:     []string{"date category action", "symbol/cusip", "realized gain", "industry fee", "transaction details (continued)"},
	DetectMarkers: []string{"Charles Schwab", "Schwab One", "schwab.com", "Schwab & Co"},

	Layout: Layout{
		Date:          regexp.MustCompile(`^(\d{1,2}/\d{1,2})\s+`),
		DateLayouts:   []string{layoutMonthDay},
		YearlessDates: true,
		GainLoss:      regexp.MustCompile(`^\s*,?\s*\((?:ST|LT)\)`),
		FeeBetween:    true,
		SymbolColumn:  regexp.MustCompile(`^(?:[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\s+)?([A-Z]{1,6})\b`),
		AccountID:     regexp.MustCompile(`\b(\d{4}-\d{4})\b`),
		AccountHolder: regexp.MustCompile(`Account Number\s+Statement Period\s*([A-Z][A-Z ]+?)\s+\d{4}-\d{4}`),
		StatementDate: schwabStatementDate,
		Summary: &SummaryLayout{
			Start: "Account Summary",
			End:   []string{"Transaction Details", "Manage Your Account"},
			Fields: []SummaryField{
				{models.BalanceBeginning, regexp.MustCompile(`Beginning Account Value.*?\$\s*(\(?[\d,]+(?:\.\d+)?\)?)`)},
				{models.BalanceEnding, regexp.MustCompile(`Ending Account Value.*?\$\s*(\(?[\d,]+(?:\.\d+)?\)?)`)},
				{models.BalanceDeposits, regexp.MustCompile(`Deposits\s*(\(?[\d,]+(?:\.\d+)?\)?)`)},
				{models.BalanceWithdrawals, regexp.MustCompile(`Withdrawals\s*(\(?[\d,]+(?:\.\d+)?\)?)`)},
			},
		},
	},
}

// schwabStatementDate reads the period end from "Statement Period January 1-31, 2024"
// or "Statement Period December 1, 2023 - January 31, 2024" style headers.
func schwabStatementDate(text string) (time.Time, bool) {
	m := schwabPeriodPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	month := m[1]
	if m[2] != "" {
		month = m[2]
	}
	t, err := time.Parse(layoutMonthNameLong, fmt.Sprintf("%s %s, %s", month, m[3], m[4]))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
