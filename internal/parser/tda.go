package parser

import (
	"regexp"
	"time"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
)

// TD Ameritrade statements (legacy, pre-merger).
//
// Account Activity rows carry trade and settle dates, the account type and a
// running balance:
//
//	12/08/22 12/08/22 Cash Div/Int - Income MICROSOFT CORP MSFT - $ 0.00 $ 136.23 117,922.94

var tdaPeriodPattern = regexp.MustCompile(`(\d{2}/\d{2}/\d{2,4})\s*-\s*(\d{2}/\d{2}/\d{2,4})`)

var tdaProfile = &Profile{
	Broker:   models.BrokerTDA,
	Name:     "TD Ameritrade",
	Currency: "USD",
	Rules:    tdaRules,

	RecordStart:  regexp.MustCompile(`^\d{2}/\d{2}/\d{2}\s`),
	Tails:        DefaultTails,
	Continuation: DefaultContinuations,

	SectionStart: []string{"Opening Balance"},
	SectionEnd: []string{
		"Closing Balance",
		"Terms and Conditions",
		"Accuracy of Reports",
		"TD Ameritrade does not provide",
	},
	SkipLines:     []string{"trade date", "settle date", "acct type", "account activity"},
	DetectMarkers: []string{"TD Ameritrade", "tdameritrade.com"},

	Layout: Layout{
		Date:            regexp.MustCompile(`^(\d{2}/\d{2}/\d{2})\s+(?:(\d{2}/\d{2}/\d{2})\s+)?`),
		DateLayouts:     []string{layoutUSShortYear, layoutUSLongYear},
		AccountColumn:   regexp.MustCompile(`^(?:Cash|Margin|Short)\s+`),
		TrailingBalance: true,
		AccountID:       regexp.MustCompile(`\b(\d{3}-\d{6})\b`),
		StatementDate:   tdaStatementDate,
		Summary: &SummaryLayout{
			Start: "Portfolio Summary",
			End:   []string{"Account Activity", "Margin Information"},
			Fields: []SummaryField{
				{models.BalanceCash, regexp.MustCompile(`Cash\s+\$\s*([\d,]+(?:\.\d+)?)`)},
				// market value is the fourth figure of the Stocks row
				{models.BalanceInvestments, regexp.MustCompile(`Stocks(?:\s+\S+){3}\s+\$?\s*([\d,]+(?:\.\d+)?)`)},
				{models.BalanceEnding, regexp.MustCompile(`Total\s+\$\s*([\d,]+(?:\.\d+)?)`)},
			},
		},
	},
}

// tdaStatementDate reads the end of "Statement Reporting Period: 12/01/22 - 12/31/22".
func tdaStatementDate(text string) (time.Time, bool) {
	m := tdaPeriodPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	t, err := parseDate(m[2], []string{layoutUSShortYear, layoutUSLongYear})
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
