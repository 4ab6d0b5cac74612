package parser

import (
	"regexp"
	"strings"
)

// DefaultDisclaimerMarkers are lowercase fragments of legal and footer text
// printed on broker statements.
var DefaultDisclaimerMarkers = []string{
	"fdic insured",
	"not fdic",
	"fdic-insured",
	"member sipc",
	"sipc",
	"not a deposit",
	"not insured",
	"may lose value",
	"not bank guaranteed",
	"no bank guarantee",
	"tax advice",
	"legal advice",
	"investment advice",
	"not a solicitation",
	"solicitation or recommendation",
	"for informational purposes",
	"terms and conditions",
	"accuracy of reports",
	"td ameritrade does not provide",
	"please review",
	"customer service",
	"call us at",
	"visit schwab.com",
	"schwab.com/",
	"tdameritrade.com",
	"past performance",
	"important disclosures",
}

// phonePattern matches North American phone numbers: "800-515-2157",
// "(800) 515-2157", "800.515-2157". The last group must be dash-separated
// so "100 536.6201" (quantity, price) is never taken for a phone number.
var phonePattern = regexp.MustCompile(`(?:\(\d{3}\)\s?|\b\d{3}[-.])\d{3}-\d{4}\b`)

// NoiseFilter recognizes disclaimer and footer lines.
type NoiseFilter struct {
	markers []string
}

func NewNoiseFilter(markers []string) *NoiseFilter {
	lower := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lower = append(lower, m)
		}
	}
	return &NoiseFilter{markers: lower}
}

// Suppress reports whether line is boilerplate, with the marker that matched.
func (f *NoiseFilter) Suppress(line string) (string, bool) {
	lower := strings.ToLower(line)
	for _, m := range f.markers {
		if strings.Contains(lower, m) {
			return m, true
		}
	}
	if loc := phonePattern.FindStringIndex(line); loc != nil {
		return "phone " + line[loc[0]:loc[1]], true
	}
	return "", false
}
