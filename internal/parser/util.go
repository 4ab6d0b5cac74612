package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
)

// Date layouts found on broker statements.
const (
	layoutMonthDay      = "1/2"        // Schwab: 01/12
	layoutUSShortYear   = "01/02/06"   // TD Ameritrade: 12/08/22
	layoutUSLongYear    = "01/02/2006" // 12/08/2022
	layoutSlashISO      = "2006/01/02" // Cathay: 2024/01/15
	layoutISO           = "2006-01-02"
	layoutMonthNameLong = "January 2, 2006"
)

// fileDatePattern finds the YYYY-MM-DD stamp brokers put in download names.
var fileDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// parseDate tries each layout in order.
func parseDate(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// withYear places a year-less date in the year of ref, rolling back one
// year when that would put it after ref. A January statement listing
// "12/30" therefore lands in the previous December.
func withYear(d, ref time.Time) time.Time {
	t := time.Date(ref.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	if t.After(ref) {
		t = t.AddDate(-1, 0, 0)
	}
	return t
}

// DateHintFromName returns the YYYY-MM-DD date embedded in a file name.
func DateHintFromName(name string) (time.Time, bool) {
	m := fileDatePattern.FindString(name)
	if m == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(layoutISO, m)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func containsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, needle := range needles {
		if needle != "" && strings.Contains(lower, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}

// firstLetter returns the byte offset of the first letter in s, or len(s).
func firstLetter(s string) int {
	for i, r := range s {
		if unicode.IsLetter(r) {
			return i
		}
	}
	return len(s)
}

// amountToken returns the index of the last non-zero token, or -1.
func amountToken(tokens []models.NumericToken) int {
	for i := len(tokens) - 1; i >= 0; i-- {
		if !tokens[i].Value.IsZero() {
			return i
		}
	}
	return -1
}
