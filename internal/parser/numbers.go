package parser

import (
	"iter"
	"regexp"
	"slices"
	"strings"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
	"github.com/shopspring/decimal"
)

// numberPattern matches, in priority order, a parenthesized amount and a
// plain digit/comma group with an optional fractional part. Trailing-dash
// and lookaround rules are applied by scanNumbers because RE2 has no
// lookaround.
var numberPattern = regexp.MustCompile(`\(\s*(\d[\d,]*(?:\.\d+)?)\s*\)|(\d[\d,]*(?:\.\d+)?)`)

// Numbers yields the numeric tokens of line from left to right. The sequence
// holds no state between calls, so it can be ranged over more than once.
func Numbers(line string) iter.Seq[models.NumericToken] {
	return func(yield func(models.NumericToken) bool) {
		for _, m := range numberPattern.FindAllStringSubmatchIndex(line, -1) {
			tok, ok := tokenAt(line, m)
			if !ok {
				continue
			}
			if !yield(tok) {
				return
			}
		}
	}
}

// ExtractNumbers collects Numbers(line) into a slice.
func ExtractNumbers(line string) []models.NumericToken {
	return slices.Collect(Numbers(line))
}

func tokenAt(line string, m []int) (models.NumericToken, bool) {
	start, end := m[0], m[1]

	// Glued to a word on the left, e.g. "W8BEN" or "SCHWAB1".
	if start > 0 && isLetter(line[start-1]) {
		return models.NumericToken{}, false
	}

	if m[2] >= 0 {
		digits := strings.TrimRight(line[m[2]:m[3]], ",")
		v, err := parseDigits(digits)
		if err != nil {
			return models.NumericToken{}, false
		}
		return models.NumericToken{
			RawText:    line[start:end],
			Value:      v.Neg(),
			IsNegative: !v.IsZero(),
			HadParens:  true,
			Position:   start,
			End:        end,
		}, true
	}

	digits := line[m[4]:m[5]]
	trimmed := strings.TrimRight(digits, ",")
	end -= len(digits) - len(trimmed)
	digits = trimmed

	v, err := parseDigits(digits)
	if err != nil {
		return models.NumericToken{}, false
	}
	tok := models.NumericToken{
		RawText:  digits,
		Value:    v,
		Position: start,
		End:      end,
	}

	// Trailing dash not followed by another digit: "59-".
	if end < len(line) && line[end] == '-' && (end+1 == len(line) || !isDigit(line[end+1])) {
		tok.RawText = line[start : end+1]
		tok.End = end + 1
		tok.HadTrailingDash = true
		tok.Value = v.Neg()
		tok.IsNegative = !v.IsZero()
		return tok, true
	}

	// A bare integer must not touch a decimal point on either side.
	if !strings.Contains(digits, ".") {
		if (start > 0 && line[start-1] == '.') || (end < len(line) && line[end] == '.') {
			return models.NumericToken{}, false
		}
	}

	// Leading minus sign, only when it stands alone: "-25.99", "$-25.99".
	// A dash between digits ("800-515") is a separator, not a sign.
	if start > 0 && line[start-1] == '-' && (start == 1 || line[start-2] == ' ' || line[start-2] == '$' || line[start-2] == '\t') {
		tok.RawText = line[start-1 : end]
		tok.Position = start - 1
		tok.Value = v.Neg()
		tok.IsNegative = !v.IsZero()
	}

	return tok, true
}

func parseDigits(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
