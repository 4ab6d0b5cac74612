package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
)

var (
	// ErrNoTransactionLines means no transaction line could be found in a
	// statement, usually because the wrong broker was assumed or the text
	// extraction was corrupt.
	ErrNoTransactionLines = errors.New("no transaction lines found")
	// ErrUnknownBroker means the broker could not be identified.
	ErrUnknownBroker = errors.New("could not identify broker")
)

// StatementError reports a statement that failed as a whole.
type StatementError struct {
	Broker      models.BrokerType
	StatementID string
	Err         error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s statement %s: %v", e.Broker, e.StatementID, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Statement is the parser input: the lines of one statement plus what is
// known about it from outside the text.
type Statement struct {
	ID     string
	Path   string
	Broker models.BrokerType
	Lines  []models.RawStatementLine
	// DateHint is a statement date taken from the file name, used when the
	// text carries none.
	DateHint time.Time
}

// Parser turns one statement into transaction records.
type Parser interface {
	Parse(st Statement) (*models.StatementInfo, error)
	// BrokerName returns the human-readable broker name.
	BrokerName() string
}

// New returns the parser for broker.
func New(broker models.BrokerType, engine *Engine) (Parser, error) {
	profile, ok := Profiles[broker]
	if !ok {
		return nil, fmt.Errorf("unsupported broker %q: %w", broker, ErrUnknownBroker)
	}
	if engine == nil {
		engine = DefaultEngine()
	}
	cls := NewClassifier(profile.Rules)
	if profile.Layout.Columns != nil {
		return &csvParser{profile: profile, engine: engine, classifier: cls}, nil
	}
	return &textParser{profile: profile, engine: engine, classifier: cls, segmenter: profile.Segmenter()}, nil
}

var filenameRules = []struct {
	pattern *regexp.Regexp
	broker  models.BrokerType
}{
	{regexp.MustCompile(`(?i)(?:^|[^a-z])tda(?:[^a-z]|$)|td ?ameritrade`), models.BrokerTDA},
	{regexp.MustCompile(`(?i)^brokerage statement_|schwab`), models.BrokerSchwab},
	{regexp.MustCompile(`(?i)\.csv$`), models.BrokerCathay},
}

// Detect identifies the broker from the file name, falling back to the
// statement text.
func Detect(path, text string) (models.BrokerType, error) {
	if b, ok := DetectFromName(path); ok {
		return b, nil
	}
	return AutoDetect(text)
}

// DetectFromName matches broker file-naming conventions.
func DetectFromName(path string) (models.BrokerType, bool) {
	name := filepath.Base(path)
	for _, r := range filenameRules {
		if r.pattern.MatchString(name) {
			return r.broker, true
		}
	}
	return "", false
}

// AutoDetect tries to identify the broker from statement content.
func AutoDetect(text string) (models.BrokerType, error) {
	// TD Ameritrade first: later TDA statements also name Schwab as the parent company.
	for _, b := range []models.BrokerType{models.BrokerTDA, models.BrokerSchwab, models.BrokerCathay} {
		if containsAny(text, Profiles[b].DetectMarkers) {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w from statement content; please pass -broker", ErrUnknownBroker)
}

// FromPages splits extracted page text into raw lines. Line numbers count
// blank lines so references match the page text.
func FromPages(statementID string, broker models.BrokerType, pages []string) []models.RawStatementLine {
	var out []models.RawStatementLine
	for p, page := range pages {
		for i, text := range strings.Split(page, "\n") {
			if strings.TrimSpace(text) == "" {
				continue
			}
			out = append(out, models.RawStatementLine{
				Ref:    models.LineRef{StatementID: statementID, Page: p + 1, Line: i + 1},
				Broker: broker,
				Text:   text,
			})
		}
	}
	return out
}

// FromRows maps CSV rows onto header names. Rows are numbered from 1 after
// the header.
func FromRows(statementID string, broker models.BrokerType, header []string, rows [][]string) []models.RawStatementLine {
	out := make([]models.RawStatementLine, 0, len(rows))
	for i, row := range rows {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[strings.TrimSpace(h)] = row[j]
			}
		}
		out = append(out, models.RawStatementLine{
			Ref:    models.LineRef{StatementID: statementID, Page: 1, Line: i + 1},
			Broker: broker,
			Text:   strings.Join(row, ","),
			Fields: fields,
		})
	}
	return out
}
