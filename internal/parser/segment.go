package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
)

// SegmentState is the state of the continuation merger between two physical lines.
type SegmentState int

const (
	// AwaitingNewRecord: the pending record looks complete; only a
	// continuation-shaped line is merged into it.
	AwaitingNewRecord SegmentState = iota
	// AccumulatingContinuation: the pending record is missing its numeric
	// fields, so the next line that does not start a record is merged.
	AccumulatingContinuation
)

func (s SegmentState) String() string {
	if s == AccumulatingContinuation {
		return "accumulating"
	}
	return "awaiting"
}

// SegmentAction is what the merger does with one physical line.
type SegmentAction int

const (
	StartRecord SegmentAction = iota
	MergeIntoPending
)

var (
	// decimalPattern marks a record as carrying its amount fields.
	decimalPattern = regexp.MustCompile(`\d\.\d`)

	// A line that is nothing but a number, e.g. "1,995.90".
	bareDecimalTail = regexp.MustCompile(`^\(?\d[\d,]*\.\d+\)?$`)
	// Issuer name wrapped from the previous line: "VANGUARD SMALL CP ETF 1".
	companyContinuation = regexp.MustCompile(`^[A-Z][A-Z&.'\-]*(?:\s+[A-Z][A-Z&.'\-]*)*\s+\(?\d`)
)

// DefaultTails are figures that belong to the record above them even when
// that record already has its amount.
var DefaultTails = []*regexp.Regexp{bareDecimalTail}

// DefaultContinuations are the wrapped-text shapes shared by every text broker.
var DefaultContinuations = []*regexp.Regexp{companyContinuation}

// Segmenter reassembles logical records from physical statement lines.
type Segmenter struct {
	RecordStart *regexp.Regexp
	// Tails are merged into any pending record.
	Tails []*regexp.Regexp
	// Continuation shapes are merged into a complete record only when they
	// carry no amount of their own.
	Continuation []*regexp.Regexp
}

// StartsRecord reports whether line opens a new transaction record.
func (s *Segmenter) StartsRecord(line string) bool {
	return s.RecordStart != nil && s.RecordStart.MatchString(line)
}

// IsTail reports whether line is a trailing figure of the record above it.
func (s *Segmenter) IsTail(line string) bool {
	return matchesAny(s.Tails, line)
}

// IsContinuation reports whether line has the shape of wrapped record text.
func (s *Segmenter) IsContinuation(line string) bool {
	return matchesAny(s.Continuation, line)
}

func matchesAny(res []*regexp.Regexp, line string) bool {
	for _, re := range res {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Decide returns the action for line given the current state. An undated
// line that is neither a tail nor amount-free wrapped text starts its own
// record.
func (s *Segmenter) Decide(state SegmentState, hasPending bool, line string) SegmentAction {
	switch {
	case !hasPending:
		return StartRecord
	case s.StartsRecord(line):
		return StartRecord
	case state == AccumulatingContinuation:
		return MergeIntoPending
	case s.IsTail(line):
		return MergeIntoPending
	case s.IsContinuation(line) && !decimalPattern.MatchString(line):
		return MergeIntoPending
	default:
		return StartRecord
	}
}

// stateAfter returns the state following a record whose text is now text.
func stateAfter(text string) SegmentState {
	if decimalPattern.MatchString(text) {
		return AwaitingNewRecord
	}
	return AccumulatingContinuation
}

// Segment merges lines into logical records. Blank lines are dropped and
// runs of whitespace collapse to one space, so segmenting a single
// already-merged line returns it unchanged.
func (s *Segmenter) Segment(lines []models.RawStatementLine) []models.LogicalLine {
	var (
		out     []models.LogicalLine
		pending *models.LogicalLine
		state   = AwaitingNewRecord
	)

	flush := func() {
		if pending != nil {
			out = append(out, *pending)
			pending = nil
		}
	}

	for _, raw := range lines {
		text := collapseSpaces(raw.Text)
		if text == "" {
			continue
		}

		switch s.Decide(state, pending != nil, text) {
		case StartRecord:
			flush()
			pending = &models.LogicalLine{Text: text, Refs: []models.LineRef{raw.Ref}}
		case MergeIntoPending:
			pending.Text += " " + text
			pending.Refs = append(pending.Refs, raw.Ref)
		}
		state = stateAfter(pending.Text)
	}
	flush()

	return out
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
