package parser

import (
	"testing"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawLines(texts ...string) []models.RawStatementLine {
	out := make([]models.RawStatementLine, len(texts))
	for i, t := range texts {
		out[i] = models.RawStatementLine{
			Ref:  models.LineRef{StatementID: "s1", Page: 1, Line: i + 1},
			Text: t,
		}
	}
	return out
}

func TestSegmenter_Decide(t *testing.T) {
	s := schwabProfile.Segmenter()

	tests := []struct {
		name       string
		state      SegmentState
		hasPending bool
		line       string
		want       SegmentAction
	}{
		{"first line starts a record", AwaitingNewRecord, false, "(45.0000) 536.6201", StartRecord},
		{"dated line starts a record", AccumulatingContinuation, true, "01/17 Deposit Funds Received 5.00", StartRecord},
		{"keyword line starts a record", AwaitingNewRecord, true, "Interest Credit Interest 1.23", StartRecord},
		{"incomplete record takes the next line", AccumulatingContinuation, true, "(45.0000) 536.6201 0.01 24,147.89", MergeIntoPending},
		{"issuer name wrap", AwaitingNewRecord, true, "VANGUARD SMALL CP ETF 1", MergeIntoPending},
		{"uppercase row with its own amount", AwaitingNewRecord, true, "NRA TAX ADJ (3.10)", StartRecord},
		{"undated row with its own amount", AwaitingNewRecord, true, "Other Activity Foreign Tax Paid VB (6.85)", StartRecord},
		{"undated interest row", AwaitingNewRecord, true, "Credit Interest 1.23", StartRecord},
		{"bare decimal tail", AwaitingNewRecord, true, "1,995.90", MergeIntoPending},
		{"decimal inside text is not a tail", AwaitingNewRecord, true, "Fee 1,995.90", StartRecord},
		{"gain/loss wrap", AwaitingNewRecord, true, "13,122.89,(LT)", MergeIntoPending},
		{"unrelated text", AwaitingNewRecord, true, "Page 3 of 5", StartRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Decide(tt.state, tt.hasPending, tt.line)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSegmenter_Segment(t *testing.T) {
	s := schwabProfile.Segmenter()
	lines := rawLines(
		"01/12 Sale META META PLATFORMS INC",
		"(45.0000) 536.6201 0.01 24,147.89 13,122.89,(LT)",
		"",
		"01/16  Purchase VB   10.0000 199.5900 (1,995.90)",
		"VANGUARD SMALL CP ETF 1",
		"01/25 Interest Credit Interest 1.23",
	)

	got := s.Segment(lines)
	require.Len(t, got, 3)

	assert.Equal(t, "01/12 Sale META META PLATFORMS INC (45.0000) 536.6201 0.01 24,147.89 13,122.89,(LT)", got[0].Text)
	assert.Len(t, got[0].Refs, 2)
	assert.Equal(t, 2, got[0].Refs[1].Line)

	assert.Equal(t, "01/16 Purchase VB 10.0000 199.5900 (1,995.90) VANGUARD SMALL CP ETF 1", got[1].Text)
	assert.Equal(t, []int{4, 5}, []int{got[1].Refs[0].Line, got[1].Refs[1].Line})

	assert.Equal(t, "01/25 Interest Credit Interest 1.23", got[2].Text)
}

func TestSegmenter_Idempotent(t *testing.T) {
	s := schwabProfile.Segmenter()
	first := s.Segment(rawLines(
		"01/12 Sale META META PLATFORMS INC",
		"(45.0000) 536.6201 0.01 24,147.89",
		"13,122.89,(LT)",
		"01/18 Reinvest Shares VB 0.5890 407.4041 (240.12)",
	))
	require.Len(t, first, 2)

	for _, ll := range first {
		again := s.Segment(rawLines(ll.Text))
		require.Len(t, again, 1)
		assert.Equal(t, ll.Text, again[0].Text)
	}
}

func TestSegmenter_DefaultContinuations(t *testing.T) {
	s := tdaProfile.Segmenter()
	got := s.Segment(rawLines(
		"12/15/22 12/19/22 Cash Buy - Securities Purchased",
		"MICROSOFT CORP MSFT 10 245.50 $ (2,455.00) 115,467.94",
		"12/20/22 12/20/22 Cash Journal - Other $ (20.43) 115,447.51",
	))
	require.Len(t, got, 2)
	assert.Contains(t, got[0].Text, "Securities Purchased MICROSOFT CORP MSFT 10")
}

func TestSegmenter_CompleteRecordKeepsUndatedRow(t *testing.T) {
	s := schwabProfile.Segmenter()
	got := s.Segment(rawLines(
		"01/15 Dividend Qualified Dividend VB 45.67",
		"Other Activity Foreign Tax Paid VB (6.85)",
		"01/16 Purchase VB VANGUARD SMALL CP ETF 10.0000 199.5900 (1,995.90)",
	))
	require.Len(t, got, 3)
	assert.Equal(t, "01/15 Dividend Qualified Dividend VB 45.67", got[0].Text)
	assert.Equal(t, "Other Activity Foreign Tax Paid VB (6.85)", got[1].Text)
}
