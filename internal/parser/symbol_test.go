package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolExtractor_Extract(t *testing.T) {
	x := NewSymbolExtractor(DefaultStopWords)

	tests := []struct {
		name  string
		input string
		want  string // "" means no symbol
	}{
		{"before numbers beats after numbers", "Purchase VB 10.0000 199.5900 (1,995.90) VANGUARD SMALL CP ETF", "VB"},
		{"stop words only", "FEE ON 10 SHARES FOR SELL", ""},
		{"closest to first number", "ABC XYZ 10 20.00", "XYZ"},
		{"falls back to after numbers", "Reinvest 10 199.59 VB", "VB"},
		{"no numbers at all", "Dividend MSFT", "MSFT"},
		{"joined words are not tickers", "S&P 500 INDEX 12.00", ""},
		{"long words are not tickers", "MICROSOFT CORPORATION 10 1.00", ""},
		{"corporate suffix skipped", "MICROSOFT CORP MSFT 10 245.50", "MSFT"},
		{"disclaimer acronyms are stop words", "FDIC SIPC 2157", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := x.Extract(tt.input, ExtractNumbers(tt.input))
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.want, got.Text)
			}
		})
	}
}

func TestSymbolExtractor_Candidates(t *testing.T) {
	x := NewSymbolExtractor(DefaultStopWords)
	line := "Purchase VB 10.0000 199.5900 (1,995.90) SMALL CP ETF"
	cands := x.Candidates(line, ExtractNumbers(line))

	if assert.Len(t, cands, 2) {
		assert.Equal(t, "VB", cands[0].Text)
		assert.True(t, cands[0].IsBeforeFirstNumber)
		assert.Equal(t, 9, cands[0].Position)
		assert.Equal(t, "CP", cands[1].Text)
		assert.False(t, cands[1].IsBeforeFirstNumber)
	}
}

func TestSymbolExtractor_CustomStopWords(t *testing.T) {
	x := NewSymbolExtractor([]string{"xyz"})
	got := x.Extract("ABC XYZ 10", ExtractNumbers("ABC XYZ 10"))
	if assert.NotNil(t, got) {
		assert.Equal(t, "ABC", got.Text)
	}
	assert.True(t, x.IsStopWord("XYZ"))
	assert.False(t, x.IsStopWord("VB"))
}
