package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cathay.csv")
	require.NoError(t, os.WriteFile(path, []byte(cathayExport), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.True(t, doc.IsTabular())
	assert.Len(t, doc.Rows, 2)
	assert.True(t, strings.HasPrefix(doc.Text(), "股名,股票代號"))
}

func TestLoad_Unsupported(t *testing.T) {
	_, err := Load("statement.xlsx")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestDocument_Text(t *testing.T) {
	doc := &Document{Pages: []string{"page one", "page two"}}
	assert.False(t, doc.IsTabular())
	assert.Equal(t, "page one\npage two", doc.Text())
}

func TestIsStatementFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"Brokerage Statement_2024-01-31_088.pdf", true},
		{"export.CSV", true},
		{"notes.txt", false},
		{"pdf", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStatementFile(tt.path))
		})
	}
}

func TestIsReadableText(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{
			name:  "brokerage page",
			pages: []string{"Statement Period January 1-31, 2024\nTransaction Details\n01/16 Purchase VB 100 536.6201 (53,662.01)"},
			want:  true,
		},
		{
			name:  "too short",
			pages: []string{"Account 1234"},
			want:  false,
		},
		{
			name:  "no statement words",
			pages: []string{strings.Repeat("lorem ipsum dolor sit amet ", 5)},
			want:  false,
		},
		{
			name:  "undecoded glyphs",
			pages: []string{"account " + strings.Repeat("\x01\x02\x03\x04", 30)},
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isReadableText(tt.pages))
		})
	}
}

func TestTotalTextLen(t *testing.T) {
	assert.Equal(t, 6, totalTextLen([]string{"  abc ", "\n", "def"}))
}

func TestReadPages(t *testing.T) {
	tests := []struct {
		name   string
		failed map[int]bool
		want   []string
	}{
		{"all pages render", nil, []string{"page 1", "page 2", "page 3"}},
		{"failed page keeps its slot", map[int]bool{2: true}, []string{"page 1", "", "page 3"}},
		{"failed first page", map[int]bool{1: true}, []string{"", "page 2", "page 3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readPages(3, func(page int) (string, error) {
				if tt.failed[page] {
					return "", errors.New("render failed")
				}
				return "page " + strconv.Itoa(page) + "\n\f", nil
			})
			assert.Equal(t, tt.want, got)
		})
	}
}
