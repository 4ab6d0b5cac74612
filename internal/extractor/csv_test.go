package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/traditionalchinese"
)

const cathayExport = "\ufeff根據您篩選的結果,共 2 筆\n" +
	"股名,股票代號,日期,成交股數,成交價,成本,手續費,交易稅,淨收付金額,委託書號,買賣別\n" +
	"台積電,2330,2024/01/15,1000,580,580000,826,0,-580826,A1234,現買\n" +
	",,,,,,,,,,\n" +
	"鴻海,2317, 2024/01/16 ,2000,104.5,209000,297,627,208076,A1235,現賣\n"

func TestReadCSV(t *testing.T) {
	header, rows, err := ReadCSV(strings.NewReader(cathayExport))
	require.NoError(t, err)

	assert.Equal(t, "股名", header[0], "BOM and summary row are dropped")
	assert.Len(t, header, 11)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024/01/16", rows[1][2])
	assert.Equal(t, "現賣", rows[1][10])
}

func TestReadCSV_Big5(t *testing.T) {
	utf8Text := "股名,日期,買賣別\n台積電,2024/01/15,現買\n"
	big5, err := traditionalchinese.Big5.NewEncoder().String(utf8Text)
	require.NoError(t, err)

	header, rows, err := ReadCSV(strings.NewReader(big5))
	require.NoError(t, err)
	assert.Equal(t, []string{"股名", "日期", "買賣別"}, header)
	assert.Equal(t, [][]string{{"台積電", "2024/01/15", "現買"}}, rows)
}

func TestReadCSV_Empty(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"summary only", summaryMarker + ",x\n"},
		{"blank rows", ",,\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}
