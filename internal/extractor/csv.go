package extractor

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// summaryMarker starts the filter summary row some exports put above the header.
const summaryMarker = "根據您篩選的結果"

// ReadCSV reads a statement export and returns its header and data rows.
// A UTF-8 byte order mark is dropped, Big5 input is decoded, and a leading
// filter summary row is skipped. Blank rows are dropped.
func ReadCSV(r io.Reader) ([]string, [][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	text, err := decode(raw)
	if err != nil {
		return nil, nil, err
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing CSV: %w", err)
	}

	var header []string
	var rows [][]string
	for _, rec := range records {
		if blankRow(rec) {
			continue
		}
		if header == nil {
			if strings.HasPrefix(strings.TrimSpace(rec[0]), summaryMarker) {
				continue
			}
			header = trimCells(rec)
			continue
		}
		rows = append(rows, trimCells(rec))
	}
	if header == nil {
		return nil, nil, errors.New("CSV has no header row")
	}
	return header, rows, nil
}

// decode returns raw as UTF-8 without a byte order mark. Input that is not
// valid UTF-8 is taken to be Big5.
func decode(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), traditionalchinese.Big5.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("decoding Big5: %w", err)
	}
	return string(out), nil
}

func blankRow(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimCells(rec []string) []string {
	out := make([]string, len(rec))
	for i, c := range rec {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
