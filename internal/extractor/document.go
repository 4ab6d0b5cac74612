package extractor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for files that are neither PDF nor CSV.
var ErrUnsupportedFormat = errors.New("unsupported statement format")

// Document is the extracted content of one statement file. PDF sources
// fill Pages; CSV sources fill Header and Rows.
type Document struct {
	Path   string
	Pages  []string
	Header []string
	Rows   [][]string
}

// IsTabular reports whether the document came from a CSV export.
func (d *Document) IsTabular() bool {
	return d.Header != nil
}

// Text returns the page text joined with newlines, or the CSV rows as
// comma-joined lines. It is used for broker detection.
func (d *Document) Text() string {
	if !d.IsTabular() {
		return strings.Join(d.Pages, "\n")
	}
	lines := make([]string, 0, len(d.Rows)+1)
	lines = append(lines, strings.Join(d.Header, ","))
	for _, row := range d.Rows {
		lines = append(lines, strings.Join(row, ","))
	}
	return strings.Join(lines, "\n")
}

// Load extracts a statement file, dispatching on its extension.
func Load(path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err := ExtractText(path)
		if err != nil {
			return nil, err
		}
		return &Document{Path: path, Pages: pages}, nil
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		header, rows, err := ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return &Document{Path: path, Header: header, Rows: rows}, nil
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}
}

// IsStatementFile reports whether Load can handle path.
func IsStatementFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".csv":
		return true
	}
	return false
}
