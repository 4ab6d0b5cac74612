package extractor

import (
	"fmt"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ExtractText reads a PDF file and returns the text of each page.
// The ledongthuc/pdf library is tried first; when it fails or yields
// unreadable text, the external pdftotext command (poppler-utils) is used.
func ExtractText(filePath string) ([]string, error) {
	pages, libErr := extractWithLibrary(filePath)
	if libErr == nil && isReadableText(pages) {
		return pages, nil
	}

	popplerPages, popplerErr := extractWithPdftotext(filePath)
	if popplerErr == nil && isReadableText(popplerPages) {
		return popplerPages, nil
	}

	if libErr != nil {
		return nil, fmt.Errorf("PDF text extraction failed: %w (pdftotext: %v)", libErr, popplerErr)
	}
	return nil, fmt.Errorf("no readable text could be extracted from %s; the statement may be a scanned image", filePath)
}

// textQuality returns the share of characters that are letters, digits,
// whitespace or the punctuation found on statements.
func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune(".,-/:;()'\"$%&@#!?+=*", r)) {
				readable++
			} else if unicode.Is(unicode.Han, r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// statementWords appear on every brokerage statement; text with none of
// them is garbage from an undecodable font.
var statementWords = []string{
	"account", "balance", "statement", "period", "total", "amount",
	"transaction", "activity", "date", "quantity", "price", "cash",
	"page", "symbol", "dividend",
}

func containsStatementWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range statementWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText requires more than 50 characters, over 60% of them
// readable, and at least one statement word.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsStatementWords(pages)
}

// PageCount returns the number of pages in a PDF without rendering it.
func PageCount(filePath string) (int, error) {
	return api.PageCountFile(filePath)
}

// extractWithPdftotext runs pdftotext page by page so page boundaries,
// and therefore line references, survive.
func extractWithPdftotext(filePath string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	numPages, err := PageCount(filePath)
	if err != nil || numPages < 1 {
		numPages = 1
	}

	pages := readPages(numPages, func(page int) (string, error) {
		n := strconv.Itoa(page)
		out, err := exec.Command("pdftotext", "-layout", "-f", n, "-l", n, filePath, "-").Output()
		return string(out), err
	})
	if totalTextLen(pages) == 0 {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return pages, nil
}

// readPages collects pages 1..n. A page that fails to render is kept as an
// empty string so later pages keep their numbers.
func readPages(n int, read func(page int) (string, error)) []string {
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		text, err := read(i)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimRight(text, "\n\f "))
	}
	return pages
}

// extractWithLibrary reads rows with ledongthuc/pdf, falling back to
// rebuilding rows from positioned text when GetTextByRow is unreadable.
func extractWithLibrary(filePath string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	pages = extractByRow(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}
	return extractByContent(r, numPages), nil
}

func extractByRow(r *pdf.Reader, numPages int) []string {
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			pages = append(pages, "")
			continue
		}
		var lines []string
		for _, row := range rows {
			parts := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// extractByContent groups positioned text by baseline and orders each row
// left to right. PDF y coordinates grow upwards.
func extractByContent(r *pdf.Reader, numPages int) []string {
	type piece struct {
		x float64
		s string
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		rows := make(map[int][]piece)
		for _, t := range page.Content().Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			y := int(math.Round(t.Y))
			rows[y] = append(rows[y], piece{x: t.X, s: t.S})
		}

		ys := make([]int, 0, len(rows))
		for y := range rows {
			ys = append(ys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(ys)))

		var lines []string
		for _, y := range ys {
			row := rows[y]
			sort.Slice(row, func(a, b int) bool { return row[a].x < row[b].x })

			var b strings.Builder
			for j, p := range row {
				// a wide gap is a column break
				if j > 0 && p.x-row[j-1].x > 15 {
					b.WriteByte(' ')
				}
				b.WriteString(p.s)
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
