// Package csvsource turns uploaded bytes into raw rows for the normalizer.
package csvsource

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"review_pulse/internal/domain"
)

//go:embed sample_reviews.csv
var sampleCSV []byte

//go:embed demo_reviews.csv
var demoCSV []byte

// Sample is the downloadable template offered next to the upload form.
func Sample() []byte { return bytes.Clone(sampleCSV) }

// Demo returns the built-in multi-listing collection.
func Demo() ([]domain.RawRow, error) { return Parse(bytes.NewReader(demoCSV)) }

var csvTypes = []string{"text/csv", "application/csv", "application/vnd.ms-excel", "text/comma-separated-values"}

// LooksLikeCSV accepts a .csv file name or a CSV-ish content type.
func LooksLikeCSV(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, t := range csvTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// Parse reads a header-first CSV. Header names are trimmed, blank lines are
// skipped and short rows are padded with empty values.
func Parse(r io.Reader) ([]domain.RawRow, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	text, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []domain.RawRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		rows = append(rows, domain.NewRawRow(header, rec))
	}
	if len(rows) == 0 {
		return nil, domain.ErrNoRows
	}
	return rows, nil
}

func blank(rec []string) bool {
	return len(rec) == 1 && strings.TrimSpace(rec[0]) == ""
}

// decode strips a BOM (and honors UTF-16 ones); bytes that are not UTF-8 are
// read as Windows-1252, which is what spreadsheet exports usually produce.
func decode(b []byte) ([]byte, error) {
	var dec transform.Transformer
	if utf8.Valid(b) || hasUTF16BOM(b) {
		dec = unicode.BOMOverride(unicode.UTF8.NewDecoder())
	} else {
		dec = charmap.Windows1252.NewDecoder()
	}
	out, _, err := transform.Bytes(dec, b)
	return out, err
}

func hasUTF16BOM(b []byte) bool {
	return bytes.HasPrefix(b, []byte{0xFE, 0xFF}) || bytes.HasPrefix(b, []byte{0xFF, 0xFE})
}
