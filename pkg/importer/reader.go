// Package importer reads CRM exports (CSV or XLSX), standardizes them onto
// the people/company import shape and writes data quality reports.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/adrata/backend/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a header row plus data rows. Rows may be shorter than Headers.
type Table struct {
	Headers []string
	Rows    [][]string
}

func (t *Table) Len() int { return len(t.Rows) }

// Column returns the index of a header, ignoring case and spacing, or -1.
func (t *Table) Column(name string) int {
	want := headerKey(name)
	for i, h := range t.Headers {
		if headerKey(h) == want {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed value at row/col, "" when out of range.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func headerKey(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}

// ReadCSV parses a CSV export. The reader tolerates stray quotes and ragged
// rows, and strips a UTF-8 byte order mark.
func ReadCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return tableFromRecords(records)
}

// ReadXLSX reads one sheet of a workbook; the first sheet when sheet is empty.
func ReadXLSX(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, apperrors.NewValidationError("sheet", "workbook has no sheets")
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, apperrors.NewValidationError("sheet", fmt.Sprintf("sheet %q not found", sheet))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return tableFromRecords(rows)
}

// Read picks the CSV or XLSX reader from the file extension.
func Read(path, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, sheet)
	case ".csv", ".txt", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f)
	default:
		return nil, apperrors.NewValidationError("file", "unsupported file type "+filepath.Ext(path))
	}
}

// CountRows returns the number of data rows, header excluded.
func CountRows(path string) (int, error) {
	t, err := Read(path, "")
	if err != nil {
		return 0, err
	}
	return t.Len(), nil
}

func tableFromRecords(records [][]string) (*Table, error) {
	// leading blank rows are common in hand-edited exports
	for len(records) > 0 && blankRow(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, apperrors.NewValidationError("file", "no header row")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	t := &Table{Headers: headers}
	for _, rec := range records[1:] {
		if blankRow(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func blankRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
