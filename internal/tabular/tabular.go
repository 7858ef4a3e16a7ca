// Package tabular reads and writes the flat tables exchanged with users:
// comma-separated text and single-sheet spreadsheets. Both carry a mandatory
// header row and no index column. On read every cell is returned as text, so
// values like "007" or "1e3" reach the caller exactly as typed.
package tabular

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Format is a supported file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ErrEmpty is returned when an input has no header row.
var ErrEmpty = errors.New("tabular: input has no header row")

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "text/csv":
		return CSV, nil
	case "xlsx", "excel":
		return XLSX, nil
	}
	return "", fmt.Errorf("tabular: unsupported format %q (want csv or xlsx)", s)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("tabular: cannot infer format of %q", path)
	}
	return ParseFormat(ext)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Table is a header plus data rows. Row cells line up with Columns; readers
// pad short rows with empty strings.
type Table struct {
	Columns []string
	Rows    [][]any
	// Lines holds the 1-based source line (CSV) or sheet row (XLSX) of each
	// row. Tables built in code leave it nil.
	Lines []int
}

// Line returns the source line of row i. Without recorded lines the header
// is assumed to be line 1 with one line per row after it.
func (t *Table) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Read parses r in the given format.
func Read(r io.Reader, f Format) (*Table, error) {
	switch f {
	case CSV:
		return readCSV(r)
	case XLSX:
		return readXLSX(r)
	}
	return nil, fmt.Errorf("tabular.Read: unsupported format %q", f)
}

// Write encodes t to w in the given format.
func Write(w io.Writer, f Format, t *Table) error {
	switch f {
	case CSV:
		return writeCSV(w, t)
	case XLSX:
		return writeXLSX(w, t)
	}
	return fmt.Errorf("tabular.Write: unsupported format %q", f)
}

// Text renders a cell value the way it is written to CSV.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// fromRecords builds a table from text records, the first being the header.
// lines[i] is the source line of records[i]. Blank header cells are kept so
// positions stay aligned.
func fromRecords(records [][]string, lines []int) (*Table, error) {
	if len(records) == 0 || isBlank(records[0]) {
		return nil, ErrEmpty
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	t := &Table{Columns: header}
	for i, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		t.Lines = append(t.Lines, lines[i+1])
		row := make([]any, len(header))
		for i := range row {
			if i < len(rec) {
				row[i] = rec[i]
			} else {
				row[i] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
