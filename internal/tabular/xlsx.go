package tabular

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the sheet written by exports.
const SheetName = "Sheet1"

// readXLSX reads the first sheet of a workbook. Raw cell values are used so
// number formats applied in the spreadsheet do not alter the text.
func readXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("tabular.Read: open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("tabular.Read: xlsx rows: %w", err)
	}
	// GetRows keeps empty rows, so the index is the sheet row.
	lines := make([]int, len(records))
	for i := range lines {
		lines[i] = i + 1
	}
	return fromRecords(records, lines)
}

func writeXLSX(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("tabular.Write: xlsx header: %w", err)
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("tabular.Write: xlsx row %d: %w", i+1, err)
		}
		vals := make([]any, len(t.Columns))
		for j := range vals {
			vals[j] = ""
			if j < len(row) && row[j] != nil {
				vals[j] = row[j]
			}
		}
		if err := f.SetSheetRow(SheetName, cell, &vals); err != nil {
			return fmt.Errorf("tabular.Write: xlsx row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("tabular.Write: xlsx: %w", err)
	}
	return nil
}
