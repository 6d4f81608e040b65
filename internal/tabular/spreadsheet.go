package tabular

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is one parsed worksheet.
type Sheet struct {
	Name string
	Rows []Record
	Err  error
}

// ParseWorkbook opens a spreadsheet and parses every sheet. A failure to open
// the workbook is returned as an error; a failure in one sheet is reported on
// that sheet only.
func ParseWorkbook(data []byte) ([]Sheet, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	names := wb.GetSheetList()
	sheets := make([]Sheet, 0, len(names))
	for _, name := range names {
		rows, err := wb.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			sheets = append(sheets, Sheet{Name: name, Err: fmt.Errorf("failed to read sheet %q: %w", name, err)})
			continue
		}
		records, err := buildRecords(widenHeader(rows))
		if err != nil {
			sheets = append(sheets, Sheet{Name: name, Err: err})
			continue
		}
		sheets = append(sheets, Sheet{Name: name, Rows: records})
	}
	return sheets, nil
}

// widenHeader pads the header row to the widest row; a sheet's used range can
// extend past its labelled columns.
func widenHeader(rows [][]string) [][]string {
	if len(rows) == 0 {
		return rows
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if len(rows[0]) == width {
		return rows
	}
	header := make([]string, width)
	copy(header, rows[0])
	return append([][]string{header}, rows[1:]...)
}
