package parsers

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXParser reads the first worksheet of an Excel workbook
type XLSXParser struct{}

// CanParse returns true for .xlsx files
func (p *XLSXParser) CanParse(filename string) bool {
	return hasExt(filename, ".xlsx", ".xlsm")
}

// Parse uses the first row of the first sheet as header
func (p *XLSXParser) Parse(path string, content []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{Path: path}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	t := &Table{Path: path}
	for _, row := range rows {
		if t.Header == nil {
			if isBlank(row) {
				continue
			}
			t.Header = row
			continue
		}
		if isBlank(row) {
			continue
		}
		for len(row) < len(t.Header) {
			row = append(row, "")
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
