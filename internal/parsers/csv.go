package parsers

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVParser parses comma or semicolon separated exports
type CSVParser struct{}

// CanParse returns true for .csv and .tsv files
func (p *CSVParser) CanParse(filename string) bool {
	return hasExt(filename, ".csv", ".tsv")
}

// Parse reads the first line as header; short rows are padded
func (p *CSVParser) Parse(path string, content []byte) (*Table, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.Comma = sniffDelimiter(content, hasExt(path, ".tsv"))

	t := &Table{Path: path}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if t.Header == nil {
			t.Header = record
			continue
		}
		if isBlank(record) {
			continue
		}
		for len(record) < len(t.Header) {
			record = append(record, "")
		}
		t.Rows = append(t.Rows, record)
	}
	return t, nil
}

// sniffDelimiter picks the separator that occurs most in the header line
func sniffDelimiter(content []byte, tsv bool) rune {
	if tsv {
		return '\t'
	}
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
