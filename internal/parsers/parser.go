package parsers

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
)

// Table is a header plus rows of cell text, as read from one source file
type Table struct {
	Path   string
	Header []string
	Rows   [][]string
}

// Index returns the position of a header, matched case-insensitively, or -1
func (t *Table) Index(column string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed value at idx, or "" when the row is short or idx is -1
func (t *Table) Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Column returns every value of one column
func (t *Table) Column(idx int) []string {
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		values = append(values, t.Cell(row, idx))
	}
	return values
}

// Parser is the interface for source table parsers
type Parser interface {
	// CanParse returns true if this parser can handle the given filename
	CanParse(filename string) bool

	// Parse extracts a table from the file content
	Parse(path string, content []byte) (*Table, error)
}

// GetAllParsers returns all available parsers
func GetAllParsers() []Parser {
	return []Parser{
		&CSVParser{},
		&JSONParser{},
		&XLSXParser{},
	}
}

// ParseFile reads path with the first parser that accepts its name
func ParseFile(path string) (*Table, error) {
	eb := oops.In("parsers").With("file_path", path)

	filename := filepath.Base(path)
	for _, parser := range GetAllParsers() {
		if !parser.CanParse(filename) {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, eb.Wrapf(err, "failed to read source")
		}
		t, err := parser.Parse(path, content)
		if err != nil {
			return nil, eb.Wrapf(err, "failed to parse source")
		}
		return t, nil
	}
	return nil, eb.Errorf("no parser for %s", filename)
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
