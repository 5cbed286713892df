package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// JSONParser parses an array (or index-keyed object) of flat JSON objects.
// SploitScan exports are detected and flattened first.
type JSONParser struct{}

// CanParse returns true for .json files
func (p *JSONParser) CanParse(filename string) bool {
	return hasExt(filename, ".json")
}

// Parse extracts a table from JSON content
func (p *JSONParser) Parse(path string, content []byte) (*Table, error) {
	items, err := decodeItems(content)
	if err != nil {
		return nil, err
	}

	if len(items) > 0 && isSploitScan(items[0]) {
		return flattenSploitScan(path, items)
	}

	var objects []map[string]any
	for _, raw := range items {
		var obj map[string]any
		d := json.NewDecoder(bytes.NewReader(raw))
		d.UseNumber()
		if err := d.Decode(&obj); err != nil {
			return nil, fmt.Errorf("json row is not an object: %w", err)
		}
		objects = append(objects, obj)
	}
	return tableFromObjects(path, objects), nil
}

// decodeItems accepts either [ {...}, ... ] or { "0": {...}, "1": {...} }
func decodeItems(content []byte) ([]json.RawMessage, error) {
	content = bytes.TrimSpace(bytes.TrimPrefix(content, utf8BOM))
	if len(content) == 0 {
		return nil, nil
	}

	if content[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(content, &items); err != nil {
			return nil, fmt.Errorf("failed to decode json array: %w", err)
		}
		return items, nil
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(content, &keyed); err != nil {
		return nil, fmt.Errorf("failed to decode json object: %w", err)
	}
	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	items := make([]json.RawMessage, 0, len(keys))
	for _, k := range keys {
		items = append(items, keyed[k])
	}
	return items, nil
}

// tableFromObjects uses the sorted union of keys as header
func tableFromObjects(path string, objects []map[string]any) *Table {
	seen := make(map[string]bool)
	var header []string
	for _, obj := range objects {
		for k := range obj {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}
	sort.Strings(header)

	t := &Table{Path: path, Header: header}
	for _, obj := range objects {
		row := make([]string, len(header))
		for i, k := range header {
			row[i] = stringify(obj[k])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
