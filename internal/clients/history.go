package clients

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/samber/oops"
)

// HistoryFile serves EPSS series from a JSON document of the form
// {"CVE-2024-0001": [oldest, ..., newest]} with percentage values
type HistoryFile map[string][]float64

// LoadHistoryFile reads and validates a history document
func LoadHistoryFile(path string) (HistoryFile, error) {
	eb := oops.In("clients").With("file_path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eb.Wrapf(err, "failed to read history file")
	}

	var raw map[string][]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eb.Wrapf(err, "failed to decode history file")
	}

	h := make(HistoryFile, len(raw))
	for id, series := range raw {
		h[strings.ToUpper(strings.TrimSpace(id))] = series
	}
	return h, nil
}

// FetchHistory returns the stored series; an unknown CVE has an empty series
func (h HistoryFile) FetchHistory(_ context.Context, cveID string) ([]float64, error) {
	return h[cveID], nil
}
