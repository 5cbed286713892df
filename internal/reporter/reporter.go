package reporter

import (
	"github.com/samber/oops"

	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/pipeline"
)

// Formats lists the supported output formats
var Formats = []string{"terminal", "json", "sarif", "csv"}

// Reporter is the interface for output formatters
type Reporter interface {
	// Report generates output for the given ranking run
	Report(result *pipeline.Result) ([]byte, error)
}

// Get returns a reporter for the specified format. top limits the ranked
// rows written, 0 writes all of them.
func Get(format string, top int) (Reporter, error) {
	switch format {
	case "", "terminal":
		return &TerminalReporter{Top: top}, nil
	case "json":
		return &JSONReporter{Top: top}, nil
	case "sarif":
		return &SARIFReporter{Top: top}, nil
	case "csv":
		return &CSVReporter{Top: top}, nil
	default:
		return nil, oops.In("reporter").With("format", format).Errorf("unsupported output format %q", format)
	}
}

func limit(ranked []models.ScoredRecord, top int) []models.ScoredRecord {
	if top > 0 && top < len(ranked) {
		return ranked[:top]
	}
	return ranked
}
