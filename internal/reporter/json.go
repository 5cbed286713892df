package reporter

import (
	"encoding/json"

	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/pipeline"
)

// JSONReporter outputs the ranking run in JSON format
type JSONReporter struct {
	Top int
}

// jsonOutput adds the applied row limit to the run result
type jsonOutput struct {
	*pipeline.Result
	Ranked []models.ScoredRecord `json:"ranked"`
	Top    int                   `json:"top,omitempty"`
}

// Report generates JSON output for the given ranking run
func (r *JSONReporter) Report(result *pipeline.Result) ([]byte, error) {
	ranked := limit(result.Ranked, r.Top)
	if ranked == nil {
		ranked = []models.ScoredRecord{}
	}
	return json.MarshalIndent(jsonOutput{
		Result: result,
		Ranked: ranked,
		Top:    r.Top,
	}, "", "  ")
}
