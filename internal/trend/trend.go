// Package trend classifies the short-term direction of EPSS time series.
package trend

import "github.com/ethanolivertroy/sap-compass/internal/models"

const (
	DefaultUpThreshold   = 1.01
	DefaultDownThreshold = 0.99
)

// Classify compares the newest observation against the oldest one scaled by
// the thresholds. Series shorter than two points are stable.
// Inputs are not validated; values are expected to be non-negative percentages.
func Classify(series []float64, up, down float64) models.Trend {
	if len(series) < 2 {
		return models.TrendStable
	}
	first, last := series[0], series[len(series)-1]
	if last > first*up {
		return models.TrendUp
	}
	if last < first*down {
		return models.TrendDown
	}
	return models.TrendStable
}

// Mean returns the arithmetic mean, or 0 for an empty series
func Mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}
