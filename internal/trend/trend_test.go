package trend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/trend"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		want   models.Trend
	}{
		{name: "empty", series: nil, want: models.TrendStable},
		{name: "single point", series: []float64{50}, want: models.TrendStable},
		{name: "flat", series: []float64{100, 100}, want: models.TrendStable},
		{name: "above up threshold", series: []float64{100, 102}, want: models.TrendUp},
		{name: "inside band", series: []float64{100, 100.5}, want: models.TrendStable},
		{name: "below down threshold", series: []float64{100, 98}, want: models.TrendDown},
		{name: "flat zero", series: []float64{0, 0, 0}, want: models.TrendStable},
		{name: "from zero", series: []float64{0, 0.01}, want: models.TrendUp},
		{name: "only endpoints matter", series: []float64{10, 90, 1, 10}, want: models.TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trend.Classify(tt.series, trend.DefaultUpThreshold, trend.DefaultDownThreshold)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, trend.Classify(tt.series, trend.DefaultUpThreshold, trend.DefaultDownThreshold))
		})
	}
}

func TestClassify_CustomThresholds(t *testing.T) {
	series := []float64{100, 104}
	assert.Equal(t, models.TrendUp, trend.Classify(series, 1.01, 0.99))
	assert.Equal(t, models.TrendStable, trend.Classify(series, 1.05, 0.95))
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, trend.Mean(nil))
	assert.Equal(t, 1.0, trend.Mean([]float64{1, 1, 1}))
	assert.InDelta(t, 7.5, trend.Mean([]float64{5, 10}), 1e-9)
}
