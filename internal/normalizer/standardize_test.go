package normalizer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/normalizer"
)

func TestStandardizePriority(t *testing.T) {
	tests := map[string]models.SAPPriority{
		"Hot News":  models.PriorityHotNews,
		"HotNews":   models.PriorityHotNews,
		"Hot":       models.PriorityHotNews,
		"Very High": models.PriorityHotNews,
		"critical":  models.PriorityHotNews,
		" High ":    models.PriorityHigh,
		"MEDIUM":    models.PriorityMedium,
		"Low":       models.PriorityLow,
		"":          "",
		"urgent":    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizer.StandardizePriority(in), in)
	}
}

func TestStandardizeExternalPriority(t *testing.T) {
	assert.Equal(t, "Priority 1+", normalizer.StandardizeExternalPriority("priority  1+"))
	assert.Equal(t, "Priority 1+", normalizer.StandardizeExternalPriority("P1+"))
	assert.Equal(t, "Priority 3", normalizer.StandardizeExternalPriority("3"))
	assert.Equal(t, "Unscored", normalizer.StandardizeExternalPriority(" Unscored "))
	assert.Equal(t, "", normalizer.StandardizeExternalPriority(""))
}

func TestStandardizeCWE(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "CWE-79", want: "CWE-79"},
		{in: "cwe 79", want: "CWE-79"},
		{in: "CWE_79", want: "CWE-79"},
		{in: "79", want: "CWE-79"},
		{in: "CWE-287: Improper Authentication", want: "CWE-287"},
		{in: "Cross-Site Scripting (XSS)", want: "CWE-79"},
		{in: "Cross Site Scripting", want: "CWE-79"},
		{in: "Missing Authorization check", want: "CWE-862"},
		{in: "Missing Authorization Check", want: "CWE-862"},
		{in: "SQL Injection", want: "CWE-89"},
		{in: "CVE-2021-21484", want: "CWE-863"},
		{in: "CVE-2099-0001", want: ""},
		{in: "NVD-CWE-noinfo", want: ""},
		{in: "", want: ""},
		{in: "Something novel", want: "Something novel"},
		{in: "2 issues", want: "2 issues"},
		{in: "1234", want: "CWE-1234"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizer.StandardizeCWE(tt.in))
		})
	}
}

func TestParsePercentage(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{in: "0.00091", want: models.Float(0.09)},
		{in: "0.97566", want: models.Float(97.57)},
		{in: "1", want: models.Float(100)},
		{in: "42.5", want: models.Float(42.5)},
		{in: "0,5", want: models.Float(50)},
		{in: "12%", want: models.Float(12)},
		{in: "", want: nil},
		{in: "n/a", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizer.ParsePercentage(tt.in))
		})
	}
}

func TestParseHistory(t *testing.T) {
	assert.Equal(t, []float64{1.2, 1.4, 2}, normalizer.ParseHistory("[1.2, 1.4, 2.0]"))
	assert.Equal(t, []float64{5, 10}, normalizer.ParseHistory("5;10"))
	assert.Equal(t, []float64{3}, normalizer.ParseHistory("x, 3"))
	assert.Equal(t, []float64{0.5, 1, 2}, normalizer.ParseHistory("0,5;1,0;2,0"))
	assert.Equal(t, []float64{1.5, 2.25}, normalizer.ParseHistory("1,5 | 2,25"))
	assert.Nil(t, normalizer.ParseHistory(""))
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"TRUE", "yes", "1", "Listed"} {
		v, ok := normalizer.ParseBool(s)
		assert.True(t, ok, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"false", "No", "0", "Not Listed"} {
		v, ok := normalizer.ParseBool(s)
		assert.True(t, ok, s)
		assert.False(t, v, s)
	}
	_, ok := normalizer.ParseBool("maybe")
	assert.False(t, ok)
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 8, 13, 4, 18, 29, 81000000, time.UTC)
	assert.Equal(t, want, normalizer.ParseTime("2024-08-13T04:18:29.081Z"))
	assert.Equal(t, want, normalizer.ParseTime("2024-08-13T06:18:29.081+02:00"))
	assert.Equal(t, time.Date(2024, 8, 13, 0, 0, 0, 0, time.UTC), normalizer.ParseTime("2024-08-13"))
	assert.Equal(t, time.Date(2024, 8, 13, 0, 0, 0, 0, time.UTC), normalizer.ParseTime("13.08.2024"))
	assert.True(t, normalizer.ParseTime("last tuesday").IsZero())
}

func TestExtractNoteID(t *testing.T) {
	assert.Equal(t, "3479478", normalizer.ExtractNoteID("https://me.sap.com/notes/3479478"))
	assert.Equal(t, "2985222", normalizer.ExtractNoteID("2985222"))
	assert.Equal(t, "", normalizer.ExtractNoteID("1234567"))
	assert.Equal(t, "", normalizer.ExtractNoteID("34794781"))
}

func TestScoreFromVector(t *testing.T) {
	tests := []struct {
		name   string
		vector string
		want   float64
		wantOK bool
	}{
		{name: "3.1", vector: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", want: 9.8, wantOK: true},
		{name: "3.0", vector: "CVSS:3.0/AV:N/AC:L/PR:N/UI:R/S:C/C:L/I:L/A:N", want: 6.1, wantOK: true},
		{name: "4.0", vector: "CVSS:4.0/AV:N/AC:L/AT:N/PR:N/UI:N/VC:H/VI:H/VA:H/SC:N/SI:N/SA:N", want: 9.3, wantOK: true},
		{name: "v2 is not supported", vector: "AV:N/AC:L/Au:N/C:P/I:P/A:P"},
		{name: "malformed", vector: "CVSS:3.1/AV:X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizer.ScoreFromVector(tt.vector)
			require.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
