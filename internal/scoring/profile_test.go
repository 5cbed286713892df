package scoring_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/sap-compass/internal/scoring"
)

func TestLoadProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		want    func() scoring.Profile
		wantErr string
	}{
		{
			name: "toml overrides a subset",
			file: "aggressive.toml",
			want: func() scoring.Profile {
				p := scoring.DefaultProfile()
				p.Version = "v1.2.0"
				p.KEVWeight = 5
				p.EPSSUpMultiplier = 4
				return p
			},
		},
		{
			name: "yaml with thresholds",
			file: "conservative.yaml",
			want: func() scoring.Profile {
				p := scoring.DefaultProfile()
				p.Version = "v1.0.1"
				p.CVSSMultiplier = 1.5
				p.CWEWeight = 0.5
				p.UpThreshold = 1.05
				p.DownThreshold = 0.95
				return p
			},
		},
		{
			name:    "version is not semver",
			file:    "bad-version.toml",
			wantErr: "not a semantic version",
		},
		{
			name:    "inverted thresholds",
			file:    "inverted.yaml",
			wantErr: "exceeds up_threshold",
		},
		{
			name:    "misspelled key",
			file:    "unknown-key.yaml",
			wantErr: "yaml decode error",
		},
		{
			name:    "misspelled toml key",
			file:    "unknown-key.toml",
			wantErr: "unknown keys kev_wieght",
		},
		{
			name:    "missing file",
			file:    "missing.toml",
			wantErr: "failed to read profile",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := scoring.LoadProfile(filepath.Join("testdata", tt.file))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want(), got)
		})
	}
}

func TestProfile_Validate(t *testing.T) {
	require.NoError(t, scoring.DefaultProfile().Validate())

	p := scoring.DefaultProfile()
	p.CWEWeight = -1
	assert.ErrorContains(t, p.Validate(), "cwe_weight must not be negative")

	p = scoring.DefaultProfile()
	p.KEVWeight = 0
	assert.ErrorContains(t, p.Validate(), "kev_weight must be positive")

	p = scoring.DefaultProfile()
	p.CWEWeight = 0
	assert.ErrorContains(t, p.Validate(), "cwe_weight must be positive")

	p = scoring.DefaultProfile()
	p.Version = "v2.0.0"
	assert.ErrorContains(t, p.Validate(), "unsupported profile major version")
}

func TestProfile_EncodeTOML(t *testing.T) {
	data, err := scoring.DefaultProfile().EncodeTOML()
	require.NoError(t, err)
	assert.Contains(t, string(data), `version = "v1.0.0"`)
	assert.Contains(t, string(data), "kev_weight = 3.0")
}
