package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/sap-compass/internal/models"
)

func TestRunFlags_Sources(t *testing.T) {
	tests := []struct {
		name    string
		flags   runFlags
		want    []models.Source
		wantErr string
	}{
		{
			name: "named inputs in precedence order",
			flags: runFlags{
				notes:       "notes.csv",
				scanner:     "scan.json",
				prioritizer: "prio.csv",
			},
			want: []models.Source{
				{Name: "notes", Path: "notes.csv", Role: models.RoleNotes, Required: true},
				{Name: "scanner", Path: "scan.json", Role: models.RoleScanner},
				{Name: "prioritizer", Path: "prio.csv", Role: models.RolePrioritizer},
			},
		},
		{
			name:  "extra sources follow",
			flags: runFlags{notes: "notes.csv", extra: []string{"Scanner=dir/old-scan.json"}},
			want: []models.Source{
				{Name: "notes", Path: "notes.csv", Role: models.RoleNotes, Required: true},
				{Name: "scanner:old-scan.json", Path: "dir/old-scan.json", Role: models.RoleScanner},
			},
		},
		{
			name:    "unknown role",
			flags:   runFlags{extra: []string{"nvd=nvd.json"}},
			wantErr: `unknown role "nvd"`,
		},
		{
			name:    "missing path",
			flags:   runFlags{extra: []string{"scanner"}},
			wantErr: "expected role=path",
		},
		{
			name:    "nothing given",
			wantErr: "no sources given",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.sources()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProfileShow(t *testing.T) {
	var out bytes.Buffer
	profileShowCmd.SetOut(&out)
	t.Cleanup(func() { profileShowCmd.SetOut(nil) })

	require.NoError(t, profileShowCmd.RunE(profileShowCmd, nil))
	assert.Contains(t, out.String(), `version = "v1.0.0"`)
	assert.Contains(t, out.String(), "kev_weight = 3.0")
}
