package parsers_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ethanolivertroy/sap-compass/internal/parsers"
)

func TestParseFile(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		wantHeader []string
		wantRows   [][]string
		wantErr    string
	}{
		{
			name:       "semicolon csv with bom, blank and short rows",
			file:       "notes-semicolon.csv",
			wantHeader: []string{"CVE ID", "SAP Priority", "Note"},
			wantRows: [][]string{
				{"CVE-2024-1111", "Hot News", "3411067"},
				{"CVE-2024-2222", "High", ""},
			},
		},
		{
			name:       "json array of objects",
			file:       "scan.json",
			wantHeader: []string{"cve", "cvss", "epss_l", "grade", "kev"},
			wantRows: [][]string{
				{"CVE-2024-1111", "9.1", "", "A+", "true"},
				{"CVE-2024-2222", "", "0.42", "B", ""},
			},
		},
		{
			name:       "sploitscan export",
			file:       "sploitscan.json",
			wantHeader: parsers.SploitScanColumns,
			wantRows: [][]string{
				{
					"CVE-2024-41730",
					"2024-08-13T04:18:29.081Z",
					"2024-08-13T13:46:21.233Z",
					"SAP BusinessObjects missing authentication check.",
					"SAP BusinessObjects Business Intelligence Platform",
					"0.00091",
					"0.39",
					"A+",
					"CWE-287",
					"3479478",
					"9.8",
					"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
					"CRITICAL",
					"false",
				},
				{
					"CVE-2024-33006", "", "", "", "", "", "", "B",
					"Cross-Site Scripting", "", "", "", "", "true",
				},
			},
		},
		{
			name:    "missing file",
			file:    "nope.csv",
			wantErr: "failed to read source",
		},
		{
			name:    "unknown extension",
			file:    "notes.txt",
			wantErr: "no parser for notes.txt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsers.ParseFile(filepath.Join("testdata", tt.file))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHeader, got.Header)
			assert.Equal(t, tt.wantRows, got.Rows)
		})
	}
}

func TestXLSXParser(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"CVE", "Priority l", "cvss"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"CVE-2023-0001", "Priority 1+", "8.8"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"CVE-2023-0002"}))

	path := filepath.Join(t.TempDir(), "scanner.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := parsers.ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"CVE", "Priority l", "cvss"}, got.Header)
	assert.Equal(t, [][]string{
		{"CVE-2023-0001", "Priority 1+", "8.8"},
		{"CVE-2023-0002", "", ""},
	}, got.Rows)
}

func TestXLSXParser_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o600))

	_, err := parsers.ParseFile(path)
	assert.ErrorContains(t, err, "failed to parse source")
}

func TestTable(t *testing.T) {
	table := &parsers.Table{
		Header: []string{" CVE_ID ", "Grade"},
		Rows: [][]string{
			{" CVE-2024-1 ", "A"},
			{"CVE-2024-2"},
		},
	}

	assert.Equal(t, 0, table.Index("cve_id"))
	assert.Equal(t, 1, table.Index("GRADE"))
	assert.Equal(t, -1, table.Index("cvss"))
	assert.Equal(t, "", table.Cell(table.Rows[1], 1))
	assert.Equal(t, "", table.Cell(table.Rows[0], -1))
	assert.Equal(t, []string{"CVE-2024-1", "CVE-2024-2"}, table.Column(0))
}
