package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/pipeline"
	"github.com/ethanolivertroy/sap-compass/internal/server"
)

type fakeRanker struct {
	runs int
	err  error
}

func (f *fakeRanker) Run(context.Context) (*pipeline.Result, error) {
	f.runs++
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{
		RunID: "run-1",
		Records: []models.VulnerabilityRecord{
			{CVEID: "CVE-2024-0001", SAPPriority: models.PriorityHotNews, KEV: true},
			{CVEID: "CVE-2024-0002", SAPPriority: models.PriorityHigh},
			{CVEID: "CVE-2024-0003", SAPPriority: models.PriorityMedium},
		},
		Ranked: []models.ScoredRecord{
			{VulnerabilityRecord: models.VulnerabilityRecord{CVEID: "CVE-2024-0002"}, CompositeScore: 38.7},
			{VulnerabilityRecord: models.VulnerabilityRecord{CVEID: "CVE-2024-0001", KEV: true}, CompositeScore: 27.1},
		},
		Summary: models.Summary{Ranked: 2, UniqueCVEs: 2, KEVCount: 1},
	}, nil
}

func do(t *testing.T, s *server.Server, method, target string) (int, map[string]any) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got), string(body))
	return resp.StatusCode, got
}

func TestServer_BeforeFirstRefresh(t *testing.T) {
	s := server.New(&fakeRanker{})

	status, body := do(t, s, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, _ = do(t, s, http.MethodGet, "/api/v1/ranked")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestServer_Routes(t *testing.T) {
	s := server.New(&fakeRanker{})
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "ranked",
			target: "/api/v1/ranked",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Len(t, body["ranked"], 2)
			},
		},
		{
			name:   "ranked with limit",
			target: "/api/v1/ranked?limit=1",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				ranked := body["ranked"].([]any)
				require.Len(t, ranked, 1)
				assert.Equal(t, "CVE-2024-0002", ranked[0].(map[string]any)["cve_id"])
			},
		},
		{
			name:   "ranked kev only",
			target: "/api/v1/ranked?kev=true",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				ranked := body["ranked"].([]any)
				require.Len(t, ranked, 1)
				assert.Equal(t, "CVE-2024-0001", ranked[0].(map[string]any)["cve_id"])
			},
		},
		{
			name:   "kev filter before limit",
			target: "/api/v1/ranked?limit=1&kev=true",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				ranked := body["ranked"].([]any)
				require.Len(t, ranked, 1)
				assert.Equal(t, "CVE-2024-0001", ranked[0].(map[string]any)["cve_id"])
			},
		},
		{
			name:   "bad limit",
			target: "/api/v1/ranked?limit=abc",
			status: http.StatusBadRequest,
		},
		{
			name:   "summary",
			target: "/api/v1/summary",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				summary := body["summary"].(map[string]any)
				assert.EqualValues(t, 1, summary["kev_count"])
			},
		},
		{
			name:   "records by priority",
			target: "/api/v1/records?priority=hot%20news",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.EqualValues(t, 1, body["count"])
			},
		},
		{
			name:   "ranked record",
			target: "/api/v1/records/cve-2024-0001",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, true, body["ranked"])
			},
		},
		{
			name:   "unranked record",
			target: "/api/v1/records/CVE-2024-0003",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, false, body["ranked"])
			},
		},
		{
			name:   "unknown record",
			target: "/api/v1/records/CVE-1999-0001",
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, s, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, status)
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestServer_Refresh(t *testing.T) {
	ranker := &fakeRanker{}
	s := server.New(ranker)

	status, body := do(t, s, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, 1, ranker.runs)

	ranker.err = errors.New("source missing")
	status, _ = do(t, s, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusInternalServerError, status)

	status, _ = do(t, s, http.MethodGet, "/api/v1/ranked")
	assert.Equal(t, http.StatusOK, status, "previous result is kept")
}
