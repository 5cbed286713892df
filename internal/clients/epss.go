package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/ethanolivertroy/sap-compass/internal/log"
)

const epssURL = "https://api.first.org/data/v1/epss"

const epssHistoryNamespace = "epss-history"

// EPSSClient handles requests to the EPSS API
type EPSSClient struct {
	opts *options
}

// NewEPSSClient creates a new EPSS client
func NewEPSSClient(opts ...Option) *EPSSClient {
	return &EPSSClient{opts: newOptions(epssURL, opts)}
}

// EPSSResponse represents the response from the EPSS API
type EPSSResponse struct {
	Status     string     `json:"status"`
	StatusCode int        `json:"status-code"`
	Version    string     `json:"version"`
	Total      int        `json:"total"`
	Data       []EPSSData `json:"data"`
}

// EPSSData represents a single EPSS score entry
type EPSSData struct {
	CVE        string      `json:"cve"`
	EPSS       string      `json:"epss"`
	Percentile string      `json:"percentile"`
	Date       string      `json:"date"`
	TimeSeries []EPSSPoint `json:"time-series,omitempty"`
}

// EPSSPoint is one day of a time series, newest first as served
type EPSSPoint struct {
	EPSS       string `json:"epss"`
	Percentile string `json:"percentile"`
	Date       string `json:"date"`
}

// EPSSScore holds current EPSS values as percentages
type EPSSScore struct {
	Score      float64
	Percentile float64
}

// FetchScores fetches current EPSS scores for the given CVE IDs.
// Returns a map of CVE ID -> EPSSScore; chunks that fail are skipped.
func (c *EPSSClient) FetchScores(ctx context.Context, cveIDs []string) (map[string]EPSSScore, error) {
	logger := log.WithPrefix("epss")
	scores := make(map[string]EPSSScore)

	// EPSS API allows batch queries, chunk to avoid URL length issues
	for _, chunk := range lo.Chunk(cveIDs, 100) {
		u := fmt.Sprintf("%s?cve=%s", c.opts.baseURL, url.QueryEscape(strings.Join(chunk, ",")))
		data, err := c.opts.get(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, oops.In("epss").Wrapf(ctx.Err(), "fetch cancelled")
			}
			logger.Warn("Failed to fetch EPSS scores", log.Int("cves", len(chunk)), log.Err(err))
			continue
		}

		var resp EPSSResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			logger.Warn("Failed to decode EPSS response", log.Err(err))
			continue
		}

		for _, d := range resp.Data {
			score, _ := strconv.ParseFloat(d.EPSS, 64)
			percentile, _ := strconv.ParseFloat(d.Percentile, 64)
			scores[d.CVE] = EPSSScore{
				Score:      round2(score * 100),
				Percentile: round2(percentile * 100),
			}
		}
	}

	return scores, nil
}

// FetchHistory returns the EPSS time series of one CVE as percentages,
// oldest first. Responses are cached per CVE.
func (c *EPSSClient) FetchHistory(ctx context.Context, cveID string) ([]float64, error) {
	eb := oops.In("epss").With("cve_id", cveID)

	u := fmt.Sprintf("%s?cve=%s&scope=time-series", c.opts.baseURL, url.QueryEscape(cveID))
	data, err := c.opts.cached(ctx, epssHistoryNamespace, cveID, u)
	if err != nil {
		return nil, eb.Wrapf(err, "failed to fetch EPSS time series")
	}

	var resp EPSSResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, eb.Wrapf(err, "failed to decode EPSS time series")
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}

	points := slices.Clone(resp.Data[0].TimeSeries)
	slices.Reverse(points)

	series := make([]float64, 0, len(points))
	for _, p := range points {
		v, err := strconv.ParseFloat(p.EPSS, 64)
		if err != nil {
			continue
		}
		series = append(series, v*100)
	}
	return series, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
