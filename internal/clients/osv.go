package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/samber/oops"
)

const osvVulnsURL = "https://api.osv.dev/v1/vulns"

const osvNamespace = "osv"

// OSVClient handles requests to the OSV vulnerability database
type OSVClient struct {
	opts *options
}

// NewOSVClient creates a new OSV client
func NewOSVClient(opts ...Option) *OSVClient {
	return &OSVClient{opts: newOptions(osvVulnsURL, opts)}
}

type osvVulnerability struct {
	ID       string   `json:"id"`
	Aliases  []string `json:"aliases"`
	Summary  string   `json:"summary"`
	Details  string   `json:"details"`
	Severity []struct {
		Type  string `json:"type"`
		Score string `json:"score"`
	} `json:"severity"`
}

// FetchCVSSVector returns the newest CVSS vector OSV lists for a CVE, or ""
// when OSV has no record or no CVSS severity for it
func (c *OSVClient) FetchCVSSVector(ctx context.Context, cveID string) (string, error) {
	u := c.opts.baseURL + "/" + url.PathEscape(cveID)
	data, err := c.opts.cached(ctx, osvNamespace, cveID, u)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	} else if err != nil {
		return "", oops.In("osv").With("cve_id", cveID).Wrapf(err, "failed to query OSV")
	}

	var vuln osvVulnerability
	if err := json.Unmarshal(data, &vuln); err != nil {
		return "", oops.In("osv").With("cve_id", cveID).Wrapf(err, "failed to decode OSV record")
	}
	return preferredVector(vuln), nil
}

func preferredVector(v osvVulnerability) string {
	for _, typ := range []string{"CVSS_V4", "CVSS_V3"} {
		for _, s := range v.Severity {
			if s.Type == typ && strings.HasPrefix(s.Score, "CVSS:") {
				return s.Score
			}
		}
	}
	return ""
}
