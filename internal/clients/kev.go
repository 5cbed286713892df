package clients

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/oops"
)

const kevURL = "https://raw.githubusercontent.com/cisagov/kev-data/main/known_exploited_vulnerabilities.json"

const kevNamespace = "kev"

// KEVClient handles requests to the CISA KEV catalog
type KEVClient struct {
	opts *options
}

// NewKEVClient creates a new KEV client
func NewKEVClient(opts ...Option) *KEVClient {
	return &KEVClient{opts: newOptions(kevURL, opts)}
}

// KEVResponse represents the top-level JSON response from CISA KEV catalog
type KEVResponse struct {
	Title           string              `json:"title"`
	CatalogVersion  string              `json:"catalogVersion"`
	DateReleased    string              `json:"dateReleased"`
	Count           int                 `json:"count"`
	Vulnerabilities []VulnerabilityJSON `json:"vulnerabilities"`
}

// VulnerabilityJSON represents a single vulnerability entry from the API
type VulnerabilityJSON struct {
	CVEID                      string   `json:"cveID"`
	VendorProject              string   `json:"vendorProject"`
	Product                    string   `json:"product"`
	VulnerabilityName          string   `json:"vulnerabilityName"`
	DateAdded                  string   `json:"dateAdded"`
	ShortDescription           string   `json:"shortDescription"`
	RequiredAction             string   `json:"requiredAction"`
	DueDate                    string   `json:"dueDate"`
	KnownRansomwareCampaignUse string   `json:"knownRansomwareCampaignUse"`
	Notes                      string   `json:"notes"`
	CWEs                       []string `json:"cwes"`
}

// KEVEntry is the part of a catalog entry used for enrichment
type KEVEntry struct {
	CVEID         string
	VendorProject string
	Product       string
	DateAdded     time.Time
	DueDate       time.Time
	RansomwareUse bool
	CWEs          []string
}

// FetchKEVCatalog fetches the KEV catalog and returns a map of CVE ID -> KEVEntry
func (c *KEVClient) FetchKEVCatalog(ctx context.Context) (map[string]KEVEntry, error) {
	data, err := c.opts.cached(ctx, kevNamespace, c.opts.baseURL, c.opts.baseURL)
	if err != nil {
		return nil, oops.In("kev").Wrapf(err, "failed to fetch KEV data")
	}
	return parseKEVData(data)
}

func parseKEVData(data []byte) (map[string]KEVEntry, error) {
	var kevResp KEVResponse
	if err := json.Unmarshal(data, &kevResp); err != nil {
		return nil, oops.In("kev").Wrapf(err, "failed to parse KEV data")
	}

	catalog := make(map[string]KEVEntry, len(kevResp.Vulnerabilities))
	for _, v := range kevResp.Vulnerabilities {
		kev := KEVEntry{
			CVEID:         v.CVEID,
			VendorProject: v.VendorProject,
			Product:       v.Product,
			RansomwareUse: v.KnownRansomwareCampaignUse == "Known",
			CWEs:          v.CWEs,
		}
		kev.DateAdded, _ = time.Parse("2006-01-02", v.DateAdded)
		kev.DueDate, _ = time.Parse("2006-01-02", v.DueDate)
		catalog[v.CVEID] = kev
	}

	return catalog, nil
}
