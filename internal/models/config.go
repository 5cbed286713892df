package models

import "time"

// SourceRole identifies which upstream tool produced a table
type SourceRole string

const (
	RoleNotes       SourceRole = "notes"       // vendor security note table
	RoleScanner     SourceRole = "scanner"     // exploit scanner output
	RolePrioritizer SourceRole = "prioritizer" // external prioritizer output
)

// Source describes one tabular input. Sources are merged in the order given.
type Source struct {
	Name     string
	Path     string
	Role     SourceRole
	Required bool
}

// Config holds configuration for a ranking run
type Config struct {
	// Inputs, in field precedence order
	Sources []Source

	// CWETop25File overrides the built-in CWE Top 25 list (CSV with an ID column)
	CWETop25File string

	// HistoryFile supplies EPSS series as {"CVE-...": [oldest, ..., newest]}
	HistoryFile string

	// ProfileFile is a TOML or YAML scoring profile
	ProfileFile string

	// Output settings
	OutputFormat string // "terminal", "json", "sarif", "csv"
	OutputFile   string // Optional output file path
	Top          int    // Limit ranked output, 0 = all

	// Behavior settings
	FailOnKEV bool // Exit with code 1 if a ranked record is on KEV
	Offline   bool // Never call remote APIs
	UseKEV    bool // Fill KEV flags from the CISA catalog
	UseOSV    bool // Fill missing CVSS from OSV
	Progress  bool

	// Cache settings
	CacheDir string
	CacheTTL time.Duration
	NoCache  bool

	// API settings
	Timeout       time.Duration
	MaxConcurrent int
	RatePerSecond float64
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		OutputFormat:  "terminal",
		FailOnKEV:     false,
		CacheTTL:      24 * time.Hour,
		NoCache:       false,
		Timeout:       60 * time.Second,
		MaxConcurrent: 4,
		RatePerSecond: 2,
	}
}
