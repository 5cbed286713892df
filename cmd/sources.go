package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ethanolivertroy/sap-compass/internal/models"
)

// runFlags are shared by the commands that execute a ranking run
type runFlags struct {
	notes       string
	scanner     string
	prioritizer string
	extra       []string
	history     string
	cweTop25    string
	offline     bool
	kev         bool
	osv         bool
	concurrency int
	rate        float64
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.notes, "notes", "", "SAP security notes table (required)")
	fs.StringVar(&f.scanner, "scanner", "", "Exploit scanner output (optional)")
	fs.StringVar(&f.prioritizer, "prioritizer", "", "External prioritizer output (optional)")
	fs.StringArrayVar(&f.extra, "source", nil, "Additional source as role=path, where role is notes, scanner or prioritizer (repeatable)")
	fs.StringVar(&f.history, "history", "", `EPSS history file {"CVE-...": [oldest, ..., newest]}`)
	fs.StringVar(&f.cweTop25, "cwe-top25", "", "CWE Top 25 CSV with an ID column (default: built-in 2024 list)")
	fs.BoolVar(&f.offline, "offline", false, "Never call remote APIs")
	fs.BoolVar(&f.kev, "kev", false, "Fill KEV flags from the CISA catalog")
	fs.BoolVar(&f.osv, "osv", false, "Fill missing CVSS vectors from OSV")
	fs.IntVar(&f.concurrency, "concurrency", 4, "Maximum concurrent API requests")
	fs.Float64Var(&f.rate, "rate", 2, "Maximum EPSS requests per second")
}

// sources lists the inputs in precedence order: notes, scanner, prioritizer,
// then --source entries as given
func (f *runFlags) sources() ([]models.Source, error) {
	var sources []models.Source
	if f.notes != "" {
		sources = append(sources, models.Source{Name: "notes", Path: f.notes, Role: models.RoleNotes, Required: true})
	}
	if f.scanner != "" {
		sources = append(sources, models.Source{Name: "scanner", Path: f.scanner, Role: models.RoleScanner})
	}
	if f.prioritizer != "" {
		sources = append(sources, models.Source{Name: "prioritizer", Path: f.prioritizer, Role: models.RolePrioritizer})
	}

	for _, raw := range f.extra {
		role, path, ok := strings.Cut(raw, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("invalid --source %q: expected role=path", raw)
		}
		r := models.SourceRole(strings.ToLower(strings.TrimSpace(role)))
		switch r {
		case models.RoleNotes, models.RoleScanner, models.RolePrioritizer:
		default:
			return nil, fmt.Errorf("invalid --source %q: unknown role %q", raw, role)
		}
		sources = append(sources, models.Source{
			Name: fmt.Sprintf("%s:%s", r, filepath.Base(path)),
			Path: path,
			Role: r,
		})
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources given: use --notes, --scanner, --prioritizer or --source")
	}
	return sources, nil
}

func (f *runFlags) config() (*models.Config, error) {
	sources, err := f.sources()
	if err != nil {
		return nil, err
	}
	config := baseConfig()
	config.Sources = sources
	config.HistoryFile = f.history
	config.CWETop25File = f.cweTop25
	config.Offline = f.offline
	config.UseKEV = f.kev
	config.UseOSV = f.osv
	config.MaxConcurrent = f.concurrency
	config.RatePerSecond = f.rate
	return config, nil
}
