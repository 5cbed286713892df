package scoring

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/samber/oops"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v2"

	"github.com/ethanolivertroy/sap-compass/internal/trend"
)

// ProfileVersion is the version of the built-in reference profile
const ProfileVersion = "v1.0.0"

// Profile is a versioned set of scoring weights. Weight defaults are data:
// every variant of the score is expressed as a profile, not as code.
type Profile struct {
	Version              string  `toml:"version" yaml:"version" json:"version"`
	KEVWeight            float64 `toml:"kev_weight" yaml:"kev_weight" json:"kev_weight"`
	CVSSMultiplier       float64 `toml:"cvss_multiplier" yaml:"cvss_multiplier" json:"cvss_multiplier"`
	EPSSUpMultiplier     float64 `toml:"epss_up_multiplier" yaml:"epss_up_multiplier" json:"epss_up_multiplier"`
	EPSSStableMultiplier float64 `toml:"epss_stable_multiplier" yaml:"epss_stable_multiplier" json:"epss_stable_multiplier"`
	CWEWeight            float64 `toml:"cwe_weight" yaml:"cwe_weight" json:"cwe_weight"`
	UpThreshold          float64 `toml:"up_threshold" yaml:"up_threshold" json:"up_threshold"`
	DownThreshold        float64 `toml:"down_threshold" yaml:"down_threshold" json:"down_threshold"`
}

// DefaultProfile returns the reference weights
func DefaultProfile() Profile {
	return Profile{
		Version:              ProfileVersion,
		KEVWeight:            3.0,
		CVSSMultiplier:       2.0,
		EPSSUpMultiplier:     3.0,
		EPSSStableMultiplier: 2.0,
		CWEWeight:            1.5,
		UpThreshold:          trend.DefaultUpThreshold,
		DownThreshold:        trend.DefaultDownThreshold,
	}
}

// LoadProfile reads a TOML or YAML profile. Keys missing from the file keep
// their reference values.
func LoadProfile(path string) (Profile, error) {
	eb := oops.In("scoring").With("file_path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, eb.Wrapf(err, "failed to read profile")
	}

	p := DefaultProfile()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&p)
		if err != nil {
			return Profile{}, eb.Wrapf(err, "toml decode error")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return Profile{}, eb.With("keys", keys).Errorf("toml decode error: unknown keys %s", strings.Join(keys, ", "))
		}
	case ".yaml", ".yml":
		if err := yaml.UnmarshalStrict(data, &p); err != nil {
			return Profile{}, eb.Wrapf(err, "yaml decode error")
		}
	default:
		return Profile{}, eb.Errorf("unsupported profile format %q", filepath.Ext(path))
	}

	if err := p.Validate(); err != nil {
		return Profile{}, eb.Wrapf(err, "invalid profile")
	}
	return p, nil
}

// Validate checks the profile for values that would break the ordering guarantees
func (p Profile) Validate() error {
	eb := oops.In("scoring").With("version", p.Version)

	if !semver.IsValid(p.Version) {
		return eb.Errorf("version %q is not a semantic version", p.Version)
	}
	if semver.Major(p.Version) != semver.Major(ProfileVersion) {
		return eb.Errorf("unsupported profile major version %s", semver.Major(p.Version))
	}
	weights := map[string]float64{
		"kev_weight":             p.KEVWeight,
		"cvss_multiplier":        p.CVSSMultiplier,
		"epss_up_multiplier":     p.EPSSUpMultiplier,
		"epss_stable_multiplier": p.EPSSStableMultiplier,
		"cwe_weight":             p.CWEWeight,
	}
	for name, w := range weights {
		if w < 0 {
			return eb.With("weight", name).Errorf("%s must not be negative", name)
		}
	}
	// KEV presence and Top 25 membership must always raise the score
	if p.KEVWeight <= 0 {
		return eb.With("weight", "kev_weight").Errorf("kev_weight must be positive")
	}
	if p.CWEWeight <= 0 {
		return eb.With("weight", "cwe_weight").Errorf("cwe_weight must be positive")
	}
	if p.UpThreshold <= 0 || p.DownThreshold <= 0 {
		return eb.Errorf("trend thresholds must be positive")
	}
	if p.DownThreshold > p.UpThreshold {
		return eb.Errorf("down_threshold %.4f exceeds up_threshold %.4f", p.DownThreshold, p.UpThreshold)
	}
	return nil
}

// EncodeTOML renders the profile in the TOML layout accepted by LoadProfile
func (p Profile) EncodeTOML() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(p); err != nil {
		return nil, oops.In("scoring").Wrapf(err, "toml encode error")
	}
	return buf.Bytes(), nil
}
