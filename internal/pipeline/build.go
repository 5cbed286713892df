package pipeline

import (
	"os"

	"github.com/samber/oops"

	"github.com/ethanolivertroy/sap-compass/internal/cache"
	"github.com/ethanolivertroy/sap-compass/internal/clients"
	"github.com/ethanolivertroy/sap-compass/internal/log"
	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/normalizer"
	"github.com/ethanolivertroy/sap-compass/internal/parsers"
	"github.com/ethanolivertroy/sap-compass/internal/scoring"
)

// AppName names the default cache directory
const AppName = "sap-compass"

// Runner is a configured pipeline plus the resources it holds open
type Runner struct {
	*Pipeline

	cache *cache.Cache
}

// Close releases the fetch cache
func (r *Runner) Close() error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Close()
}

// New wires a pipeline from run configuration. memo may be nil.
func New(config *models.Config, memo *cache.FileMemo[*parsers.Table], opts ...Option) (*Runner, error) {
	logger := log.WithPrefix("pipeline")
	if len(config.Sources) == 0 {
		return nil, oops.In("pipeline").Errorf("no sources configured")
	}

	profile := scoring.DefaultProfile()
	if config.ProfileFile != "" {
		p, err := scoring.LoadProfile(config.ProfileFile)
		if err != nil {
			return nil, err
		}
		profile = p
	}

	var nopts []normalizer.Option
	if config.CWETop25File != "" {
		set, err := normalizer.LoadCWETop25(config.CWETop25File)
		if err != nil {
			return nil, err
		}
		nopts = append(nopts, normalizer.WithCWETop25(set))
	}
	if memo != nil {
		nopts = append(nopts, normalizer.WithTableMemo(memo))
	}

	r := &Runner{}

	if !config.NoCache && !config.Offline {
		dir := config.CacheDir
		if dir == "" {
			d, err := cache.DefaultDir(AppName)
			if err != nil {
				return nil, err
			}
			dir = d
		}
		c, err := cache.New(dir, config.CacheTTL)
		if err != nil {
			// Non-fatal: continue without cache
			logger.Warn("Cache unavailable", log.Err(err))
		} else {
			r.cache = c
		}
	}

	copts := []clients.Option{
		clients.WithTimeout(config.Timeout),
		clients.WithRateLimit(config.RatePerSecond),
	}
	if r.cache != nil {
		copts = append(copts, clients.WithCache(r.cache))
	}

	var popts []Option
	switch {
	case config.HistoryFile != "":
		h, err := clients.LoadHistoryFile(config.HistoryFile)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		popts = append(popts, WithHistory(h))
	case !config.Offline:
		epss := clients.NewEPSSClient(copts...)
		popts = append(popts, WithHistory(epss), WithScoreSource(epss))
	}
	if !config.Offline {
		if config.UseKEV {
			popts = append(popts, WithKEVSource(clients.NewKEVClient(copts...)))
		}
		if config.UseOSV {
			popts = append(popts, WithCVSSSource(clients.NewOSVClient(copts...)))
		}
	}
	if config.Progress {
		popts = append(popts, WithProgress(os.Stderr))
	}
	popts = append(popts, opts...)

	r.Pipeline = NewPipeline(config, normalizer.New(nopts...), scoring.New(profile), popts...)
	return r, nil
}
