package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/ethanolivertroy/sap-compass/internal/cache"
	"github.com/ethanolivertroy/sap-compass/internal/log"
)

// ErrNotFound is returned when the remote API has no entry for a CVE
var ErrNotFound = errors.New("not found")

const defaultRetries = 3

type options struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache
	retries    uint64
}

// Option configures an API client
type Option func(*options)

// WithBaseURL points the client at another endpoint
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.httpClient = &http.Client{Timeout: timeout}
	}
}

// WithRateLimit spaces requests out to perSecond, 0 disables limiting
func WithRateLimit(perSecond float64) Option {
	return func(o *options) {
		if perSecond <= 0 {
			o.limiter = nil
			return
		}
		o.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithCache stores successful responses. A nil cache disables caching.
func WithCache(c *cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithRetries sets how often a failed request is retried
func WithRetries(n uint64) Option {
	return func(o *options) {
		o.retries = n
	}
}

func newOptions(baseURL string, opts []Option) *options {
	o := &options{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		retries:    defaultRetries,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// get fetches url, retrying transport errors, 429 and 5xx responses with
// exponential backoff. 404 maps to ErrNotFound.
func (o *options) get(ctx context.Context, url string) ([]byte, error) {
	logger := log.WithPrefix("clients")

	var body []byte
	operation := func() error {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := o.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	b := backoff.WithContext(backoff.WithMaxRetries(bo, o.retries), ctx)

	err := backoff.RetryNotify(operation, b, func(err error, wait time.Duration) {
		logger.Debug("Retrying request", log.String("url", url), log.Duration("wait", wait), log.Err(err))
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// cached returns the cached payload for key, or fetches url and stores it
func (o *options) cached(ctx context.Context, namespace, key, url string) ([]byte, error) {
	if o.cache != nil {
		if data, ok := o.cache.Get(namespace, key); ok {
			return data, nil
		}
	}

	data, err := o.get(ctx, url)
	if err != nil {
		return nil, err
	}

	if o.cache != nil {
		if err := o.cache.Set(namespace, key, data); err != nil {
			log.WithPrefix("clients").Warn("Failed to cache response", log.String("namespace", namespace), log.Err(err))
		}
	}
	return data, nil
}
