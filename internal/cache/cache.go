package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	bolt "go.etcd.io/bbolt"
	"k8s.io/utils/clock"
)

// DefaultTTL is the default cache time-to-live
const DefaultTTL = 24 * time.Hour

const dbFile = "cache.db"

// Cache is a bbolt-backed store of HTTP payloads, one bucket per namespace
type Cache struct {
	db    *bolt.DB
	path  string
	ttl   time.Duration
	clock clock.Clock
}

type entry struct {
	StoredAt time.Time       `json:"stored_at"`
	Data     json.RawMessage `json:"data"`
}

type Option func(*Cache)

func WithClock(clock clock.Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

// DefaultDir returns ~/.cache/<appName>
func DefaultDir(appName string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", oops.In("cache").Wrapf(err, "failed to find home directory")
	}
	return filepath.Join(homeDir, ".cache", appName), nil
}

// New opens (or creates) the cache database under dir
func New(dir string, ttl time.Duration, opts ...Option) (*Cache, error) {
	eb := oops.In("cache").With("dir", dir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, eb.Wrapf(err, "failed to mkdir")
	}

	path := filepath.Join(dir, dbFile)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, eb.Wrapf(err, "failed to open cache db")
	}

	if ttl == 0 {
		ttl = DefaultTTL
	}

	c := &Cache{
		db:    db,
		path:  path,
		ttl:   ttl,
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Path returns the location of the cache database
func (c *Cache) Path() string {
	return c.path
}

// Get retrieves data from cache if it exists and is not expired
func (c *Cache) Get(namespace, key string) ([]byte, bool) {
	var e entry
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &e)
	})
	if err != nil || e.Data == nil {
		return nil, false
	}

	// Check if cache is expired
	if c.clock.Since(e.StoredAt) > c.ttl {
		return nil, false
	}
	return e.Data, true
}

// Set stores data in the cache. data must be valid JSON.
func (c *Cache) Set(namespace, key string, data []byte) error {
	v, err := json.Marshal(entry{StoredAt: c.clock.Now(), Data: data})
	if err != nil {
		return oops.In("cache").With("namespace", namespace).Wrapf(err, "failed to encode entry")
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), v)
	})
	if err != nil {
		return oops.In("cache").With("namespace", namespace).Wrapf(err, "failed to put entry")
	}
	return nil
}

// Clear removes every namespace
func (c *Cache) Clear() error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		var names [][]byte
		if err := tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, append([]byte(nil), name...))
			return nil
		}); err != nil {
			return err
		}
		for _, name := range names {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return oops.In("cache").Wrapf(err, "failed to clear cache")
	}
	return nil
}

func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return oops.In("cache").Wrapf(err, "failed to close cache db")
	}
	return nil
}
