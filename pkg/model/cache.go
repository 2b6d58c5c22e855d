package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/cnoret/retail-data-analysis/pkg/dataprep"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// CacheKey identifies a fitted model. Any change to the merged file contents
// or to a training parameter gives a different key.
type CacheKey struct {
	Digest    string
	Kind      Kind
	Trees     int
	Seed      int64
	TestRatio float64
	Missing   dataprep.MissingPolicy
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s/%s/%d/%d/%g/%s", k.Digest, k.Kind, k.Trees, k.Seed, k.TestRatio, k.Missing)
}

// FileDigest returns the hex SHA-256 of the file at path.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", failure.New(failure.NotFound, "digest", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", failure.New(failure.NotFound, "digest", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Cache keeps scored trainers for reuse by later predictions. Concurrent
// requests for the same key share a single fit.
type Cache struct {
	mu      sync.Mutex
	entries map[CacheKey]*Trainer
	order   []CacheKey
	limit   int
	group   singleflight.Group
}

// NewCache holds at most limit trainers; the oldest is evicted first.
func NewCache(limit int) *Cache {
	if limit <= 0 {
		limit = 8
	}
	return &Cache{entries: map[CacheKey]*Trainer{}, limit: limit}
}

// Get returns the trainer cached under key, calling fit on a miss. hit
// reports whether this caller did not run fit itself, either because the
// trainer was cached or because it joined a fit started by another caller.
func (c *Cache) Get(key CacheKey, fit func() (*Trainer, error)) (tr *Trainer, hit bool, err error) {
	c.mu.Lock()
	if tr, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return tr, true, nil
	}
	c.mu.Unlock()

	ran := false
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		ran = true
		tr, err := fit()
		if err != nil {
			return nil, err
		}
		c.put(key, tr)
		return tr, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Trainer), !ran, nil
}

func (c *Cache) put(key CacheKey, tr *Trainer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = tr
	for len(c.order) > c.limit {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
}

// Len returns the number of cached trainers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
