// Package ratingcache memoizes enrichment lookups per title/year and keeps
// them in durable storage across restarts.
package ratingcache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/trev125/FlickPick/internal/domain/model"
	"github.com/trev125/FlickPick/pkg/logger"
	"github.com/trev125/FlickPick/pkg/metrics"
)

// Provider fetches the requested facets for a title/year.
type Provider interface {
	Fetch(ctx context.Context, title string, year int, facets model.Facet) (model.Enrichment, error)
}

// Cache is an in-memory map of enrichments backed by optional Storage. The
// map is the source of truth; storage is read once on open and written in
// the background.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]model.Enrichment
	dirty   map[string]struct{}

	provider       Provider
	storage        Storage
	flushEvery     int
	resolveTimeout time.Duration
	logger         logger.Logger

	group   singleflight.Group
	flushMu sync.Mutex

	// closeMu orders wg.Add against Close's wg.Wait.
	closeMu sync.Mutex
	closed  bool
	wg      sync.WaitGroup
}

// Key builds the cache key for a title/year. It is exact and case-sensitive.
func Key(title string, year int) string {
	return title + "-" + strconv.Itoa(year)
}

// New creates a cache and loads its storage. A storage that cannot be read
// is dropped and the cache runs memory-only.
func New(ctx context.Context, provider Provider, opts ...Option) *Cache {
	c := &Cache{
		entries:        make(map[string]model.Enrichment),
		dirty:          make(map[string]struct{}),
		provider:       provider,
		flushEvery:     10,
		resolveTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Named("ratingcache")
	}
	c.load(ctx)
	return c
}

func (c *Cache) load(ctx context.Context) {
	if c.storage == nil {
		c.logger.Warn(ctx, "rating cache has no storage, running in memory only")
		return
	}
	raw, err := c.storage.Load(ctx)
	if err != nil {
		c.logger.Warn(ctx, "rating cache storage unavailable, running in memory only", logger.Error(err))
		if cerr := c.storage.Close(); cerr != nil {
			c.logger.Debug(ctx, "closing rating cache storage", logger.Error(cerr))
		}
		c.storage = nil
		return
	}

	for k, data := range raw {
		e, err := decodeEntry(data)
		if err != nil {
			c.logger.Warn(ctx, "skipping unreadable cache entry", logger.String("key", k), logger.Error(err))
			continue
		}
		c.entries[k] = e
	}
	metrics.UpdateRatingCacheSize(len(c.entries))
	c.logger.Info(ctx, "rating cache loaded", logger.Int("entries", len(c.entries)))
}

// Get returns the cached entry without contacting the provider.
func (c *Cache) Get(title string, year int) (model.Enrichment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[Key(title, year)]
	if !ok {
		return model.Enrichment{}, false
	}
	return e.Clone(), true
}

// Put stores e. When the insert makes the entry count a multiple of the
// flush interval, dirty entries are written in the background.
func (c *Cache) Put(title string, year int, e model.Enrichment) {
	k := Key(title, year)
	c.mu.Lock()
	_, existed := c.entries[k]
	c.entries[k] = e.Clone()
	c.dirty[k] = struct{}{}
	size := len(c.entries)
	c.mu.Unlock()

	metrics.UpdateRatingCacheSize(size)
	if !existed && size%c.flushEvery == 0 {
		c.flushAsync()
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Enrich returns the enrichment for title/year, fetching it on a miss.
// Entries written by an older schema are backfilled with only the missing
// facets. Entries without any primary data get one primary retry per call.
// Concurrent calls for the same key share one resolution. The shared lookup
// runs under its own timeout, so one caller giving up does not fail the others.
func (c *Cache) Enrich(ctx context.Context, title string, year int) (model.Enrichment, error) {
	k := Key(title, year)
	ch := c.group.DoChan(k, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.resolveTimeout)
		defer cancel()
		return c.resolve(rctx, title, year, k)
	})
	select {
	case <-ctx.Done():
		return model.Enrichment{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.Enrichment{}, res.Err
		}
		return res.Val.(model.Enrichment).Clone(), nil
	}
}

func (c *Cache) resolve(ctx context.Context, title string, year int, k string) (model.Enrichment, error) {
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()

	metrics.RecordRatingCacheLookup(ok)
	if !ok {
		fresh, err := c.provider.Fetch(ctx, title, year, model.FacetAll)
		if err != nil {
			return model.Enrichment{}, err
		}
		fresh.Version = model.EnrichmentVersion
		c.Put(title, year, fresh)
		return fresh, nil
	}

	changed := false
	if missing := model.MissingFacets(e.Version); missing != 0 {
		patch, err := c.provider.Fetch(ctx, title, year, missing)
		if err != nil {
			return e, nil
		}
		e = e.Clone()
		e.Merge(patch)
		e.Version = model.EnrichmentVersion
		changed = true
		metrics.RecordRatingCacheBackfill()
		c.logger.Debug(ctx, "backfilled legacy cache entry", logger.String("key", k))
	}

	if e.PrimaryMissing() {
		patch, err := c.provider.Fetch(ctx, title, year, model.FacetPrimary)
		if err == nil && !patch.PrimaryMissing() {
			e = e.Clone()
			e.Merge(patch)
			changed = true
			metrics.RecordRatingCacheRetry("healed")
		} else {
			metrics.RecordRatingCacheRetry("miss")
		}
	}

	if changed {
		c.mu.Lock()
		c.entries[k] = e.Clone()
		c.dirty[k] = struct{}{}
		c.mu.Unlock()
		c.flushAsync()
	}
	return e, nil
}

func (c *Cache) flushAsync() {
	if c.storage == nil {
		return
	}
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Flush(context.Background()); err != nil {
			c.logger.Warn(context.Background(), "background flush failed", logger.Error(err))
		}
	}()
}

// Flush writes every dirty entry to storage in one batch. The write lock is
// held only to swap out the dirty set; entries are encoded under a read lock.
func (c *Cache) Flush(ctx context.Context) error {
	if c.storage == nil {
		return nil
	}
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	dirty := c.dirty
	c.dirty = make(map[string]struct{})
	c.mu.Unlock()
	if len(dirty) == 0 {
		return nil
	}

	batch := make(map[string][]byte, len(dirty))
	c.mu.RLock()
	for k := range dirty {
		data, err := encodeEntry(c.entries[k])
		if err != nil {
			c.logger.Warn(ctx, "skipping unencodable cache entry", logger.String("key", k), logger.Error(err))
			continue
		}
		batch[k] = data
	}
	c.mu.RUnlock()

	if err := c.storage.Save(ctx, batch); err != nil {
		c.mu.Lock()
		for k := range batch {
			c.dirty[k] = struct{}{}
		}
		c.mu.Unlock()
		metrics.RecordRatingCacheFlush("error")
		return err
	}
	metrics.RecordRatingCacheFlush("ok")
	c.logger.Debug(ctx, "rating cache flushed", logger.Int("entries", len(batch)))
	return nil
}

// Close waits for background flushes, writes what is still dirty and closes
// the storage.
func (c *Cache) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closeMu.Unlock()

	c.wg.Wait()
	if c.storage == nil {
		return nil
	}
	ctx := context.Background()
	return errors.Join(c.Flush(ctx), c.storage.Close())
}
