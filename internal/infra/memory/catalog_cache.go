package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"codemaster/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionSource is the backing catalog behind a CatalogCache.
type QuestionSource interface {
	All(ctx context.Context) ([]domain.Question, error)
	Get(ctx context.Context, id string) (domain.Question, error)
	Save(ctx context.Context, q domain.Question) error
	SaveMany(ctx context.Context, qs []domain.Question) error
	Clear(ctx context.Context) error
}

// CatalogCache caches the full catalog with TTL to avoid repeated store hits.
// Writes go to the source and invalidate the cached copy.
type CatalogCache struct {
	source QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu        sync.RWMutex
	rnd       *rand.Rand
	catalog   []domain.Question
	expiresAt time.Time
	gen       uint64 // bumped by every invalidation
}

const catalogKey = "catalog"

func NewCatalogCache(source QuestionSource, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) All(ctx context.Context) ([]domain.Question, error) {
	if cached, ok := c.cached(c.clock()); ok {
		return cached, nil
	}

	result, err, _ := c.sf.Do(catalogKey, func() (interface{}, error) {
		now := c.clock()
		if cached, ok := c.cached(now); ok {
			return cached, nil
		}

		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		catalog, err := c.source.All(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// a write during the load makes the snapshot stale
		if c.gen == gen {
			c.catalog = catalog
			c.expiresAt = now.Add(c.ttlWithJitter())
		}
		c.mu.Unlock()
		return copyCatalog(catalog), nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *CatalogCache) cached(now time.Time) ([]domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.catalog == nil || !c.expiresAt.After(now) {
		return nil, false
	}
	return copyCatalog(c.catalog), true
}

func (c *CatalogCache) Get(ctx context.Context, id string) (domain.Question, error) {
	return c.source.Get(ctx, id)
}

func (c *CatalogCache) Save(ctx context.Context, q domain.Question) error {
	defer c.Invalidate()
	return c.source.Save(ctx, q)
}

func (c *CatalogCache) SaveMany(ctx context.Context, qs []domain.Question) error {
	defer c.Invalidate()
	return c.source.SaveMany(ctx, qs)
}

func (c *CatalogCache) Clear(ctx context.Context) error {
	defer c.Invalidate()
	return c.source.Clear(ctx)
}

// Invalidate drops the cached catalog.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	c.catalog = nil
	c.gen++
	c.mu.Unlock()
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func copyCatalog(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	for i, q := range in {
		out[i] = copyQuestion(q)
	}
	return out
}
