package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"sync"
	"time"

	"codemaster/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const questionsKey = "codemaster:questions"

// refreshScript updates one field only while the catalog hash is live, so a
// write racing the expiry never recreates a partial catalog.
var refreshScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
end
return 0
`)

// QuestionSource is the authoritative catalog behind the cache.
type QuestionSource interface {
	All(ctx context.Context) ([]domain.Question, error)
	Get(ctx context.Context, id string) (domain.Question, error)
	Save(ctx context.Context, q domain.Question) error
	SaveMany(ctx context.Context, qs []domain.Question) error
	Clear(ctx context.Context) error
}

// QuestionCache caches the catalog in Redis (one hash field per question) and
// falls back to the source on a miss.
//
//	HSET codemaster:questions {questionID} {json}
type QuestionCache struct {
	client *redis.Client
	source QuestionSource
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, source QuestionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) All(ctx context.Context) ([]domain.Question, error) {
	if cached, ok := c.cached(ctx); ok {
		return cached, nil
	}

	result, err, _ := c.sf.Do(questionsKey, func() (interface{}, error) {
		// re-check in case another caller filled it
		if cached, ok := c.cached(ctx); ok {
			return cached, nil
		}

		catalog, err := c.source.All(ctx)
		if err != nil {
			return nil, err
		}
		c.fill(ctx, catalog)
		return catalog, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) Get(ctx context.Context, id string) (domain.Question, error) {
	raw, err := c.client.HGet(ctx, questionsKey, id).Bytes()
	if err == nil {
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err == nil {
			return q, nil
		}
	}
	return c.source.Get(ctx, id)
}

// Save writes through and refreshes the cached field when the hash is live.
func (c *QuestionCache) Save(ctx context.Context, q domain.Question) error {
	if err := c.source.Save(ctx, q); err != nil {
		return err
	}
	c.refresh(ctx, q)
	return nil
}

func (c *QuestionCache) SaveMany(ctx context.Context, qs []domain.Question) error {
	if err := c.source.SaveMany(ctx, qs); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

func (c *QuestionCache) Clear(ctx context.Context) error {
	if err := c.source.Clear(ctx); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached catalog.
func (c *QuestionCache) Invalidate(ctx context.Context) {
	_ = c.client.Del(ctx, questionsKey).Err()
}

func (c *QuestionCache) cached(ctx context.Context) ([]domain.Question, bool) {
	fields, err := c.client.HGetAll(ctx, questionsKey).Result()
	if err != nil || len(fields) == 0 {
		return nil, false
	}
	out := make([]domain.Question, 0, len(fields))
	for _, raw := range fields {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, false
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, true
}

func (c *QuestionCache) fill(ctx context.Context, catalog []domain.Question) {
	if len(catalog) == 0 {
		return
	}
	values := make(map[string]interface{}, len(catalog))
	for _, q := range catalog {
		raw, err := json.Marshal(q)
		if err != nil {
			return
		}
		values[q.ID] = raw
	}
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, questionsKey, values)
	if ttl := c.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, questionsKey, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func (c *QuestionCache) refresh(ctx context.Context, q domain.Question) {
	raw, err := json.Marshal(q)
	if err != nil {
		c.Invalidate(ctx)
		return
	}
	if err := refreshScript.Run(ctx, c.client, []string{questionsKey}, q.ID, raw).Err(); err != nil {
		c.Invalidate(ctx)
	}
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
