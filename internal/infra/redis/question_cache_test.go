package redis

import (
	"context"
	"testing"
	"time"

	"codemaster/internal/domain"
	"codemaster/internal/infra/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingSource struct {
	*memory.QuestionStore
	calls int
}

func (s *countingSource) All(ctx context.Context) ([]domain.Question, error) {
	s.calls++
	return s.QuestionStore.All(ctx)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Prompt: "What is 2 + 2?", Answers: []string{"3", "4"}, CorrectIndex: 1, Category: "math", Difficulty: domain.DifficultyEasy},
		{ID: "q2", Prompt: "Capital of France?", Answers: []string{"Paris", "Lyon"}, Category: "geo", Difficulty: domain.DifficultyMedium},
	}
}

func TestQuestionCacheCachesInRedis(t *testing.T) {
	ctx := context.Background()
	mr, client := startRedis(t)
	source := &countingSource{QuestionStore: memory.NewQuestionStore(sampleQuestions()...)}
	cache := NewQuestionCache(client, source, time.Minute)

	all, err := cache.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 || source.calls != 1 {
		t.Fatalf("expected 2 questions from one load, got %d after %d calls", len(all), source.calls)
	}
	if !mr.Exists(questionsKey) {
		t.Fatalf("expected catalog hash")
	}

	// second call should hit the cache
	all, _ = cache.All(ctx)
	if source.calls != 1 || all[0].Answers[1] != "4" {
		t.Fatalf("expected cache hit, calls=%d", source.calls)
	}
}

func TestQuestionCacheWriteThrough(t *testing.T) {
	ctx := context.Background()
	mr, client := startRedis(t)
	source := &countingSource{QuestionStore: memory.NewQuestionStore(sampleQuestions()...)}
	cache := NewQuestionCache(client, source, time.Minute)
	_, _ = cache.All(ctx)

	q, err := cache.Get(ctx, "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	q.TimesShown = 5
	if err := cache.Save(ctx, q); err != nil {
		t.Fatalf("save: %v", err)
	}

	cached, _ := cache.Get(ctx, "q1")
	stored, _ := source.Get(ctx, "q1")
	if cached.TimesShown != 5 || stored.TimesShown != 5 {
		t.Fatalf("expected counters in cache and source, got %d/%d", cached.TimesShown, stored.TimesShown)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists(questionsKey) {
		t.Fatalf("expected cache dropped after clear")
	}
	if _, err := cache.Get(ctx, "q1"); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected not found after clear, got %v", err)
	}
}

// expireBeforeWrite fast-forwards the server right before the next cache write,
// so the catalog hash expires between the caller's decision and the write.
type expireBeforeWrite struct {
	mr    *miniredis.Miniredis
	after time.Duration
	armed bool
}

func (h *expireBeforeWrite) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *expireBeforeWrite) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *expireBeforeWrite) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if h.armed {
			switch cmd.Name() {
			case "hset", "evalsha", "eval":
				h.armed = false
				h.mr.FastForward(h.after)
			}
		}
		return next(ctx, cmd)
	}
}

func TestQuestionCacheSaveDuringExpiryKeepsCatalogWhole(t *testing.T) {
	ctx := context.Background()
	mr, client := startRedis(t)
	hook := &expireBeforeWrite{mr: mr, after: 2 * time.Minute}
	client.AddHook(hook)

	source := &countingSource{QuestionStore: memory.NewQuestionStore(sampleQuestions()...)}
	cache := NewQuestionCache(client, source, time.Minute)
	if all, err := cache.All(ctx); err != nil || len(all) != 2 {
		t.Fatalf("warm cache: %v %v", all, err)
	}

	q, err := source.Get(ctx, "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	q.TimesShown = 3
	hook.armed = true
	if err := cache.Save(ctx, q); err != nil {
		t.Fatalf("save: %v", err)
	}
	if hook.armed {
		t.Fatalf("expected the refresh to reach redis")
	}
	if mr.Exists(questionsKey) {
		t.Fatalf("expired catalog must not be recreated by a single-field write")
	}

	all, err := cache.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 || source.calls != 2 {
		t.Fatalf("expected full catalog reloaded from source, got %d questions after %d loads", len(all), source.calls)
	}
	if ttl := mr.TTL(questionsKey); ttl <= 0 {
		t.Fatalf("expected reloaded catalog to expire, ttl=%v", ttl)
	}
}
