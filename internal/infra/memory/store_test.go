package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"codemaster/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	correct := true
	sess := domain.Session{
		ID:        "s1",
		StartedAt: time.Now(),
		Questions: []domain.SessionQuestion{{
			Question:    domain.Question{ID: "q1", Answers: []string{"a", "b"}},
			AnswerOrder: []int{1, 0},
			Correct:     &correct,
		}},
	}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	// mutating the caller's copy must not leak into the store
	*sess.Questions[0].Correct = false
	sess.Questions[0].AnswerOrder[0] = 9

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Questions[0].IsCorrect() || got.Questions[0].AnswerOrder[0] != 1 {
		t.Fatalf("stored session was aliased: %+v", got.Questions[0])
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionStoreAllOrdersByStart(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		_ = store.Save(ctx, domain.Session{ID: id, StartedAt: base.Add(time.Duration(3-i) * time.Hour)})
	}
	all, _ := store.All(ctx)
	if len(all) != 3 || all[0].ID != "b" || all[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", all)
	}

	_ = store.Clear(ctx)
	if all, _ := store.All(ctx); len(all) != 0 {
		t.Fatalf("expected empty store, got %d", len(all))
	}
}

func TestQuestionStoreKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewQuestionStore(domain.Question{ID: "q2"}, domain.Question{ID: "q1"})
	_ = store.Save(ctx, domain.Question{ID: "q2", TimesShown: 3})

	all, _ := store.All(ctx)
	if len(all) != 2 || all[0].ID != "q2" || all[0].TimesShown != 3 {
		t.Fatalf("unexpected catalog: %+v", all)
	}
	if _, err := store.Get(ctx, "missing"); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBadgeStoreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewBadgeStore()
	at := time.Now()
	in := []domain.Badge{{ID: "first_quiz", Status: domain.BadgeUnlocked, UnlockedAt: &at}}
	_ = store.SaveAll(ctx, in)
	in[0].Status = domain.BadgeLocked

	out, _ := store.List(ctx)
	if len(out) != 1 || !out[0].Unlocked() {
		t.Fatalf("expected stored badge to stay unlocked: %+v", out)
	}
}

func TestCatalogCacheCaches(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{QuestionStore: NewQuestionStore(domain.Question{ID: "q1"})}
	cache := NewCatalogCache(source, time.Minute)

	if _, err := cache.All(ctx); err != nil {
		t.Fatalf("all: %v", err)
	}
	if _, err := cache.All(ctx); err != nil {
		t.Fatalf("all 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls %d", source.calls)
	}

	if err := cache.Save(ctx, domain.Question{ID: "q2"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	all, err := cache.All(ctx)
	if err != nil {
		t.Fatalf("all 3: %v", err)
	}
	if source.calls != 2 || len(all) != 2 {
		t.Fatalf("expected reload after write, calls=%d len=%d", source.calls, len(all))
	}
}

func TestCatalogCacheExpires(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{QuestionStore: NewQuestionStore(domain.Question{ID: "q1"})}
	cache := NewCatalogCache(source, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	_, _ = cache.All(ctx)
	now = now.Add(2 * time.Minute)
	_, _ = cache.All(ctx)
	if source.calls != 2 {
		t.Fatalf("expected reload after ttl, calls %d", source.calls)
	}
}

type countingSource struct {
	*QuestionStore
	calls int
}

func (s *countingSource) All(ctx context.Context) ([]domain.Question, error) {
	s.calls++
	return s.QuestionStore.All(ctx)
}

// pausingSource holds its first All call after taking the snapshot until released.
type pausingSource struct {
	*QuestionStore
	taken   chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *pausingSource) All(ctx context.Context) ([]domain.Question, error) {
	qs, err := s.QuestionStore.All(ctx)
	s.once.Do(func() {
		close(s.taken)
		<-s.release
	})
	return qs, err
}

func TestCatalogCacheDropsSnapshotOverlappingWrite(t *testing.T) {
	ctx := context.Background()
	source := &pausingSource{
		QuestionStore: NewQuestionStore(domain.Question{ID: "q1"}),
		taken:         make(chan struct{}),
		release:       make(chan struct{}),
	}
	cache := NewCatalogCache(source, time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cache.All(ctx)
	}()

	<-source.taken
	if err := cache.Save(ctx, domain.Question{ID: "q1", TimesShown: 5}); err != nil {
		t.Fatalf("save: %v", err)
	}
	close(source.release)
	<-done

	all, err := cache.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 || all[0].TimesShown != 5 {
		t.Fatalf("expected fresh counters after overlapping write, got %+v", all)
	}
}
