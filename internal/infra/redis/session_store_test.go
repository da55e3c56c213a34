package redis

import (
	"context"
	"testing"
	"time"

	"codemaster/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func startRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := startRedis(t)
	store := NewSessionStore(client, time.Minute)

	start := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	pending := domain.Session{ID: "s1", StartedAt: start, Categories: []string{"go"}}
	if err := store.Save(ctx, pending); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("codemaster:session:s1") {
		t.Fatalf("expected session key")
	}
	if ttl := mr.TTL("codemaster:session:s1"); ttl != time.Minute {
		t.Fatalf("expected pending ttl, got %v", ttl)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "s1" || got.Categories[0] != "go" || !got.StartedAt.Equal(start) {
		t.Fatalf("unexpected session: %+v", got)
	}

	end := start.Add(time.Minute)
	got.EndedAt = &end
	if err := store.Save(ctx, got); err != nil {
		t.Fatalf("save finished: %v", err)
	}
	if ttl := mr.TTL("codemaster:session:s1"); ttl != 0 {
		t.Fatalf("expected finished session to persist, ttl %v", ttl)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionStoreAllSkipsExpired(t *testing.T) {
	ctx := context.Background()
	mr, client := startRedis(t)
	store := NewSessionStore(client, time.Minute)

	start := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Minute)
	_ = store.Save(ctx, domain.Session{ID: "done", StartedAt: start, EndedAt: &end})
	_ = store.Save(ctx, domain.Session{ID: "stale", StartedAt: start.Add(time.Hour)})

	mr.FastForward(2 * time.Minute)

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 || all[0].ID != "done" {
		t.Fatalf("expected only the finished session, got %+v", all)
	}
	if ok, _ := mr.SIsMember(sessionIndexKey, "stale"); ok {
		t.Fatalf("expected expired id removed from index")
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if all, _ := store.All(ctx); len(all) != 0 {
		t.Fatalf("expected empty store, got %d", len(all))
	}
}

func TestBadgeStore(t *testing.T) {
	ctx := context.Background()
	_, client := startRedis(t)
	store := NewBadgeStore(client)

	empty, err := store.List(ctx)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v %v", empty, err)
	}

	at := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	in := []domain.Badge{
		{ID: "first_quiz", Status: domain.BadgeUnlocked, UnlockedAt: &at},
		{ID: "marathon", Status: domain.BadgeLocked},
	}
	if err := store.SaveAll(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 || !out[0].Unlocked() || !out[0].UnlockedAt.Equal(at) || out[1].Unlocked() {
		t.Fatalf("unexpected badges: %+v", out)
	}
}
