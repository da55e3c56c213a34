package memory

import (
	"context"
	"sync"

	"codemaster/internal/domain"
)

// BadgeStore holds the badge catalog in memory.
type BadgeStore struct {
	mu     sync.RWMutex
	badges []domain.Badge
}

func NewBadgeStore() *BadgeStore {
	return &BadgeStore{}
}

func (s *BadgeStore) List(_ context.Context) ([]domain.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyBadges(s.badges), nil
}

func (s *BadgeStore) SaveAll(_ context.Context, badges []domain.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badges = copyBadges(badges)
	return nil
}

func copyBadges(in []domain.Badge) []domain.Badge {
	out := make([]domain.Badge, len(in))
	for i, b := range in {
		if b.UnlockedAt != nil {
			at := *b.UnlockedAt
			b.UnlockedAt = &at
		}
		out[i] = b
	}
	return out
}
