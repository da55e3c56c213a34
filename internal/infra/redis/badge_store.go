package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"codemaster/internal/domain"
	"github.com/redis/go-redis/v9"
)

const badgesKey = "codemaster:badges"

// BadgeStore keeps the whole badge catalog under one JSON key.
type BadgeStore struct {
	client *redis.Client
}

func NewBadgeStore(client *redis.Client) *BadgeStore {
	return &BadgeStore{client: client}
}

func (s *BadgeStore) List(ctx context.Context) ([]domain.Badge, error) {
	raw, err := s.client.Get(ctx, badgesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.Badge{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get badges: %w", err)
	}
	var badges []domain.Badge
	if err := json.Unmarshal(raw, &badges); err != nil {
		return nil, fmt.Errorf("decode badges: %w", err)
	}
	return badges, nil
}

func (s *BadgeStore) SaveAll(ctx context.Context, badges []domain.Badge) error {
	raw, err := json.Marshal(badges)
	if err != nil {
		return fmt.Errorf("encode badges: %w", err)
	}
	if err := s.client.Set(ctx, badgesKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("save badges: %w", err)
	}
	return nil
}
