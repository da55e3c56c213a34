package app

import (
	"context"
	"fmt"
	"log"
	"sort"

	"codemaster/internal/badges"
	"codemaster/internal/domain"
	"codemaster/internal/progression"
	"codemaster/internal/stats"
)

// Profile is the player overview: level display, aggregates and badge counts.
type Profile struct {
	progression.Snapshot
	stats.Summary
	BadgesUnlocked int `json:"badgesUnlocked"`
	BadgesTotal    int `json:"badgesTotal"`
}

// CategoryCount is the number of catalog questions in one category.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Profile computes the player overview from the full history.
func (s *QuizService) Profile(ctx context.Context) (Profile, error) {
	all, err := s.sessions.All(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("load sessions: %w", err)
	}
	catalog, err := s.Badges(ctx)
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		Snapshot:       progression.SnapshotFor(progression.AwardedXP(all)),
		Summary:        stats.Summarize(all, s.now(), s.loc),
		BadgesUnlocked: badges.CountUnlocked(catalog),
		BadgesTotal:    len(catalog),
	}, nil
}

// History returns finished sessions, most recent first.
func (s *QuizService) History(ctx context.Context) ([]domain.Session, error) {
	all, err := s.sessions.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	done := domain.Completed(all)
	sort.SliceStable(done, func(i, j int) bool {
		return done[i].EndedAt.After(*done[j].EndedAt)
	})
	return done, nil
}

// DailyAverages returns the average percentage per day over the last days days.
func (s *QuizService) DailyAverages(ctx context.Context, days int) ([]stats.DayAverage, error) {
	all, err := s.sessions.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	return stats.DailyAverages(all, s.now(), s.loc, days), nil
}

// Badges returns the badge catalog for display, seeding it on first use.
func (s *QuizService) Badges(ctx context.Context) ([]domain.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.badgeCatalogLocked(ctx)
	if err != nil {
		return nil, err
	}
	return badges.Sorted(catalog), nil
}

// badgeCatalogLocked loads the stored catalog and persists any default badge it lacks.
func (s *QuizService) badgeCatalogLocked(ctx context.Context) ([]domain.Badge, error) {
	stored, err := s.badges.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}
	catalog := badges.Merge(stored)
	if len(catalog) != len(stored) {
		if err := s.badges.SaveAll(ctx, catalog); err != nil {
			return nil, fmt.Errorf("seed badges: %w", err)
		}
	}
	return catalog, nil
}

// ResetBadges locks every badge again.
func (s *QuizService) ResetBadges(ctx context.Context) ([]domain.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.badgeCatalogLocked(ctx)
	if err != nil {
		return nil, err
	}
	badges.Reset(catalog)
	if err := s.badges.SaveAll(ctx, catalog); err != nil {
		return nil, fmt.Errorf("save badges: %w", err)
	}
	log.Printf("badges reset (%d)", len(catalog))
	s.emit(ctx, domain.EventBadgesReset, "", nil)
	return catalog, nil
}

// ImportQuestions replaces the whole catalog with qs.
func (s *QuizService) ImportQuestions(ctx context.Context, qs []domain.Question) error {
	if len(qs) == 0 {
		return fmt.Errorf("%w: empty question set", domain.ErrInvalidImport)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.questions.Clear(ctx); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	if err := s.questions.SaveMany(ctx, qs); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	log.Printf("imported %d questions", len(qs))
	s.emit(ctx, domain.EventCatalogImported, "", map[string]int{"count": len(qs)})
	return nil
}

// Categories lists catalog categories with their question counts, by name.
func (s *QuizService) Categories(ctx context.Context) ([]CategoryCount, error) {
	catalog, err := s.questions.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	counts := map[string]int{}
	for _, q := range catalog {
		counts[q.Category]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
