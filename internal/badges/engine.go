package badges

import (
	"sort"
	"time"

	"codemaster/internal/domain"
	"codemaster/internal/progression"
)

// Engine evaluates the rule set against a finished session and its history.
type Engine struct {
	now   func() time.Time
	loc   *time.Location
	rules []Rule
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for unlock timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the time zone used by the hour and weekday rules.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewEngine builds an engine with the default rule set.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:   time.Now,
		loc:   time.Local,
		rules: Rules,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate unlocks every locked badge in catalog whose rule holds. The catalog
// is mutated in place; the newly unlocked badges are also returned as copies.
// Badges unknown to the catalog are skipped. history should already contain session.
func (e *Engine) Evaluate(session domain.Session, history []domain.Session, streak int, catalog []domain.Badge) []domain.Badge {
	completed := domain.Completed(history)
	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].EndedAt.Before(*completed[j].EndedAt)
	})

	now := e.now()
	end := now
	if session.EndedAt != nil {
		end = *session.EndedAt
	} else {
		session.EndedAt = &end
	}

	f := facts{
		session:   session,
		completed: completed,
		streak:    streak,
		totalXP:   progression.TotalXP(completed),
		end:       end.In(e.loc),
	}

	index := make(map[string]int, len(catalog))
	for i, b := range catalog {
		index[b.ID] = i
	}

	var unlocked []domain.Badge
	for _, r := range e.rules {
		i, ok := index[r.BadgeID]
		if !ok || catalog[i].Unlocked() {
			continue
		}
		if !r.Met(f) {
			continue
		}
		at := now
		catalog[i].Status = domain.BadgeUnlocked
		catalog[i].UnlockedAt = &at
		unlocked = append(unlocked, catalog[i])
	}
	return unlocked
}

// Sorted orders badges for display: unlocked first, newest unlock first,
// then locked ones in their original order.
func Sorted(catalog []domain.Badge) []domain.Badge {
	out := append([]domain.Badge(nil), catalog...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Unlocked() != b.Unlocked() {
			return a.Unlocked()
		}
		if a.Unlocked() && a.UnlockedAt != nil && b.UnlockedAt != nil {
			return a.UnlockedAt.After(*b.UnlockedAt)
		}
		return false
	})
	return out
}

// CountUnlocked returns how many badges in catalog are unlocked.
func CountUnlocked(catalog []domain.Badge) int {
	n := 0
	for _, b := range catalog {
		if b.Unlocked() {
			n++
		}
	}
	return n
}
