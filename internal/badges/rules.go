package badges

import (
	"time"

	"codemaster/internal/domain"
)

// facts is everything a rule may look at during one evaluation.
type facts struct {
	session   domain.Session
	completed []domain.Session // ordered by EndedAt, oldest first
	streak    int
	totalXP   int
	end       time.Time // session end in the engine location
}

// Rule decides whether a single badge should unlock.
type Rule struct {
	BadgeID string
	Met     func(f facts) bool
}

func minCompleted(n int) func(facts) bool {
	return func(f facts) bool { return len(f.completed) >= n }
}

func minStreak(n int) func(facts) bool {
	return func(f facts) bool { return f.streak >= n }
}

func minXP(n int) func(facts) bool {
	return func(f facts) bool { return f.totalXP >= n }
}

func endHourIn(from, to int) func(facts) bool {
	return func(f facts) bool {
		h := f.end.Hour()
		return h >= from && h < to
	}
}

// Rules is the fixed, ordered rule set. Rules never depend on each other.
var Rules = []Rule{
	{FirstQuiz, minCompleted(1)},
	{PerfectScore, func(f facts) bool { return f.session.Percentage == 100 }},
	{Streak3, minStreak(3)},
	{Streak7, minStreak(7)},
	{Streak14, minStreak(14)},
	{Streak30, minStreak(30)},
	{Volume10, minCompleted(10)},
	{Volume50, minCompleted(50)},
	{Marathon, minCompleted(100)},
	{Score1000, minXP(1000)},
	{Score5000, minXP(5000)},
	{HardPerfect, func(f facts) bool {
		return f.session.Difficulty == domain.DifficultyHard && f.session.Percentage == 100
	}},
	{Persistence, func(f facts) bool { return f.session.Percentage < 50 }},
	{Speedster, speedster},
	{Explorer, explorer},
	{NightOwl, endHourIn(2, 5)},
	{EarlyBird, endHourIn(5, 8)},
	{Polyglot, polyglot},
	{Focus, focus},
	{WeekendWarrior, weekendWarrior},
	{DailyChallenger, func(f facts) bool { return f.session.DailyChallenge }},
}

const (
	speedsterMinQuestions = 10
	speedsterMinPercent   = 80
	speedsterMaxDuration  = 120 * time.Second
	focusWindow           = 5
	polyglotMinCategories = 3
)

func speedster(f facts) bool {
	s := f.session
	return len(s.Questions) >= speedsterMinQuestions &&
		s.Percentage >= speedsterMinPercent &&
		s.Duration() < speedsterMaxDuration
}

// explorer needs every tier as a session filter; "random" sessions do not count.
func explorer(f facts) bool {
	played := map[domain.Difficulty]bool{}
	for _, s := range f.completed {
		played[s.Difficulty] = true
	}
	for _, d := range domain.Tiers() {
		if !played[d] {
			return false
		}
	}
	return true
}

func polyglot(f facts) bool {
	cats := map[string]struct{}{}
	for _, s := range f.completed {
		for _, c := range s.Categories {
			cats[c] = struct{}{}
		}
	}
	return len(cats) >= polyglotMinCategories
}

func focus(f facts) bool {
	if len(f.completed) < focusWindow {
		return false
	}
	last := f.completed[len(f.completed)-focusWindow:]
	if len(last[0].Categories) != 1 {
		return false
	}
	want := last[0].Categories[0]
	if want == "" {
		return false
	}
	for _, s := range last {
		if len(s.Categories) != 1 || s.Categories[0] != want {
			return false
		}
	}
	return true
}

func weekendWarrior(f facts) bool {
	var sat, sun bool
	for _, s := range f.completed {
		switch s.EndedAt.In(f.end.Location()).Weekday() {
		case time.Saturday:
			sat = true
		case time.Sunday:
			sun = true
		}
	}
	return sat && sun
}
