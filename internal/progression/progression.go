package progression

import (
	"math"

	"codemaster/internal/domain"
)

const (
	XPEasy   = 10
	XPMedium = 20
	XPHard   = 30

	// ComboThreshold is the combo length a correct answer must exceed to earn the multiplier.
	ComboThreshold  = 3
	ComboMultiplier = 1.5

	// DailyChallengeMultiplier scales the whole session award for daily challenges.
	DailyChallengeMultiplier = 2

	xpPerLevelUnit = 100
)

// Level maps cumulative XP to a level, starting at 1.
func Level(xp int) int {
	if xp < 0 {
		return 1
	}
	return int(math.Floor(math.Sqrt(float64(xp)/xpPerLevelUnit))) + 1
}

// Threshold is the cumulative XP needed to complete level (and reach level+1).
func Threshold(level int) int {
	if level <= 0 {
		return 0
	}
	return level * level * xpPerLevelUnit
}

// LevelRange returns the [start, end) XP interval owned by level.
func LevelRange(level int) (start, end int) {
	return Threshold(level - 1), Threshold(level)
}

// BaseXP returns the XP a correct answer at difficulty d is worth before combo bonuses.
func BaseXP(d domain.Difficulty) int {
	switch d {
	case domain.DifficultyMedium:
		return XPMedium
	case domain.DifficultyHard:
		return XPHard
	default:
		return XPEasy
	}
}

// SessionXP computes the XP earned by a sequence of answered questions.
// Every answer that is not exactly correct (wrong, skipped, unset) breaks the combo.
func SessionXP(questions []domain.SessionQuestion) int {
	total := 0
	combo := 0
	for _, q := range questions {
		if !q.IsCorrect() {
			combo = 0
			continue
		}
		combo++
		xp := BaseXP(q.Difficulty)
		if combo > ComboThreshold {
			xp = int(math.Floor(float64(xp) * ComboMultiplier))
		}
		total += xp
	}
	return total
}

// Award is the XP credited for one finished session.
type Award struct {
	Base  int `json:"base"`
	Bonus int `json:"bonus"`
	Total int `json:"total"`
}

// AwardFor computes the XP award for a session, doubling it for daily challenges.
func AwardFor(s domain.Session) Award {
	base := SessionXP(s.Questions)
	award := Award{Base: base, Total: base}
	if s.DailyChallenge {
		award.Total = base * DailyChallengeMultiplier
		award.Bonus = award.Total - base
	}
	return award
}

// TotalXP sums the session XP of every completed session in history.
func TotalXP(history []domain.Session) int {
	total := 0
	for _, s := range history {
		if s.Pending() {
			continue
		}
		total += SessionXP(s.Questions)
	}
	return total
}

// AwardedXP sums the full awards, daily bonuses included, of every completed session.
func AwardedXP(history []domain.Session) int {
	total := 0
	for _, s := range history {
		if s.Pending() {
			continue
		}
		total += AwardFor(s).Total
	}
	return total
}
