package domain

import "time"

// Difficulty is the tier of a question. DifficultyAny is only meaningful as a session filter.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "facile"
	DifficultyMedium Difficulty = "moyen"
	DifficultyHard   Difficulty = "difficile"
	DifficultyAny    Difficulty = "random"
)

// Tiers returns the three playable difficulty tiers from lowest to highest.
func Tiers() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// IsTier reports whether d is one of the three fixed tiers.
func (d Difficulty) IsTier() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// IsFilter reports whether d can be used to start a session.
func (d Difficulty) IsFilter() bool {
	return d == DifficultyAny || d.IsTier()
}

// Question is a catalog record with its play counters.
type Question struct {
	ID           string     `json:"id"`
	Prompt       string     `json:"prompt"`
	Answers      []string   `json:"answers"`
	CorrectIndex int        `json:"correctIndex"`
	Explanation  string     `json:"explanation,omitempty"`
	Category     string     `json:"category"`
	Difficulty   Difficulty `json:"difficulty"`
	TimesShown   int        `json:"timesShown"`
	TimesCorrect int        `json:"timesCorrect"`
}

// SessionQuestion is a question snapshot plus its per-session outcome.
type SessionQuestion struct {
	Question
	AnswerOrder []int `json:"answerOrder"`
	Skipped     bool  `json:"skipped"`
	Correct     *bool `json:"correct"` // nil until answered or skipped
}

// Answered reports whether an outcome has been recorded.
func (q SessionQuestion) Answered() bool {
	return q.Correct != nil
}

// IsCorrect reports whether the outcome is exactly true.
func (q SessionQuestion) IsCorrect() bool {
	return q.Correct != nil && *q.Correct
}

// Session is one quiz run. A nil EndedAt marks it as pending.
type Session struct {
	ID               string            `json:"sessionId"`
	StartedAt        time.Time         `json:"startedAt"`
	EndedAt          *time.Time        `json:"endedAt"`
	Questions        []SessionQuestion `json:"questions"`
	Cursor           int               `json:"cursor"`
	Difficulty       Difficulty        `json:"difficulty"`
	Categories       []string          `json:"categories"`
	WeightedScore    int               `json:"weightedScore"`
	MaxWeightedScore int               `json:"maxWeightedScore"`
	Percentage       float64           `json:"percentage"`
	Day              string            `json:"day,omitempty"`
	DailyChallenge   bool              `json:"dailyChallenge,omitempty"`
}

// Pending reports whether the session has not been finished yet.
func (s Session) Pending() bool {
	return s.EndedAt == nil
}

// Duration is the wall-clock time between start and end, zero while pending.
func (s Session) Duration() time.Duration {
	if s.EndedAt == nil {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Current returns the question under the cursor.
func (s *Session) Current() (*SessionQuestion, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Questions) {
		return nil, false
	}
	return &s.Questions[s.Cursor], true
}

// IsLast reports whether the cursor points at the final question.
func (s Session) IsLast() bool {
	return s.Cursor == len(s.Questions)-1
}

// Completed filters out pending sessions.
func Completed(sessions []Session) []Session {
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if !s.Pending() {
			out = append(out, s)
		}
	}
	return out
}

// BadgeStatus is the two-state lifecycle of a badge.
type BadgeStatus string

const (
	BadgeLocked   BadgeStatus = "locked"
	BadgeUnlocked BadgeStatus = "unlocked"
)

// Badge is an achievement with its unlock state.
type Badge struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        string      `json:"icon,omitempty"`
	Status      BadgeStatus `json:"status"`
	UnlockedAt  *time.Time  `json:"unlockedAt,omitempty"`
}

// Unlocked reports whether the badge has been earned.
func (b Badge) Unlocked() bool {
	return b.Status == BadgeUnlocked
}

// Event is a progress notification fanned out to live subscribers and the event bus.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	At        time.Time `json:"at"`
}

const (
	EventSessionStarted   = "session.started"
	EventQuestionAnswered = "question.answered"
	EventSessionFinished  = "session.finished"
	EventSessionAbandoned = "session.abandoned"
	EventBadgeUnlocked    = "badge.unlocked"
	EventBadgesReset      = "badges.reset"
	EventCatalogImported  = "catalog.imported"
)

// Clone returns a deep copy so stores never share slices with callers.
func (s Session) Clone() Session {
	out := s
	if s.EndedAt != nil {
		end := *s.EndedAt
		out.EndedAt = &end
	}
	out.Categories = append([]string(nil), s.Categories...)
	out.Questions = make([]SessionQuestion, len(s.Questions))
	for i, q := range s.Questions {
		q.Answers = append([]string(nil), q.Answers...)
		q.AnswerOrder = append([]int(nil), q.AnswerOrder...)
		if q.Correct != nil {
			c := *q.Correct
			q.Correct = &c
		}
		out.Questions[i] = q
	}
	return out
}
