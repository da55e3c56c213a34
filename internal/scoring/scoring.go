package scoring

import "codemaster/internal/domain"

// DefaultWeight applies to any difficulty outside the three tiers.
const DefaultWeight = 1

var weights = map[domain.Difficulty]int{
	domain.DifficultyEasy:   1,
	domain.DifficultyMedium: 2,
	domain.DifficultyHard:   3,
}

// Result is the outcome of scoring a finished session.
type Result struct {
	WeightedScore    int     `json:"weightedScore"`
	MaxWeightedScore int     `json:"maxWeightedScore"`
	Percentage       float64 `json:"percentage"`
	CorrectCount     int     `json:"correctCount"`
}

// Weight returns the score points a question of difficulty d is worth.
func Weight(d domain.Difficulty) int {
	if w, ok := weights[d]; ok {
		return w
	}
	return DefaultWeight
}

// Score computes the weighted score, its maximum and the percentage of correct answers.
// Skipped and wrong questions still count toward the maximum and the percentage denominator.
func Score(questions []domain.SessionQuestion) Result {
	var res Result
	for _, q := range questions {
		points := Weight(q.Difficulty)
		res.MaxWeightedScore += points
		if q.IsCorrect() {
			res.WeightedScore += points
			res.CorrectCount++
		}
	}
	if len(questions) > 0 {
		res.Percentage = float64(res.CorrectCount) / float64(len(questions)) * 100
	}
	return res
}

// Apply copies the result onto the session's score fields.
func (r Result) Apply(s *domain.Session) {
	s.WeightedScore = r.WeightedScore
	s.MaxWeightedScore = r.MaxWeightedScore
	s.Percentage = r.Percentage
}
