package selection

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"codemaster/internal/domain"
)

// defaultAnswerSlots is used when a record carries no answers at all.
const defaultAnswerSlots = 4

// Rand is the subset of *rand.Rand the selector needs.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Selector picks and orders the questions of a new session.
type Selector struct {
	mu  sync.Mutex
	rng Rand
}

// NewSelector builds a selector. A nil rng falls back to a time-seeded source.
func NewSelector(rng Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{rng: rng}
}

// Select filters catalog by categories and difficulty, favours the least shown
// records and attaches a fresh answer permutation to each pick.
// It returns fewer than count questions when the pool is short.
func (s *Selector) Select(catalog []domain.Question, categories []string, difficulty domain.Difficulty, count int) []domain.SessionQuestion {
	if len(categories) == 0 || count <= 0 {
		return []domain.SessionQuestion{}
	}

	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}

	pool := make([]domain.Question, 0, len(catalog))
	for _, q := range catalog {
		if _, ok := wanted[q.Category]; !ok {
			continue
		}
		if difficulty != domain.DifficultyAny && q.Difficulty != difficulty {
			continue
		}
		pool = append(pool, q)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// shuffle first so the stable sort breaks TimesShown ties randomly
	s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].TimesShown < pool[j].TimesShown
	})

	if count > len(pool) {
		count = len(pool)
	}

	out := make([]domain.SessionQuestion, 0, count)
	for _, q := range pool[:count] {
		q.Answers = append([]string(nil), q.Answers...)
		out = append(out, domain.SessionQuestion{
			Question:    q,
			AnswerOrder: s.permutation(len(q.Answers)),
		})
	}
	return out
}

func (s *Selector) permutation(n int) []int {
	if n <= 0 {
		n = defaultAnswerSlots
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	s.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}
