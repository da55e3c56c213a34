package memory

import (
	"context"
	"sync"

	"codemaster/internal/domain"
)

// QuestionStore keeps the catalog in insertion order.
type QuestionStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]domain.Question
}

func NewQuestionStore(seed ...domain.Question) *QuestionStore {
	s := &QuestionStore{byID: make(map[string]domain.Question)}
	for _, q := range seed {
		s.putLocked(q)
	}
	return s
}

func (s *QuestionStore) All(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyQuestion(s.byID[id]))
	}
	return out, nil
}

func (s *QuestionStore) Get(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.byID[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return copyQuestion(q), nil
}

func (s *QuestionStore) Save(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(q)
	return nil
}

func (s *QuestionStore) SaveMany(_ context.Context, qs []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range qs {
		s.putLocked(q)
	}
	return nil
}

func (s *QuestionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.byID = make(map[string]domain.Question)
	return nil
}

func (s *QuestionStore) putLocked(q domain.Question) {
	if _, ok := s.byID[q.ID]; !ok {
		s.order = append(s.order, q.ID)
	}
	s.byID[q.ID] = copyQuestion(q)
}

func copyQuestion(q domain.Question) domain.Question {
	q.Answers = append([]string(nil), q.Answers...)
	return q
}
