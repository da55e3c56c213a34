package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"codemaster/internal/badges"
	"codemaster/internal/domain"
	"codemaster/internal/metrics"
	"codemaster/internal/progression"
	"codemaster/internal/scoring"
	"codemaster/internal/selection"
	"codemaster/internal/stats"
	"github.com/google/uuid"
)

// DefaultQuestionCount is used when a start request does not ask for a size.
const DefaultQuestionCount = 10

// QuestionRepository stores the question catalog and its play counters.
type QuestionRepository interface {
	All(ctx context.Context) ([]domain.Question, error)
	Get(ctx context.Context, id string) (domain.Question, error)
	Save(ctx context.Context, q domain.Question) error
	SaveMany(ctx context.Context, qs []domain.Question) error
	Clear(ctx context.Context) error
}

// SessionRepository stores pending and finished quiz sessions.
type SessionRepository interface {
	All(ctx context.Context) ([]domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, error)
	Save(ctx context.Context, s domain.Session) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// BadgeRepository stores the badge catalog with its unlock state.
type BadgeRepository interface {
	List(ctx context.Context) ([]domain.Badge, error)
	SaveAll(ctx context.Context, badges []domain.Badge) error
}

// EventPublisher forwards progress events outside the process.
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.Event) error
}

// StartRequest describes a new session.
type StartRequest struct {
	Categories     []string          `json:"categories"`
	Difficulty     domain.Difficulty `json:"difficulty"`
	Count          int               `json:"count"`
	DailyChallenge bool              `json:"dailyChallenge,omitempty"`
}

// AnswerResult is the immediate feedback for one answer.
type AnswerResult struct {
	SessionID    string `json:"sessionId"`
	QuestionID   string `json:"questionId"`
	Correct      bool   `json:"correct"`
	CorrectIndex int    `json:"correctIndex"`
	Explanation  string `json:"explanation,omitempty"`
	Points       int    `json:"points"`
	Combo        int    `json:"combo"`
	Last         bool   `json:"last"`
}

// Summary is returned once a session is finished.
type Summary struct {
	Session     domain.Session       `json:"session"`
	Score       scoring.Result       `json:"score"`
	Award       progression.Award    `json:"award"`
	Before      progression.Snapshot `json:"before"`
	After       progression.Snapshot `json:"after"`
	LevelsDelta int                  `json:"levelsGained"`
	Unlocked    []domain.Badge       `json:"unlocked"`
	Stats       stats.Summary        `json:"stats"`
}

// QuizService runs quiz sessions and keeps progression and badges up to date.
type QuizService struct {
	questions QuestionRepository
	sessions  SessionRepository
	badges    BadgeRepository

	selector     *selection.Selector
	engine       *badges.Engine
	publisher    EventPublisher
	now          func() time.Time
	loc          *time.Location
	defaultCount int

	mu  sync.Mutex
	hub *hub
}

// Option configures a QuizService.
type Option func(*QuizService)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithLocation sets the time zone used for days, streaks and hour-based badges.
func WithLocation(loc *time.Location) Option {
	return func(s *QuizService) { s.loc = loc }
}

// WithSelector replaces the question selector, typically with a seeded one.
func WithSelector(sel *selection.Selector) Option {
	return func(s *QuizService) { s.selector = sel }
}

// WithPublisher forwards events to an external bus.
func WithPublisher(p EventPublisher) Option {
	return func(s *QuizService) { s.publisher = p }
}

// WithDefaultCount sets the session size used when a request leaves it at zero.
func WithDefaultCount(n int) Option {
	return func(s *QuizService) {
		if n > 0 {
			s.defaultCount = n
		}
	}
}

func NewQuizService(questions QuestionRepository, sessions SessionRepository, badgeStore BadgeRepository, opts ...Option) *QuizService {
	s := &QuizService{
		questions:    questions,
		sessions:     sessions,
		badges:       badgeStore,
		now:          time.Now,
		loc:          time.Local,
		defaultCount: DefaultQuestionCount,
		hub:          newHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.selector == nil {
		s.selector = selection.NewSelector(nil)
	}
	s.engine = badges.NewEngine(badges.WithClock(s.now), badges.WithLocation(s.loc))
	return s
}

// Start selects questions and creates a new pending session.
func (s *QuizService) Start(ctx context.Context, req StartRequest) (domain.Session, error) {
	if len(req.Categories) == 0 {
		return domain.Session{}, domain.ErrNoCategories
	}
	if req.Difficulty == "" {
		req.Difficulty = domain.DifficultyAny
	}
	if !req.Difficulty.IsFilter() {
		return domain.Session{}, fmt.Errorf("%w: %q", domain.ErrInvalidDifficulty, req.Difficulty)
	}
	if req.Count <= 0 {
		req.Count = s.defaultCount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if pending, ok, err := s.pendingLocked(ctx); err != nil {
		return domain.Session{}, err
	} else if ok {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionPending, pending.ID)
	}

	catalog, err := s.questions.All(ctx)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load catalog: %w", err)
	}
	picked := s.selector.Select(catalog, req.Categories, req.Difficulty, req.Count)
	if len(picked) == 0 {
		return domain.Session{}, domain.ErrNotEnoughQuestions
	}

	sess := domain.Session{
		ID:             uuid.NewString(),
		StartedAt:      s.now(),
		Questions:      picked,
		Difficulty:     req.Difficulty,
		Categories:     append([]string(nil), req.Categories...),
		DailyChallenge: req.DailyChallenge,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}

	metrics.SessionsStarted.WithLabelValues(string(req.Difficulty)).Inc()
	log.Printf("session %s started with %d questions (%s)", sess.ID, len(picked), req.Difficulty)
	s.emit(ctx, domain.EventSessionStarted, sess.ID, sess)
	return sess, nil
}

// Pending returns the unfinished session, if one exists.
func (s *QuizService) Pending(ctx context.Context) (domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked(ctx)
}

func (s *QuizService) pendingLocked(ctx context.Context) (domain.Session, bool, error) {
	all, err := s.sessions.All(ctx)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("load sessions: %w", err)
	}
	for _, sess := range all {
		if sess.Pending() {
			return sess, true, nil
		}
	}
	return domain.Session{}, false, nil
}

// Session returns a session by id.
func (s *QuizService) Session(ctx context.Context, id string) (domain.Session, error) {
	return s.sessions.Get(ctx, id)
}

// Abandon deletes a pending session without scoring it.
func (s *QuizService) Abandon(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if !sess.Pending() {
		return domain.ErrSessionFinished
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	metrics.SessionsFinished.WithLabelValues("abandoned").Inc()
	s.emit(ctx, domain.EventSessionAbandoned, id, nil)
	return nil
}

// Answer records answerIndex (an index into the original answer list) for the current question.
func (s *QuizService) Answer(ctx context.Context, id string, answerIndex int) (AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, q, err := s.currentLocked(ctx, id)
	if err != nil {
		return AnswerResult{}, err
	}
	if answerIndex < 0 || answerIndex >= len(q.Answers) {
		return AnswerResult{}, fmt.Errorf("%w: %d", domain.ErrInvalidAnswer, answerIndex)
	}

	correct := answerIndex == q.CorrectIndex
	q.Correct = &correct
	s.recordShown(ctx, q.ID, correct)

	if err := s.sessions.Save(ctx, *sess); err != nil {
		return AnswerResult{}, fmt.Errorf("save session: %w", err)
	}

	res := AnswerResult{
		SessionID:    sess.ID,
		QuestionID:   q.ID,
		Correct:      correct,
		CorrectIndex: q.CorrectIndex,
		Explanation:  q.Explanation,
		Combo:        comboAt(sess.Questions, sess.Cursor),
		Last:         sess.IsLast(),
	}
	if correct {
		res.Points = scoring.Weight(q.Difficulty)
		metrics.AnswersTotal.WithLabelValues("correct").Inc()
	} else {
		metrics.AnswersTotal.WithLabelValues("wrong").Inc()
	}
	s.emit(ctx, domain.EventQuestionAnswered, sess.ID, res)
	return res, nil
}

// Skip marks the current question as skipped and moves on. The returned summary
// is non-nil when the skipped question was the last one.
func (s *QuizService) Skip(ctx context.Context, id string) (domain.Session, *Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, q, err := s.currentLocked(ctx, id)
	if err != nil {
		return domain.Session{}, nil, err
	}
	wrong := false
	q.Skipped = true
	q.Correct = &wrong
	s.recordShown(ctx, q.ID, false)
	metrics.AnswersTotal.WithLabelValues("skipped").Inc()

	return s.advanceLocked(ctx, sess)
}

// Next moves to the following question, finishing the session after the last one.
func (s *QuizService) Next(ctx context.Context, id string) (domain.Session, *Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return domain.Session{}, nil, err
	}
	if !sess.Pending() {
		return domain.Session{}, nil, domain.ErrSessionFinished
	}
	return s.advanceLocked(ctx, &sess)
}

// currentLocked loads a pending session and its current, unanswered question.
func (s *QuizService) currentLocked(ctx context.Context, id string) (*domain.Session, *domain.SessionQuestion, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !sess.Pending() {
		return nil, nil, domain.ErrSessionFinished
	}
	q, ok := sess.Current()
	if !ok {
		return nil, nil, domain.ErrQuestionNotFound
	}
	if q.Answered() {
		return nil, nil, domain.ErrAlreadyAnswered
	}
	return &sess, q, nil
}

func (s *QuizService) advanceLocked(ctx context.Context, sess *domain.Session) (domain.Session, *Summary, error) {
	if sess.IsLast() {
		summary, err := s.finishLocked(ctx, sess)
		if err != nil {
			return domain.Session{}, nil, err
		}
		return summary.Session, summary, nil
	}
	sess.Cursor++
	if err := s.sessions.Save(ctx, *sess); err != nil {
		return domain.Session{}, nil, fmt.Errorf("save session: %w", err)
	}
	return *sess, nil, nil
}

// recordShown bumps the catalog counters. Questions removed by an import are ignored.
func (s *QuizService) recordShown(ctx context.Context, questionID string, correct bool) {
	q, err := s.questions.Get(ctx, questionID)
	if err != nil {
		log.Printf("question %s counters not updated: %v", questionID, err)
		return
	}
	q.TimesShown++
	if correct {
		q.TimesCorrect++
	}
	if err := s.questions.Save(ctx, q); err != nil {
		log.Printf("question %s counters not saved: %v", questionID, err)
	}
}

func (s *QuizService) finishLocked(ctx context.Context, sess *domain.Session) (*Summary, error) {
	all, err := s.sessions.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	history := make([]domain.Session, 0, len(all)+1)
	for _, h := range domain.Completed(all) {
		if h.ID != sess.ID {
			history = append(history, h)
		}
	}
	before := progression.SnapshotFor(progression.AwardedXP(history))

	score := scoring.Score(sess.Questions)
	score.Apply(sess)
	end := s.now()
	sess.EndedAt = &end
	sess.Day = end.In(s.loc).Format(stats.DayLayout)
	if err := s.sessions.Save(ctx, *sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	history = append(history, *sess)

	streak := stats.CurrentStreak(history, end, s.loc)
	catalog, err := s.badgeCatalogLocked(ctx)
	if err != nil {
		return nil, err
	}
	unlocked := s.engine.Evaluate(*sess, history, streak, catalog)
	if len(unlocked) > 0 {
		if err := s.badges.SaveAll(ctx, catalog); err != nil {
			return nil, fmt.Errorf("save badges: %w", err)
		}
	}

	award := progression.AwardFor(*sess)
	after := progression.SnapshotFor(before.XP + award.Total)
	summary := &Summary{
		Session:     *sess,
		Score:       score,
		Award:       award,
		Before:      before,
		After:       after,
		LevelsDelta: after.Level - before.Level,
		Unlocked:    unlocked,
		Stats:       stats.Summarize(history, end, s.loc),
	}

	metrics.SessionsFinished.WithLabelValues("finished").Inc()
	metrics.SessionPercentage.Observe(sess.Percentage)
	metrics.XPAwarded.Add(float64(award.Total))
	log.Printf("session %s finished: %.1f%%, +%d xp, %d badges", sess.ID, sess.Percentage, award.Total, len(unlocked))

	s.emit(ctx, domain.EventSessionFinished, sess.ID, summary)
	for _, b := range unlocked {
		metrics.BadgesUnlocked.WithLabelValues(b.ID).Inc()
		s.emit(ctx, domain.EventBadgeUnlocked, sess.ID, b)
	}
	return summary, nil
}

// Replay starts a new session with the setup of session id, or of the most
// recent finished session when id is empty.
func (s *QuizService) Replay(ctx context.Context, id string) (domain.Session, error) {
	var source domain.Session
	if id == "" {
		history, err := s.History(ctx)
		if err != nil {
			return domain.Session{}, err
		}
		if len(history) == 0 {
			return domain.Session{}, fmt.Errorf("%w: nothing to replay", domain.ErrSessionNotFound)
		}
		source = history[0]
	} else {
		sess, err := s.sessions.Get(ctx, id)
		if err != nil {
			return domain.Session{}, err
		}
		source = sess
	}
	return s.Start(ctx, ReplayRequest(source))
}

// ReplayRequest returns the start parameters that replay a session's setup.
func ReplayRequest(sess domain.Session) StartRequest {
	return StartRequest{
		Categories: append([]string(nil), sess.Categories...),
		Difficulty: sess.Difficulty,
		Count:      len(sess.Questions),
	}
}

// comboAt counts the consecutive correct answers ending at index i.
func comboAt(questions []domain.SessionQuestion, i int) int {
	combo := 0
	for ; i >= 0 && i < len(questions); i-- {
		if !questions[i].IsCorrect() {
			break
		}
		combo++
	}
	return combo
}

// emit fans an event out to live subscribers and the external publisher.
func (s *QuizService) emit(ctx context.Context, typ, sessionID string, payload any) {
	evt := domain.Event{Type: typ, SessionID: sessionID, Payload: payload, At: s.now()}
	s.hub.broadcast(evt)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		log.Printf("publish %s: %v", typ, err)
	}
}
