package app_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"codemaster/internal/app"
	"codemaster/internal/badges"
	"codemaster/internal/domain"
	"codemaster/internal/infra/memory"
	"codemaster/internal/selection"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type recordingPublisher struct{ events []domain.Event }

func (p *recordingPublisher) Publish(_ context.Context, evt domain.Event) error {
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	service   *app.QuizService
	questions *memory.QuestionStore
	sessions  *memory.SessionStore
	badges    *memory.BadgeStore
	clock     *fakeClock
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		questions: memory.NewQuestionStore(sampleCatalog()...),
		sessions:  memory.NewSessionStore(),
		badges:    memory.NewBadgeStore(),
		clock:     &fakeClock{now: time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)},
		publisher: &recordingPublisher{},
	}
	f.service = app.NewQuizService(f.questions, f.sessions, f.badges,
		app.WithClock(f.clock.Now),
		app.WithLocation(time.UTC),
		app.WithSelector(selection.NewSelector(rand.New(rand.NewSource(1)))),
		app.WithPublisher(f.publisher),
	)
	return f
}

func sampleCatalog() []domain.Question {
	var qs []domain.Question
	for i, d := range []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard} {
		for j := 0; j < 4; j++ {
			qs = append(qs, domain.Question{
				ID:           fmt.Sprintf("go-%d-%d", i, j),
				Prompt:       "prompt",
				Answers:      []string{"a", "b", "c", "d"},
				CorrectIndex: j,
				Explanation:  "because",
				Category:     "go",
				Difficulty:   d,
			})
		}
	}
	qs = append(qs, domain.Question{ID: "sql-1", Answers: []string{"x", "y"}, CorrectIndex: 1, Category: "sql", Difficulty: domain.DifficultyEasy})
	return qs
}

// playAll answers every question, correctly when correct is true, and returns the summary.
func playAll(t *testing.T, f *fixture, sess domain.Session, correct bool) *app.Summary {
	t.Helper()
	ctx := context.Background()
	for range sess.Questions {
		cur, err := f.service.Session(ctx, sess.ID)
		if err != nil {
			t.Fatalf("load session: %v", err)
		}
		q, _ := cur.Current()
		idx := q.CorrectIndex
		if !correct {
			idx = (q.CorrectIndex + 1) % len(q.Answers)
		}
		if _, err := f.service.Answer(ctx, sess.ID, idx); err != nil {
			t.Fatalf("answer: %v", err)
		}
		_, summary, err := f.service.Next(ctx, sess.ID)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if summary != nil {
			return summary
		}
	}
	t.Fatalf("session %s never finished", sess.ID)
	return nil
}

func TestStartValidatesRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.service.Start(ctx, app.StartRequest{}); !errors.Is(err, domain.ErrNoCategories) {
		t.Fatalf("expected ErrNoCategories, got %v", err)
	}
	if _, err := f.service.Start(ctx, app.StartRequest{Categories: []string{"go"}, Difficulty: "legendary"}); !errors.Is(err, domain.ErrInvalidDifficulty) {
		t.Fatalf("expected ErrInvalidDifficulty, got %v", err)
	}
	if _, err := f.service.Start(ctx, app.StartRequest{Categories: []string{"rust"}}); !errors.Is(err, domain.ErrNotEnoughQuestions) {
		t.Fatalf("expected ErrNotEnoughQuestions, got %v", err)
	}
}

func TestStartAllowsOnlyOnePendingSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.service.Start(ctx, app.StartRequest{Categories: []string{"go"}, Difficulty: domain.DifficultyHard, Count: 3})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(sess.Questions) != 3 || sess.Difficulty != domain.DifficultyHard || !sess.Pending() {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if _, err := f.service.Start(ctx, app.StartRequest{Categories: []string{"go"}}); !errors.Is(err, domain.ErrSessionPending) {
		t.Fatalf("expected ErrSessionPending, got %v", err)
	}

	pending, ok, err := f.service.Pending(ctx)
	if err != nil || !ok || pending.ID != sess.ID {
		t.Fatalf("expected pending %s, got %+v ok=%v err=%v", sess.ID, pending, ok, err)
	}

	if err := f.service.Abandon(ctx, sess.ID); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if _, ok, _ := f.service.Pending(ctx); ok {
		t.Fatalf("expected no pending session after abandon")
	}
	if _, err := f.service.Start(ctx, app.StartRequest{Categories: []string{"go"}}); err != nil {
		t.Fatalf("start after abandon: %v", err)
	}
}

func TestStartUsesDefaultCount(t *testing.T) {
	f := newFixture(t)
	sess, err := f.service.Start(context.Background(), app.StartRequest{Categories: []string{"go", "sql"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(sess.Questions) != app.DefaultQuestionCount {
		t.Fatalf("expected %d questions, got %d", app.DefaultQuestionCount, len(sess.Questions))
	}
	if sess.Difficulty != domain.DifficultyAny {
		t.Fatalf("expected random filter, got %s", sess.Difficulty)
	}
}

func TestAnswerFlowAndCounters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.service.Start(ctx, app.StartRequest{Categories: []string{"sql"}, Count: 5})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(sess.Questions) != 1 {
		t.Fatalf("expected shortfall to one question, got %d", len(sess.Questions))
	}

	if _, err := f.service.Answer(ctx, sess.ID, 2); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer, got %v", err)
	}

	res, err := f.service.Answer(ctx, sess.ID, 1)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !res.Correct || res.Points != 1 || res.Combo != 1 || !res.Last || res.CorrectIndex != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, err := f.service.Answer(ctx, sess.ID, 1); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}

	q, _ := f.questions.Get(ctx, "sql-1")
	if q.TimesShown != 1 || q.TimesCorrect != 1 {
		t.Fatalf("expected counters 1/1, got %d/%d", q.TimesShown, q.TimesCorrect)
	}

	done, summary, err := f.service.Next(ctx, sess.ID)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if summary == nil || done.Pending() {
		t.Fatalf("expected finished session")
	}
	if done.Day != "2024-03-06" || done.Percentage != 100 || done.WeightedScore != 1 {
		t.Fatalf("unexpected finished session: %+v", done)
	}

	if _, _, err := f.service.Next(ctx, sess.ID); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected ErrSessionFinished, got %v", err)
	}
	if _, err := f.service.Answer(ctx, sess.ID, 0); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected ErrSessionFinished, got %v", err)
	}
}

func TestSkipCountsAsShownAndAdvances(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.service.Start(ctx, app.StartRequest{Categories: []string{"go"}, Difficulty: domain.DifficultyEasy, Count: 2})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	first := sess.Questions[0].ID

	next, summary, err := f.service.Skip(ctx, sess.ID)
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if summary != nil || next.Cursor != 1 {
		t.Fatalf("expected to move to question 2, cursor=%d", next.Cursor)
	}
	if !next.Questions[0].Skipped || next.Questions[0].Correct == nil || *next.Questions[0].Correct {
		t.Fatalf("expected skipped and incorrect: %+v", next.Questions[0])
	}

	q, _ := f.questions.Get(ctx, first)
	if q.TimesShown != 1 || q.TimesCorrect != 0 {
		t.Fatalf("expected counters 1/0, got %d/%d", q.TimesShown, q.TimesCorrect)
	}

	_, summary, err = f.service.Skip(ctx, sess.ID)
	if err != nil {
		t.Fatalf("skip last: %v", err)
	}
	if summary == nil || summary.Session.Percentage != 0 {
		t.Fatalf("expected finished summary with 0%%, got %+v", summary)
	}
}

func TestFinishUnlocksBadgesAndAwardsXP(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.service.Start(ctx, app.StartRequest{Categories: []string{"go"}, Difficulty: domain.DifficultyHard, Count: 4, DailyChallenge: true})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	f.clock.now = f.clock.now.Add(time.Minute)
	summary := playAll(t, f, sess, true)

	// 30+30+30+45, doubled for the daily challenge
	if summary.Award.Base != 135 || summary.Award.Total != 270 {
		t.Fatalf("unexpected award: %+v", summary.Award)
	}
	if summary.Before.Level != 1 || summary.After.Level != 2 || summary.LevelsDelta != 1 {
		t.Fatalf("unexpected levels: before=%+v after=%+v", summary.Before, summary.After)
	}
	if summary.Score.WeightedScore != 12 || summary.Score.MaxWeightedScore != 12 {
		t.Fatalf("unexpected score: %+v", summary.Score)
	}

	unlocked := map[string]bool{}
	for _, b := range summary.Unlocked {
		unlocked[b.ID] = true
	}
	for _, id := range []string{badges.FirstQuiz, badges.PerfectScore, badges.HardPerfect, badges.DailyChallenger} {
		if !unlocked[id] {
			t.Fatalf("expected %s unlocked, got %v", id, unlocked)
		}
	}
	if unlocked[badges.Speedster] {
		t.Fatalf("speedster needs ten questions")
	}

	stored, _ := f.badges.List(ctx)
	if len(stored) != 21 || badges.CountUnlocked(stored) != len(summary.Unlocked) {
		t.Fatalf("expected persisted unlocks, got %d of %d", badges.CountUnlocked(stored), len(stored))
	}

	types := f.publisher.types()
	if types[0] != domain.EventSessionStarted {
		t.Fatalf("expected session.started first, got %v", types)
	}
	var badgeEvents int
	for _, typ := range types {
		if typ == domain.EventBadgeUnlocked {
			badgeEvents++
		}
	}
	if badgeEvents != len(summary.Unlocked) {
		t.Fatalf("expected %d badge events, got %d", len(summary.Unlocked), badgeEvents)
	}

	profile, err := f.service.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.XP != 270 || profile.Level != 2 || profile.TotalSessions != 1 || profile.Streak != 1 || profile.BadgesUnlocked != len(summary.Unlocked) {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestSecondFinishDoesNotUnlockTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, _ := f.service.Start(ctx, app.StartRequest{Categories: []string{"sql"}})
	first := playAll(t, f, sess, false)
	if len(first.Unlocked) == 0 {
		t.Fatalf("expected first_quiz on first finish")
	}

	f.clock.now = f.clock.now.Add(time.Hour)
	sess, _ = f.service.Start(ctx, app.StartRequest{Categories: []string{"sql"}})
	second := playAll(t, f, sess, false)
	for _, b := range second.Unlocked {
		if b.ID == badges.FirstQuiz || b.ID == badges.Persistence {
			t.Fatalf("%s unlocked twice", b.ID)
		}
	}
	if second.Stats.TotalSessions != 2 {
		t.Fatalf("expected 2 sessions in stats, got %d", second.Stats.TotalSessions)
	}
}

func TestBadgesSeedAndReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	list, err := f.service.Badges(ctx)
	if err != nil {
		t.Fatalf("badges: %v", err)
	}
	if len(list) != 21 {
		t.Fatalf("expected seeded catalog, got %d", len(list))
	}

	sess, _ := f.service.Start(ctx, app.StartRequest{Categories: []string{"sql"}})
	playAll(t, f, sess, true)

	list, _ = f.service.Badges(ctx)
	if !list[0].Unlocked() {
		t.Fatalf("expected unlocked badges listed first")
	}

	reset, err := f.service.ResetBadges(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if badges.CountUnlocked(reset) != 0 {
		t.Fatalf("expected all badges locked")
	}
	stored, _ := f.badges.List(ctx)
	for _, b := range stored {
		if b.Unlocked() || b.UnlockedAt != nil {
			t.Fatalf("badge %s not reset", b.ID)
		}
	}
}

func TestImportQuestionsReplacesCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.service.ImportQuestions(ctx, nil); !errors.Is(err, domain.ErrInvalidImport) {
		t.Fatalf("expected ErrInvalidImport, got %v", err)
	}

	err := f.service.ImportQuestions(ctx, []domain.Question{
		{ID: "css-1", Answers: []string{"a", "b"}, Category: "css", Difficulty: domain.DifficultyEasy},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	cats, _ := f.service.Categories(ctx)
	if len(cats) != 1 || cats[0].Name != "css" || cats[0].Count != 1 {
		t.Fatalf("unexpected categories: %+v", cats)
	}
}

func TestHistoryAndReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i < 2; i++ {
		sess, err := f.service.Start(ctx, app.StartRequest{Categories: []string{"go"}, Difficulty: domain.DifficultyMedium, Count: 2})
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		playAll(t, f, sess, i == 0)
		f.clock.now = f.clock.now.Add(24 * time.Hour)
	}

	history, err := f.service.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || !history[0].EndedAt.After(*history[1].EndedAt) {
		t.Fatalf("expected newest first: %+v", history)
	}

	req := app.ReplayRequest(history[0])
	if req.Count != 2 || req.Difficulty != domain.DifficultyMedium || req.Categories[0] != "go" {
		t.Fatalf("unexpected replay request: %+v", req)
	}

	replayed, err := f.service.Replay(ctx, "")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(replayed.Questions) != 2 || replayed.Difficulty != domain.DifficultyMedium || replayed.ID == history[0].ID {
		t.Fatalf("unexpected replayed session: %+v", replayed)
	}
	if _, err := f.service.Replay(ctx, history[1].ID); !errors.Is(err, domain.ErrSessionPending) {
		t.Fatalf("expected pending session to block replay, got %v", err)
	}
	if err := f.service.Abandon(ctx, replayed.ID); err != nil {
		t.Fatalf("abandon: %v", err)
	}

	days, err := f.service.DailyAverages(ctx, 3)
	if err != nil {
		t.Fatalf("daily averages: %v", err)
	}
	if len(days) != 3 || days[0].Count != 1 || days[1].Count != 1 || days[2].Count != 0 {
		t.Fatalf("unexpected daily averages: %+v", days)
	}
}

func TestReplayWithoutHistory(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.Replay(context.Background(), ""); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.service.Replay(context.Background(), "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t)

	ch, unsubscribe := f.service.Subscribe(ctx)
	defer unsubscribe()

	sess, err := f.service.Start(ctx, app.StartRequest{Categories: []string{"sql"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case evt := <-ch:
		if evt.Type != domain.EventSessionStarted || evt.SessionID != sess.ID {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ch, unsubscribe := f.service.Subscribe(ctx)
	defer unsubscribe()

	for i := 0; i < 20; i++ {
		sess, err := f.service.Start(ctx, app.StartRequest{Categories: []string{"sql"}})
		if err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		if err := f.service.Abandon(ctx, sess.ID); err != nil {
			t.Fatalf("abandon %d: %v", i, err)
		}
	}

	var last domain.Event
	for len(ch) > 0 {
		last = <-ch
	}
	if last.Type != domain.EventSessionAbandoned {
		t.Fatalf("expected newest event to survive, got %+v", last)
	}
}
