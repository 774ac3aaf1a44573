package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/broadcast"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
)

func newTestService() (*app.SessionService, *broadcast.MemoryBroker) {
	store := memory.NewSessionStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(testQuizzes()), 5*time.Minute)
	broker := broadcast.NewMemoryBroker()
	return app.NewSessionService(store, quizRepo, broker), broker
}

func testQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:                 "quiz-1",
			OwnerID:            "host-1",
			Title:              "Two questions",
			SecondsPerQuestion: 30,
			Questions: []domain.Question{
				{
					Kind:    domain.QuestionKindQuiz,
					Text:    "Pick the second option",
					Options: []string{"one", "two", "three"},
					Grading: &domain.Grading{CorrectOption: 1, Points: 10},
				},
				{
					Kind:    domain.QuestionKindQuiz,
					Text:    "Pick the first option",
					Options: []string{"yes", "no"},
					Grading: &domain.Grading{CorrectOption: 0, Points: 10},
				},
			},
		},
	}
}

func TestFullGameScenario(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	session, err := service.CreateSession(ctx, "host-1", "quiz-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(session.Code) != 6 {
		t.Fatalf("code %q, want 6 chars", session.Code)
	}

	joined, err := service.JoinSession(ctx, session.Code, "alice")
	if err != nil {
		t.Fatalf("join alice: %v", err)
	}
	for _, q := range joined.Quiz.Questions {
		if q.Grading != nil {
			t.Fatalf("join response leaked answer key: %+v", q)
		}
	}
	if _, err := service.JoinSession(ctx, session.Code, "bob"); err != nil {
		t.Fatalf("join bob: %v", err)
	}

	if err := service.StartSession(ctx, "host-1", session.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Alice answers correctly and fast, Bob wrong and slow.
	res, err := service.SubmitAnswer(ctx, session.ID, "alice", 1, 5)
	if err != nil {
		t.Fatalf("alice submit: %v", err)
	}
	if !res.Submitted || res.TimeTakenSeconds != 5 {
		t.Fatalf("unexpected submit result: %+v", res)
	}
	if _, err := service.SubmitAnswer(ctx, session.ID, "bob", 0, 29); err != nil {
		t.Fatalf("bob submit: %v", err)
	}

	if err := service.AdvanceQuestion(ctx, "host-1", session.ID, 1); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, session.ID, "alice", 0, 3); err != nil {
		t.Fatalf("alice q2: %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, session.ID, "bob", 1, 10); err != nil {
		t.Fatalf("bob q2: %v", err)
	}

	ranked, err := service.EndSession(ctx, "host-1", session.ID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ranked[0].Username != "alice" || ranked[0].Score <= ranked[1].Score {
		t.Fatalf("expected alice leading, got %+v", ranked)
	}

	status, err := service.GetSessionStatus(ctx, session.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != domain.StatusCompleted || status.EndedAt == nil {
		t.Fatalf("expected completed with endedAt, got %+v", status)
	}
	// Completed sessions reveal the answer key and per-participant records.
	if status.Quiz.Questions[0].Grading == nil {
		t.Fatalf("completed status should include answer key")
	}
	total := 0
	for _, p := range status.Participants {
		sum := 0
		for _, a := range p.Answers {
			sum += a.PointsEarned
		}
		if p.Score != sum {
			t.Fatalf("%s: score %d != answer sum %d", p.Username, p.Score, sum)
		}
		total += p.Score
	}
	if total != ranked[0].Score+ranked[1].Score {
		t.Fatalf("ranking scores diverge from roster")
	}
}

func TestSubmitNeverRevealsCorrectness(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	session, _ := service.CreateSession(ctx, "host-1", "quiz-1")
	_, _ = service.JoinSession(ctx, session.Code, "alice")
	_ = service.StartSession(ctx, "host-1", session.ID)

	status, _ := service.GetSessionStatus(ctx, session.ID)
	for _, q := range status.Quiz.Questions {
		if q.Grading != nil {
			t.Fatalf("in-progress status leaked answer key")
		}
	}
	if status.Participants != nil {
		t.Fatalf("in-progress status leaked answer records")
	}
}

func TestDuplicateSubmitConflicts(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	session, _ := service.CreateSession(ctx, "host-1", "quiz-1")
	_, _ = service.JoinSession(ctx, session.Code, "alice")
	_ = service.StartSession(ctx, "host-1", session.ID)

	if _, err := service.SubmitAnswer(ctx, session.ID, "alice", 1, 5); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := service.SubmitAnswer(ctx, session.ID, "alice", 2, 6)
	if !errors.Is(err, domain.ErrAnswerExists) {
		t.Fatalf("second submit: got %v, want ErrAnswerExists", err)
	}

	status, _ := service.GetSessionStatus(ctx, session.ID)
	if status.Leaderboard[0].Score != 10 {
		t.Fatalf("double-scored: %d", status.Leaderboard[0].Score)
	}
}

func TestUnauthorizedAdvanceLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	session, _ := service.CreateSession(ctx, "host-1", "quiz-1")
	_, _ = service.JoinSession(ctx, session.Code, "alice")
	_ = service.StartSession(ctx, "host-1", session.ID)

	err := service.AdvanceQuestion(ctx, "mallory", session.ID, 1)
	if !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("got %v, want ErrNotHost", err)
	}
	status, _ := service.GetSessionStatus(ctx, session.ID)
	if status.CurrentQuestionIndex != 0 {
		t.Fatalf("failed advance mutated index to %d", status.CurrentQuestionIndex)
	}
}

func TestCreateRequiresQuizOwnership(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	if _, err := service.CreateSession(ctx, "intruder", "quiz-1"); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("got %v, want ErrNotHost", err)
	}
	if _, err := service.CreateSession(ctx, "host-1", "quiz-missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("got %v, want ErrQuizNotFound", err)
	}
}

func TestActiveCodesNeverCollide(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	seen := make(map[string]string)
	for i := 0; i < 50; i++ {
		session, err := service.CreateSession(ctx, "host-1", "quiz-1")
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if other, dup := seen[session.Code]; dup {
			t.Fatalf("sessions %s and %s share active code %s", other, session.ID, session.Code)
		}
		seen[session.Code] = session.ID
	}
}

func TestConcurrentSubmissionsNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	session, _ := service.CreateSession(ctx, "host-1", "quiz-1")

	const workers = 32
	usernames := make([]string, workers)
	for i := range usernames {
		usernames[i] = fmt.Sprintf("player-%02d", i)
		if _, err := service.JoinSession(ctx, session.Code, usernames[i]); err != nil {
			t.Fatalf("join %s: %v", usernames[i], err)
		}
	}
	if err := service.StartSession(ctx, "host-1", session.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for _, username := range usernames {
		wg.Add(1)
		go func(username string) {
			defer wg.Done()
			if _, err := service.SubmitAnswer(ctx, session.ID, username, 1, 2); err != nil {
				errs <- err
			}
		}(username)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent submit failed: %v", err)
	}

	ranked, err := service.EndSession(ctx, "host-1", session.ID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	status, _ := service.GetSessionStatus(ctx, session.ID)
	sumScores, sumPoints := 0, 0
	for _, e := range ranked {
		sumScores += e.Score
	}
	for _, p := range status.Participants {
		for _, a := range p.Answers {
			sumPoints += a.PointsEarned
		}
	}
	if sumScores != sumPoints || sumScores != workers*10 {
		t.Fatalf("lost updates: scores=%d points=%d want %d", sumScores, sumPoints, workers*10)
	}
}

func TestSurveyQuestionNotScored(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	quizzes := map[string]domain.Quiz{
		"survey-1": {
			ID: "survey-1",
			Questions: []domain.Question{
				{Kind: domain.QuestionKindSurvey, Text: "Favorite color?", Options: []string{"red", "blue"}},
			},
		},
	}
	service := app.NewSessionService(store, memory.NewQuizRepository(memory.NewStaticQuizLoader(quizzes), time.Minute), broadcast.NewMemoryBroker())

	session, _ := service.CreateSession(ctx, "host-1", "survey-1")
	_, _ = service.JoinSession(ctx, session.Code, "alice")
	_ = service.StartSession(ctx, "host-1", session.ID)

	if _, err := service.SubmitAnswer(ctx, session.ID, "alice", 1, 4); err != nil {
		t.Fatalf("survey submit: %v", err)
	}
	ranked, _ := service.EndSession(ctx, "host-1", session.ID)
	if ranked[0].Score != 0 {
		t.Fatalf("survey answer scored %d points", ranked[0].Score)
	}
	status, _ := service.GetSessionStatus(ctx, session.ID)
	rec := status.Participants[0].Answers[0]
	if rec.SelectedOption != 1 || rec.IsCorrect || rec.PointsEarned != 0 {
		t.Fatalf("unexpected survey record: %+v", rec)
	}
}

func TestCompletedSessionCodeNotJoinable(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	session, _ := service.CreateSession(ctx, "host-1", "quiz-1")
	_, _ = service.JoinSession(ctx, session.Code, "alice")
	_ = service.StartSession(ctx, "host-1", session.ID)
	_, _ = service.EndSession(ctx, "host-1", session.ID)

	if _, err := service.JoinSession(ctx, session.Code, "late"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("join completed: got %v, want ErrSessionNotFound", err)
	}
}

func TestEndPublishesRanking(t *testing.T) {
	ctx := context.Background()
	service, broker := newTestService()
	session, _ := service.CreateSession(ctx, "host-1", "quiz-1")
	_, _ = service.JoinSession(ctx, session.Code, "alice")

	events, cancel := broker.Subscribe(ctx, session.Code)
	defer cancel()

	_ = service.StartSession(ctx, "host-1", session.ID)
	_, _ = service.EndSession(ctx, "host-1", session.ID)

	kinds := map[broadcast.EventKind]bool{}
	timeout := time.After(time.Second)
	for len(kinds) < 2 {
		select {
		case ev := <-events:
			kinds[ev.Kind] = true
		case <-timeout:
			t.Fatalf("missing events, saw %v", kinds)
		}
	}
	if !kinds[broadcast.EventSessionStarted] || !kinds[broadcast.EventSessionEnded] {
		t.Fatalf("expected started+ended events, saw %v", kinds)
	}
}

func TestListActiveSessions(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	a, _ := service.CreateSession(ctx, "host-1", "quiz-1")
	b, _ := service.CreateSession(ctx, "host-1", "quiz-1")
	_, _ = service.JoinSession(ctx, a.Code, "alice")
	_ = service.StartSession(ctx, "host-1", a.ID)
	_, _ = service.EndSession(ctx, "host-1", a.ID)

	active, err := service.ListActiveSessions(ctx, "host-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].ID != b.ID {
		t.Fatalf("expected only %s active, got %+v", b.ID, active)
	}
}
