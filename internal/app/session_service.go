package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"livequiz-service/internal/broadcast"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/scoring"

	"github.com/google/uuid"
)

// SessionStore abstracts durable session storage. AtomicUpdate is the
// only sanctioned mutation path: fn runs against a private copy and the
// store guarantees no two concurrent updates commit from the same
// pre-update snapshot.
type SessionStore interface {
	Create(ctx context.Context, session *domain.GameSession) error
	Get(ctx context.Context, id string) (*domain.GameSession, error)
	// FindByCode matches non-completed sessions only.
	FindByCode(ctx context.Context, code string) (*domain.GameSession, error)
	AtomicUpdate(ctx context.Context, id string, fn func(*domain.GameSession) error) (*domain.GameSession, error)
	ListByHost(ctx context.Context, hostID string, activeOnly bool) ([]domain.SessionSummary, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

const (
	codeAttempts   = 5
	updateAttempts = 3
)

// SessionService coordinates the session lifecycle: it validates guards,
// drives the state machine through the store's atomic update, and
// publishes broadcast events only after the store commit.
type SessionService struct {
	store   SessionStore
	quizzes QuizRepository
	broker  broadcast.Broker

	now     func() time.Time
	newID   func() string
	newCode func() string
}

func NewSessionService(store SessionStore, quizzes QuizRepository, broker broadcast.Broker) *SessionService {
	return &SessionService{
		store:   store,
		quizzes: quizzes,
		broker:  broker,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
		newCode: generateCode,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// CreateSession wraps a quiz in a new waiting session for hostID. The
// join code is regenerated on the rare collision with another active
// session.
func (s *SessionService) CreateSession(ctx context.Context, hostID, quizID string) (*domain.GameSession, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.OwnerID != "" && quiz.OwnerID != hostID {
		return nil, domain.ErrNotHost
	}
	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("quiz has no questions: %w", domain.ErrInvalidQuestionIndex)
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		session := domain.NewGameSession(s.newID(), quizID, hostID, s.newCode())
		err := s.store.Create(ctx, session)
		if errors.Is(err, domain.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return session, nil
	}
	return nil, domain.ErrCodeTaken
}

// JoinSession adds username to the waiting session behind code and
// returns the quiz with its answer key stripped.
func (s *SessionService) JoinSession(ctx context.Context, code, username string) (*JoinResult, error) {
	if username == "" {
		return nil, fmt.Errorf("empty username: %w", domain.ErrInvalidOption)
	}
	session, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated, err := s.update(ctx, session.ID, func(gs *domain.GameSession) error {
		return gs.Join(username, now)
	})
	if err != nil {
		return nil, err
	}

	usernames := make([]string, len(updated.Participants))
	for i, p := range updated.Participants {
		usernames[i] = p.Username
	}
	return &JoinResult{
		SessionID:    updated.ID,
		Code:         updated.Code,
		Quiz:         sanitizeQuiz(quiz, false),
		Participants: usernames,
	}, nil
}

// StartSession moves a waiting session to playing at question zero.
func (s *SessionService) StartSession(ctx context.Context, hostID, sessionID string) error {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return err
	}

	now := s.now()
	updated, err := s.update(ctx, sessionID, func(gs *domain.GameSession) error {
		return gs.Start(hostID, len(quiz.Questions), now)
	})
	if err != nil {
		return err
	}

	s.broker.Publish(ctx, updated.Code, broadcast.NewEvent(broadcast.EventSessionStarted, updated.Code, startedPayload{
		QuestionIndex:  0,
		TotalQuestions: len(quiz.Questions),
	}))
	return nil
}

// AdvanceQuestion moves the current-question pointer, host-driven.
func (s *SessionService) AdvanceQuestion(ctx context.Context, hostID, sessionID string, index int) error {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return err
	}

	updated, err := s.update(ctx, sessionID, func(gs *domain.GameSession) error {
		return gs.Advance(hostID, index, len(quiz.Questions))
	})
	if err != nil {
		return err
	}

	s.broker.Publish(ctx, updated.Code, broadcast.NewEvent(broadcast.EventQuestionChanged, updated.Code, questionChangedPayload{
		QuestionIndex: index,
	}))
	return nil
}

// SubmitAnswer scores and records username's answer to the current
// question. The result never reveals correctness; participants learn
// their outcome when the session completes.
func (s *SessionService) SubmitAnswer(ctx context.Context, sessionID, username string, selectedOption int, timeTaken float64) (*SubmitResult, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}
	if timeTaken < 0 {
		timeTaken = 0
	}

	updated, err := s.update(ctx, sessionID, func(gs *domain.GameSession) error {
		if gs.Status != domain.StatusPlaying {
			return fmt.Errorf("submit: %w (status %s)", domain.ErrInvalidState, gs.Status)
		}
		idx := gs.CurrentQuestionIndex
		if idx < 0 || idx >= len(quiz.Questions) {
			return domain.ErrInvalidQuestionIndex
		}
		question := quiz.Questions[idx]
		if selectedOption < 0 || selectedOption >= len(question.Options) {
			return domain.ErrInvalidOption
		}

		rec := domain.AnswerRecord{
			QuestionIndex:    idx,
			SelectedOption:   selectedOption,
			TimeTakenSeconds: timeTaken,
		}
		// Survey questions record the choice without scoring.
		if question.Kind != domain.QuestionKindSurvey && question.Grading != nil {
			rec.IsCorrect = selectedOption == question.Grading.CorrectOption
			rec.PointsEarned = scoring.ComputePoints(question.BasePoints(), quiz.TimeLimit(), timeTaken, rec.IsCorrect)
		}
		return gs.RecordAnswer(username, rec)
	})
	if err != nil {
		return nil, err
	}

	// Correctness and points are deliberately withheld from this event so
	// other participants cannot infer the answer before the question ends.
	s.broker.Publish(ctx, updated.Code, broadcast.NewEvent(broadcast.EventParticipantAnswered, updated.Code, answeredPayload{
		Username: username,
	}))
	return &SubmitResult{Submitted: true, TimeTakenSeconds: timeTaken}, nil
}

// EndSession moves a playing session to completed and returns the final
// ranking, ties broken by join order.
func (s *SessionService) EndSession(ctx context.Context, hostID, sessionID string) ([]domain.RankedParticipant, error) {
	now := s.now()
	updated, err := s.update(ctx, sessionID, func(gs *domain.GameSession) error {
		return gs.End(hostID, now)
	})
	if err != nil {
		return nil, err
	}

	ranked := updated.Ranking()
	s.broker.Publish(ctx, updated.Code, broadcast.NewEvent(broadcast.EventSessionEnded, updated.Code, endedPayload{
		Ranking: ranked,
	}))
	return ranked, nil
}

// GetSessionStatus returns the session view. The answer key and
// per-participant correctness stay hidden until the session completes.
func (s *SessionService) GetSessionStatus(ctx context.Context, sessionID string) (*StatusResult, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}

	completed := session.Status == domain.StatusCompleted
	result := &StatusResult{
		SessionID:            session.ID,
		Code:                 session.Code,
		Status:               session.Status,
		CurrentQuestionIndex: session.CurrentQuestionIndex,
		Quiz:                 sanitizeQuiz(quiz, completed),
		Leaderboard:          session.Ranking(),
		StartedAt:            session.StartedAt,
		EndedAt:              session.EndedAt,
	}
	if completed {
		result.Participants = session.Participants
	}
	return result, nil
}

// ListActiveSessions returns summaries of hostID's non-completed sessions.
func (s *SessionService) ListActiveSessions(ctx context.Context, hostID string) ([]domain.SessionSummary, error) {
	return s.store.ListByHost(ctx, hostID, true)
}

// update runs an atomic store update, retrying transient concurrency
// conflicts a bounded number of times before surfacing the error.
func (s *SessionService) update(ctx context.Context, sessionID string, fn func(*domain.GameSession) error) (*domain.GameSession, error) {
	var lastErr error
	for attempt := 0; attempt < updateAttempts; attempt++ {
		updated, err := s.store.AtomicUpdate(ctx, sessionID, fn)
		if errors.Is(err, domain.ErrVersionConflict) {
			lastErr = err
			continue
		}
		return updated, err
	}
	return nil, lastErr
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateCode returns a 6-character uppercase alphanumeric join code.
// 36^6 codes make collisions among active sessions rare; Create still
// reserves the code and the caller regenerates on conflict.
func generateCode() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
