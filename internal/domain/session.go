package domain

import (
	"fmt"
	"sort"
	"time"
)

// NewGameSession builds a fresh session in the waiting state. The caller
// supplies id and code; the store is responsible for code uniqueness.
func NewGameSession(id, quizID, hostID, code string) *GameSession {
	return &GameSession{
		ID:                   id,
		QuizID:               quizID,
		HostID:               hostID,
		Code:                 code,
		Status:               StatusWaiting,
		CurrentQuestionIndex: -1,
		Participants:         []Participant{},
	}
}

// Join appends a participant. Only valid while waiting; usernames are
// case-sensitive and unique within the session.
func (s *GameSession) Join(username string, now time.Time) error {
	if s.Status != StatusWaiting {
		return fmt.Errorf("join: %w (status %s)", ErrInvalidState, s.Status)
	}
	for i := range s.Participants {
		if s.Participants[i].Username == username {
			return ErrUsernameTaken
		}
	}
	s.Participants = append(s.Participants, Participant{
		Username: username,
		Score:    0,
		Answers:  []AnswerRecord{},
		JoinedAt: now,
	})
	return nil
}

// Start moves waiting -> playing and points at the first question.
func (s *GameSession) Start(requester string, questionCount int, now time.Time) error {
	if requester != s.HostID {
		return ErrNotHost
	}
	if s.Status != StatusWaiting {
		return fmt.Errorf("start: %w (status %s)", ErrInvalidState, s.Status)
	}
	if questionCount <= 0 {
		return fmt.Errorf("start: %w", ErrInvalidQuestionIndex)
	}
	if len(s.Participants) == 0 {
		return ErrNoParticipants
	}
	s.Status = StatusPlaying
	s.CurrentQuestionIndex = 0
	s.StartedAt = &now
	return nil
}

// Advance moves the current-question pointer. Host-driven; skipping is
// allowed, normal flow increments by one.
func (s *GameSession) Advance(requester string, index, questionCount int) error {
	if requester != s.HostID {
		return ErrNotHost
	}
	if s.Status != StatusPlaying {
		return fmt.Errorf("advance: %w (status %s)", ErrInvalidState, s.Status)
	}
	if index < 0 || index >= questionCount {
		return ErrInvalidQuestionIndex
	}
	s.CurrentQuestionIndex = index
	return nil
}

// RecordAnswer appends a scored answer for username and bumps their score.
// At most one record per question index, and only for indices at or below
// the current question, so replayed or out-of-order submissions fail.
func (s *GameSession) RecordAnswer(username string, rec AnswerRecord) error {
	if s.Status != StatusPlaying {
		return fmt.Errorf("submit: %w (status %s)", ErrInvalidState, s.Status)
	}
	if rec.QuestionIndex < 0 || rec.QuestionIndex > s.CurrentQuestionIndex {
		return ErrInvalidQuestionIndex
	}
	p := s.participant(username)
	if p == nil {
		return ErrParticipantNotFound
	}
	for _, a := range p.Answers {
		if a.QuestionIndex == rec.QuestionIndex {
			return ErrAnswerExists
		}
	}
	p.Answers = append(p.Answers, rec)
	p.Score += rec.PointsEarned
	return nil
}

// End moves playing -> completed. The question pointer freezes at its
// last value.
func (s *GameSession) End(requester string, now time.Time) error {
	if requester != s.HostID {
		return ErrNotHost
	}
	if s.Status != StatusPlaying {
		return fmt.Errorf("end: %w (status %s)", ErrInvalidState, s.Status)
	}
	s.Status = StatusCompleted
	s.EndedAt = &now
	return nil
}

// Ranking returns the scoreboard sorted by score descending. Ties keep
// join order (stable sort over the insertion-ordered roster).
func (s *GameSession) Ranking() []RankedParticipant {
	ranked := make([]RankedParticipant, len(s.Participants))
	for i, p := range s.Participants {
		ranked[i] = RankedParticipant{Username: p.Username, Score: p.Score}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Position = i + 1
	}
	return ranked
}

// HasParticipant reports whether username has joined the session.
func (s *GameSession) HasParticipant(username string) bool {
	return s.participant(username) != nil
}

func (s *GameSession) participant(username string) *Participant {
	for i := range s.Participants {
		if s.Participants[i].Username == username {
			return &s.Participants[i]
		}
	}
	return nil
}

// Clone deep-copies the session so update callbacks can mutate freely
// without touching the committed record.
func (s *GameSession) Clone() *GameSession {
	c := *s
	c.Participants = make([]Participant, len(s.Participants))
	for i, p := range s.Participants {
		cp := p
		cp.Answers = append([]AnswerRecord(nil), p.Answers...)
		c.Participants[i] = cp
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// Summary collapses the session into its list view.
func (s *GameSession) Summary() SessionSummary {
	return SessionSummary{
		ID:               s.ID,
		QuizID:           s.QuizID,
		Code:             s.Code,
		Status:           s.Status,
		ParticipantCount: len(s.Participants),
	}
}
