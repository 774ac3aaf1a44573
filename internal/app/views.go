package app

import (
	"time"

	"livequiz-service/internal/domain"
)

// QuestionView is a question as shown to participants. Grading is only
// populated once the session has completed.
type QuestionView struct {
	Kind    domain.QuestionKind `json:"kind"`
	Text    string              `json:"text"`
	Options []string            `json:"options"`
	Grading *domain.Grading     `json:"grading,omitempty"`
}

// QuizView is a quiz with the answer key conditionally stripped.
type QuizView struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	SecondsPerQuestion int            `json:"secondsPerQuestion"`
	Questions          []QuestionView `json:"questions"`
}

// JoinResult is returned to a participant who entered a valid code.
type JoinResult struct {
	SessionID    string   `json:"sessionId"`
	Code         string   `json:"code"`
	Quiz         QuizView `json:"quiz"`
	Participants []string `json:"participants"`
}

// SubmitResult acknowledges an answer without revealing its correctness.
type SubmitResult struct {
	Submitted        bool    `json:"submitted"`
	TimeTakenSeconds float64 `json:"timeTakenSeconds"`
}

// StatusResult is the session-status view. Participants (with their
// answer records) appear only after completion.
type StatusResult struct {
	SessionID            string                     `json:"sessionId"`
	Code                 string                     `json:"code"`
	Status               domain.SessionStatus       `json:"status"`
	CurrentQuestionIndex int                        `json:"currentQuestionIndex"`
	Quiz                 QuizView                   `json:"quiz"`
	Leaderboard          []domain.RankedParticipant `json:"leaderboard"`
	Participants         []domain.Participant       `json:"participants,omitempty"`
	StartedAt            *time.Time                 `json:"startedAt,omitempty"`
	EndedAt              *time.Time                 `json:"endedAt,omitempty"`
}

type startedPayload struct {
	QuestionIndex  int `json:"questionIndex"`
	TotalQuestions int `json:"totalQuestions"`
}

type questionChangedPayload struct {
	QuestionIndex int `json:"questionIndex"`
}

type answeredPayload struct {
	Username string `json:"username"`
}

type endedPayload struct {
	Ranking []domain.RankedParticipant `json:"ranking"`
}

// sanitizeQuiz copies quiz into its participant view, keeping the answer
// key only when revealAnswers is set (completed sessions).
func sanitizeQuiz(quiz domain.Quiz, revealAnswers bool) QuizView {
	view := QuizView{
		ID:                 quiz.ID,
		Title:              quiz.Title,
		SecondsPerQuestion: quiz.TimeLimit(),
		Questions:          make([]QuestionView, len(quiz.Questions)),
	}
	for i, q := range quiz.Questions {
		qv := QuestionView{
			Kind:    q.Kind,
			Text:    q.Text,
			Options: append([]string(nil), q.Options...),
		}
		if revealAnswers && q.Grading != nil {
			g := *q.Grading
			qv.Grading = &g
		}
		view.Questions[i] = qv
	}
	return view
}
