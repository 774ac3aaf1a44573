package domain

import "time"

// QuestionKind tags the two question variants. Survey questions carry no
// answer key and are never scored.
type QuestionKind string

const (
	QuestionKindQuiz   QuestionKind = "quiz"
	QuestionKindSurvey QuestionKind = "survey"
)

// Grading holds the quiz-only fields of a question. It is nil on survey
// questions, so the answer key is statically absent from that variant.
type Grading struct {
	CorrectOption int `json:"correctOption"`
	Points        int `json:"points"` // defaults to 1 if zero
}

// Question models one multiple-choice question with 2+ options.
type Question struct {
	Kind    QuestionKind `json:"kind"`
	Text    string       `json:"text"`
	Options []string     `json:"options"`
	Grading *Grading     `json:"grading,omitempty"`
}

// BasePoints returns the point value of a graded question.
func (q Question) BasePoints() int {
	if q.Grading == nil || q.Grading.Points <= 0 {
		return 1
	}
	return q.Grading.Points
}

// Quiz is read-only input to a session. An empty OwnerID means the quiz
// is not owned (sample content); otherwise only the owner may host it.
type Quiz struct {
	ID                 string     `json:"id"`
	OwnerID            string     `json:"ownerId,omitempty"`
	Title              string     `json:"title"`
	SecondsPerQuestion int        `json:"secondsPerQuestion"`
	Questions          []Question `json:"questions"`
}

// TimeLimit returns the per-question limit in seconds, defaulting to 30.
func (q Quiz) TimeLimit() int {
	if q.SecondsPerQuestion <= 0 {
		return 30
	}
	return q.SecondsPerQuestion
}

// SessionStatus is the lifecycle state of a game session. Transitions are
// forward-only: waiting -> playing -> completed.
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusPlaying   SessionStatus = "playing"
	StatusCompleted SessionStatus = "completed"
)

// AnswerRecord is the durable log entry of one participant's response to
// one question.
type AnswerRecord struct {
	QuestionIndex    int     `json:"questionIndex"`
	SelectedOption   int     `json:"selectedOption"`
	TimeTakenSeconds float64 `json:"timeTakenSeconds"`
	IsCorrect        bool    `json:"isCorrect"`
	PointsEarned     int     `json:"pointsEarned"`
}

// Participant is a joined player, unique by username within one session.
type Participant struct {
	Username string         `json:"username"`
	Score    int            `json:"score"`
	Answers  []AnswerRecord `json:"answers"`
	JoinedAt time.Time      `json:"joinedAt"`
}

// GameSession is the mutable core record. All mutation goes through the
// transition methods in session.go, invoked inside a store AtomicUpdate.
type GameSession struct {
	ID                   string        `json:"id"`
	QuizID               string        `json:"quizId"`
	HostID               string        `json:"hostId"`
	Code                 string        `json:"code"`
	Status               SessionStatus `json:"status"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	Participants         []Participant `json:"participants"`
	StartedAt            *time.Time    `json:"startedAt,omitempty"`
	EndedAt              *time.Time    `json:"endedAt,omitempty"`

	// Version increments on every committed mutation; stores use it for
	// optimistic concurrency.
	Version int `json:"version"`
}

// RankedParticipant is one row of a session leaderboard.
type RankedParticipant struct {
	Position int    `json:"position"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// SessionSummary is the list view of a host's session.
type SessionSummary struct {
	ID               string        `json:"id"`
	QuizID           string        `json:"quizId"`
	Code             string        `json:"code"`
	Status           SessionStatus `json:"status"`
	ParticipantCount int           `json:"participantCount"`
}
