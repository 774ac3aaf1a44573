package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session matches an id or code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrParticipantNotFound is returned when a user acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrNotHost is returned when a non-host calls a host-only operation.
	ErrNotHost = errors.New("only the session host may perform this operation")
	// ErrInvalidState is returned when an operation is not valid for the
	// session's current status.
	ErrInvalidState = errors.New("operation not valid in current session state")
	// ErrUsernameTaken is returned on join with a username already present.
	ErrUsernameTaken = errors.New("username already taken in this session")
	// ErrAnswerExists is returned when a participant resubmits a question.
	ErrAnswerExists = errors.New("answer already recorded for this question")
	// ErrCodeTaken is returned by stores when a join code is already held
	// by another active session.
	ErrCodeTaken = errors.New("join code already in use")
	// ErrVersionConflict is returned when an atomic update lost the race
	// after exhausting its retries.
	ErrVersionConflict = errors.New("session was modified concurrently")
	// ErrInvalidOption indicates a selected option index out of range.
	ErrInvalidOption = errors.New("selected option out of range")
	// ErrInvalidQuestionIndex indicates a question index outside the quiz.
	ErrInvalidQuestionIndex = errors.New("question index out of range")
	// ErrNoParticipants is returned when starting an empty session.
	ErrNoParticipants = errors.New("session has no participants")
)

// ErrorKind buckets domain errors for transport mapping.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindForbidden
	KindInvalidState
	KindConflict
	KindValidation
)

// KindOf classifies err into an ErrorKind. Unrecognized errors are
// Internal; the transport layer must not leak their detail.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrQuizNotFound),
		errors.Is(err, ErrParticipantNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotHost):
		return KindForbidden
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrUsernameTaken),
		errors.Is(err, ErrAnswerExists),
		errors.Is(err, ErrCodeTaken),
		errors.Is(err, ErrVersionConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidOption),
		errors.Is(err, ErrInvalidQuestionIndex),
		errors.Is(err, ErrNoParticipants):
		return KindValidation
	default:
		return KindInternal
	}
}
