package domain

import (
	"fmt"

	"live-quiz-service/internal/errors"
)

var (
	// ErrInvalidCode is returned for a well-formed join code that maps to no session.
	ErrInvalidCode = errors.New(errors.CodeNotFound, errors.WithMessagef("invalid code"))
	// ErrSessionNotFound is returned when a session record does not exist.
	ErrSessionNotFound = errors.New(errors.CodeNotFound, errors.WithMessagef("session not found"))
	// ErrParticipantNotFound is returned when a participant record does not exist.
	ErrParticipantNotFound = errors.New(errors.CodeNotFound, errors.WithMessagef("participant not found"))
	// ErrQuizNotFound indicates a library quiz could not be loaded.
	ErrQuizNotFound = errors.New(errors.CodeNotFound, errors.WithMessagef("quiz not found"))

	// ErrSessionEnded is returned when joining a finished session.
	ErrSessionEnded = errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("session already ended"))
	// ErrSessionNotActive is returned for submissions outside the active state.
	ErrSessionNotActive = errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("session is not active"))
	// ErrInvalidTransition is returned for lifecycle commands from the wrong state.
	ErrInvalidTransition = errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("invalid session transition"))
	// ErrQuestionMismatch is returned when an answer targets a question other than the current one.
	ErrQuestionMismatch = errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("answer is not for the current question"))
	// ErrAlreadyCompleted is returned when a participant has answered every question.
	ErrAlreadyCompleted = errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("participant already completed the quiz"))

	// ErrMalformedCode is returned when a join code is not exactly six digits.
	ErrMalformedCode = errors.New(errors.CodeInvalidArgument, errors.WithMessagef("join code must be 6 digits"))
	// ErrEmptyName is returned when the display name is blank.
	ErrEmptyName = errors.New(errors.CodeInvalidArgument, errors.WithMessagef("name is required"))
)

func transitionError(from, to Status) error {
	return fmt.Errorf("cannot move session from %s to %s", from, to)
}
