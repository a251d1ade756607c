package domain

import "errors"

var (
	// ErrNotStarted is returned for operations on a quiz the user has no attempt for.
	ErrNotStarted = errors.New("quiz not started")
	// ErrAlreadyCompleted is returned for operations on a finished attempt.
	ErrAlreadyCompleted = errors.New("quiz already completed")
	// ErrAlreadyAnswered is returned on a duplicate submission; the prior result still applies.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrPositionUnavailable means the position provider failed; gated questions stay gated.
	ErrPositionUnavailable = errors.New("position unavailable")
	// ErrPersistenceUnavailable means the progress store could not be read or written.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID or index is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrQuestionNotCurrent is returned when answering ahead of the current question.
	ErrQuestionNotCurrent = errors.New("question is not the current question")
	// ErrSessionClosed is returned after logout.
	ErrSessionClosed = errors.New("session closed")
	// ErrUserRequired is returned when logging in without a user id.
	ErrUserRequired = errors.New("user id required")
	// ErrEmptyQuiz is returned when a quiz would be created without questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrInvalidCoordinate rejects latitudes or longitudes outside their ranges.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)
