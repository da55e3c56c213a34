package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session does not exist.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionPending is returned when starting a session while another one is unfinished.
	ErrSessionPending = errors.New("another quiz session is still pending")
	// ErrSessionFinished is returned when acting on a session that already ended.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrNotEnoughQuestions indicates the selection produced no questions.
	ErrNotEnoughQuestions = errors.New("not enough questions for this selection")
	// ErrNoCategories is returned when a session is requested without categories.
	ErrNoCategories = errors.New("at least one category is required")
	// ErrInvalidDifficulty indicates an unknown difficulty filter.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrQuestionNotFound indicates a question ID is unknown to the catalog.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidAnswer indicates an answer index outside the answer list.
	ErrInvalidAnswer = errors.New("invalid answer index")
	// ErrAlreadyAnswered is returned when the current question already has an outcome.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrInvalidImport wraps every content-pack validation failure.
	ErrInvalidImport = errors.New("invalid question import")
)
