package domain

import "errors"

var (
	// ErrSessionExpired is returned when credentials cannot be refreshed and
	// the user must sign in again.
	ErrSessionExpired = errors.New("session expired, please sign in again")
	// ErrExamNotActive is returned for exam transitions outside the ready state.
	ErrExamNotActive = errors.New("exam is not active")
	// ErrExamAlreadyStarted is returned when loading over a live session.
	ErrExamAlreadyStarted = errors.New("exam already started")
	// ErrQuestionNotFound indicates an unknown question ID.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrIndexOutOfRange indicates a jump outside the question list.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrNoResult indicates no scored submission is available.
	ErrNoResult = errors.New("no result available")
)
