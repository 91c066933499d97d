// errors.go - Sentinel errors shared across the audit pipeline

package common

import "errors"

var (
	// ErrNotFound covers a missing task, store, or actual image. Fatal to the
	// request: no audit result is created.
	ErrNotFound = errors.New("resource not found")

	// ErrAIUnavailable is returned when the Gemini call times out or fails at
	// the transport level. Fatal to the request; the caller may retry the
	// whole upload manually.
	ErrAIUnavailable = errors.New("AI capability unavailable")

	// ErrPersistence is returned when a create/update against MongoDB fails
	// after the AI cost has already been paid.
	ErrPersistence = errors.New("persistence error")

	// ErrConflict is returned when a create collides with an existing unique
	// code (store or task). The client sent a bad value, not the server.
	ErrConflict = errors.New("duplicate code")

	// ErrTooLarge is returned by the image store when an upload exceeds the
	// configured per-file cap.
	ErrTooLarge = errors.New("file exceeds size limit")
)
