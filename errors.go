package pagewalk

import "errors"

var (
	// ErrSessionNotFound is returned when a session id matches nothing, in
	// memory or in the store.
	ErrSessionNotFound = errors.New("pagewalk: session not found")

	// ErrSessionActive is returned by operations that need a stopped session.
	ErrSessionActive = errors.New("pagewalk: session is active")

	// ErrNotPaused is returned when resuming a session that is not paused.
	ErrNotPaused = errors.New("pagewalk: session is not paused")

	// ErrClosed is returned once the service has shut down.
	ErrClosed = errors.New("pagewalk: service is closed")
)
