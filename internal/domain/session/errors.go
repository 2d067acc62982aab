package session

import "errors"

// Sentinel kinds for solo round errors.
var (
	ErrInvalidMode   = errors.New("invalid session mode")
	ErrInvalidTarget = errors.New("invalid session target")
	ErrNoTextSource  = errors.New("session requires a text source")
	ErrNotStarted    = errors.New("session not started")
	ErrNotFinished   = errors.New("session not finished")
	ErrFinished      = errors.New("session already finished")
)
