package repository

import "errors"

// Sentinel kinds for result log errors.
var (
	ErrClosed       = errors.New("result log closed")
	ErrInvalidLimit = errors.New("invalid result limit")
)
