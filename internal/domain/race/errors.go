package race

import "errors"

// Sentinel kinds for coordinator errors.
var (
	ErrNoPublisher = errors.New("coordinator requires a publisher")
	ErrNotRunning  = errors.New("coordinator is not running")
)
