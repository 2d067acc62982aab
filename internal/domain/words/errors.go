package words

import "errors"

// Sentinel kinds for generator errors.
var (
	ErrInvalidWordCount = errors.New("word count must be positive")
	ErrEmptyVocabulary  = errors.New("vocabulary must not be empty")
)
