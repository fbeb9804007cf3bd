package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidConfig is returned by NewSummarizer when required
	// configuration is missing or the client cannot be constructed.
	ErrInvalidConfig = errors.New("invalid summarizer configuration")
)
