package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInsightAlreadySet is returned when a second insight is stored for a session.
	ErrInsightAlreadySet = errors.New("insight already set")
	// ErrEmptyInsight is returned when the generation service answers with no text.
	ErrEmptyInsight = errors.New("generation service returned an empty response")
)

// ValidationError reports that a step's inputs are not complete enough to advance.
// The session is left untouched.
type ValidationError struct {
	Page    Page
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Page, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Page, e.Field, e.Message)
}

// IncompleteStateError is returned when an insight is requested for a session
// that skipped a step. It indicates a controller bug, not a user error.
type IncompleteStateError struct {
	Missing []string
}

func (e *IncompleteStateError) Error() string {
	return "session state incomplete: missing " + strings.Join(e.Missing, ", ")
}

// GenerationError wraps a failed call to the text generation service.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "insight generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
