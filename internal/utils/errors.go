package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrTaskNotFound returns an error for when a task ID is unknown.
func ErrTaskNotFound(id string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("task not found: %s", id),
		Suggestion: "Use 'todoapp list' to see task IDs",
	}
}

// ErrEmptyTitle returns an error for a blank task title.
func ErrEmptyTitle() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("task title is empty"),
		Suggestion: "Provide a title, e.g. todoapp add \"Buy milk\"",
	}
}

// ErrTitleTooLong returns an error for a title over the limit.
func ErrTitleTooLong(limit int) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("task title exceeds %d characters", limit),
		Suggestion: fmt.Sprintf("Shorten the title to at most %d characters", limit),
	}
}

// ErrBackendOffline returns an error when the API is unreachable with smart suggestions.
func ErrBackendOffline(url, reason string) error {
	suggestion := getSmartSuggestion(reason)
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("backend %s is unavailable: %s", url, reason),
		Suggestion: suggestion,
	}
}

// getSmartSuggestion returns a context-aware suggestion based on the error reason.
func getSmartSuggestion(reason string) string {
	lowerReason := strings.ToLower(reason)

	if strings.Contains(lowerReason, "no such host") || strings.Contains(lowerReason, "dns") {
		return "Check the backend_url setting and your DNS configuration"
	}

	if strings.Contains(lowerReason, "connection refused") {
		return "Check if the server is running (todoapp serve) and accessible"
	}

	if strings.Contains(lowerReason, "timeout") || strings.Contains(lowerReason, "i/o timeout") {
		return "The server may be slow or unreachable. Try again later"
	}

	if strings.Contains(lowerReason, "status 404") {
		return "The task may already have been deleted; run 'todoapp list' to refresh"
	}

	return "Check your network connection and the backend_url setting"
}

// ErrInvalidConfig returns an error for an invalid configuration value.
func ErrInvalidConfig(path string, err error) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid configuration in %s: %w", path, err),
		Suggestion: "Fix the value or run 'todoapp config sample' to see the documented defaults",
	}
}
