package utils

import (
	"errors"
	"strings"
	"testing"
)

// TestErrorWithSuggestionImplementsError verifies interface compliance
func TestErrorWithSuggestionImplementsError(t *testing.T) {
	var _ error = &ErrorWithSuggestion{}
}

// TestErrorWithSuggestionError verifies Error() method output
func TestErrorWithSuggestionError(t *testing.T) {
	err := &ErrorWithSuggestion{
		Err:        errors.New("something went wrong"),
		Suggestion: "Try doing X",
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "something went wrong") {
		t.Errorf("Error() should contain error message, got: %s", errStr)
	}
	if !strings.Contains(errStr, "Suggestion: Try doing X") {
		t.Errorf("Error() should contain suggestion text, got: %s", errStr)
	}
}

// TestErrorWithSuggestionUnwrap verifies Unwrap() for error chain
func TestErrorWithSuggestionUnwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := WrapWithSuggestion(underlying, "suggestion")

	if !errors.Is(err, underlying) {
		t.Errorf("wrapped error should match underlying error")
	}

	var ews *ErrorWithSuggestion
	if !errors.As(err, &ews) || ews.GetSuggestion() != "suggestion" {
		t.Errorf("expected ErrorWithSuggestion with suggestion text")
	}
}

// TestErrBackendOfflineSuggestions verifies the suggestion follows the failure reason
func TestErrBackendOfflineSuggestions(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"dial tcp 127.0.0.1:5000: connect: connection refused", "todoapp serve"},
		{"dial tcp: lookup api.example: no such host", "DNS"},
		{"context deadline exceeded (Client.Timeout exceeded while awaiting headers): i/o timeout", "Try again later"},
		{"DELETE /api/todos/1: status 404", "already have been deleted"},
		{"something odd", "backend_url"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			err := ErrBackendOffline("http://localhost:5000", tt.reason)
			var ews *ErrorWithSuggestion
			if !errors.As(err, &ews) {
				t.Fatalf("expected ErrorWithSuggestion, got %T", err)
			}
			if !strings.Contains(ews.GetSuggestion(), tt.want) {
				t.Errorf("suggestion %q should contain %q", ews.GetSuggestion(), tt.want)
			}
			if !strings.Contains(err.Error(), "http://localhost:5000") {
				t.Errorf("error should name the backend URL, got: %s", err.Error())
			}
		})
	}
}

// TestTitleErrors verifies the title error constructors
func TestTitleErrors(t *testing.T) {
	if !strings.Contains(ErrEmptyTitle().Error(), "empty") {
		t.Errorf("unexpected empty title error: %v", ErrEmptyTitle())
	}
	if !strings.Contains(ErrTitleTooLong(200).Error(), "200") {
		t.Errorf("unexpected too long error: %v", ErrTitleTooLong(200))
	}
	if !strings.Contains(ErrTaskNotFound("abc").Error(), "abc") {
		t.Errorf("unexpected not found error: %v", ErrTaskNotFound("abc"))
	}
}
