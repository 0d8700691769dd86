package utils

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

// TestPromptYesNoYes verifies yes responses
func TestPromptYesNoYes(t *testing.T) {
	yesInputs := []string{"y\n", "Y\n", "yes\n", "Yes\n", "YES\n"}

	for _, input := range yesInputs {
		t.Run(input[:len(input)-1], func(t *testing.T) {
			result := PromptYesNoWithReader("Test?", strings.NewReader(input), io.Discard)
			if !result {
				t.Errorf("PromptYesNo with input %q = false, want true", input)
			}
		})
	}
}

// TestPromptYesNoNo verifies no responses and end of input
func TestPromptYesNoNo(t *testing.T) {
	noInputs := []string{"n\n", "N\n", "no\n", ""}

	for _, input := range noInputs {
		t.Run(strings.TrimSpace(input), func(t *testing.T) {
			result := PromptYesNoWithReader("Test?", strings.NewReader(input), io.Discard)
			if result {
				t.Errorf("PromptYesNo with input %q = true, want false", input)
			}
		})
	}
}

// TestPromptYesNoRetryOnInvalid verifies loop until valid input
func TestPromptYesNoRetryOnInvalid(t *testing.T) {
	var output bytes.Buffer
	result := PromptYesNoWithReader("Delete?", strings.NewReader("maybe\ny\n"), &output)

	if !result {
		t.Error("expected true after retry")
	}
	if strings.Count(output.String(), "Delete? (y/n): ") != 2 {
		t.Errorf("expected prompt twice, got: %q", output.String())
	}
}
