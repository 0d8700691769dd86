// Package testutil provides shared test utilities for CLI testing across packages.
// This enables co-located CLI tests while maintaining consistent test infrastructure.
package testutil

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todoapp/backend"
	"todoapp/backend/sqlite"
	"todoapp/cmd/todoapp/cmd"
	"todoapp/internal/retry"
	"todoapp/internal/server"
)

// defaultTestConfig is the minimal config used by most test constructors to ensure isolation.
const defaultTestConfig = "# test config\nlogging:\n  background_enabled: false\n"

// CLITest provides a test helper for running CLI commands in isolation.
type CLITest struct {
	t          *testing.T
	cfg        *cmd.Config
	tmpDir     string
	configPath string
	store      backend.Store
}

// NewCLITest creates a CLI test helper talking to a fresh reference server
// backed by an in-memory database.
func NewCLITest(t *testing.T) *CLITest {
	t.Helper()

	store, err := sqlite.New(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	ts := httptest.NewServer(server.NewHandler(store, nil))
	t.Cleanup(func() {
		ts.Close()
		_ = store.Close()
	})

	c := NewCLITestWithBackendURL(t, ts.URL)
	c.store = store
	return c
}

// NewCLITestWithBackendURL creates a CLI test helper pointed at url.
// Retries do not sleep.
func NewCLITestWithBackendURL(t *testing.T, url string) *CLITest {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Write a minimal default config to ensure isolation
	if err := os.WriteFile(configPath, []byte(defaultTestConfig), 0644); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	return &CLITest{
		t:      t,
		tmpDir: tmpDir,
		cfg: &cmd.Config{
			NoPrompt:   true,
			ConfigPath: configPath,
			BackendURL: url,
			Sleep:      retry.NoSleep,
		},
		configPath: configPath,
	}
}

// Config returns the command config for further customization.
func (c *CLITest) Config() *cmd.Config {
	return c.cfg
}

// Store returns the server's store, or nil for a custom backend URL.
func (c *CLITest) Store() backend.Store {
	return c.store
}

// TmpDir returns the temporary directory for this test.
func (c *CLITest) TmpDir() string {
	return c.tmpDir
}

// ConfigPath returns the config file path.
func (c *CLITest) ConfigPath() string {
	return c.configPath
}

// SetFullConfig replaces the config file contents.
func (c *CLITest) SetFullConfig(yamlContent string) {
	c.t.Helper()
	if err := os.WriteFile(c.configPath, []byte(yamlContent), 0644); err != nil {
		c.t.Fatalf("failed to write config: %v", err)
	}
}

// SetStdin makes prompts read from input and enables them.
func (c *CLITest) SetStdin(input string) {
	c.cfg.Stdin = strings.NewReader(input)
	c.cfg.NoPrompt = false
}

// Execute runs a CLI command and returns stdout, stderr, and exit code
func (c *CLITest) Execute(args ...string) (stdout, stderr string, exitCode int) {
	c.t.Helper()

	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode = cmd.Execute(args, &stdoutBuf, &stderrBuf, c.cfg)
	return stdoutBuf.String(), stderrBuf.String(), exitCode
}

// MustExecute runs a CLI command and fails the test if it returns non-zero
func (c *CLITest) MustExecute(args ...string) string {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode != 0 {
		c.t.Fatalf("expected exit code 0, got %d: stdout=%s stderr=%s", exitCode, stdout, stderr)
	}
	return stdout
}

// ExecuteAndFail runs a CLI command and fails the test if it returns zero
func (c *CLITest) ExecuteAndFail(args ...string) (stdout, stderr string) {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode == 0 {
		c.t.Fatalf("expected non-zero exit code, got 0: stdout=%s", stdout)
	}
	return stdout, stderr
}

// AssertContains checks that output contains expected string
func AssertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// AssertNotContains checks that output does not contain unexpected string
func AssertNotContains(t *testing.T, output, unexpected string) {
	t.Helper()
	if strings.Contains(output, unexpected) {
		t.Errorf("expected output NOT to contain %q, got:\n%s", unexpected, output)
	}
}

// AssertResultCode checks the last line of output is the expected result code
func AssertResultCode(t *testing.T, output, expectedCode string) {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 || lines[len(lines)-1] != expectedCode {
		t.Errorf("expected result code %s as last line, got:\n%s", expectedCode, output)
	}
}
