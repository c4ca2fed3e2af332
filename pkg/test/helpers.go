package test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateTestFile writes content to path under dir, creating parent directories.
func CreateTestFile(t *testing.T, dir, path, content string) {
	t.Helper()
	full := filepath.Join(dir, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

// RequireGit skips the test when no git binary is available.
func RequireGit(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git not found in PATH")
	}
	return path
}

// AssertCommandsExecuted checks that exactly the given commands ran, in order.
func AssertCommandsExecuted(t *testing.T, runner *MockCommandRunner, commands ...string) {
	t.Helper()
	require.Equal(t, commands, runner.Executed())
}

// AssertLogContains checks that the logger captured a message containing the substring.
func AssertLogContains(t *testing.T, logger *MockLogger, substring string) {
	t.Helper()
	require.True(t, logger.HasMessage(substring), "Log should contain: %s\ngot: %v", substring, logger.Messages)
}
