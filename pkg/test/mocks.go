package test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"pushit/pkg/log"
	"pushit/pkg/runner"
)

// MockCommandRunner is a shared mock implementation of runner.CommandRunner for testing.
// Results are keyed by the command's display string, e.g. "git add .".
// Commands without a configured result succeed silently.
type MockCommandRunner struct {
	Commands  []runner.Command // Track executed commands in order
	Dirs      []string         // Working directory of each executed command
	Outputs   map[string]string
	ExitCodes map[string]int
	Errors    map[string]error
}

// NewMockCommandRunner creates a new MockCommandRunner with initialized maps.
func NewMockCommandRunner() *MockCommandRunner {
	return &MockCommandRunner{
		Outputs:   make(map[string]string),
		ExitCodes: make(map[string]int),
		Errors:    make(map[string]error),
	}
}

// Run records the command, writes its configured output and returns its
// configured exit code.
func (r *MockCommandRunner) Run(ctx context.Context, dir string, command runner.Command, out io.Writer) (int, error) {
	key := command.String()
	r.Commands = append(r.Commands, command)
	r.Dirs = append(r.Dirs, dir)

	if output, ok := r.Outputs[key]; ok {
		if _, err := io.WriteString(out, output); err != nil {
			return 1, err
		}
	}
	if err, ok := r.Errors[key]; ok {
		return r.ExitCodes[key], err
	}
	return r.ExitCodes[key], nil
}

// SetResult configures the output and exit code for a command.
func (r *MockCommandRunner) SetResult(command string, exitCode int, output string) {
	r.ExitCodes[command] = exitCode
	if output != "" {
		r.Outputs[command] = output
	}
}

// SetError configures a start failure for a command.
func (r *MockCommandRunner) SetError(command string, exitCode int, err error) {
	r.ExitCodes[command] = exitCode
	r.Errors[command] = err
}

// Executed returns the display strings of executed commands in order.
func (r *MockCommandRunner) Executed() []string {
	executed := make([]string, 0, len(r.Commands))
	for _, c := range r.Commands {
		executed = append(executed, c.String())
	}
	return executed
}

// Reset clears all tracked commands and configurations.
func (r *MockCommandRunner) Reset() {
	r.Commands = nil
	r.Dirs = nil
	r.Outputs = make(map[string]string)
	r.ExitCodes = make(map[string]int)
	r.Errors = make(map[string]error)
}

// MockLogger is a shared mock implementation of Logger for testing.
// It captures logged messages for verification.
type MockLogger struct {
	Messages []string
	Level    slog.Level
}

// NewMockLogger creates a new MockLogger with the specified level.
func NewMockLogger(level slog.Level) *MockLogger {
	return &MockLogger{
		Messages: []string{},
		Level:    level,
	}
}

func (l *MockLogger) Debug(msg string, args ...any) {
	l.capture(slog.LevelDebug, msg, args...)
}

func (l *MockLogger) Info(msg string, args ...any) {
	l.capture(slog.LevelInfo, msg, args...)
}

func (l *MockLogger) Warn(msg string, args ...any) {
	l.capture(slog.LevelWarn, msg, args...)
}

func (l *MockLogger) Error(msg string, args ...any) {
	l.capture(slog.LevelError, msg, args...)
}

func (l *MockLogger) capture(level slog.Level, msg string, args ...any) {
	if level < l.Level {
		return
	}
	buf := &bytes.Buffer{}
	buf.WriteString(level.String())
	buf.WriteString(": ")
	buf.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(buf, " %v=%v", args[i], args[i+1])
	}
	l.Messages = append(l.Messages, buf.String())
}

// Reset clears all captured messages.
func (l *MockLogger) Reset() {
	l.Messages = []string{}
}

// HasMessage checks if any captured message contains the given substring.
func (l *MockLogger) HasMessage(substring string) bool {
	for _, msg := range l.Messages {
		if bytes.Contains([]byte(msg), []byte(substring)) {
			return true
		}
	}
	return false
}

// SlogLogger creates a real slog logger for testing (alternative to mock).
func SlogLogger(level slog.Level) log.Logger {
	return log.NewSlogLogger(level, io.Discard)
}
