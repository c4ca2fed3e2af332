package system

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"pushit/pkg/runner"
)

// CommandRunner defines an interface for running commands.
// Re-exported from pkg/runner so callers only import system.
type CommandRunner = runner.CommandRunner

// ExitCodeNotRunnable is returned when a command cannot be started,
// matching the shell's "command not found" status.
const ExitCodeNotRunnable = 127

// LiveCommandRunner runs commands on the live system.
type LiveCommandRunner struct{}

// Run executes command in dir and copies its merged output to out one
// line at a time as the lines arrive.
func (r *LiveCommandRunner) Run(ctx context.Context, dir string, command runner.Command, out io.Writer) (int, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return ExitCodeNotRunnable, fmt.Errorf("failed to create output pipe: %w", err)
	}
	defer pr.Close()

	cmd := exec.CommandContext(ctx, command.Name, command.Args...)
	cmd.Dir = dir
	// Both streams share one pipe so their interleaving is kept.
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return ExitCodeNotRunnable, fmt.Errorf("failed to start %s: %w", command.Name, err)
	}
	// The child holds its own copy; closing ours lets the read loop see EOF.
	pw.Close()

	copyErr := copyLines(pr, out)
	if copyErr != nil {
		// keep the child from blocking on a full pipe
		_, _ = io.Copy(io.Discard, pr)
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code := exitErr.ExitCode()
			if code <= 0 {
				// killed by a signal
				code = 1
			}
			return code, nil
		}
		return 1, fmt.Errorf("failed waiting for %s: %w", command.Name, waitErr)
	}
	if copyErr != nil {
		return 0, fmt.Errorf("failed to stream output of %s: %w", command.Name, copyErr)
	}
	return 0, nil
}

func copyLines(r io.Reader, out io.Writer) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if _, werr := io.WriteString(out, line); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
