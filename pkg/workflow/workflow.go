// Package workflow runs the stage, commit, pull and push sequence and
// stops at the first command that fails.
package workflow

import (
	"context"
	"fmt"

	"pushit/pkg/console"
	"pushit/pkg/log"
	"pushit/pkg/model"
	"pushit/pkg/plan"
	"pushit/pkg/repo"
	"pushit/pkg/runner"
)

// StepFailedError reports the first command that exited non-zero.
type StepFailedError struct {
	Step     plan.Step
	ExitCode int
	Err      error // set when the command could not be started
}

func (e *StepFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("command failed: %s: %v", e.Step.Description(), e.Err)
	}
	return fmt.Sprintf("command failed: %s (exit code %d)", e.Step.Description(), e.ExitCode)
}

func (e *StepFailedError) Unwrap() error {
	return e.Err
}

// Options holds everything a run needs.
type Options struct {
	Dir      string
	Message  string
	Settings model.Settings
	Runner   runner.CommandRunner
	Console  *console.Console
	Logger   log.Logger
	// Head looks up the checked-out branch for the branch check. Nil
	// skips the check.
	Head func(dir string) (*repo.Info, error)
}

// Run prints the banner and executes the steps built from opts in order.
// It returns a *StepFailedError for the first failing step; later steps
// never run and earlier ones are not undone.
func Run(ctx context.Context, opts Options) error {
	out := opts.Console
	logger := opts.Logger

	out.Banner(opts.Dir, opts.Settings.Branch, opts.Message)
	checkBranch(opts)

	steps := plan.Build(opts.Settings, opts.Message)
	for _, step := range steps {
		out.Step(step.Description())
		logger.Debug("Running step", "kind", step.Kind, "dir", opts.Dir)

		code, err := opts.Runner.Run(ctx, opts.Dir, step.Command, out.Writer())
		if err == nil && code == 0 {
			continue
		}

		logger.Debug("Step failed", "kind", step.Kind, "exit_code", code, "error", err)
		if code == 0 {
			code = 1
		}
		out.Failed(step.Description())
		out.Hint()
		if step.Kind == plan.KindPull && opts.Settings.AbortRebaseOnFailure {
			abortRebase(ctx, opts)
		}
		return &StepFailedError{Step: step, ExitCode: code, Err: err}
	}

	out.Success()
	logger.Info("Push complete", "remote", opts.Settings.Remote, "branch", opts.Settings.Branch)
	return nil
}

// abortRebase undoes a half-applied pull --rebase. Its own failure is
// only logged; the pull's exit code is what the caller reports.
func abortRebase(ctx context.Context, opts Options) {
	abort := plan.RebaseAbort()
	opts.Console.Step(abort.String())
	code, err := opts.Runner.Run(ctx, opts.Dir, abort, opts.Console.Writer())
	if err != nil || code != 0 {
		opts.Logger.Warn("Rebase abort failed", "exit_code", code, "error", err)
		return
	}
	opts.Logger.Info("Rebase aborted")
}

func checkBranch(opts Options) {
	if opts.Head == nil {
		return
	}
	info, err := opts.Head(opts.Dir)
	if err != nil {
		opts.Logger.Debug("Skipping repository check", "error", err)
		return
	}
	opts.Logger.Debug("Checked out branch", "branch", info.Branch, "root", info.Root)
	if info.Branch != "" && info.Branch != opts.Settings.Branch {
		opts.Console.Warn("checked out branch is %s, pushing to %s/%s", info.Branch, opts.Settings.Remote, opts.Settings.Branch)
	}
}
