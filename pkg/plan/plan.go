// Package plan turns settings and a commit message into the ordered list
// of git commands a run executes.
package plan

import (
	"strings"

	"pushit/pkg/model"
	"pushit/pkg/runner"
)

// Kind names a step of the sequence.
type Kind string

const (
	KindStage  Kind = "stage"
	KindCommit Kind = "commit"
	KindPull   Kind = "pull"
	KindPush   Kind = "push"
)

// Step is a single git invocation of the sequence.
type Step struct {
	Kind    Kind
	Command runner.Command
}

// Description returns the command as it is echoed to the console.
func (s Step) Description() string {
	return s.Command.String()
}

// ResolveMessage joins args with single spaces, or returns fallback when
// there are no args.
func ResolveMessage(args []string, fallback string) string {
	if len(args) == 0 {
		return fallback
	}
	return strings.Join(args, " ")
}

// Build returns the stage, commit, pull and push steps, in that order.
// The message is passed to git as a single argument.
func Build(settings model.Settings, message string) []Step {
	return []Step{
		{Kind: KindStage, Command: runner.NewCommand("git", "add", ".")},
		{Kind: KindCommit, Command: runner.NewCommand("git", "commit", "-m", message)},
		{Kind: KindPull, Command: runner.NewCommand("git", "pull", settings.Remote, settings.Branch, "--rebase")},
		{Kind: KindPush, Command: runner.NewCommand("git", "push", settings.Remote, settings.Branch)},
	}
}

// RebaseAbort is the command run after a failed pull when the settings ask for it.
func RebaseAbort() runner.Command {
	return runner.NewCommand("git", "rebase", "--abort")
}
