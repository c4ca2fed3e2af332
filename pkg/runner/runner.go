// Package runner defines the command execution contract.
// This package exists to break import cycles between testing and system packages.
package runner

import (
	"context"
	"io"
	"strconv"
	"strings"
)

// CommandRunner runs a single command to completion.
// Run streams the command's merged stdout and stderr to out line by line
// and returns its exit code. A non-zero exit code is not an error; err is
// only set when the command could not be run at all.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command Command, out io.Writer) (int, error)
}

// Command is a program and its argument vector. Arguments are passed to
// the program as-is and never go through a shell.
type Command struct {
	Name string
	Args []string
}

// NewCommand builds a Command from a program name and its arguments.
func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// String renders the command for display. Arguments that a shell would
// split or interpret are double-quoted.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, displayArg(c.Name))
	for _, arg := range c.Args {
		parts = append(parts, displayArg(arg))
	}
	return strings.Join(parts, " ")
}

const shellSpecial = " \t\n\"'\\$`!#&|;<>()*?[]{}~"

func displayArg(arg string) string {
	if arg == "" {
		return `""`
	}
	if strings.ContainsAny(arg, shellSpecial) {
		return strconv.Quote(arg)
	}
	return arg
}
