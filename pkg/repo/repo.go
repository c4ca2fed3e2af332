// Package repo reads the state of the working tree pushit runs in.
// Nothing here is required for a run; it only feeds warnings and dry-run
// output.
package repo

import (
	"fmt"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Info describes a repository as found from a directory inside it.
type Info struct {
	Root    string
	Branch  string // empty when HEAD is detached
	Changes []Change
}

// Change is one path with pending changes, using git's short status codes.
type Change struct {
	Path     string
	Staging  byte
	Worktree byte
}

func (c Change) String() string {
	return fmt.Sprintf("%c%c %s", c.Staging, c.Worktree, c.Path)
}

// Clean reports whether there is nothing to stage or commit.
func (i *Info) Clean() bool {
	return len(i.Changes) == 0
}

// Head reads the root and checked-out branch of the repository
// containing dir. It does not look at the working tree.
func Head(dir string) (*Info, error) {
	_, info, err := open(dir)
	return info, err
}

// Inspect is Head plus the pending changes of the working tree. Computing
// the status walks and hashes every tracked file.
func Inspect(dir string) (*Info, error) {
	wt, info, err := open(dir)
	if err != nil {
		return nil, err
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	for path, fs := range status {
		if fs.Staging == gogit.Unmodified && fs.Worktree == gogit.Unmodified {
			continue
		}
		info.Changes = append(info.Changes, Change{
			Path:     path,
			Staging:  byte(fs.Staging),
			Worktree: byte(fs.Worktree),
		})
	}
	sort.Slice(info.Changes, func(i, j int) bool {
		return info.Changes[i].Path < info.Changes[j].Path
	})

	return info, nil
}

func open(dir string) (*gogit.Worktree, *Info, error) {
	r, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("not a git repository: %w", err)
	}

	wt, err := r.Worktree()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	info := &Info{Root: wt.Filesystem.Root()}

	// Read HEAD without resolving it so an unborn branch still has a name.
	head, err := r.Reference(plumbing.HEAD, false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		info.Branch = head.Target().Short()
	}

	return wt, info, nil
}
