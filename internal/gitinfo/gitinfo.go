// Package gitinfo resolves content modification times from git history.
// Fresh checkouts carry checkout-time filesystem mtimes, which would mark
// every page outdated; the commit log is the durable signal.
package gitinfo

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Times maps repository paths to the newest commit that touched them.
type Times struct {
	root   string
	byPath map[string]time.Time
}

// Load opens the repository containing dir and walks its commit log once,
// recording the newest commit time per touched path. Uncommitted files are
// absent from the result.
func Load(dir string) (*Times, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("resolving worktree: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("reading commit log: %w", err)
	}
	defer iter.Close()

	t := &Times{
		root:   wt.Filesystem.Root(),
		byPath: make(map[string]time.Time),
	}
	err = iter.ForEach(func(c *object.Commit) error {
		stats, err := c.Stats()
		if err != nil {
			// Stat failures on odd merges only lose precision for the
			// affected paths.
			return nil
		}
		when := c.Author.When
		for _, st := range stats {
			if prev, ok := t.byPath[st.Name]; !ok || when.After(prev) {
				t.byPath[st.Name] = when
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking commit log: %w", err)
	}
	return t, nil
}

// ModTime returns the newest commit time for path. The second return value
// is false for paths outside the repository or never committed.
func (t *Times) ModTime(path string) (time.Time, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return time.Time{}, false
	}
	rel, err := filepath.Rel(t.root, abs)
	if err != nil {
		return time.Time{}, false
	}
	when, ok := t.byPath[filepath.ToSlash(rel)]
	return when, ok
}

// Len returns the number of tracked paths.
func (t *Times) Len() int { return len(t.byPath) }
