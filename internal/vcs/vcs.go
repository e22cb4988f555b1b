// Package vcs reports which revision of the project is being built
package vcs

import (
	"errors"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

// Revision describes the checked out commit of a repository
type Revision struct {
	Hash  string `toml:"hash" json:"hash"`
	Short string `toml:"short" json:"short"`
	Dirty bool   `toml:"dirty" json:"dirty"`
}

func (r Revision) String() string {
	if r.Dirty {
		return r.Short + "-dirty"
	}
	return r.Short
}

// Describe returns the revision of the git repository containing dir. ok is
// false when dir is not inside a repository or HEAD has no commit yet.
func Describe(dir string) (rev Revision, ok bool, err error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Revision{}, false, nil
	}
	if err != nil {
		return Revision{}, false, err
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// unborn branch
		return Revision{}, false, nil
	}
	if err != nil {
		return Revision{}, false, err
	}

	hash := head.Hash().String()
	rev = Revision{Hash: hash, Short: hash[:min(len(hash), 7)]}

	w, err := repo.Worktree()
	if err != nil {
		return rev, true, nil // bare repository
	}
	status, err := w.Status()
	if err != nil {
		return rev, true, err
	}
	rev.Dirty = !status.IsClean()
	return rev, true, nil
}
