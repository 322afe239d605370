// Package gitmeta clones remote content repositories and reads git metadata
// from content checkouts. Deployment records carry the commit, branch and
// remote of the content source; edit links use the branch when one exists.
package gitmeta

import (
	stderrors "errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Meta describes the git state of a content checkout.
type Meta struct {
	Commit string
	Branch string
	Remote string
}

// ShortCommit returns the abbreviated commit hash.
func (m *Meta) ShortCommit() string {
	if m == nil {
		return ""
	}
	if len(m.Commit) <= 8 {
		return m.Commit
	}
	return m.Commit[:8]
}

// Describe returns the commit, branch and origin remote of the repository
// containing path. A path outside any git repository, or inside one with no
// commits yet, yields nil metadata without error: plain local content
// directories are a normal case, not a failure.
func Describe(path string) (*Meta, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if stderrors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("open repository at %s: %w", path, err)
	}

	head, err := repo.Head()
	if err != nil {
		if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read HEAD of %s: %w", path, err)
	}

	meta := &Meta{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		meta.Branch = head.Name().Short()
	}
	if remote, rerr := repo.Remote(git.DefaultRemoteName); rerr == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			meta.Remote = urls[0]
		}
	}
	return meta, nil
}
