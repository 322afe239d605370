package gitmeta

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/pagefold/pagefold/internal/logfields"
)

// CloneOptions controls a content repository clone.
type CloneOptions struct {
	URL    string
	Branch string // empty clones the remote default branch
	Token  string // optional token for private repositories
	Depth  int    // >0 limits history; content builds pass 1
}

// Clone checks the content repository out into dest. Any existing directory
// at dest is removed first so every build starts from a clean checkout.
func Clone(ctx context.Context, dest string, opts CloneOptions) error {
	if opts.URL == "" {
		return fmt.Errorf("clone: repository URL is empty")
	}
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("clone: clear %s: %w", dest, err)
	}

	slog.Debug("Cloning content repository",
		logfields.URL(opts.URL),
		slog.String("branch", opts.Branch),
		logfields.Path(dest))

	cloneOpts := &git.CloneOptions{URL: opts.URL}
	if opts.Branch != "" {
		cloneOpts.ReferenceName = plumbing.ReferenceName("refs/heads/" + opts.Branch)
		cloneOpts.SingleBranch = true
	}
	if opts.Depth > 0 {
		cloneOpts.Depth = opts.Depth
	}
	if opts.Token != "" {
		// Git hosts accept token auth as basic auth with "token" as the
		// username.
		cloneOpts.Auth = &githttp.BasicAuth{Username: "token", Password: opts.Token}
	}

	repo, err := git.PlainCloneContext(ctx, dest, false, cloneOpts)
	if err != nil {
		return classifyCloneError(opts.URL, err)
	}

	if ref, herr := repo.Head(); herr == nil {
		slog.Info("Content repository cloned",
			logfields.URL(opts.URL),
			slog.String("commit", ref.Hash().String()[:8]),
			logfields.Path(dest))
	} else {
		slog.Info("Content repository cloned", logfields.URL(opts.URL), logfields.Path(dest))
	}
	return nil
}

// classifyCloneError turns the most common go-git failures into messages
// that name the fix. go-git reports these as bare strings, so matching on
// the text is the only option.
func classifyCloneError(url string, err error) error {
	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "authorization") ||
		strings.Contains(l, "invalid username or password"):
		return fmt.Errorf("clone %s: authentication failed (private repositories need PAGEFOLD_REPO_TOKEN): %w", url, err)
	case strings.Contains(l, "not found") || strings.Contains(l, "repository does not exist"):
		return fmt.Errorf("clone %s: repository not found: %w", url, err)
	case strings.Contains(l, "reference not found"):
		return fmt.Errorf("clone %s: branch does not exist on the remote: %w", url, err)
	}
	return fmt.Errorf("clone %s: %w", url, err)
}
