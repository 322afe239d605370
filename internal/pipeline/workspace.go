package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pagefold/pagefold/internal/logfields"
)

// Workspace is the ephemeral directory remote content is cloned into. One
// workspace serves one pipeline run and is removed when the run finishes.
type Workspace struct {
	dir string
}

func newWorkspace() (*Workspace, error) {
	dir, err := os.MkdirTemp("", "pagefold-workspace-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	slog.Debug("created workspace", logfields.Path(dir))
	return &Workspace{dir: dir}, nil
}

// CheckoutDir is where the content repository gets cloned.
func (w *Workspace) CheckoutDir() string {
	return filepath.Join(w.dir, "checkout")
}

// Cleanup removes the workspace tree. Safe to call more than once.
func (w *Workspace) Cleanup() {
	if w.dir == "" {
		return
	}
	if err := os.RemoveAll(w.dir); err != nil {
		slog.Warn("cannot remove workspace", logfields.Path(w.dir), logfields.Error(err))
		return
	}
	slog.Debug("removed workspace", logfields.Path(w.dir))
	w.dir = ""
}
