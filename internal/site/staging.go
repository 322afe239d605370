package site

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pagefold/pagefold/internal/logfields"
)

// beginStaging creates an isolated staging directory for atomic build
// output. The directory is a sibling of the final output dir, never inside
// it: <output>_stage.
func (b *Builder) beginStaging() error {
	stage := b.outputDir + "_stage"
	if err := os.RemoveAll(stage); err != nil {
		return fmt.Errorf("clear stale staging directory: %w", err)
	}
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	b.stageDir = stage
	slog.Debug("initialized staging directory", "staging", stage, logfields.Output(b.outputDir))
	return nil
}

// promoteStaging atomically promotes the staging directory to the final
// output location:
//
//  1. Move the existing output dir (if any) to <output>.prev.
//  2. Rename staging onto the output path.
//  3. Remove the backup.
//
// A failed build never reaches this point, so the previous output survives
// every failure mode before the final rename.
func (b *Builder) promoteStaging() error {
	if b.stageDir == "" {
		return fmt.Errorf("no staging directory initialized")
	}
	if _, err := os.Stat(b.stageDir); err != nil {
		return fmt.Errorf("staging directory missing: %w", err)
	}

	prev := b.outputDir + ".prev"
	if err := os.RemoveAll(prev); err != nil {
		return fmt.Errorf("remove stale backup: %w", err)
	}
	if _, err := os.Stat(b.outputDir); err == nil {
		if err := os.Rename(b.outputDir, prev); err != nil {
			return fmt.Errorf("backup existing output: %w", err)
		}
	}
	if err := os.Rename(b.stageDir, b.outputDir); err != nil {
		// Put the previous output back; the rename failure left it intact.
		if _, statErr := os.Stat(prev); statErr == nil {
			_ = os.Rename(prev, b.outputDir)
		}
		return fmt.Errorf("promote staging: %w", err)
	}
	b.stageDir = ""
	if err := os.RemoveAll(prev); err != nil {
		slog.Warn("failed to remove previous output backup", logfields.Path(prev), logfields.Error(err))
	}
	slog.Info("promoted staging directory", logfields.Output(b.outputDir))
	return nil
}

// abortStaging removes the staging directory after a failed build so no
// orphaned temp dirs accumulate. The published output is untouched.
func (b *Builder) abortStaging() {
	if b.stageDir == "" {
		return
	}
	dir := b.stageDir
	b.stageDir = "" // prevent double cleanup
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("failed to remove staging directory after abort", "staging", dir, logfields.Error(err))
		return
	}
	slog.Debug("removed staging directory after abort", "staging", dir)
}
