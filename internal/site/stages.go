package site

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagefold/pagefold/internal/logfields"
	"github.com/pagefold/pagefold/internal/metrics"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, bs *BuildState) error

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical build stages, in execution order.
const (
	StagePrepareOutput StageName = "prepare_output"
	StageScanContent   StageName = "scan_content"
	StageResolveNav    StageName = "resolve_nav"
	StageRenderPages   StageName = "render_pages"
	StageCopyAssets    StageName = "copy_assets"
	StageWriteSitemap  StageName = "write_sitemap"
	StageVerifyOutput  StageName = "verify_output"
)

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Recorded; build continues.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// stageDef pairs a stage name with its executing function.
type stageDef struct {
	name StageName
	fn   Stage
}

// runStages executes stages in order, recording timing and classification,
// and stops on the first fatal or canceled stage. Warnings are recorded and
// execution continues.
func runStages(ctx context.Context, bs *BuildState, stages []stageDef, recorder metrics.Recorder) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := newCanceledStageError(st.name, ctx.Err())
			bs.Report.recordStage(st.name, 0, se, recorder)
			return se
		default:
		}

		t0 := time.Now()
		err := st.fn(ctx, bs)
		dur := time.Since(t0)

		var se *StageError
		if err != nil && !stderrors.As(err, &se) {
			se = newFatalStageError(st.name, err)
		}
		bs.Report.recordStage(st.name, dur, se, recorder)

		if se == nil {
			slog.Debug("stage completed",
				logfields.Stage(string(st.name)),
				logfields.DurationMS(float64(dur.Milliseconds())))
			continue
		}
		switch se.Kind {
		case StageErrorWarning:
			slog.Warn("stage completed with warning",
				logfields.Stage(string(st.name)), logfields.Error(se.Err))
			continue
		default:
			slog.Error("stage failed",
				logfields.Stage(string(st.name)), logfields.Error(se.Err))
			return se
		}
	}
	return nil
}
