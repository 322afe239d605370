package site

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/pagefold/pagefold/internal/errors"
	"github.com/pagefold/pagefold/internal/metrics"
)

func failingFatalStage(_ context.Context, _ *BuildState) error {
	return newFatalStageError(StageName("fatal_stage"), stderrors.New("boom"))
}

func failingWarnStage(_ context.Context, _ *BuildState) error {
	return newWarnStageError(StageName("warn_stage"), stderrors.New("soft"))
}

func TestRunStages_ErrorClassification(t *testing.T) {
	bs := &BuildState{Report: newBuildReport()}
	stages := []stageDef{
		{StageName("warn_stage"), failingWarnStage},
		{StageName("fatal_stage"), failingFatalStage},
	}

	err := runStages(context.Background(), bs, stages, metrics.NoopRecorder{})
	if err == nil {
		t.Fatalf("expected fatal error")
	}
	if len(bs.Report.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(bs.Report.Warnings))
	}
	if len(bs.Report.Errors) != 1 {
		t.Fatalf("expected 1 fatal error, got %d", len(bs.Report.Errors))
	}
	if bs.Report.StageCounts[StageName("warn_stage")].Warning != 1 {
		t.Fatalf("expected warning count recorded")
	}
	if bs.Report.StageCounts[StageName("fatal_stage")].Fatal != 1 {
		t.Fatalf("expected fatal count recorded")
	}
}

func TestRunStages_FatalStopsLaterStages(t *testing.T) {
	ran := false
	bs := &BuildState{Report: newBuildReport()}
	stages := []stageDef{
		{StageName("fatal_stage"), failingFatalStage},
		{StageName("after"), func(context.Context, *BuildState) error {
			ran = true
			return nil
		}},
	}

	if err := runStages(context.Background(), bs, stages, metrics.NoopRecorder{}); err == nil {
		t.Fatalf("expected error")
	}
	if ran {
		t.Fatalf("stage after a fatal failure must not run")
	}
}

func TestRunStages_PlainErrorWrappedFatal(t *testing.T) {
	inner := errors.Content("guide.md", "missing description")
	bs := &BuildState{Report: newBuildReport()}
	stages := []stageDef{
		{StageName("scan"), func(context.Context, *BuildState) error { return inner }},
	}

	err := runStages(context.Background(), bs, stages, metrics.NoopRecorder{})
	var se *StageError
	if !stderrors.As(err, &se) {
		t.Fatalf("expected StageError, got %T", err)
	}
	if se.Kind != StageErrorFatal {
		t.Fatalf("expected fatal kind, got %s", se.Kind)
	}
	// Classification must survive the stage wrapper.
	if !errors.IsKind(err, errors.KindContent) {
		t.Fatalf("content classification lost through stage error")
	}
}

func TestRunStages_Canceled(t *testing.T) {
	bs := &BuildState{Report: newBuildReport()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runStages(ctx, bs, []stageDef{{StagePrepareOutput, stagePrepareOutput}}, metrics.NoopRecorder{})
	var se *StageError
	if !stderrors.As(err, &se) || se.Kind != StageErrorCanceled {
		t.Fatalf("expected canceled stage error, got %v", err)
	}
	if bs.Report.StageCounts[StagePrepareOutput].Canceled != 1 {
		t.Fatalf("expected canceled count for prepare_output")
	}
}

func TestRunStages_TimingRecordedOnWarning(t *testing.T) {
	bs := &BuildState{Report: newBuildReport()}
	stages := []stageDef{{StageName("warn_stage"), failingWarnStage}}

	if err := runStages(context.Background(), bs, stages, metrics.NoopRecorder{}); err != nil {
		t.Fatalf("warning must not abort: %v", err)
	}
	d, ok := bs.Report.StageDurations[StageName("warn_stage")]
	if !ok {
		t.Fatalf("expected timing recorded for warn_stage")
	}
	if d < 0 || d > time.Second {
		t.Fatalf("unexpected duration range: %v", d)
	}
}
