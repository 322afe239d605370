// Package pipeline orchestrates a publish run as a strict stage sequence:
// install, build, deploy. Stages run in order, each must succeed before the
// next starts, and a failed stage aborts the whole run. There are no retries
// and no partial publishes: the deploy stage is only ever reached with a
// fully built and verified output tree.
package pipeline

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/deploy"
	"github.com/pagefold/pagefold/internal/errors"
	"github.com/pagefold/pagefold/internal/events"
	"github.com/pagefold/pagefold/internal/gitmeta"
	"github.com/pagefold/pagefold/internal/history"
	"github.com/pagefold/pagefold/internal/logfields"
	"github.com/pagefold/pagefold/internal/metrics"
	"github.com/pagefold/pagefold/internal/site"
)

// StageName identifies one pipeline stage.
type StageName string

const (
	StageInstall StageName = "install"
	StageBuild   StageName = "build"
	StageDeploy  StageName = "deploy"
)

// finishTimeout bounds the bookkeeping after the last stage (history rows,
// event mirroring) so a hung sink cannot wedge the process.
const finishTimeout = 10 * time.Second

// Stage is one step of the pipeline. Stages communicate through the shared
// Run state and return nil only on full success.
type Stage func(ctx context.Context, run *Run) error

type stageDef struct {
	name StageName
	fn   Stage
}

// Options configure a pipeline run.
type Options struct {
	// Deploy appends the deploy stage after a successful build.
	Deploy bool
	// Recorder receives stage and build metrics. Nil disables recording.
	Recorder metrics.Recorder
	// Bus, when set, receives BuildFinished and DeployFinished events.
	Bus *events.Bus
	// Publisher, when set, mirrors lifecycle events to NATS.
	Publisher *events.Publisher
	// History, when set, persists build and deployment records.
	History *history.Store
}

// Runner executes the pipeline for one configuration.
type Runner struct {
	cfg      *config.Config
	opts     Options
	recorder metrics.Recorder
}

// NewRunner creates a runner. The configuration is expected to be validated
// already; the stages only check what cannot be known at load time.
func NewRunner(cfg *config.Config, opts Options) *Runner {
	rec := opts.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Runner{cfg: cfg, opts: opts, recorder: rec}
}

// Run carries state across the stages of a single pipeline execution.
type Run struct {
	Config      *config.Config
	Credentials *deploy.Credentials
	ContentRoot string
	OutputDir   string
	GitMeta     *gitmeta.Meta
	Report      *site.BuildReport
	Deployment  *deploy.Deployment

	workspace       *Workspace
	deployAttempted bool
	started         time.Time
}

// Execute runs all stages in order and records the outcome. The returned Run
// holds whatever the stages produced before the first failure; in particular
// Run.Report is set even for failed builds, since a failed build still
// persists its report.
func (r *Runner) Execute(ctx context.Context) (*Run, error) {
	run := &Run{Config: r.cfg, started: time.Now()}

	stages := []stageDef{
		{StageInstall, r.stageInstall},
		{StageBuild, r.stageBuild},
	}
	if r.opts.Deploy {
		stages = append(stages, stageDef{StageDeploy, r.stageDeploy})
	}

	slog.Info("pipeline starting",
		slog.Int("stages", len(stages)),
		slog.Bool("deploy", r.opts.Deploy))

	err := r.execute(ctx, run, stages)
	r.finish(ctx, run, err)

	dur := time.Since(run.started)
	if err != nil {
		slog.Error("pipeline failed",
			logfields.DurationMS(float64(dur.Milliseconds())),
			logfields.Error(err))
		return run, err
	}
	slog.Info("pipeline completed",
		logfields.DurationMS(float64(dur.Milliseconds())))
	return run, nil
}

func (r *Runner) execute(ctx context.Context, run *Run, stages []stageDef) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			r.recorder.IncStageResult(string(st.name), metrics.ResultCanceled)
			return errors.WrapPipeline(ctx.Err(), string(st.name), "pipeline canceled")
		default:
		}

		slog.Info("pipeline stage starting", logfields.Stage(string(st.name)))
		t0 := time.Now()
		err := st.fn(ctx, run)
		dur := time.Since(t0)

		r.recorder.ObserveStageDuration(string(st.name), dur)
		if st.name == StageDeploy {
			r.recorder.ObserveDeployDuration(dur, err == nil)
		}

		if err != nil {
			classified := classifyStageError(st.name, err)
			r.recorder.IncStageResult(string(st.name), resultFor(classified))
			slog.Error("pipeline stage failed",
				logfields.Stage(string(st.name)),
				logfields.DurationMS(float64(dur.Milliseconds())),
				logfields.Error(classified))
			return classified
		}

		r.recorder.IncStageResult(string(st.name), metrics.ResultSuccess)
		slog.Info("pipeline stage completed",
			logfields.Stage(string(st.name)),
			logfields.DurationMS(float64(dur.Milliseconds())))
	}
	return nil
}

// classifyStageError guarantees every stage failure carries an error kind.
// Errors the stages already classified (config, content, pipeline) pass
// through untouched so the CLI exit code reflects the real cause.
func classifyStageError(stage StageName, err error) error {
	var pe *errors.PagefoldError
	if stderrors.As(err, &pe) {
		return err
	}
	return errors.WrapPipeline(err, string(stage), "stage failed")
}

func resultFor(err error) metrics.ResultLabel {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return metrics.ResultCanceled
	}
	return metrics.ResultFatal
}

// finish records history rows, mirrors lifecycle events and removes the
// content workspace. Everything here is best effort: a failed sink is logged
// and never changes the pipeline outcome. The context is detached from the
// run's so a canceled run still gets recorded.
func (r *Runner) finish(ctx context.Context, run *Run, runErr error) {
	defer func() {
		if run.workspace != nil {
			run.workspace.Cleanup()
		}
	}()

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	if rep := run.Report; rep != nil {
		if r.opts.History != nil {
			br := &history.BuildRecord{
				BuildID:       rep.BuildID,
				StartedAt:     rep.Start,
				Duration:      rep.End.Sub(rep.Start),
				Documents:     rep.Documents,
				RenderedPages: rep.RenderedPages,
				Issues:        len(rep.Issues),
				Outcome:       string(rep.Outcome),
				Fingerprint:   rep.Fingerprint,
			}
			if err := r.opts.History.AppendBuild(fctx, br); err != nil {
				slog.Warn("cannot record build history", logfields.Error(err))
			}
		}

		ev := events.BuildFinished{
			BuildID:       rep.BuildID,
			Outcome:       string(rep.Outcome),
			Documents:     rep.Documents,
			RenderedPages: rep.RenderedPages,
			Duration:      rep.End.Sub(rep.Start),
			Fingerprint:   rep.Fingerprint,
			FinishedAt:    rep.End,
		}
		r.announce(fctx, ev, func(p *events.Publisher) error {
			return p.PublishBuildFinished(&ev)
		})
	}

	if run.deployAttempted {
		ev := events.DeployFinished{
			Project:    run.Config.Deploy.Project,
			Succeeded:  runErr == nil && run.Deployment != nil,
			FinishedAt: time.Now().UTC(),
		}
		if run.Report != nil {
			ev.BuildID = run.Report.BuildID
		}
		if dep := run.Deployment; dep != nil {
			ev.DeployID = dep.ID
			ev.URL = dep.URL
			if r.opts.History != nil {
				dr := &history.DeploymentRecord{
					DeployID:  dep.ID,
					BuildID:   ev.BuildID,
					Project:   ev.Project,
					URL:       dep.URL,
					CreatedAt: dep.CreatedAt,
				}
				if dr.CreatedAt.IsZero() {
					dr.CreatedAt = time.Now().UTC()
				}
				if m := run.GitMeta; m != nil {
					dr.Commit = m.Commit
					dr.Branch = m.Branch
				}
				if err := r.opts.History.AppendDeployment(fctx, dr); err != nil {
					slog.Warn("cannot record deployment history", logfields.Error(err))
				}
			}
		}
		r.announce(fctx, ev, func(p *events.Publisher) error {
			return p.PublishDeployFinished(&ev)
		})
	}
}

// announce mirrors one lifecycle event onto the in-process bus and, when
// configured, NATS.
func (r *Runner) announce(ctx context.Context, event any, natsSend func(*events.Publisher) error) {
	if r.opts.Bus != nil {
		if err := r.opts.Bus.Publish(ctx, event); err != nil {
			slog.Warn("cannot publish lifecycle event", logfields.Error(err))
		}
	}
	if r.opts.Publisher != nil {
		if err := natsSend(r.opts.Publisher); err != nil {
			slog.Warn("cannot mirror lifecycle event to nats", logfields.Error(err))
		}
	}
}
