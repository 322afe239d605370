// Package site runs the build: scan the corpus, resolve navigation, render
// pages and assets into a staging directory, verify the rendered tree and
// promote it atomically over the output directory. A failing stage aborts the
// build, leaves the previous output untouched and removes the staging dir.
package site

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/content"
	"github.com/pagefold/pagefold/internal/errors"
	"github.com/pagefold/pagefold/internal/linkcheck"
	"github.com/pagefold/pagefold/internal/logfields"
	"github.com/pagefold/pagefold/internal/metrics"
	"github.com/pagefold/pagefold/internal/nav"
	"github.com/pagefold/pagefold/internal/render"
)

// Builder builds the site for one composed configuration.
type Builder struct {
	cfg         *config.Config
	contentRoot string
	outputDir   string
	stateDir    string
	stageDir    string
	recorder    metrics.Recorder
}

// NewBuilder creates a builder. contentRoot is the directory the corpus is
// scanned from: the configured local dir, or the checkout path when content
// comes from a remote repository.
func NewBuilder(cfg *config.Config, contentRoot string) *Builder {
	return &Builder{
		cfg:         cfg,
		contentRoot: filepath.Clean(contentRoot),
		outputDir:   filepath.Clean(cfg.Output.Directory),
		stateDir:    filepath.Clean(cfg.Output.StateDir),
		recorder:    metrics.NoopRecorder{},
	}
}

// SetRecorder injects a metrics recorder. Returns the builder for chaining.
func (b *Builder) SetRecorder(r metrics.Recorder) *Builder {
	if r == nil {
		b.recorder = metrics.NoopRecorder{}
		return b
	}
	b.recorder = r
	return b
}

// OutputDir returns the final output directory the builder promotes into.
func (b *Builder) OutputDir() string { return b.outputDir }

// BuildState carries mutable state across build stages.
type BuildState struct {
	Config      *config.Config
	ContentRoot string
	StageDir    string
	Corpus      *content.Corpus
	Nav         []*nav.Item
	Renderer    *render.Renderer
	Report      *BuildReport
}

// Build runs all build stages. The report is returned for both outcomes and
// persisted into the state directory; the published output only changes when
// every stage succeeded and staging was promoted.
func (b *Builder) Build(ctx context.Context) (*BuildReport, error) {
	report := newBuildReport()
	slog.Info("starting site build",
		logfields.BuildID(report.BuildID),
		logfields.Output(b.outputDir),
		logfields.Path(b.contentRoot))

	if err := b.beginStaging(); err != nil {
		return nil, errors.WrapPipeline(err, "build", "cannot initialize staging directory")
	}

	bs := &BuildState{
		Config:      b.cfg,
		ContentRoot: b.contentRoot,
		StageDir:    b.stageDir,
		Report:      report,
	}
	stages := []stageDef{
		{StagePrepareOutput, stagePrepareOutput},
		{StageScanContent, stageScanContent},
		{StageResolveNav, stageResolveNav},
		{StageRenderPages, stageRenderPages},
		{StageCopyAssets, stageCopyAssets},
		{StageWriteSitemap, stageWriteSitemap},
		{StageVerifyOutput, stageVerifyOutput},
	}

	if err := runStages(ctx, bs, stages, b.recorder); err != nil {
		b.abortStaging()
		report.finish()
		b.persistArtifacts(report, nil)
		b.observeBuild(report)
		return report, err
	}

	manifest, err := NewManifest(b.stageDir)
	if err != nil {
		b.abortStaging()
		report.finish()
		b.persistArtifacts(report, nil)
		return report, errors.WrapPipeline(err, "build", "cannot fingerprint staged output")
	}
	report.Fingerprint = manifest.Fingerprint()

	if err := b.promoteStaging(); err != nil {
		b.abortStaging()
		report.finish()
		b.persistArtifacts(report, nil)
		return report, errors.WrapPipeline(err, "build", "staging promotion failed")
	}

	report.finish()
	b.persistArtifacts(report, manifest)
	b.observeBuild(report)
	b.recorder.SetDocumentCount(report.Documents)

	slog.Info("site build completed",
		logfields.BuildID(report.BuildID),
		logfields.Output(b.outputDir),
		slog.Int("documents", report.Documents),
		slog.Int("rendered", report.RenderedPages),
		slog.String("outcome", string(report.Outcome)))
	return report, nil
}

func (b *Builder) observeBuild(report *BuildReport) {
	b.recorder.ObserveBuildDuration(report.End.Sub(report.Start))
	b.recorder.IncBuildOutcome(string(report.Outcome))
}

// persistArtifacts writes the report, and on success the output manifest and
// the composed configuration, into the state directory. Best effort: the
// build outcome never depends on artifact persistence.
func (b *Builder) persistArtifacts(report *BuildReport, manifest *Manifest) {
	if err := report.Persist(b.stateDir); err != nil {
		slog.Warn("failed to persist build report", logfields.Error(err))
	}
	if manifest != nil {
		if data, err := manifest.ToJSON(); err == nil {
			if err := writeFileAtomic(filepath.Join(b.stateDir, "manifest.json"), data); err != nil {
				slog.Warn("failed to persist output manifest", logfields.Error(err))
			}
		}
	}
	if data, err := yaml.Marshal(b.cfg); err == nil {
		if err := writeFileAtomic(filepath.Join(b.stateDir, "site-config.yaml"), data); err != nil {
			slog.Warn("failed to persist composed configuration", logfields.Error(err))
		}
	}
}

func stagePrepareOutput(_ context.Context, bs *BuildState) error {
	return os.MkdirAll(filepath.Join(bs.StageDir, "assets"), 0o755)
}

func stageScanContent(_ context.Context, bs *BuildState) error {
	res, err := content.NewScanner(bs.ContentRoot).Scan()
	if err != nil {
		return err
	}
	if len(res.Issues) > 0 {
		for _, issue := range res.Issues {
			bs.Report.AddIssue(StageScanContent, issue)
		}
		return errors.New(errors.KindContent, errors.SeverityFatal,
			fmt.Sprintf("%d document(s) failed validation", len(res.Issues)))
	}
	bs.Corpus = res.Corpus
	bs.Report.Documents = len(res.Corpus.Documents)
	bs.Report.Assets = len(res.Corpus.Assets)
	return nil
}

func stageResolveNav(_ context.Context, bs *BuildState) error {
	items, issues := nav.NewResolver(bs.Corpus).Resolve(bs.Config.Nav)
	if len(issues) > 0 {
		for _, issue := range issues {
			bs.Report.AddIssue(StageResolveNav, issue)
		}
		return errors.New(errors.KindConfig, errors.SeverityFatal,
			fmt.Sprintf("navigation has %d unresolvable entr%s",
				len(issues), pluralY(len(issues))))
	}
	bs.Nav = items
	for _, item := range items {
		item.Walk(func(*nav.Item, int) { bs.Report.NavEntries++ })
	}
	return nil
}

func stageRenderPages(ctx context.Context, bs *BuildState) error {
	renderer, err := render.NewRenderer(bs.Config)
	if err != nil {
		return err
	}
	bs.Renderer = renderer

	// Documents come back from the scan sorted by route, so rendering order
	// and output bytes are stable across runs.
	for _, doc := range bs.Corpus.Documents {
		select {
		case <-ctx.Done():
			return newCanceledStageError(StageRenderPages, ctx.Err())
		default:
		}

		page, err := renderer.RenderDocument(doc, bs.Nav)
		if err != nil {
			return err
		}
		outPath := filepath.Join(bs.StageDir, content.OutputPath(doc.Route))
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return fmt.Errorf("create page directory: %w", err)
		}
		if err := os.WriteFile(outPath, page, 0o644); err != nil {
			return fmt.Errorf("write rendered page %s: %w", outPath, err)
		}
		bs.Report.RenderedPages++
		slog.Debug("rendered page", logfields.Route(doc.Route), logfields.File(doc.SourceFile))
	}
	return nil
}

func stageCopyAssets(ctx context.Context, bs *BuildState) error {
	for _, asset := range bs.Corpus.Assets {
		select {
		case <-ctx.Done():
			return newCanceledStageError(StageCopyAssets, ctx.Err())
		default:
		}
		dst := filepath.Join(bs.StageDir, filepath.FromSlash(asset.SourceFile))
		if err := copyFile(asset.AbsPath, dst); err != nil {
			return errors.WrapContent(err, asset.SourceFile, "asset copy failed")
		}
	}

	// The bundled stylesheet ships unless the corpus provides its own.
	cssPath := filepath.Join(bs.StageDir, "assets", "site.css")
	if _, err := os.Stat(cssPath); os.IsNotExist(err) {
		if err := os.WriteFile(cssPath, render.DefaultStylesheet, 0o644); err != nil {
			return fmt.Errorf("write default stylesheet: %w", err)
		}
	}
	return nil
}

func stageWriteSitemap(_ context.Context, bs *BuildState) error {
	xml := render.Sitemap(bs.Config.Output.BaseURL, bs.Corpus.Routes())
	if err := os.WriteFile(filepath.Join(bs.StageDir, "sitemap.xml"), xml, 0o644); err != nil {
		return fmt.Errorf("write sitemap: %w", err)
	}
	return nil
}

func stageVerifyOutput(_ context.Context, bs *BuildState) error {
	issues, err := linkcheck.VerifyTree(bs.StageDir, bs.Config.Output.BaseURL)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		for _, issue := range issues {
			bs.Report.AddIssue(StageVerifyOutput, issue)
		}
		return errors.New(issues[0].Kind, errors.SeverityFatal,
			fmt.Sprintf("rendered output has %d broken internal reference(s)", len(issues)))
	}
	return nil
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
