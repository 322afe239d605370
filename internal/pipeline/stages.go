package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pagefold/pagefold/internal/deploy"
	"github.com/pagefold/pagefold/internal/errors"
	"github.com/pagefold/pagefold/internal/gitmeta"
	"github.com/pagefold/pagefold/internal/logfields"
	"github.com/pagefold/pagefold/internal/site"
)

// stageInstall prepares everything the later stages need up front: deploy
// credentials when this run will publish, and the content checkout when the
// corpus lives in a remote repository. Anything that can be validated before
// building is validated here.
func (r *Runner) stageInstall(ctx context.Context, run *Run) error {
	if r.opts.Deploy {
		if run.Config.Deploy.Project == "" {
			return errors.Pipeline(string(StageInstall),
				"deploy requested but deploy.project is not configured")
		}
		creds, err := deploy.LoadCredentials()
		if err != nil {
			return err
		}
		run.Credentials = creds
	}

	root := run.Config.Content.Dir
	if repo := run.Config.Content.Repo; repo != "" {
		ws, err := newWorkspace()
		if err != nil {
			return errors.WrapPipeline(err, string(StageInstall), "cannot create content workspace")
		}
		run.workspace = ws

		opts := gitmeta.CloneOptions{
			URL:    repo,
			Branch: run.Config.Content.Branch,
			Token:  os.Getenv(deploy.EnvRepoToken),
		}
		if remoteTransport(repo) {
			opts.Depth = 1
		}
		if err := gitmeta.Clone(ctx, ws.CheckoutDir(), opts); err != nil {
			return errors.WrapPipeline(err, string(StageInstall), "cannot fetch content repository")
		}
		root = ws.CheckoutDir()
		if sub := run.Config.Content.Path; sub != "" {
			root = filepath.Join(root, filepath.FromSlash(sub))
		}
	}

	info, err := os.Stat(root)
	if err != nil {
		return errors.Pipeline(string(StageInstall),
			fmt.Sprintf("content root does not exist: %s", root))
	}
	if !info.IsDir() {
		return errors.Pipeline(string(StageInstall),
			fmt.Sprintf("content root is not a directory: %s", root))
	}
	run.ContentRoot = root

	meta, err := gitmeta.Describe(root)
	if err != nil {
		slog.Warn("cannot read content git metadata",
			logfields.Path(root), logfields.Error(err))
		return nil
	}
	run.GitMeta = meta
	if meta != nil {
		slog.Debug("content checkout described",
			slog.String("commit", meta.ShortCommit()),
			slog.String("branch", meta.Branch))
	}
	return nil
}

// remoteTransport reports whether url names a network remote. Shallow depth
// is only requested over network transports; local clones keep full history
// since local servers reject deepen requests.
func remoteTransport(url string) bool {
	if strings.HasPrefix(url, "file://") {
		return false
	}
	if strings.Contains(url, "://") {
		return true
	}
	// scp-like form: git@host:owner/repo.git
	host, _, ok := strings.Cut(url, ":")
	return ok && strings.Contains(host, "@")
}

// stageBuild runs the site builder against the installed content root. The
// report stays on the run even when the build fails so finish() can record
// the failed attempt.
func (r *Runner) stageBuild(ctx context.Context, run *Run) error {
	if run.ContentRoot == "" {
		return errors.Pipeline(string(StageBuild), "content root not installed")
	}
	builder := site.NewBuilder(run.Config, run.ContentRoot).SetRecorder(r.recorder)
	run.OutputDir = builder.OutputDir()
	report, err := builder.Build(ctx)
	run.Report = report
	return err
}

// stageDeploy publishes the promoted output directory, then registers a
// deployment record on the content forge when a repository token and git
// metadata are available. Record registration is best effort: the site is
// already live once the hosting deployment exists.
func (r *Runner) stageDeploy(ctx context.Context, run *Run) error {
	if run.Credentials == nil {
		return errors.Pipeline(string(StageDeploy), "deploy credentials not installed")
	}
	if run.Report == nil {
		return errors.Pipeline(string(StageDeploy), "no build report, nothing to deploy")
	}
	run.deployAttempted = true

	outputDir := run.OutputDir
	if outputDir == "" {
		outputDir = filepath.Clean(run.Config.Output.Directory)
	}

	client := deploy.NewClient(run.Config.Deploy.APIURL, run.Credentials)
	dep, err := client.Deploy(ctx, run.Config.Deploy.Project, outputDir, run.Report.BuildID)
	if err != nil {
		return err
	}
	run.Deployment = dep

	switch {
	case run.Credentials.RepoToken == "":
		slog.Debug("no repository token, skipping deployment record")
	case run.GitMeta == nil || run.GitMeta.Commit == "":
		slog.Debug("content has no git metadata, skipping deployment record")
	default:
		rc := deploy.NewRecordClient(run.Credentials.RepoToken)
		if err := rc.Register(ctx, run.GitMeta, dep); err != nil {
			slog.Warn("deployment record registration failed", logfields.Error(err))
		}
	}
	return nil
}
