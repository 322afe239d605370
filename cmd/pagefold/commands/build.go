package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/pipeline"
)

// BuildCmd implements the 'build' command: install and build, no deploy.
type BuildCmd struct{}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	return runPipeline(cfg, false)
}

// runPipeline executes the stage sequence shared by build and deploy. An
// interrupt cancels the run; the pipeline records the canceled outcome before
// returning.
func runPipeline(cfg *config.Config, withDeploy bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := openHistory(cfg)
	defer closeHistory(store)
	pub := newPublisher(cfg)
	defer closePublisher(pub)

	runner := pipeline.NewRunner(cfg, pipeline.Options{
		Deploy:    withDeploy,
		History:   store,
		Publisher: pub,
	})

	run, err := runner.Execute(ctx)
	if err != nil {
		return err
	}

	if rep := run.Report; rep != nil {
		fmt.Printf("Build %s completed: %d documents, %d pages -> %s\n",
			rep.BuildID, rep.Documents, rep.RenderedPages, run.OutputDir)
	}
	if dep := run.Deployment; dep != nil {
		fmt.Printf("Deployed %s as %s: %s\n", cfg.Deploy.Project, dep.ID, dep.URL)
	}
	return nil
}
