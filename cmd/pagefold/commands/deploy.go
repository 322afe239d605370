package commands

import (
	"github.com/pagefold/pagefold/internal/config"
)

// DeployCmd implements the 'deploy' command: the full install, build, deploy
// sequence. Deploy only runs after a fully verified build; a failing earlier
// stage leaves the hosting target untouched.
type DeployCmd struct{}

func (d *DeployCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	return runPipeline(cfg, true)
}
