package commands

import (
	"fmt"

	"github.com/pagefold/pagefold/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration and starter content"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	fmt.Printf("Writing configuration to %s\n", root.Config)
	if err := config.Init(root.Config, i.Force); err != nil {
		return err
	}
	fmt.Println("Scaffolded starter content. Run 'pagefold build' to render it.")
	return nil
}
