package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/pagefold/pagefold/cmd/pagefold/commands"
	"github.com/pagefold/pagefold/internal/errors"
	"github.com/pagefold/pagefold/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("pagefold"),
		kong.Description("Build and publish static documentation sites."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	if err := ctx.Run(&commands.Global{Logger: slog.Default()}); err != nil {
		os.Exit(errors.NewCLIAdapter(cli.Verbose, nil).Report(err))
	}
}
