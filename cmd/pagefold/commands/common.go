// Package commands defines the pagefold CLI: one struct per subcommand,
// dispatched through kong. Commands load the configuration, wire the shared
// stores and hand off to the internal packages; no build or deploy logic
// lives here.
package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/events"
	"github.com/pagefold/pagefold/internal/history"
	"github.com/pagefold/pagefold/internal/logfields"
)

// envLogLevel overrides the default log level (debug, info, warn, error).
// The -v flag wins over the environment.
const envLogLevel = "PAGEFOLD_LOG_LEVEL"

// Global carries state shared across subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command grammar.
type CLI struct {
	Config  string           `short:"c" help:"Site configuration file path" default:"site.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the site into the output directory"`
	Deploy  DeployCmd  `cmd:"" help:"Build the site and publish it to the hosting target"`
	Check   CheckCmd   `cmd:"" help:"Validate configuration, content and navigation without building"`
	Init    InitCmd    `cmd:"" help:"Scaffold a site.yaml and starter content tree"`
	Serve   ServeCmd   `cmd:"" help:"Serve a local preview with automatic rebuilds"`
	History HistoryCmd `cmd:"" help:"List recent builds and deployments"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if raw := os.Getenv(envLogLevel); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			level = slog.LevelInfo
		}
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// openHistory opens the build history store under the configured state
// directory. History is supplemental: when the store cannot be opened the
// command proceeds without it.
func openHistory(cfg *config.Config) *history.Store {
	store, err := history.OpenDefault(cfg.Output.StateDir)
	if err != nil {
		slog.Warn("history store unavailable, continuing without it", logfields.Error(err))
		return nil
	}
	return store
}

// newPublisher connects the NATS lifecycle publisher when one is configured.
// Event mirroring is best effort, so a connection failure downgrades to a
// warning instead of failing the command.
func newPublisher(cfg *config.Config) *events.Publisher {
	if cfg.Events.NATSURL == "" {
		return nil
	}
	pub, err := events.NewPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
	if err != nil {
		slog.Warn("event publisher unavailable, lifecycle events stay local",
			logfields.URL(cfg.Events.NATSURL), logfields.Error(err))
		return nil
	}
	return pub
}

func closeHistory(store *history.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		slog.Warn("cannot close history store", logfields.Error(err))
	}
}

func closePublisher(pub *events.Publisher) {
	if pub == nil {
		return
	}
	if err := pub.Close(); err != nil {
		slog.Warn("cannot close event publisher", logfields.Error(err))
	}
}
