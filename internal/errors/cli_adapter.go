package errors

import (
	stderrors "errors"
	"log/slog"
)

// CLI exit codes by error kind. Zero is success; anything non-zero marks the
// run failed, the specific value tells CI which layer rejected it.
const (
	ExitOK       = 0
	ExitGeneral  = 1
	ExitConfig   = 3
	ExitContent  = 4
	ExitPipeline = 5
)

// CLIAdapter handles error presentation and exit code determination for the
// command layer.
type CLIAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIAdapter creates a new CLI error adapter.
func NewCLIAdapter(verbose bool, logger *slog.Logger) *CLIAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var pe *PagefoldError
	if stderrors.As(err, &pe) {
		switch pe.Kind {
		case KindConfig:
			return ExitConfig
		case KindContent:
			return ExitContent
		case KindPipeline:
			return ExitPipeline
		default:
			return ExitGeneral
		}
	}
	return ExitGeneral
}

// Report logs the error at the appropriate level and returns the exit code.
func (a *CLIAdapter) Report(err error) int {
	if err == nil {
		return ExitOK
	}
	var pe *PagefoldError
	if stderrors.As(err, &pe) {
		args := []any{"kind", string(pe.Kind)}
		if a.verbose {
			for k, v := range pe.Fields {
				args = append(args, k, v)
			}
		}
		if pe.Severity == SeverityWarning {
			a.logger.Warn(pe.Message, args...)
		} else {
			args = append(args, "error", pe.Error())
			a.logger.Error(pe.Message, args...)
		}
		return a.ExitCodeFor(err)
	}
	a.logger.Error("command failed", "error", err)
	return ExitGeneral
}
