package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyDeployID   = "deploy_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyRoute      = "route"
	KeyURL        = "url"
	KeyLabel      = "label"
	KeyCount      = "count"
	KeyProject    = "project"
	KeyOutput     = "output"
	KeyConfig     = "config"
	KeySubject    = "subject"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func DeployID(id string) slog.Attr    { return slog.String(KeyDeployID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Route(r string) slog.Attr        { return slog.String(KeyRoute, r) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Label(l string) slog.Attr        { return slog.String(KeyLabel, l) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Project(p string) slog.Attr      { return slog.String(KeyProject, p) }
func Output(dir string) slog.Attr     { return slog.String(KeyOutput, dir) }
func Config(path string) slog.Attr    { return slog.String(KeyConfig, path) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
