package site

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pagefold/pagefold/internal/errors"
	"github.com/pagefold/pagefold/internal/metrics"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// StageCount aggregates classification counts for one stage.
type StageCount struct {
	Success  int `json:"success"`
	Warning  int `json:"warning"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
}

// ReportIssue is one structured problem surfaced during the build.
type ReportIssue struct {
	Stage    StageName            `json:"stage"`
	Kind     errors.ErrorKind     `json:"kind"`
	Severity errors.ErrorSeverity `json:"severity"`
	Message  string               `json:"message"`
}

// BuildReport captures metrics and findings for one build run. It persists
// into the state directory, never into the published output, so rebuilds of
// identical inputs stay byte-identical.
type BuildReport struct {
	SchemaVersion  int
	BuildID        string
	Start          time.Time
	End            time.Time
	Documents      int
	Assets         int
	RenderedPages  int
	NavEntries     int
	Fingerprint    string // sha256 over the published tree
	StageDurations map[StageName]time.Duration
	StageCounts    map[StageName]StageCount
	Issues         []ReportIssue
	Errors         []error
	Warnings       []error
	Outcome        BuildOutcome
}

func newBuildReport() *BuildReport {
	return &BuildReport{
		SchemaVersion:  1,
		BuildID:        uuid.NewString(),
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
		StageCounts:    make(map[StageName]StageCount),
	}
}

// AddIssue records a classified finding against a stage. Issues are the
// per-finding detail; the stage's own error (recorded by recordStage) decides
// whether the build continues.
func (r *BuildReport) AddIssue(stage StageName, err *errors.PagefoldError) {
	r.Issues = append(r.Issues, ReportIssue{
		Stage:    stage,
		Kind:     err.Kind,
		Severity: err.Severity,
		Message:  err.Message,
	})
}

func (r *BuildReport) issueCount(sev errors.ErrorSeverity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			n++
		}
	}
	return n
}

// recordStage updates stage timing, classification counters and metrics.
// A nil StageError counts as success.
func (r *BuildReport) recordStage(stage StageName, dur time.Duration, se *StageError, recorder metrics.Recorder) {
	r.StageDurations[stage] = dur
	sc := r.StageCounts[stage]
	result := metrics.ResultSuccess
	if se != nil {
		switch se.Kind {
		case StageErrorWarning:
			sc.Warning++
			result = metrics.ResultWarning
			r.Warnings = append(r.Warnings, se)
		case StageErrorCanceled:
			sc.Canceled++
			result = metrics.ResultCanceled
			r.Errors = append(r.Errors, se)
		default:
			sc.Fatal++
			result = metrics.ResultFatal
			r.Errors = append(r.Errors, se)
		}
	} else {
		sc.Success++
	}
	r.StageCounts[stage] = sc
	recorder.ObserveStageDuration(string(stage), dur)
	recorder.IncStageResult(string(stage), result)
}

func (r *BuildReport) finish() {
	r.End = time.Now()
	r.deriveOutcome()
}

// deriveOutcome sets Outcome from the recorded errors, warnings and issues.
func (r *BuildReport) deriveOutcome() {
	if len(r.Errors) > 0 || r.issueCount(errors.SeverityFatal) > 0 {
		for _, e := range r.Errors {
			var se *StageError
			if stderrors.As(e, &se) && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 || r.issueCount(errors.SeverityWarning) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	dur := r.End.Sub(r.Start)
	return fmt.Sprintf("build=%s docs=%d assets=%d rendered=%d duration=%s issues=%d errors=%d warnings=%d outcome=%s",
		shortID(r.BuildID), r.Documents, r.Assets, r.RenderedPages,
		dur.Truncate(time.Millisecond), len(r.Issues), len(r.Errors), len(r.Warnings), r.Outcome)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Persist writes the report atomically into the state directory:
//
//	build-report.json  (machine readable)
//	build-report.txt   (human summary)
//
// Best effort; errors are returned for caller logging but do not change the
// build outcome.
func (r *BuildReport) Persist(stateDir string) error {
	if r.End.IsZero() {
		r.finish()
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("ensure state dir for report: %w", err)
	}

	jb, err := json.MarshalIndent(r.serializable(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(stateDir, "build-report.json"), jb); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(stateDir, "build-report.txt"), []byte(r.Summary()+"\n"))
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename %s: %w", path, err)
	}
	return nil
}

// buildReportSerializable mirrors BuildReport with string errors for JSON.
type buildReportSerializable struct {
	SchemaVersion  int                      `json:"schema_version"`
	BuildID        string                   `json:"build_id"`
	Start          time.Time                `json:"start"`
	End            time.Time                `json:"end"`
	Documents      int                      `json:"documents"`
	Assets         int                      `json:"assets"`
	RenderedPages  int                      `json:"rendered_pages"`
	NavEntries     int                      `json:"nav_entries"`
	Fingerprint    string                   `json:"fingerprint,omitempty"`
	StageDurations map[string]time.Duration `json:"stage_durations"`
	StageCounts    map[string]StageCount    `json:"stage_counts"`
	Issues         []ReportIssue            `json:"issues"`
	Errors         []string                 `json:"errors"`
	Warnings       []string                 `json:"warnings"`
	Outcome        BuildOutcome             `json:"outcome"`
}

func (r *BuildReport) serializable() *buildReportSerializable {
	durations := make(map[string]time.Duration, len(r.StageDurations))
	for k, v := range r.StageDurations {
		durations[string(k)] = v
	}
	counts := make(map[string]StageCount, len(r.StageCounts))
	for k, v := range r.StageCounts {
		counts[string(k)] = v
	}

	s := &buildReportSerializable{
		SchemaVersion:  r.SchemaVersion,
		BuildID:        r.BuildID,
		Start:          r.Start,
		End:            r.End,
		Documents:      r.Documents,
		Assets:         r.Assets,
		RenderedPages:  r.RenderedPages,
		NavEntries:     r.NavEntries,
		Fingerprint:    r.Fingerprint,
		StageDurations: durations,
		StageCounts:    counts,
		Issues:         r.Issues,
		Errors:         make([]string, len(r.Errors)),
		Warnings:       make([]string, len(r.Warnings)),
		Outcome:        r.Outcome,
	}
	if s.Issues == nil {
		s.Issues = []ReportIssue{}
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	return s
}
