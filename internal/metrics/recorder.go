package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for build, deploy and serve metrics.
// Components receive a Recorder by injection and default to NoopRecorder, so
// metrics stay optional without nil checks at call sites.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: success|warning|failed|canceled
	ObserveDeployDuration(d time.Duration, success bool)
	IncRebuild(trigger string) // trigger: watch|interval|webhook|manual
	SetDocumentCount(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) ObserveDeployDuration(time.Duration, bool)  {}
func (NoopRecorder) IncRebuild(string)                          {}
func (NoopRecorder) SetDocumentCount(int)                       {}
