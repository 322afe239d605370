package events

import "time"

// Rebuild trigger sources carried in RebuildRequested.Reason.
const (
	TriggerWatch    = "watch"
	TriggerWebhook  = "webhook"
	TriggerInterval = "interval"
)

// BuildFinished is emitted after every build, whatever the outcome.
type BuildFinished struct {
	BuildID       string        `json:"build_id"`
	Outcome       string        `json:"outcome"`
	Documents     int           `json:"documents"`
	RenderedPages int           `json:"rendered_pages"`
	Duration      time.Duration `json:"duration_ns"`
	Fingerprint   string        `json:"fingerprint,omitempty"`
	FinishedAt    time.Time     `json:"finished_at"`
}

// DeployFinished is emitted after a deploy attempt.
type DeployFinished struct {
	BuildID    string    `json:"build_id"`
	DeployID   string    `json:"deploy_id,omitempty"`
	Project    string    `json:"project"`
	URL        string    `json:"url,omitempty"`
	Succeeded  bool      `json:"succeeded"`
	FinishedAt time.Time `json:"finished_at"`
}

// RebuildRequested asks serve mode for a rebuild. The debouncer coalesces
// bursts of these into single builds.
type RebuildRequested struct {
	// Reason is the trigger source: "watch", "webhook" or "interval".
	Reason      string    `json:"reason"`
	Path        string    `json:"path,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// RebuildDue is emitted once a burst of rebuild requests has settled and a
// build should start now.
type RebuildDue struct {
	TriggeredAt  time.Time `json:"triggered_at"`
	RequestCount int       `json:"request_count"`
	LastReason   string    `json:"last_reason"`
	LastPath     string    `json:"last_path,omitempty"`
	FirstRequest time.Time `json:"first_request"`
	LastRequest  time.Time `json:"last_request"`
	// Cause is "quiet" when the quiet window elapsed, "max_delay" when the
	// coalescing deadline forced the emit.
	Cause string `json:"cause"`
}
