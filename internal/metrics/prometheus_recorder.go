package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration  *prom.HistogramVec
	buildDuration  prom.Histogram
	stageResults   *prom.CounterVec
	buildOutcomes  *prom.CounterVec
	deployDuration *prom.HistogramVec
	rebuilds       *prom.CounterVec
	documents      prom.Gauge
}

// NewPrometheusRecorder constructs and registers the pagefold metrics on the
// given registry. A nil registry gets a fresh private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "pagefold",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "pagefold",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagefold",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagefold",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		deployDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "pagefold",
			Name:      "deploy_duration_seconds",
			Help:      "Duration of deployment uploads",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		rebuilds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagefold",
			Name:      "rebuilds_total",
			Help:      "Serve-mode rebuilds by trigger",
		}, []string{"trigger"}),
		documents: prom.NewGauge(prom.GaugeOpts{
			Namespace: "pagefold",
			Name:      "documents",
			Help:      "Documents in the corpus of the last build",
		}),
	}
	reg.MustRegister(
		pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcomes,
		pr.deployDuration, pr.rebuilds, pr.documents,
	)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil {
		return
	}
	p.buildOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveDeployDuration(d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.deployDuration.WithLabelValues(res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRebuild(trigger string) {
	if p == nil {
		return
	}
	p.rebuilds.WithLabelValues(trigger).Inc()
}

func (p *PrometheusRecorder) SetDocumentCount(n int) {
	if p == nil {
		return
	}
	p.documents.Set(float64(n))
}

// HTTPHandler serves the registry in Prometheus exposition format.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
