// Package metrics exposes build metrics in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docmerge"

// Build outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Recorder records build metrics. A nil *Recorder discards everything.
type Recorder struct {
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	buildOutcome  *prom.CounterVec
	pages         *prom.CounterVec
	styles        prom.Gauge
	skipped       prom.Counter
}

// New constructs a recorder registered on reg, or on a private registry when
// reg is nil.
func New(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		registry: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		pages: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages merged by kind",
		}, []string{"kind"}),
		styles: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "styles_canonical",
			Help:      "Canonical style rules in the last build",
		}),
		skipped: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Unrecognized files skipped while collecting",
		}),
	}
	reg.MustRegister(r.stageDuration, r.buildOutcome, r.pages, r.styles, r.skipped)
	return r
}

func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) IncBuildOutcome(outcome string) {
	if r == nil {
		return
	}
	r.buildOutcome.WithLabelValues(outcome).Inc()
}

func (r *Recorder) AddPages(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.pages.WithLabelValues(kind).Add(float64(n))
}

func (r *Recorder) SetStyles(n int) {
	if r == nil {
		return
	}
	r.styles.Set(float64(n))
}

func (r *Recorder) AddSkipped(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.skipped.Add(float64(n))
}

// Handler serves the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
