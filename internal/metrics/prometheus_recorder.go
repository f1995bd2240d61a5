package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once         sync.Once
	runDuration  *prom.HistogramVec
	items        *prom.CounterVec
	runOutcomes  *prom.CounterVec
	rebuilds     *prom.CounterVec
	lastRunItems prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.runDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "staticbuilder",
			Name:      "run_duration_seconds",
			Help:      "Duration of build runs by mode",
			Buckets:   prom.DefBuckets,
		}, []string{"mode"})
		pr.items = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "staticbuilder",
			Name:      "items_total",
			Help:      "Built items by type and final status",
		}, []string{"type", "status"})
		pr.runOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "staticbuilder",
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by final status",
		}, []string{"outcome"})
		pr.rebuilds = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "staticbuilder",
			Name:      "rebuilds_total",
			Help:      "Watch mode rebuilds by trigger",
		}, []string{"trigger"})
		pr.lastRunItems = prom.NewGauge(prom.GaugeOpts{
			Namespace: "staticbuilder",
			Name:      "last_run_items",
			Help:      "Number of items produced by the most recent run",
		})
		reg.MustRegister(pr.runDuration, pr.items, pr.runOutcomes, pr.rebuilds, pr.lastRunItems)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveRunDuration(mode string, d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncItem(itemType, status string) {
	if p == nil || p.items == nil {
		return
	}
	p.items.WithLabelValues(itemType, status).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil || p.runOutcomes == nil {
		return
	}
	p.runOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncRebuild(trigger string) {
	if p == nil || p.rebuilds == nil {
		return
	}
	p.rebuilds.WithLabelValues(trigger).Inc()
}

func (p *PrometheusRecorder) SetLastRunItems(n int) {
	if p == nil || p.lastRunItems == nil {
		return
	}
	p.lastRunItems.Set(float64(n))
}
