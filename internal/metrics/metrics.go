// Package metrics holds the Prometheus collectors of the floor layout
// service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "floor_layout"

// Metrics groups the service collectors.  A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	reg prometheus.Gatherer

	DraftSaves        *prometheus.CounterVec
	Activations       *prometheus.CounterVec
	StatusChanges     *prometheus.CounterVec
	LayoutCache       *prometheus.CounterVec
	ActivationLatency prometheus.Histogram
	HTTPRequests      *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		DraftSaves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_saves_total",
			Help:      "Draft saves by result (ok, rejected, error).",
		}, []string{"result"}),
		Activations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activations_total",
			Help:      "Activation attempts by result code.",
		}, []string{"result"}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_status_changes_total",
			Help:      "Table status changes by target status.",
		}, []string{"to"}),
		LayoutCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layout_cache_requests_total",
			Help:      "Active layout cache lookups by outcome (hit, miss).",
		}, []string{"outcome"}),
		ActivationLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "activation_duration_seconds",
			Help:      "Time spent in the activation transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		}, []string{"method", "route", "code"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) DraftSaved(result string) {
	if m != nil {
		m.DraftSaves.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Activated(result string, seconds float64) {
	if m == nil {
		return
	}
	m.Activations.WithLabelValues(result).Inc()
	m.ActivationLatency.Observe(seconds)
}

func (m *Metrics) StatusChanged(to string) {
	if m != nil {
		m.StatusChanges.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.LayoutCache.WithLabelValues("hit").Inc()
		return
	}
	m.LayoutCache.WithLabelValues("miss").Inc()
}
