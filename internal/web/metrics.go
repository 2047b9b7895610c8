package web

import (
	stderrors "errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hpungsan/thermap/internal/catalog"
	"github.com/hpungsan/thermap/internal/errors"
	"github.com/hpungsan/thermap/internal/refdb"
	"github.com/hpungsan/thermap/internal/session"
)

// Metrics holds the UI's Prometheus collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	computations *prometheus.CounterVec
	catalogLoads *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thermap",
			Name:      "computations_total",
			Help:      "Composition computations by outcome (ok or error code).",
		}, []string{"outcome"}),
		catalogLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thermap",
			Name:      "catalog_loads_total",
			Help:      "Reference database loads from disk by database and result.",
		}, []string{"database", "result"}),
	}
	m.registry.MustRegister(m.computations, m.catalogLoads)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observeCompute counts one computation.
func (m *Metrics) observeCompute(err error) {
	m.computations.WithLabelValues(outcome(err)).Inc()
}

// countingLoader wraps load so every cache miss is counted.
func (m *Metrics) countingLoader(load session.Loader) session.Loader {
	return func(desc refdb.Descriptor) (*catalog.Set, error) {
		set, err := load(desc)
		m.catalogLoads.WithLabelValues(desc.Name, outcome(err)).Inc()
		return set, err
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var tErr *errors.ThermapError
	if stderrors.As(err, &tErr) {
		return string(tErr.Code)
	}
	return string(errors.ErrInternal)
}
