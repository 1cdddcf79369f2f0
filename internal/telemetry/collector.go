// Package telemetry exposes reload cascades as Prometheus metrics and serves
// a deck's status over HTTP while the project asks for a webserver.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vovakirdan/livedeck/internal/deck"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "livedeck"

// Collector tracks reload cascades.
//
// Metrics:
//   - livedeck_cascades_total: cascades by project and outcome
//   - livedeck_cascade_duration_seconds: cascade duration by project
//   - livedeck_assets_reloaded_total: assets loaded by cascades
//   - livedeck_full_resets_total: cascades that restarted the game
//   - livedeck_assets_tracked / livedeck_assets_loaded: store size after the last cascade
//   - livedeck_broken: 1 while the last cascade of a project failed
type Collector struct {
	registry *prometheus.Registry

	cascadesTotal   *prometheus.CounterVec
	cascadeDuration *prometheus.HistogramVec
	reloadedTotal   *prometheus.CounterVec
	fullResetsTotal *prometheus.CounterVec
	assetsTracked   *prometheus.GaugeVec
	assetsLoaded    *prometheus.GaugeVec
	broken          *prometheus.GaugeVec
}

// NewCollector creates and registers the cascade metrics. A nil registry
// gets a fresh one.
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,

		cascadesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cascades_total",
				Help:      "Total number of reload cascades",
			},
			[]string{"project", "outcome"},
		),

		cascadeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cascade_duration_seconds",
				Help:      "Duration of reload cascades in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14), // 50µs to ~400ms
			},
			[]string{"project"},
		),

		reloadedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assets_reloaded_total",
				Help:      "Total number of assets loaded by reload cascades",
			},
			[]string{"project"},
		),

		fullResetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "full_resets_total",
				Help:      "Total number of cascades that restarted the game",
			},
			[]string{"project"},
		),

		assetsTracked: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "assets_tracked",
				Help:      "Assets tracked by the store after the last cascade",
			},
			[]string{"project"},
		),

		assetsLoaded: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "assets_loaded",
				Help:      "Assets with live content after the last cascade",
			},
			[]string{"project"},
		),

		broken: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "broken",
				Help:      "1 if the last cascade of the project failed",
			},
			[]string{"project"},
		),
	}

	registry.MustRegister(
		c.cascadesTotal,
		c.cascadeDuration,
		c.reloadedTotal,
		c.fullResetsTotal,
		c.assetsTracked,
		c.assetsLoaded,
		c.broken,
	)

	return c
}

// CascadeFinished implements deck.Observer.
func (c *Collector) CascadeFinished(project string, cascade deck.Cascade) {
	c.cascadesTotal.WithLabelValues(project, cascade.Outcome()).Inc()
	c.cascadeDuration.WithLabelValues(project).Observe(cascade.Duration.Seconds())
	if cascade.Reloaded > 0 {
		c.reloadedTotal.WithLabelValues(project).Add(float64(cascade.Reloaded))
	}
	if cascade.FullReset {
		c.fullResetsTotal.WithLabelValues(project).Inc()
	}
	c.assetsTracked.WithLabelValues(project).Set(float64(cascade.Assets))
	c.assetsLoaded.WithLabelValues(project).Set(float64(cascade.Loaded))

	broken := 0.0
	if cascade.Failed() {
		broken = 1
	}
	c.broken.WithLabelValues(project).Set(broken)
}

var _ deck.Observer = (*Collector)(nil)

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}
