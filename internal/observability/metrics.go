package observability

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for one CLI run.
type Metrics struct {
	Runs        *prometheus.CounterVec   // labels: pipeline, outcome={success,error}
	RunDuration *prometheus.HistogramVec // labels: pipeline
	OutputBytes *prometheus.GaugeVec     // labels: pipeline
	GridCells   *prometheus.GaugeVec     // labels: pipeline

	// Decoder metrics.
	DecodeAttempts *prometheus.CounterVec // labels: decoder, outcome={success,error}

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}

	// Notification metrics.
	NotificationsPublished *prometheus.CounterVec // labels: outcome={success,error}

	registry *prometheus.Registry
}

// NewMetrics creates all run metrics and registers them with a fresh registry.
// Each process run owns its registry since the binaries are single-shot.
func NewMetrics() *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_radar",
			Name:      "runs_total",
			Help:      "Pipeline runs by pipeline and outcome.",
		}, []string{"pipeline", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storm_radar",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a complete pipeline run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"pipeline"}),
		OutputBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "storm_radar",
			Name:      "output_bytes",
			Help:      "Size of the most recent PNG written.",
		}, []string{"pipeline"}),
		GridCells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "storm_radar",
			Name:      "grid_cells",
			Help:      "Number of grid cells rendered after cropping.",
		}, []string{"pipeline"}),
		DecodeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_radar",
			Name:      "decode_attempts_total",
			Help:      "GRIB2 decode attempts by decoder and outcome.",
		}, []string{"decoder", "outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_radar",
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding requests by outcome.",
		}, []string{"outcome"}),
		NotificationsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_radar",
			Name:      "notifications_published_total",
			Help:      "Render notifications published to Kafka by outcome.",
		}, []string{"outcome"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.Runs,
		m.RunDuration,
		m.OutputBytes,
		m.GridCells,
		m.DecodeAttempts,
		m.GeocodeRequests,
		m.NotificationsPublished,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes the registry in the node-exporter textfile format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "write metrics textfile %s", path)
	}
	return nil
}

// Outcome maps an error to the outcome label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
