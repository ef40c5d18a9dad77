// Package metrics records run metrics in a private Prometheus registry and
// writes them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/eunmann/debpkgstats/pkg/contents"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "debpkgstats"

// Metrics holds the collectors for one run.
type Metrics struct {
	registry *prometheus.Registry

	OperationDuration *prometheus.HistogramVec
	LinesTotal        *prometheus.CounterVec
	DownloadBytes     *prometheus.CounterVec
	DistinctPackages  prometheus.Gauge
	LastRunTimestamp  prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of download, parse and rank operations.",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),
		LinesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lines_total",
				Help:      "Contents index lines read, by component and result (counted, skipped).",
			},
			[]string{"component", "result"},
		),
		DownloadBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "download_bytes_total",
				Help:      "Compressed bytes downloaded, by component.",
			},
			[]string{"component"},
		),
		DistinctPackages: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "distinct_packages",
				Help:      "Distinct packages seen in the last run.",
			},
		),
		LastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last successful run finished.",
			},
		),
	}

	m.registry.MustRegister(
		m.OperationDuration,
		m.LinesTotal,
		m.DownloadBytes,
		m.DistinctPackages,
		m.LastRunTimestamp,
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Hook returns a timing hook that observes operation durations.
func (m *Metrics) Hook() contents.TimingHook {
	return func(op string, d time.Duration) {
		m.OperationDuration.WithLabelValues(op).Observe(d.Seconds())
	}
}

// ObserveDownload records a finished download of one component.
func (m *Metrics) ObserveDownload(component string, bytes int64, d time.Duration) {
	m.DownloadBytes.WithLabelValues(component).Add(float64(bytes))
	m.OperationDuration.WithLabelValues("download").Observe(d.Seconds())
}

// ObserveParse records the line counters of one component.
func (m *Metrics) ObserveParse(component string, res contents.ParseResult) {
	m.LinesTotal.WithLabelValues(component, "counted").Add(float64(res.Lines - res.Skipped))
	m.LinesTotal.WithLabelValues(component, "skipped").Add(float64(res.Skipped))
}

// ObserveRun records the end of a successful run.
func (m *Metrics) ObserveRun(packages int, finished time.Time) {
	m.DistinctPackages.Set(float64(packages))
	m.LastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes all metrics to path for the node_exporter textfile
// collector. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
