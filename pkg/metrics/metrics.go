// Package metrics exposes the Prometheus registry used by the map generator.
// All metrics are defined in their respective packages (client, pagination,
// points, publish, status, job) to maintain modularity and avoid circular
// dependencies.
//
// This package provides the scrape handler and documentation for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the map generator.
// Every package registers its metrics here through promauto.With(Registry).
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer paired with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler serving the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Points API Metrics (pkg/client):
//   - airmap_api_requests_total{kind, status} (Counter): Requests by kind (probe, page) and HTTP status
//   - airmap_page_fetches_total{outcome} (Counter): Page fetches by outcome
//   - airmap_page_fetch_duration_seconds (Histogram): Page fetch duration
//
// Collector Metrics (pkg/pagination):
//   - airmap_collector_pages_total{result} (Counter): Pages accounted as completed or failed
//   - airmap_collector_duration_seconds (Histogram): Wall time of a full collection
//   - airmap_collector_workers (Gauge): Workers used by the latest collection
//
// Point Metrics (pkg/points):
//   - airmap_points_dropped_total{reason} (Counter): Items dropped during normalization
//
// Publish Metrics (pkg/publish):
//   - airmap_publish_total{backend, result} (Counter): Publish attempts by backend and result
//   - airmap_publish_duration_seconds{backend} (Histogram): Publish duration by backend
//
// Run Metrics (pkg/status, pkg/job):
//   - airmap_last_run_points (Gauge): Points added by the latest recorded run
//   - airmap_last_run_timestamp_seconds (Gauge): Finish time of the latest recorded run
//   - airmap_runs_recorded_total{state} (Counter): Runs written to the status store
//   - airmap_job_runs_total{result} (Counter): Job invocations by result (success, failed, publish_failed)
//   - airmap_job_duration_seconds (Histogram): End-to-end job duration
//
// Example Prometheus Queries:
//
//   # Page failure ratio
//   sum(rate(airmap_collector_pages_total{result="failed"}[1h])) /
//   sum(rate(airmap_collector_pages_total[1h]))
//
//   # Stale map (no successful run for 2 hours)
//   time() - airmap_last_run_timestamp_seconds > 7200
//
//   # P95 page latency
//   histogram_quantile(0.95, rate(airmap_page_fetch_duration_seconds_bucket[5m]))
