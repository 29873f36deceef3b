// Package metrics provides the Prometheus registry reference for the
// arcquery client. The collectors themselves are defined next to the code
// they observe (pkg/client) and registered via promauto; this package
// documents the metric surface in one place.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All collectors are automatically registered via promauto.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - arcgis_requests_total{kind, status} (Counter): Map Service requests
//     by request kind (metadata, count, query) and HTTP status
//   - arcgis_request_duration_seconds{kind} (Histogram): request duration
//     by request kind
//   - arcgis_errors_total{class} (Counter): errors by class
//     (client, server, network, parse)
//
// Example Prometheus Queries:
//
//   # Query error rate
//   rate(arcgis_errors_total[5m])
//
//   # P95 query latency
//   histogram_quantile(0.95, rate(arcgis_request_duration_seconds_bucket{kind="query"}[5m]))
//
//   # Requests by status
//   sum by (status) (rate(arcgis_requests_total[5m]))
