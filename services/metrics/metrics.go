// Package metrics exposes Prometheus counters for the API; the debug
// server serves them at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mwanzo", Name: "http_requests_total", Help: "Processed HTTP requests",
	}, []string{"method", "path", "status"})
	TimetableConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mwanzo", Name: "timetable_conflicts_total", Help: "Rejected conflicting timetable writes",
	})
	RequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mwanzo", Name: "http_request_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(Requests, TimetableConflicts, RequestDuration)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveRequest(method, path string, status int, d time.Duration) {
	Requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	RequestDuration.Observe(d.Seconds())
}
