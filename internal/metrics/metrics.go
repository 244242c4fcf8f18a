// Package metrics provides Prometheus metrics for the layertree server.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layertree_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "layertree_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Walk metrics
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layertree_runs_total",
			Help: "Selection runs by final status",
		},
		[]string{"status"},
	)

	walkDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "layertree_walk_duration_seconds",
			Help:    "Time spent walking a selection",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
	)

	nodesVisited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layertree_nodes_visited_total",
			Help: "Nodes emitted by the walker",
		},
	)

	cyclesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layertree_cycles_detected_total",
			Help: "Repeated node references short-circuited by the walker",
		},
	)

	hiddenSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layertree_hidden_skipped_total",
			Help: "Hidden subtrees skipped by the walker",
		},
	)

	walkYields = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layertree_walk_yields_total",
			Help: "Times the walker yielded between batches or roots",
		},
	)

	requestsCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layertree_requests_coalesced_total",
			Help: "Pending selection requests replaced by a newer one",
		},
	)

	// Presentation channel
	subscribersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layertree_subscribers_active",
			Help: "Connected UI panels",
		},
	)

	messagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layertree_messages_published_total",
			Help: "Messages published to UI panels by type",
		},
		[]string{"type"},
	)

	documentsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layertree_documents_loaded",
			Help: "Documents held in the workspace",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working behind the middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// RecordRun records a finished run.
func RecordRun(status string, d time.Duration, visited, cycles, hidden, yields int) {
	runsTotal.WithLabelValues(status).Inc()
	walkDuration.Observe(d.Seconds())
	nodesVisited.Add(float64(visited))
	cyclesDetected.Add(float64(cycles))
	hiddenSkipped.Add(float64(hidden))
	walkYields.Add(float64(yields))
}

func RecordCoalesced() {
	requestsCoalesced.Inc()
}

func SetSubscribersActive(n int) {
	subscribersActive.Set(float64(n))
}

func RecordMessage(msgType string) {
	messagesPublished.WithLabelValues(msgType).Inc()
}

func SetDocumentsLoaded(n int) {
	documentsLoaded.Set(float64(n))
}
