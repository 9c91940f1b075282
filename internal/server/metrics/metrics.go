// Package metrics exposes Prometheus instrumentation for the document
// store's gRPC surface.
package metrics

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var histogramBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// Metrics owns a private registry so several servers (and tests) can live
// in one process.
type Metrics struct {
	registry      *prometheus.Registry
	requestTotal  *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	subscriptions prometheus.Gauge
	changes       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nutrikeeper",
			Subsystem: "store",
			Name:      "grpc_requests_total",
			Help:      "Count of handled gRPC requests",
		}, []string{"method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nutrikeeper",
			Subsystem: "store",
			Name:      "grpc_request_duration_seconds",
			Help:      "Latency distribution of unary gRPC handlers",
			Buckets:   histogramBuckets,
		}, []string{"method"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nutrikeeper",
			Subsystem: "store",
			Name:      "active_subscriptions",
			Help:      "Number of open collection subscriptions",
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nutrikeeper",
			Subsystem: "store",
			Name:      "snapshots_sent_total",
			Help:      "Snapshots pushed to subscribers",
		}, []string{"collection"}),
	}
	m.registry.MustRegister(m.requestTotal, m.latency, m.subscriptions, m.changes)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SubscriptionOpened() { m.subscriptions.Inc() }

func (m *Metrics) SubscriptionClosed() { m.subscriptions.Dec() }

func (m *Metrics) SnapshotSent(collection string) {
	m.changes.WithLabelValues(collection).Inc()
}

// UnaryInterceptor counts and times unary calls by method and status code.
func (m *Metrics) UnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	method := path.Base(info.FullMethod)
	m.requestTotal.WithLabelValues(method, status.Code(err).String()).Inc()
	m.latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	return resp, err
}

// StreamInterceptor counts streaming calls when they end.
func (m *Metrics) StreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	err := handler(srv, ss)
	m.requestTotal.WithLabelValues(path.Base(info.FullMethod), status.Code(err).String()).Inc()
	return err
}
