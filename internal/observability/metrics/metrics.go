// Package metrics holds the Prometheus collectors exported by the analyzer
// server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(registry)

	rpcRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ctftools_rpc_requests_total",
		Help: "Total number of RPC requests handled by the analyzer.",
	}, []string{"component", "method"})
	rpcErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ctftools_rpc_errors_total",
		Help: "Total number of RPC errors returned by the analyzer.",
	}, []string{"component", "method", "code"})
	rpcLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ctftools_rpc_duration_seconds",
		Help:    "Latency of RPC handlers broken down by method and status code.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
	}, []string{"component", "method", "code"})
	rpcThrottled = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ctftools_rpc_throttled_total",
		Help: "Number of RPC requests rejected by the rate limiter.",
	}, []string{"method"})
	activeStreams = factory.NewGauge(prometheus.GaugeOpts{
		Name: "ctftools_active_streams",
		Help: "Number of key enumeration streams currently open.",
	})
	keysStreamed = factory.NewCounter(prometheus.CounterOpts{
		Name: "ctftools_keys_streamed_total",
		Help: "Number of candidate keys sent over enumeration streams.",
	})
	analysisRuns = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ctftools_analysis_total",
		Help: "Number of analysis operations by outcome.",
	}, []string{"operation", "outcome"})
	analysisInput = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ctftools_analysis_input_bytes",
		Help:    "Size of the ciphertext submitted to analysis operations.",
		Buckets: prometheus.ExponentialBuckets(16, 4, 8),
	}, []string{"operation"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes the metrics registry as an http.Handler compatible with Prometheus.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// Registry returns the registry backing Handler.
func Registry() *prometheus.Registry {
	return registry
}

// RecordRPCRequest increments the request counter for a component and method.
func RecordRPCRequest(component, method string) {
	rpcRequests.WithLabelValues(component, method).Inc()
}

// RecordRPCError increments the error counter for a component, method, and error code.
func RecordRPCError(component, method, code string) {
	rpcErrors.WithLabelValues(component, method, code).Inc()
}

// ObserveRPCLatency records the duration spent serving an RPC method and tags it by status code.
func ObserveRPCLatency(component, method, code string, dur time.Duration) {
	rpcLatency.WithLabelValues(component, method, code).Observe(dur.Seconds())
}

// RecordRPCThrottled counts a request refused by the rate limiter.
func RecordRPCThrottled(method string) {
	rpcThrottled.WithLabelValues(method).Inc()
}

// StreamOpened and StreamClosed track open enumeration streams.
func StreamOpened() { activeStreams.Inc() }

func StreamClosed() { activeStreams.Dec() }

// RecordKeysStreamed adds n to the number of keys sent to clients.
func RecordKeysStreamed(n int) {
	if n > 0 {
		keysStreamed.Add(float64(n))
	}
}

// RecordAnalysis counts one analysis operation over inputBytes of ciphertext.
// outcome is "ok" or a short error class.
func RecordAnalysis(operation, outcome string, inputBytes int) {
	analysisRuns.WithLabelValues(operation, outcome).Inc()
	analysisInput.WithLabelValues(operation).Observe(float64(inputBytes))
}
