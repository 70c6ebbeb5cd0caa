// Package observability exposes Prometheus metrics for the relay pipeline.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tzhsiao/eew-go/internal/logging"
)

// Metrics holds every relay metric. One instance is shared by the ingress
// client and the orchestrator.
type Metrics struct {
	ConnectionStatus     prometheus.Gauge
	ReconnectAttempts    prometheus.Counter
	ConnectionRotations  prometheus.Counter
	MessagesReceived     *prometheus.CounterVec
	ParseFailures        *prometheus.CounterVec
	WarningsEvaluated    prometheus.Counter
	WarningsBelowMin     prometheus.Counter
	WarningsSuppressed   prometheus.Counter
	Notifications        *prometheus.CounterVec
	RenderDuration       prometheus.Histogram
	GenerationLockWait   prometheus.Histogram
}

// NewMetrics creates and registers the relay metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ConnectionStatus: factory.NewGauge(prometheus.GaugeOpts{
			Name: "eew_ingress_connected",
			Help: "1 when the ingress MQTT connection is established",
		}),
		ReconnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "eew_ingress_reconnect_attempts_total",
			Help: "Number of ingress reconnect attempts",
		}),
		ConnectionRotations: factory.NewCounter(prometheus.CounterOpts{
			Name: "eew_ingress_rotations_total",
			Help: "Number of proactive ingress connection rotations",
		}),
		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eew_messages_received_total",
			Help: "Inbound feed messages by topic",
		}, []string{"topic"}),
		ParseFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eew_parse_failures_total",
			Help: "Inbound messages dropped due to parse failure, by topic",
		}, []string{"topic"}),
		WarningsEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Name: "eew_warnings_evaluated_total",
			Help: "Warning events evaluated by the orchestrator",
		}),
		WarningsBelowMin: factory.NewCounter(prometheus.CounterOpts{
			Name: "eew_warnings_below_threshold_total",
			Help: "Warning events discarded below the intensity threshold",
		}),
		WarningsSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "eew_warnings_suppressed_total",
			Help: "Warning events suppressed by debounce",
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eew_notifications_published_total",
			Help: "Outbound notifications by kind (warning, report)",
		}, []string{"kind"}),
		RenderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "eew_render_duration_seconds",
			Help:    "Duration of countdown audio rendering",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		GenerationLockWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "eew_generation_lock_wait_seconds",
			Help:    "Time spent waiting for the generation lock",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
	}
}

// Serve starts the Prometheus endpoint on listen in a background goroutine
// and returns the server for shutdown.
func Serve(listen string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logging.Info("telemetry endpoint listening", "addr", listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("telemetry endpoint failed", "error", err)
		}
	}()

	return srv
}
