// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	LinesReceived    prometheus.Counter
	ChatReceived     prometheus.Counter
	ChatSent         prometheus.Counter
	PingsAnswered    prometheus.Counter
	SendErrors       prometheus.Counter
	ConnectionEvents *prometheus.CounterVec

	// Histograms (seconds)
	HandshakeDuration prometheus.Observer

	// Gauges
	ConnectedGauge   prometheus.Gauge // 1=connected,0=not
	SendBacklogGauge prometheus.Gauge
)

// Init registers metrics (idempotent). Until it runs every helper below is a no-op,
// so library users that never call it pay nothing.
func Init() {
	once.Do(func() {
		LinesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_lines_received_total", Help: "Protocol lines read from the chat server"})
		ChatReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_received_total", Help: "User chat messages received"})
		ChatSent = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_sent_total", Help: "Chat messages written to the server"})
		PingsAnswered = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_pings_answered_total", Help: "Keep-alive pings answered with a pong"})
		SendErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_send_errors_total", Help: "Chat sends that failed or had no target channel"})
		ConnectionEvents = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chat_connection_events_total", Help: "Connection events emitted, by kind"}, []string{"kind"})
		HandshakeDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chat_handshake_duration_seconds", Help: "Time from dial to welcome line", Buckets: prometheus.DefBuckets})
		ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_connected", Help: "Chat connection established=1 otherwise 0"})
		SendBacklogGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_send_backlog", Help: "Chat messages deferred by the send rate limit"})
	})
}

// Inc bumps c if metrics are initialised.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// Add adds n to c if metrics are initialised.
func Add(c prometheus.Counter, n int) {
	if c != nil && n > 0 {
		c.Add(float64(n))
	}
}

// RecordEvent counts one connection event of the given kind.
func RecordEvent(kind string) {
	if ConnectionEvents != nil {
		ConnectionEvents.WithLabelValues(kind).Inc()
	}
}

// SetConnected sets the connected gauge to 1 or 0.
func SetConnected(connected bool) {
	if ConnectedGauge == nil {
		return
	}
	if connected {
		ConnectedGauge.Set(1)
	} else {
		ConnectedGauge.Set(0)
	}
}

// SetSendBacklog records the number of deferred chat sends.
func SetSendBacklog(n int) {
	if SendBacklogGauge != nil {
		SendBacklogGauge.Set(float64(n))
	}
}

// ObserveHandshake records a dial-to-welcome duration.
func ObserveHandshake(d time.Duration) {
	if HandshakeDuration != nil {
		HandshakeDuration.Observe(d.Seconds())
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context carrying the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
