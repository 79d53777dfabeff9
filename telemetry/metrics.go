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
	PollCycles              prometheus.Counter
	TagPolls                prometheus.Counter
	PollErrors              prometheus.Counter
	BattlesDetected         prometheus.Counter
	NotificationsSent       prometheus.Counter
	NotificationsSuppressed prometheus.Counter
	TiltWarnings            prometheus.Counter

	// Histograms (seconds)
	CycleDuration prometheus.Observer

	// Gauges
	TrackedPlayersGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		PollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "battle_poll_cycles_total", Help: "Number of full sweeps over all tracked tags"})
		TagPolls = promauto.NewCounter(prometheus.CounterOpts{Name: "battle_tag_polls_total", Help: "Number of per-tag battle log fetches"})
		PollErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "battle_poll_errors_total", Help: "Number of per-tag poll steps abandoned due to errors"})
		BattlesDetected = promauto.NewCounter(prometheus.CounterOpts{Name: "battle_new_battles_total", Help: "Number of new relevant battles detected"})
		NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "battle_notifications_sent_total", Help: "Number of announcements that carried a mention ping"})
		NotificationsSuppressed = promauto.NewCounter(prometheus.CounterOpts{Name: "battle_notifications_suppressed_total", Help: "Number of announcements throttled by the notification gate"})
		TiltWarnings = promauto.NewCounter(prometheus.CounterOpts{Name: "battle_tilt_warnings_total", Help: "Number of tilt threshold warnings emitted"})
		CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "battle_poll_cycle_duration_seconds", Help: "Duration of one full poll cycle", Buckets: []float64{1, 5, 15, 30, 60, 120, 300}})
		TrackedPlayersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "battle_tracked_players", Help: "Number of tags the watcher iterates per cycle"})
	})
}

// SetTrackedPlayers records the configured tracked tag count.
func SetTrackedPlayers(n int) {
	if TrackedPlayersGauge != nil {
		TrackedPlayersGauge.Set(float64(n))
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

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
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
