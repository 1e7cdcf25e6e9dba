// Package telemetry appends an audit trail of engine events beside each
// session and exposes the Prometheus counters operators watch in
// production, the same promauto-registration idiom escrow's gate metrics
// use, generalized to this service's event types.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EventStore is the narrow persistence dependency telemetry needs; the
// sessionstore.Repository satisfies it.
type EventStore interface {
	AppendEvent(ctx context.Context, id, sessionID, eventType string, payload []byte) error
}

type Logger struct {
	store   EventStore
	metrics *Metrics
}

func NewLogger(store EventStore, metrics *Metrics) *Logger {
	return &Logger{store: store, metrics: metrics}
}

// LogEvent appends one append-only event row and increments the matching
// Prometheus counter. Persistence failures are logged, not propagated —
// telemetry must never fail the request path it is observing.
func (l *Logger) LogEvent(ctx context.Context, sessionID, eventType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("telemetry: failed to marshal event payload", "session_id", sessionID, "event_type", eventType, "error", err)
		return
	}
	if err := l.store.AppendEvent(ctx, uuid.New().String(), sessionID, eventType, raw); err != nil {
		slog.Warn("telemetry: failed to persist event", "session_id", sessionID, "event_type", eventType, "error", err)
	}
	if l.metrics != nil {
		l.metrics.EventsTotal.WithLabelValues(eventType).Inc()
	}
}

type Metrics struct {
	EventsTotal      *prometheus.CounterVec
	MovesTotal       *prometheus.CounterVec
	CoachCallsTotal  *prometheus.CounterVec
	MatchesTotal     prometheus.Counter
	SessionLatency   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		EventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "session_events_total",
			Help: "Engine events appended to the session event log, by type.",
		}, []string{"event_type"}),
		MovesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "session_moves_total",
			Help: "Moves applied, by mover (player/engine/multiplayer).",
		}, []string{"mover"}),
		CoachCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_calls_total",
			Help: "Coach briefing requests, by outcome (summarized/fallback/rate_limited/error).",
		}, []string{"outcome"}),
		MatchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "matchmaking_matches_total",
			Help: "Matchmaking pairs formed.",
		}),
		SessionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "session_move_duration_seconds",
			Help:    "Wall-clock time to process a move, including any engine reply.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"operation"}),
	}
}

// Timer returns a function that records elapsed time against operation
// when called, matching the defer-timer idiom used across this service's
// metrics-instrumented gateways.
func (m *Metrics) Timer(operation string) func() {
	start := time.Now()
	return func() {
		if m == nil {
			return
		}
		m.SessionLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
