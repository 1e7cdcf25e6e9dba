package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventStore struct {
	calls []struct {
		sessionID, eventType string
		payload              []byte
	}
	failNext bool
}

func (s *fakeEventStore) AppendEvent(_ context.Context, _ string, sessionID, eventType string, payload []byte) error {
	if s.failNext {
		return errors.New("boom")
	}
	s.calls = append(s.calls, struct {
		sessionID, eventType string
		payload              []byte
	}{sessionID, eventType, payload})
	return nil
}

func TestLogEventPersistsWithMetrics(t *testing.T) {
	metrics := NewMetrics()
	store := &fakeEventStore{}
	logger := NewLogger(store, metrics)

	logger.LogEvent(context.Background(), "s1", "move", map[string]string{"uci": "e2e4"})

	require.Len(t, store.calls, 1)
	assert.Equal(t, "s1", store.calls[0].sessionID)
	assert.Equal(t, "move", store.calls[0].eventType)
	assert.Contains(t, string(store.calls[0].payload), "e2e4")
}

func TestLogEventSwallowsPersistenceError(t *testing.T) {
	store := &fakeEventStore{failNext: true}
	logger := NewLogger(store, nil)

	assert.NotPanics(t, func() {
		logger.LogEvent(context.Background(), "s1", "move", map[string]string{"uci": "e2e4"})
	})
}

func TestTimerWithNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	done := m.Timer("op")
	assert.NotPanics(t, done)
}
