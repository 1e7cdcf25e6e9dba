package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessica/backend/internal/domain"
	"github.com/chessica/backend/internal/matchmaking"
)

func TestJoinQueueFirstPlayerWaits(t *testing.T) {
	m, _, _, _ := newTestMachine()
	q := matchmaking.NewQueue("", time.Hour, time.Hour)

	status, err := m.JoinQueue(context.Background(), q, JoinQueueRequest{
		PlayerID: "alice", InitialMs: 300000, IncrementMs: 0, PreferredColor: domain.ColorAuto,
	})
	require.NoError(t, err)
	assert.Equal(t, "queued", status.Status)
}

func TestJoinQueuePairsCompatibleOpponent(t *testing.T) {
	m, _, _, _ := newTestMachine()
	q := matchmaking.NewQueue("", time.Hour, time.Hour)

	_, err := m.JoinQueue(context.Background(), q, JoinQueueRequest{
		PlayerID: "alice", InitialMs: 300000, IncrementMs: 0, PreferredColor: domain.ColorWhite,
	})
	require.NoError(t, err)

	status, err := m.JoinQueue(context.Background(), q, JoinQueueRequest{
		PlayerID: "bob", InitialMs: 300000, IncrementMs: 0, PreferredColor: domain.ColorAuto,
	})
	require.NoError(t, err)
	assert.Equal(t, "matched", status.Status)
	assert.NotEmpty(t, status.SessionID)
	assert.Equal(t, domain.ColorBlack, status.Color, "bob should get black since alice already claimed white")
}

func TestPollQueueStatusConsumesNotificationOnce(t *testing.T) {
	m, _, _, _ := newTestMachine()
	q := matchmaking.NewQueue("", time.Hour, time.Hour)

	_, err := m.JoinQueue(context.Background(), q, JoinQueueRequest{
		PlayerID: "alice", InitialMs: 300000, IncrementMs: 0, PreferredColor: domain.ColorWhite,
	})
	require.NoError(t, err)
	_, err = m.JoinQueue(context.Background(), q, JoinQueueRequest{
		PlayerID: "bob", InitialMs: 300000, IncrementMs: 0, PreferredColor: domain.ColorAuto,
	})
	require.NoError(t, err)

	first := PollQueueStatus(context.Background(), q, "alice", matchmaking.Bucket(300000, 0))
	assert.Equal(t, "matched", first.Status)

	second := PollQueueStatus(context.Background(), q, "alice", matchmaking.Bucket(300000, 0))
	assert.Equal(t, "none", second.Status)
}

func TestLeaveQueueWithdrawsEntry(t *testing.T) {
	q := matchmaking.NewQueue("", time.Hour, time.Hour)
	bucket := matchmaking.Bucket(300000, 0)

	m, _, _, _ := newTestMachine()
	_, err := m.JoinQueue(context.Background(), q, JoinQueueRequest{
		PlayerID: "alice", InitialMs: 300000, IncrementMs: 0, PreferredColor: domain.ColorAuto,
	})
	require.NoError(t, err)

	require.NoError(t, LeaveQueue(context.Background(), q, "alice", bucket))

	status := PollQueueStatus(context.Background(), q, "alice", bucket)
	assert.Equal(t, "none", status.Status)
}
