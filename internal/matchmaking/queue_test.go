package matchmaking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessica/backend/internal/domain"
)

func TestJoinMemoryPairsCompatibleColors(t *testing.T) {
	q := NewQueue("", time.Hour, time.Hour)
	ctx := context.Background()

	opp, matched, err := q.Join(ctx, domain.QueueEntry{
		PlayerID: "alice", TimeControl: "300000:0", PreferredColor: domain.ColorWhite, JoinedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Nil(t, opp)

	opp, matched, err = q.Join(ctx, domain.QueueEntry{
		PlayerID: "bob", TimeControl: "300000:0", PreferredColor: domain.ColorAuto, JoinedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, matched)
	require.NotNil(t, opp)
	assert.Equal(t, "alice", opp.PlayerID)
}

func TestJoinMemorySkipsIncompatibleColors(t *testing.T) {
	q := NewQueue("", time.Hour, time.Hour)
	ctx := context.Background()

	_, _, _ = q.Join(ctx, domain.QueueEntry{PlayerID: "alice", TimeControl: "60000:1000", PreferredColor: domain.ColorWhite, JoinedAt: time.Now()})
	opp, matched, err := q.Join(ctx, domain.QueueEntry{PlayerID: "bob", TimeControl: "60000:1000", PreferredColor: domain.ColorWhite, JoinedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Nil(t, opp)
}

func TestMatchNotificationConsumedOnce(t *testing.T) {
	q := NewQueue("", time.Hour, time.Hour)
	ctx := context.Background()

	note := domain.MatchNotification{SessionID: "sess-1", Color: domain.ColorBlack, OpponentID: "alice"}
	require.NoError(t, q.PutMatchNotification(ctx, "bob", note))

	got, ok := q.ConsumeMatchNotification(ctx, "bob")
	assert.True(t, ok)
	assert.Equal(t, note, got)

	_, ok = q.ConsumeMatchNotification(ctx, "bob")
	assert.False(t, ok)
}

func TestRequesterColorHonorsExplicitPreference(t *testing.T) {
	assert.Equal(t, domain.ColorBlack, RequesterColor(domain.ColorBlack, domain.ColorAuto))
	assert.Equal(t, domain.ColorWhite, RequesterColor(domain.ColorAuto, domain.ColorBlack))
	assert.Equal(t, domain.ColorBlack, RequesterColor(domain.ColorAuto, domain.ColorWhite))
	assert.Equal(t, domain.ColorWhite, RequesterColor(domain.ColorWhite, domain.ColorBlack))
}

func TestRequesterColorFlipsACoinWhenBothAuto(t *testing.T) {
	old := coinFlip
	defer func() { coinFlip = old }()

	coinFlip = func() bool { return true }
	assert.Equal(t, domain.ColorWhite, RequesterColor(domain.ColorAuto, domain.ColorAuto))

	coinFlip = func() bool { return false }
	assert.Equal(t, domain.ColorBlack, RequesterColor(domain.ColorAuto, domain.ColorAuto))
}

func TestBucketKeyFormat(t *testing.T) {
	assert.Equal(t, "300000:0", Bucket(300000, 0))
}
