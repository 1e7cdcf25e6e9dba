package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessica/backend/internal/apperr"
	"github.com/chessica/backend/internal/domain"
)

func TestCreateMultiplayerSeedsClocks(t *testing.T) {
	m, _, _, _ := newTestMachine()
	rec, err := m.CreateMultiplayer(context.Background(), CreateMultiplayerRequest{
		WhitePlayerID: "alice",
		BlackPlayerID: "bob",
		TimeControl:   "300000:0",
		InitialMs:     300000,
	})
	require.NoError(t, err)
	assert.True(t, rec.IsMultiplayer)
	assert.Equal(t, int64(300000), rec.Clocks.WhiteMs)
	assert.Equal(t, int64(300000), rec.Clocks.BlackMs)
}

func TestMultiplayerMoveEnforcesTurnByPlayerID(t *testing.T) {
	m, _, _, _ := newTestMachine()
	rec, err := m.CreateMultiplayer(context.Background(), CreateMultiplayerRequest{
		WhitePlayerID: "alice", BlackPlayerID: "bob", TimeControl: "300000:0", InitialMs: 300000,
	})
	require.NoError(t, err)

	_, err = m.MultiplayerMove(context.Background(), MultiplayerMoveRequest{SessionID: rec.ID, PlayerID: "bob", UCI: "e2e4"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestMultiplayerMoveRejectsNonParticipant(t *testing.T) {
	m, _, _, _ := newTestMachine()
	rec, err := m.CreateMultiplayer(context.Background(), CreateMultiplayerRequest{
		WhitePlayerID: "alice", BlackPlayerID: "bob", TimeControl: "300000:0", InitialMs: 300000,
	})
	require.NoError(t, err)

	_, err = m.MultiplayerMove(context.Background(), MultiplayerMoveRequest{SessionID: rec.ID, PlayerID: "mallory", UCI: "e2e4"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestMultiplayerMoveAppliesAndSwitchesTurn(t *testing.T) {
	m, repo, _, hub := newTestMachine()
	rec, err := m.CreateMultiplayer(context.Background(), CreateMultiplayerRequest{
		WhitePlayerID: "alice", BlackPlayerID: "bob", TimeControl: "300000:1000", InitialMs: 300000,
	})
	require.NoError(t, err)

	resp, err := m.MultiplayerMove(context.Background(), MultiplayerMoveRequest{SessionID: rec.ID, PlayerID: "alice", UCI: "e2e4"})
	require.NoError(t, err)
	assert.False(t, resp.GameOver)
	assert.Equal(t, "e2e4", resp.PlayerPly.UCI)

	stored, err := repo.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"e2e4"}, stored.MoveLog)
	assert.Contains(t, stored.FEN, " b ")
	assert.Len(t, hub.events, 1)
	assert.Equal(t, "player_move", hub.events[0].Type)
}

func TestDrawRequiresMultiplayer(t *testing.T) {
	m, _, _, _ := newTestMachine()
	rec, err := m.Create(context.Background(), CreateRequest{PlayerColor: domain.ColorWhite, Difficulty: "beginner"})
	require.NoError(t, err)

	_, err = m.Draw(context.Background(), DrawRequest{SessionID: rec.ID})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestDrawEndsSessionWithNoWinner(t *testing.T) {
	m, repo, _, _ := newTestMachine()
	rec, err := m.CreateMultiplayer(context.Background(), CreateMultiplayerRequest{
		WhitePlayerID: "alice", BlackPlayerID: "bob", TimeControl: "300000:0", InitialMs: 300000,
	})
	require.NoError(t, err)

	got, err := m.Draw(context.Background(), DrawRequest{SessionID: rec.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, domain.WinnerDraw, got.Winner)
	assert.Equal(t, domain.ResultDraw, got.Result)

	stored, err := repo.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestAbortBeforeSecondMoveSucceeds(t *testing.T) {
	m, _, _, _ := newTestMachine()
	rec, err := m.CreateMultiplayer(context.Background(), CreateMultiplayerRequest{
		WhitePlayerID: "alice", BlackPlayerID: "bob", TimeControl: "300000:0", InitialMs: 300000,
	})
	require.NoError(t, err)

	got, err := m.Abort(context.Background(), AbortRequest{SessionID: rec.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAbandoned, got.Status)
	assert.Equal(t, domain.ResultAbandoned, got.Result)
}

func TestAbortAfterBothSidesMovedFails(t *testing.T) {
	m, _, _, _ := newTestMachine()
	rec, err := m.CreateMultiplayer(context.Background(), CreateMultiplayerRequest{
		WhitePlayerID: "alice", BlackPlayerID: "bob", TimeControl: "300000:0", InitialMs: 300000,
	})
	require.NoError(t, err)

	_, err = m.MultiplayerMove(context.Background(), MultiplayerMoveRequest{SessionID: rec.ID, PlayerID: "alice", UCI: "e2e4"})
	require.NoError(t, err)
	_, err = m.MultiplayerMove(context.Background(), MultiplayerMoveRequest{SessionID: rec.ID, PlayerID: "bob", UCI: "e7e5"})
	require.NoError(t, err)

	_, err = m.Abort(context.Background(), AbortRequest{SessionID: rec.ID})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestResignMultiplayerRequiresParticipant(t *testing.T) {
	m, _, _, _ := newTestMachine()
	rec, err := m.CreateMultiplayer(context.Background(), CreateMultiplayerRequest{
		WhitePlayerID: "alice", BlackPlayerID: "bob", TimeControl: "300000:0", InitialMs: 300000,
	})
	require.NoError(t, err)

	_, err = m.Resign(context.Background(), ResignRequest{SessionID: rec.ID, PlayerID: "mallory"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestResignMultiplayerAwardsOpponent(t *testing.T) {
	m, _, _, _ := newTestMachine()
	rec, err := m.CreateMultiplayer(context.Background(), CreateMultiplayerRequest{
		WhitePlayerID: "alice", BlackPlayerID: "bob", TimeControl: "300000:0", InitialMs: 300000,
	})
	require.NoError(t, err)

	got, err := m.Resign(context.Background(), ResignRequest{SessionID: rec.ID, PlayerID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, domain.WinnerBlack, got.Winner)
	assert.Equal(t, domain.ResultResigned, got.Result)
}
