package session

import (
	"context"
	"time"

	"github.com/chessica/backend/internal/domain"
	"github.com/chessica/backend/internal/matchmaking"
)

// QueueStatus is what a client's enqueue or status poll receives.
type QueueStatus struct {
	Status     string             `json:"status"` // "queued", "matched" or "none"
	SessionID  string             `json:"session_id,omitempty"`
	Color      domain.PlayerColor `json:"color,omitempty"`
	OpponentID string             `json:"opponent_id,omitempty"`
}

// JoinQueueRequest is one player's enqueue call.
type JoinQueueRequest struct {
	PlayerID       string
	InitialMs      int64
	IncrementMs    int64
	PreferredColor domain.PlayerColor
}

// JoinQueue enqueues a player, or — if a compatible opponent is already
// waiting — pairs them immediately: creates the multiplayer session, hands
// the requester a "matched" status directly, and leaves a one-hour match
// notification for the opponent to pick up on their next status poll.
func (m *Machine) JoinQueue(ctx context.Context, q *matchmaking.Queue, req JoinQueueRequest) (QueueStatus, error) {
	bucket := matchmaking.Bucket(req.InitialMs, req.IncrementMs)
	entry := domain.QueueEntry{
		PlayerID:       req.PlayerID,
		TimeControl:    bucket,
		PreferredColor: req.PreferredColor,
		JoinedAt:       time.Now().UTC(),
	}

	opponent, matched, err := q.Join(ctx, entry)
	if err != nil {
		return QueueStatus{}, err
	}
	if !matched {
		return QueueStatus{Status: "queued"}, nil
	}

	requesterColor := matchmaking.RequesterColor(req.PreferredColor, opponent.PreferredColor)
	var whiteID, blackID string
	if requesterColor == domain.ColorWhite {
		whiteID, blackID = req.PlayerID, opponent.PlayerID
	} else {
		whiteID, blackID = opponent.PlayerID, req.PlayerID
	}

	rec, err := m.CreateMultiplayer(ctx, CreateMultiplayerRequest{
		WhitePlayerID: whiteID,
		BlackPlayerID: blackID,
		TimeControl:   bucket,
		InitialMs:     req.InitialMs,
	})
	if err != nil {
		return QueueStatus{}, err
	}

	opponentColor := domain.ColorWhite
	if requesterColor == domain.ColorWhite {
		opponentColor = domain.ColorBlack
	}
	_ = q.PutMatchNotification(ctx, opponent.PlayerID, domain.MatchNotification{
		SessionID:  rec.ID,
		Color:      opponentColor,
		OpponentID: req.PlayerID,
	})

	return QueueStatus{Status: "matched", SessionID: rec.ID, Color: requesterColor, OpponentID: opponent.PlayerID}, nil
}

// LeaveQueue withdraws a player's pending queue entry.
func LeaveQueue(ctx context.Context, q *matchmaking.Queue, playerID, timeControl string) error {
	return q.Leave(ctx, playerID, timeControl)
}

// PollQueueStatus reports a queued player's current status: a pending match
// notification takes priority (and is consumed at most once), otherwise the
// caller is told "queued" if their entry is still waiting, or "none".
func PollQueueStatus(ctx context.Context, q *matchmaking.Queue, playerID, timeControl string) QueueStatus {
	if note, ok := q.ConsumeMatchNotification(ctx, playerID); ok {
		return QueueStatus{Status: "matched", SessionID: note.SessionID, Color: note.Color, OpponentID: note.OpponentID}
	}
	if q.IsQueued(ctx, playerID, timeControl) {
		return QueueStatus{Status: "queued"}
	}
	return QueueStatus{Status: "none"}
}
