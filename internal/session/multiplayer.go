package session

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chessica/backend/internal/apperr"
	"github.com/chessica/backend/internal/chessboard"
	"github.com/chessica/backend/internal/domain"
	"github.com/chessica/backend/internal/insight"
	"github.com/chessica/backend/internal/rating"
	"github.com/chessica/backend/internal/stream"
)

// CreateMultiplayerRequest describes a session formed by the matchmaking
// queue pairing two waiting players.
type CreateMultiplayerRequest struct {
	WhitePlayerID string
	BlackPlayerID string
	TimeControl   string // "{initial_ms}:{increment_ms}"
	InitialMs     int64
}

// CreateMultiplayer persists a fresh two-player session with both clocks
// seeded from the time control's initial allotment.
func (m *Machine) CreateMultiplayer(ctx context.Context, req CreateMultiplayerRequest) (*domain.SessionRecord, error) {
	board := chessboard.NewDefault()
	rec := &domain.SessionRecord{
		ID:            uuid.New().String(),
		Status:        domain.StatusActive,
		IsMultiplayer: true,
		PlayerWhiteID: req.WhitePlayerID,
		PlayerBlackID: req.BlackPlayerID,
		FEN:           board.FEN(),
		TimeControl:   req.TimeControl,
		Clocks:        domain.ClockState{WhiteMs: req.InitialMs, BlackMs: req.InitialMs},
	}
	if err := m.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// MultiplayerMoveRequest carries the move to apply.
type MultiplayerMoveRequest struct {
	SessionID string
	PlayerID  string
	UCI       string
}

// MultiplayerMove applies one player's move in a two-human session: turn
// enforcement is by player id rather than by a fixed session color, and
// only the mover's own clock is touched — deducted by the wall-clock time
// elapsed since the session was last updated, then credited with the time
// control's increment, the way an over-the-board digital clock works.
func (m *Machine) MultiplayerMove(ctx context.Context, req MultiplayerMoveRequest) (*MoveResponse, error) {
	lock := m.locks.lockFor(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.repo.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !rec.IsMultiplayer {
		return nil, apperr.Conflict("session is not multiplayer")
	}
	if rec.Status != domain.StatusActive {
		return nil, apperr.GameOver("session has already ended")
	}

	mover, err := playerColorFor(rec, req.PlayerID)
	if err != nil {
		return nil, err
	}

	board, err := chessboard.NewFromFEN(rec.FEN)
	if err != nil {
		return nil, apperr.Persistence("session: corrupt fen", err)
	}
	if board.Turn() != toChessColor(mover) {
		return nil, apperr.Conflict("not this player's turn")
	}
	if !board.IsLegalUCI(req.UCI) {
		return nil, apperr.IllegalMove("illegal move: " + req.UCI)
	}

	beforeSnap := board.Snapshot()
	ctxMove := describeMove(board, req.UCI, mover)
	san, _ := board.SAN(req.UCI)
	if err := board.ApplyUCI(req.UCI); err != nil {
		return nil, apperr.IllegalMove(err.Error())
	}
	ctxMove.Before, ctxMove.After = beforeSnap, board.Snapshot()

	_, incrementMs := parseTimeControl(rec.TimeControl)
	elapsedMs := int64(0)
	if !rec.UpdatedAt.IsZero() {
		elapsedMs = time.Since(rec.UpdatedAt).Milliseconds()
		if elapsedMs < 0 {
			elapsedMs = 0
		}
	}
	deductClock(rec, mover, elapsedMs, incrementMs)

	rec.MoveLog = append(rec.MoveLog, req.UCI)
	rec.FEN = board.FEN()

	beforeCP := insight.MaterialEvalCP(ctxMove.Before)
	afterCP := insight.MaterialEvalCP(ctxMove.After)
	ply := m.buildAnnotation(len(rec.MoveLog), req.UCI, san, mover, string(mover), beforeCP, afterCP, ctxMove)
	rec.Annotations = append(rec.Annotations, ply)
	m.tagOpening(rec)
	if m.metrics != nil {
		m.metrics.MovesTotal.WithLabelValues("multiplayer").Inc()
	}

	resp := &MoveResponse{Session: rec, PlayerPly: ply}
	if board.IsGameOver() {
		m.completeSession(rec, board, mover)
		resp.GameOver = true
	} else if rec.Clocks.WhiteMs <= 0 || rec.Clocks.BlackMs <= 0 {
		m.completeOnTimeout(rec)
		resp.GameOver = true
	}

	if err := m.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	if resp.GameOver {
		m.broadcastGameOver(rec)
	} else {
		m.hub.Broadcast(stream.Event{Type: "player_move", SessionID: rec.ID, Data: ply})
	}
	m.telem.LogEvent(ctx, rec.ID, "player_move", ply)
	return resp, nil
}

func playerColorFor(rec *domain.SessionRecord, playerID string) (domain.PlayerColor, error) {
	switch playerID {
	case rec.PlayerWhiteID:
		return domain.ColorWhite, nil
	case rec.PlayerBlackID:
		return domain.ColorBlack, nil
	default:
		return "", apperr.Forbidden("player is not part of this session")
	}
}

// parseTimeControl splits a "{initial_ms}:{increment_ms}" bucket key,
// matching matchmaking.Bucket's format. A malformed or empty value yields
// no increment.
func parseTimeControl(tc string) (initialMs, incrementMs int64) {
	parts := strings.SplitN(tc, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	initialMs, _ = strconv.ParseInt(parts[0], 10, 64)
	incrementMs, _ = strconv.ParseInt(parts[1], 10, 64)
	return initialMs, incrementMs
}

func deductClock(rec *domain.SessionRecord, mover domain.PlayerColor, elapsedMs, incrementMs int64) {
	if mover == domain.ColorWhite {
		rec.Clocks.WhiteMs -= elapsedMs
		rec.Clocks.WhiteMs += incrementMs
	} else {
		rec.Clocks.BlackMs -= elapsedMs
		rec.Clocks.BlackMs += incrementMs
	}
}

func (m *Machine) completeOnTimeout(rec *domain.SessionRecord) {
	rec.Status = domain.StatusCompleted
	rec.Result = domain.ResultAbandoned
	if rec.Clocks.WhiteMs <= 0 {
		rec.Winner = domain.WinnerBlack
	} else {
		rec.Winner = domain.WinnerWhite
	}
}

// ResignRequest identifies the resigning player.
type ResignRequest struct {
	SessionID string
	PlayerID  string
}

// Resign ends a session immediately in favor of the other side. It is
// valid for both single-player sessions (PlayerID is the human) and
// multiplayer sessions (PlayerID must be one of the two seated players).
func (m *Machine) Resign(ctx context.Context, req ResignRequest) (*domain.SessionRecord, error) {
	lock := m.locks.lockFor(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.repo.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.StatusActive {
		return nil, apperr.GameOver("session has already ended")
	}

	var resigning domain.PlayerColor
	if rec.IsMultiplayer {
		resigning, err = playerColorFor(rec, req.PlayerID)
		if err != nil {
			return nil, err
		}
	} else {
		resigning = rec.PlayerColor
	}

	rec.Status = domain.StatusCompleted
	rec.Result = domain.ResultResigned
	if rec.IsMultiplayer {
		if resigning == domain.ColorWhite {
			rec.Winner = domain.WinnerBlack
		} else {
			rec.Winner = domain.WinnerWhite
		}
	} else if resigning == rec.PlayerColor {
		rec.Winner = domain.WinnerEngine
	} else {
		rec.Winner = domain.WinnerPlayer
	}

	if !rec.IsMultiplayer && rec.PlayerRating > 0 {
		score := rating.Win
		if resigning == rec.PlayerColor {
			score = rating.Loss
		}
		next := rating.Apply(rec.PlayerRating, rec.EngineRating, score)
		rec.RatingDelta = next - rec.PlayerRating
		rec.PlayerRating = next
	}

	if err := m.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	m.broadcastGameOver(rec)
	m.telem.LogEvent(ctx, rec.ID, "resignation", rec)
	return rec, nil
}

// DrawRequest identifies the multiplayer session a draw is agreed for.
// Consent collection between the two players is assumed handled by the
// caller (e.g. the client only calls this once the opponent has accepted);
// the endpoint itself just records the agreed outcome.
type DrawRequest struct {
	SessionID string
}

// Draw ends a multiplayer session by agreement: no rating change, result
// "draw", winner "draw" (exported to PGN as "1/2-1/2").
func (m *Machine) Draw(ctx context.Context, req DrawRequest) (*domain.SessionRecord, error) {
	lock := m.locks.lockFor(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.repo.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !rec.IsMultiplayer {
		return nil, apperr.Conflict("session is not multiplayer")
	}
	if rec.Status != domain.StatusActive {
		return nil, apperr.GameOver("session has already ended")
	}

	rec.Status = domain.StatusCompleted
	rec.Winner = domain.WinnerDraw
	rec.Result = domain.ResultDraw

	if err := m.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	m.broadcastGameOver(rec)
	m.telem.LogEvent(ctx, rec.ID, "draw", rec)
	return rec, nil
}

// AbortRequest identifies the multiplayer session being abandoned before
// it meaningfully started.
type AbortRequest struct {
	SessionID string
}

// Abort cancels a multiplayer session with no rating impact. Only valid
// until both sides have moved (at most one ply played), matching over-the-board
// abort conventions — past that point resignation or a draw agreement is
// the only way to end the game early.
func (m *Machine) Abort(ctx context.Context, req AbortRequest) (*domain.SessionRecord, error) {
	lock := m.locks.lockFor(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.repo.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !rec.IsMultiplayer {
		return nil, apperr.Conflict("session is not multiplayer")
	}
	if rec.Status != domain.StatusActive {
		return nil, apperr.GameOver("session has already ended")
	}
	if len(rec.MoveLog) > 1 {
		return nil, apperr.Conflict("cannot abort after both sides have moved")
	}

	rec.Status = domain.StatusAbandoned
	rec.Result = domain.ResultAbandoned

	if err := m.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	m.broadcastGameOver(rec)
	m.telem.LogEvent(ctx, rec.ID, "abort", rec)
	return rec, nil
}
