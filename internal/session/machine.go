// Package session implements the single-player and multiplayer game state
// machines: move submission, terminal detection, rating application and
// the coach/replay/export read paths. Writes (moves, resign, draw, abort)
// are serialized per session so two concurrent writes against the same game
// never interleave; the read paths take no lock.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/chessica/backend/internal/analyzer"
	"github.com/chessica/backend/internal/apperr"
	"github.com/chessica/backend/internal/chessboard"
	"github.com/chessica/backend/internal/coach"
	"github.com/chessica/backend/internal/domain"
	"github.com/chessica/backend/internal/insight"
	"github.com/chessica/backend/internal/opening"
	"github.com/chessica/backend/internal/rating"
	"github.com/chessica/backend/internal/stream"
	"github.com/chessica/backend/internal/telemetry"
)

// Engine is the subset of analyzer.Gateway the state machine depends on,
// narrowed to an interface so tests can substitute a stub.
type Engine interface {
	BestMove(ctx context.Context, fen string, settings analyzer.Settings) (analyzer.Result, error)
	Evaluate(ctx context.Context, fen string, moveTime time.Duration) (analyzer.Eval, error)
	AnalyzeLines(ctx context.Context, fen string, lines int, moveTime time.Duration) ([]analyzer.PVLine, error)
	IsAvailable() bool
}

// Repository is the subset of sessionstore.Repository the state machine
// depends on.
type Repository interface {
	Create(ctx context.Context, rec *domain.SessionRecord) error
	Get(ctx context.Context, id string) (*domain.SessionRecord, error)
	Save(ctx context.Context, rec *domain.SessionRecord) error
}

// Broadcaster is the subset of stream.Hub the state machine depends on.
type Broadcaster interface {
	Broadcast(event stream.Event)
}

type EngineTuning struct {
	MinElo, MaxElo int
	DefaultDepth   int
	MoveTimeLimit  time.Duration
}

type Machine struct {
	repo    Repository
	engine  Engine
	hub     Broadcaster
	telem   *telemetry.Logger
	metrics *telemetry.Metrics
	coach   *coach.Builder
	tuning  EngineTuning
	locks   *lockRegistry
}

func NewMachine(repo Repository, engine Engine, hub Broadcaster, telem *telemetry.Logger, metrics *telemetry.Metrics, coachBuilder *coach.Builder, tuning EngineTuning) *Machine {
	return &Machine{
		repo:    repo,
		engine:  engine,
		hub:     hub,
		telem:   telem,
		metrics: metrics,
		coach:   coachBuilder,
		tuning:  tuning,
		locks:   newLockRegistry(),
	}
}

// CreateRequest describes a new single-player session.
type CreateRequest struct {
	PlayerColor   domain.PlayerColor // "white", "black" or "auto"
	Difficulty    string
	EngineRating  int
	EngineDepth   int
	InitialFEN    string
	ExploitMode   bool
	PlayerID      string
	PlayerRating  int
	InitialMs     int64
	IncrementMs   int64
}

// Create starts a new single-player session. If the player is assigned
// black, the engine immediately plays the opening move before the record
// is persisted, so the very first thing a black-playing client sees is a
// position with White's first move already played.
func (m *Machine) Create(ctx context.Context, req CreateRequest) (*domain.SessionRecord, error) {
	color := req.PlayerColor
	if color == "" || color == domain.ColorAuto {
		if rand.Intn(2) == 0 {
			color = domain.ColorWhite
		} else {
			color = domain.ColorBlack
		}
	}

	diffName, engineRating, engineDepth := domain.ResolveEngineSettings(req.Difficulty, req.EngineRating, req.EngineDepth, m.tuning.DefaultDepth)

	board, err := newBoard(req.InitialFEN)
	if err != nil {
		return nil, apperr.IllegalMove(err.Error())
	}

	rec := &domain.SessionRecord{
		ID:           uuid.New().String(),
		Status:       domain.StatusActive,
		PlayerColor:  color,
		InitialFEN:   req.InitialFEN,
		FEN:          board.FEN(),
		Difficulty:   diffName,
		EngineDepth:  engineDepth,
		EngineRating: engineRating,
		ExploitMode:  req.ExploitMode,
		PlayerID:     req.PlayerID,
		PlayerRating: req.PlayerRating,
		Clocks:       domain.ClockState{WhiteMs: req.InitialMs, BlackMs: req.InitialMs},
	}
	if req.InitialMs > 0 {
		rec.TimeControl = fmt.Sprintf("%d:%d", req.InitialMs, req.IncrementMs)
	}

	if color == domain.ColorBlack {
		m.playEngineOpeningMove(ctx, rec, board)
	}

	if err := m.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// playEngineOpeningMove plays White's first move for a session where the
// human chose black. If the engine is unavailable the session is simply
// created at the starting position instead of failing outright.
func (m *Machine) playEngineOpeningMove(ctx context.Context, rec *domain.SessionRecord, board *chessboard.Board) {
	settings := m.engineSettings(rec)
	res, err := m.engine.BestMove(ctx, board.FEN(), settings)
	if err != nil {
		return
	}
	if err := board.ApplyUCI(res.UCI); err != nil {
		return
	}
	rec.MoveLog = append(rec.MoveLog, res.UCI)
	rec.FEN = board.FEN()
}

func (m *Machine) engineSettings(rec *domain.SessionRecord) analyzer.Settings {
	return analyzer.ResolveSettings(analyzer.Difficulty(rec.Difficulty), rec.EngineRating, m.tuning.MinElo, m.tuning.MaxElo, m.tuning.MoveTimeLimit)
}

func newBoard(initialFEN string) (*chessboard.Board, error) {
	if initialFEN == "" {
		return chessboard.NewDefault(), nil
	}
	return chessboard.NewFromFEN(initialFEN)
}

// Get fetches a session by id, wrapping a missing row as a typed NotFound.
func (m *Machine) Get(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	rec, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// MoveResponse is what SubmitMove returns: the player's own annotated ply,
// and — unless the game ended on the player's move — the engine's reply
// annotated the same way.
type MoveResponse struct {
	Session   *domain.SessionRecord  `json:"session"`
	PlayerPly domain.PlyAnnotation   `json:"player_ply"`
	EnginePly *domain.PlyAnnotation  `json:"engine_ply,omitempty"`
	GameOver  bool                   `json:"game_over"`
}

// SubmitMove applies a single-player move: validates turn and legality,
// builds the player's ply insight, and — unless the move ended the game —
// asks the engine for its reply and builds that ply's insight too.
func (m *Machine) SubmitMove(ctx context.Context, sessionID, uci string) (*MoveResponse, error) {
	lock := m.locks.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if m.metrics != nil {
		defer m.metrics.Timer("submit_move")()
	}

	rec, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.StatusActive {
		return nil, apperr.GameOver("session has already ended")
	}

	board, err := chessboard.NewFromFEN(rec.FEN)
	if err != nil {
		return nil, apperr.Persistence("session: corrupt fen", err)
	}
	if board.Turn() != toChessColor(rec.PlayerColor) {
		return nil, apperr.Conflict("not the player's turn")
	}
	if !board.IsLegalUCI(uci) {
		return nil, apperr.IllegalMove("illegal move: " + uci)
	}

	settings := m.engineSettings(rec)
	beforeEval := m.evaluate(ctx, board.FEN(), settings.MoveTime)

	san, _ := board.SAN(uci)
	beforeSnap := board.Snapshot()
	ctxMove := describeMove(board, uci, rec.PlayerColor)
	if err := board.ApplyUCI(uci); err != nil {
		return nil, apperr.IllegalMove(err.Error())
	}
	afterSnap := board.Snapshot()

	rec.MoveLog = append(rec.MoveLog, uci)
	rec.FEN = board.FEN()

	var afterEval analyzer.Eval
	terminal := board.IsGameOver()
	if terminal {
		afterEval = terminalEval(board, rec.PlayerColor)
	} else {
		afterEval = m.evaluate(ctx, board.FEN(), settings.MoveTime)
	}

	ctxMove.Before, ctxMove.After = beforeSnap, afterSnap
	playerPly := m.buildAnnotation(len(rec.MoveLog), uci, san, rec.PlayerColor, "player", beforeEval.CP, afterEval.CP, ctxMove)
	rec.Annotations = append(rec.Annotations, playerPly)
	m.tagOpening(rec)
	if m.metrics != nil {
		m.metrics.MovesTotal.WithLabelValues("player").Inc()
	}

	if terminal {
		m.completeSession(rec, board, rec.PlayerColor)
		if err := m.repo.Save(ctx, rec); err != nil {
			return nil, err
		}
		m.broadcastGameOver(rec)
		m.telem.LogEvent(ctx, rec.ID, "game_over", rec)
		return &MoveResponse{Session: rec, PlayerPly: playerPly, GameOver: true}, nil
	}

	engineColor := rec.PlayerColor
	if engineColor == domain.ColorWhite {
		engineColor = domain.ColorBlack
	} else {
		engineColor = domain.ColorWhite
	}
	if board.Turn() != toChessColor(engineColor) {
		return nil, apperr.Conflict("engine is not to move")
	}

	beforeEngineSnap := board.Snapshot()
	result, err := m.engine.BestMove(ctx, board.FEN(), settings)
	if err != nil {
		return nil, apperr.GameOver("engine has no legal moves")
	}
	engineSAN, _ := board.SAN(result.UCI)
	engineMoveCtx := describeMove(board, result.UCI, engineColor)
	if err := board.ApplyUCI(result.UCI); err != nil {
		return nil, apperr.Persistence("session: engine produced an illegal move", err)
	}
	engineMoveCtx.Before = beforeEngineSnap
	engineMoveCtx.After = board.Snapshot()

	rec.MoveLog = append(rec.MoveLog, result.UCI)
	rec.FEN = board.FEN()

	engineTerminal := board.IsGameOver()
	var afterEngineEval analyzer.Eval
	if engineTerminal {
		afterEngineEval = terminalEval(board, engineColor)
	} else {
		afterEngineEval = m.evaluate(ctx, board.FEN(), settings.MoveTime)
	}

	enginePly := m.buildAnnotation(len(rec.MoveLog), result.UCI, engineSAN, engineColor, "engine", afterEval.CP, afterEngineEval.CP, engineMoveCtx)
	rec.Annotations = append(rec.Annotations, enginePly)
	m.tagOpening(rec)
	if m.metrics != nil {
		m.metrics.MovesTotal.WithLabelValues("engine").Inc()
	}

	resp := &MoveResponse{Session: rec, PlayerPly: playerPly, EnginePly: &enginePly}
	if engineTerminal {
		m.completeSession(rec, board, engineColor)
		resp.GameOver = true
	}

	if err := m.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	if engineTerminal {
		m.broadcastGameOver(rec)
	} else {
		m.hub.Broadcast(stream.Event{Type: "engine_move", SessionID: rec.ID, Data: enginePly})
	}
	m.telem.LogEvent(ctx, rec.ID, "engine_move", enginePly)
	return resp, nil
}

func (m *Machine) evaluate(ctx context.Context, fen string, moveTime time.Duration) analyzer.Eval {
	if !m.engine.IsAvailable() {
		return analyzer.Eval{}
	}
	eval, err := m.engine.Evaluate(ctx, fen, moveTime)
	if err != nil {
		return analyzer.Eval{}
	}
	return eval
}

func terminalEval(board *chessboard.Board, lastMover domain.PlayerColor) analyzer.Eval {
	if !board.IsCheckmate() {
		return analyzer.Eval{}
	}
	if lastMover == domain.ColorWhite {
		return analyzer.Eval{CP: analyzer.CheckmateCP, Mate: true}
	}
	return analyzer.Eval{CP: -analyzer.CheckmateCP, Mate: true}
}

// completeSession resolves the semantic result/winner enum a completed
// session stores: "checkmate"/"stalemate"/"draw" for result, and for winner
// "player"/"engine"/"draw" (single-player) or "white"/"black"/"draw"
// (multiplayer). PGN tokens are rendered separately,
// only when a game is exported (see chessboard.ResultToken).
func (m *Machine) completeSession(rec *domain.SessionRecord, board *chessboard.Board, lastMover domain.PlayerColor) {
	rec.Status = domain.StatusCompleted
	winner, hasWinner := board.Winner()

	switch {
	case board.IsCheckmate():
		rec.Result = domain.ResultCheckmate
	case board.IsStalemate():
		rec.Result = domain.ResultStalemate
	default:
		rec.Result = domain.ResultDraw
	}

	switch {
	case !hasWinner:
		rec.Winner = domain.WinnerDraw
	case rec.IsMultiplayer:
		rec.Winner = string(domainColor(winner))
	case domainColor(winner) == rec.PlayerColor:
		rec.Winner = domain.WinnerPlayer
	default:
		rec.Winner = domain.WinnerEngine
	}

	if rec.PlayerRating > 0 {
		var score rating.Score
		switch {
		case !hasWinner:
			score = rating.Draw
		case rec.Winner == domain.WinnerPlayer:
			score = rating.Win
		default:
			score = rating.Loss
		}
		next := rating.Apply(rec.PlayerRating, rec.EngineRating, score)
		rec.RatingDelta = next - rec.PlayerRating
		rec.PlayerRating = next
	}
}

func (m *Machine) broadcastGameOver(rec *domain.SessionRecord) {
	m.hub.Broadcast(stream.Event{Type: "game_over", SessionID: rec.ID, Data: rec})
}

// buildAnnotation assembles one ply's annotation. mover is the color that
// actually made the move, used for board-relative verdict/theme math; side
// is the annotation's player-facing label ("player"/"engine" for
// single-player, "white"/"black" for multiplayer).
func (m *Machine) buildAnnotation(ply int, uci, san string, mover domain.PlayerColor, side string, beforeCP, afterCP int, ctx moveContext) domain.PlyAnnotation {
	verdict := insight.ClassifyVerdict(beforeCP, afterCP, toInsightColor(mover))
	themes := insight.DetectThemes(insight.MoveContext{
		Before:     ctx.Before,
		After:      ctx.After,
		Mover:      toInsightColor(mover),
		From:       ctx.From,
		To:         ctx.To,
		PieceMoved: ctx.Piece,
		Captured:   ctx.Captured,
		Promotion:  ctx.Promotion,
		Castle:     ctx.Castle,
	})
	themeStrs := make([]string, len(themes))
	for i, t := range themes {
		themeStrs[i] = string(t)
	}
	deltaCP := afterCP - beforeCP
	if mover == domain.ColorBlack {
		deltaCP = -deltaCP
	}
	commentary := insight.Commentary(san, themes, verdict, afterCP, side == "engine")
	return domain.PlyAnnotation{
		Ply:        ply,
		Side:       side,
		UCI:        uci,
		SAN:        san,
		EvalCP:     afterCP,
		DeltaCP:    deltaCP,
		Verdict:    string(verdict),
		Themes:     themeStrs,
		Commentary: commentary,
		Timestamp:  time.Now().UTC(),
	}
}

func (m *Machine) tagOpening(rec *domain.SessionRecord) {
	if entry, ok := opening.Detect(rec.MoveLog); ok {
		rec.Opening = fmt.Sprintf("%s: %s", entry.ECO, entry.Name)
	}
}

func toChessColor(c domain.PlayerColor) chessboard.Color {
	if c == domain.ColorBlack {
		return chessboard.Black
	}
	return chessboard.White
}

func toInsightColor(c domain.PlayerColor) chessboard.Color { return toChessColor(c) }

func domainColor(c chessboard.Color) domain.PlayerColor {
	if c == chessboard.Black {
		return domain.ColorBlack
	}
	return domain.ColorWhite
}

// moveContext carries the geometric facts insight.DetectThemes needs about
// one ply: the board before and after, which squares moved, and whether it
// was a capture, promotion or castle.
type moveContext struct {
	Before, After chessboard.Snapshot
	From, To      string
	Piece         chessboard.PieceType
	Captured      bool
	Promotion     bool
	Castle        bool
}

// describeMove inspects a UCI move string against the board BEFORE it is
// applied, so capture detection sees the occupant of the destination
// square. Before/After are filled in by the caller once both snapshots
// are available.
func describeMove(board *chessboard.Board, uci string, mover domain.PlayerColor) moveContext {
	from, to := uci[0:2], uci[2:4]
	snap := board.Snapshot()
	piece := snap.Squares[from].Type
	_, captured := snap.Squares[to]
	castle := piece == chessboard.King && isCastleSquares(from, to)
	return moveContext{
		From:      from,
		To:        to,
		Piece:     piece,
		Captured:  captured,
		Promotion: len(uci) > 4,
		Castle:    castle,
	}
}

func isCastleSquares(from, to string) bool {
	switch from {
	case "e1":
		return to == "g1" || to == "c1"
	case "e8":
		return to == "g8" || to == "c8"
	}
	return false
}
