package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessica/backend/internal/analyzer"
	"github.com/chessica/backend/internal/apperr"
	"github.com/chessica/backend/internal/coach"
	"github.com/chessica/backend/internal/domain"
	"github.com/chessica/backend/internal/stream"
	"github.com/chessica/backend/internal/telemetry"
)

// fakeRepo is an in-memory Repository used across the session tests so
// they never touch a real database.
type fakeRepo struct {
	records map[string]*domain.SessionRecord
}

func newFakeRepo() *fakeRepo { return &fakeRepo{records: make(map[string]*domain.SessionRecord)} }

func (r *fakeRepo) Create(_ context.Context, rec *domain.SessionRecord) error {
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *fakeRepo) Get(_ context.Context, id string) (*domain.SessionRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, apperr.NotFound("session not found")
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeRepo) Save(_ context.Context, rec *domain.SessionRecord) error {
	if _, ok := r.records[rec.ID]; !ok {
		return apperr.NotFound("session not found")
	}
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *fakeRepo) AppendEvent(context.Context, string, string, string, []byte) error { return nil }

// fakeEngine replies with its scripted moves in order, one per BestMove
// call, and returns an error once the script is exhausted.
type fakeEngine struct {
	available bool
	moves     []string
	evalCP    int
	step      int
	multiPV   []analyzer.PVLine
}

func (e *fakeEngine) IsAvailable() bool { return e.available }

func (e *fakeEngine) BestMove(_ context.Context, _ string, _ analyzer.Settings) (analyzer.Result, error) {
	if e.step >= len(e.moves) {
		return analyzer.Result{}, assert.AnError
	}
	uci := e.moves[e.step]
	e.step++
	return analyzer.Result{UCI: uci, Eval: analyzer.Eval{CP: e.evalCP}}, nil
}

func (e *fakeEngine) Evaluate(context.Context, string, time.Duration) (analyzer.Eval, error) {
	return analyzer.Eval{CP: e.evalCP}, nil
}

func (e *fakeEngine) AnalyzeLines(context.Context, string, int, time.Duration) ([]analyzer.PVLine, error) {
	return e.multiPV, nil
}

type fakeHub struct {
	events []stream.Event
}

func (h *fakeHub) Broadcast(e stream.Event) { h.events = append(h.events, e) }

func newTestMachineWithMoves(moves []string) (*Machine, *fakeRepo, *fakeEngine, *fakeHub) {
	repo := newFakeRepo()
	engine := &fakeEngine{available: true, moves: moves}
	hub := &fakeHub{}
	telem := telemetry.NewLogger(repo, nil)
	builder := coach.NewBuilder(coach.FallbackSummarizer{}, coach.NewRateLimiter(time.Minute, 5), time.Second)
	m := NewMachine(repo, engine, hub, telem, nil, builder, EngineTuning{MinElo: 800, MaxElo: 2800, DefaultDepth: 2, MoveTimeLimit: time.Second})
	return m, repo, engine, hub
}

// newTestMachine wires a fake engine whose scripted replies answer a game
// the player opens as White with "e2e4": "e7e5", then "g1f3", then "b8c6".
// None of them is a legal first move for White, so a session created with
// the player as black stays at the starting position with White to move.
func newTestMachine() (*Machine, *fakeRepo, *fakeEngine, *fakeHub) {
	return newTestMachineWithMoves([]string{"e7e5", "g1f3", "b8c6"})
}

func TestCreateAssignsRequestedColor(t *testing.T) {
	m, _, _, _ := newTestMachine()
	rec, err := m.Create(context.Background(), CreateRequest{PlayerColor: domain.ColorWhite, Difficulty: "beginner"})
	require.NoError(t, err)
	assert.Equal(t, domain.ColorWhite, rec.PlayerColor)
	assert.Empty(t, rec.MoveLog)
}

func TestCreateAsBlackTriggersEngineOpening(t *testing.T) {
	m, _, _, _ := newTestMachineWithMoves([]string{"e2e4"})
	rec, err := m.Create(context.Background(), CreateRequest{PlayerColor: domain.ColorBlack, Difficulty: "beginner"})
	require.NoError(t, err)
	assert.Equal(t, domain.ColorBlack, rec.PlayerColor)
	require.Len(t, rec.MoveLog, 1)
	assert.Equal(t, "e2e4", rec.MoveLog[0])
}

func TestSubmitMoveRejectsIllegalMove(t *testing.T) {
	m, _, _, _ := newTestMachine()
	rec, err := m.Create(context.Background(), CreateRequest{PlayerColor: domain.ColorWhite, Difficulty: "beginner"})
	require.NoError(t, err)

	_, err = m.SubmitMove(context.Background(), rec.ID, "e2e5")
	require.Error(t, err)
	assert.Equal(t, apperr.KindIllegalMove, apperr.KindOf(err))
}

func TestSubmitMoveAppliesPlayerAndEngineReply(t *testing.T) {
	m, repo, _, hub := newTestMachine()
	rec, err := m.Create(context.Background(), CreateRequest{PlayerColor: domain.ColorWhite, Difficulty: "beginner"})
	require.NoError(t, err)

	resp, err := m.SubmitMove(context.Background(), rec.ID, "e2e4")
	require.NoError(t, err)
	assert.False(t, resp.GameOver)
	require.NotNil(t, resp.EnginePly)
	assert.Equal(t, "e2e4", resp.PlayerPly.UCI)
	assert.Equal(t, "e7e5", resp.EnginePly.UCI)

	stored, err := repo.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"e2e4", "e7e5"}, stored.MoveLog)
	assert.Len(t, hub.events, 1)
	assert.Equal(t, "engine_move", hub.events[0].Type)
}

func TestSubmitMoveRejectsWrongTurn(t *testing.T) {
	m, _, _, _ := newTestMachine()
	rec, err := m.Create(context.Background(), CreateRequest{PlayerColor: domain.ColorBlack, Difficulty: "beginner"})
	require.NoError(t, err)

	_, err = m.SubmitMove(context.Background(), rec.ID, "e2e4")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestSubmitMoveFoolsMateEndsWithPlayerCheckmate(t *testing.T) {
	m, _, _, _ := newTestMachineWithMoves([]string{"f2f3", "g2g4"})
	rec, err := m.Create(context.Background(), CreateRequest{PlayerColor: domain.ColorBlack, Difficulty: "beginner"})
	require.NoError(t, err)
	require.Equal(t, []string{"f2f3"}, rec.MoveLog)

	resp, err := m.SubmitMove(context.Background(), rec.ID, "e7e5")
	require.NoError(t, err)
	assert.False(t, resp.GameOver)

	resp, err = m.SubmitMove(context.Background(), rec.ID, "d8h4")
	require.NoError(t, err)
	assert.True(t, resp.GameOver)
	assert.Equal(t, domain.StatusCompleted, resp.Session.Status)
	assert.Equal(t, domain.ResultCheckmate, resp.Session.Result)
	assert.Equal(t, domain.WinnerPlayer, resp.Session.Winner)
	assert.Equal(t, "player", resp.PlayerPly.Side)
}

func TestSubmitMoveOnUnknownSessionIsNotFound(t *testing.T) {
	m, _, _, _ := newTestMachine()
	_, err := m.SubmitMove(context.Background(), "missing", "e2e4")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
