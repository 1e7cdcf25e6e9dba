package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chessica/backend/internal/analyzer"
	"github.com/chessica/backend/internal/apperr"
	"github.com/chessica/backend/internal/chessboard"
	"github.com/chessica/backend/internal/coach"
	"github.com/chessica/backend/internal/domain"
	"github.com/chessica/backend/internal/insight"
)

// coachMultiPVLines and coachMultiPVPlies bound the multi-PV analysis a
// coach briefing pulls in: three candidate lines, four plies deep, enough
// for a Key Lines section without turning every briefing into a slow search.
const (
	coachMultiPVLines = 3
	coachMultiPVPlies = 4
)

// Replay returns the session's move log and per-ply annotations in order,
// a read path with no board replay needed — the annotations were captured
// at submit time.
func (m *Machine) Replay(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	rec, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ExportPGNRequest carries the header metadata a PGN export embeds, since
// the session record itself does not track event/site naming.
type ExportPGNRequest struct {
	SessionID string
	Event     string
	Site      string
	Date      string
	Round     string
}

// ExportPGN renders the session's move log as PGN text, resolving the
// White/Black tags from either the multiplayer player ids or, for a
// single-player session, the player's id and a fixed "Engine" name.
func (m *Machine) ExportPGN(ctx context.Context, req ExportPGNRequest) (string, error) {
	rec, err := m.repo.Get(ctx, req.SessionID)
	if err != nil {
		return "", err
	}

	white, black := playerNames(rec)
	headers := chessboard.PGNHeaders{
		Event:      req.Event,
		Site:       req.Site,
		Date:       req.Date,
		Round:      req.Round,
		White:      white,
		Black:      black,
		Result:     pgnResultOrInProgress(rec),
		InitialFEN: rec.InitialFEN,
	}
	return chessboard.BuildPGN(headers, rec.MoveLog)
}

func playerNames(rec *domain.SessionRecord) (white, black string) {
	if rec.IsMultiplayer {
		return rec.PlayerWhiteID, rec.PlayerBlackID
	}
	if rec.PlayerColor == domain.ColorWhite {
		return rec.PlayerID, "Engine"
	}
	return "Engine", rec.PlayerID
}

// pgnResultOrInProgress renders the session's semantic winner as a PGN
// result token, the way chessboard.ResultToken renders a live board's
// winner: the winner alone decides the token, since a resignation with
// winner="draw" and a draw agreement are otherwise indistinguishable.
func pgnResultOrInProgress(rec *domain.SessionRecord) string {
	if rec.Status != domain.StatusCompleted {
		return "*"
	}
	switch rec.Winner {
	case domain.WinnerDraw:
		return "1/2-1/2"
	case domain.WinnerWhite:
		return "1-0"
	case domain.WinnerBlack:
		return "0-1"
	case domain.WinnerPlayer:
		if rec.PlayerColor == domain.ColorWhite {
			return "1-0"
		}
		return "0-1"
	case domain.WinnerEngine:
		if rec.PlayerColor == domain.ColorWhite {
			return "0-1"
		}
		return "1-0"
	default:
		return "*"
	}
}

// CoachSummaryRequest is everything the coach builder needs beyond the
// session record itself.
type CoachSummaryRequest struct {
	SessionID string
}

// CoachSummary builds a natural-language briefing for a session's current
// position, deriving the evaluation from the last recorded ply (0 when no
// ply has been recorded yet), the themes from
// the most recent ply's annotation, the structural diffs from a fresh board
// snapshot, and (when the engine is available) a multi-PV Key Lines section.
func (m *Machine) CoachSummary(ctx context.Context, req CoachSummaryRequest) (coach.Briefing, error) {
	rec, err := m.repo.Get(ctx, req.SessionID)
	if err != nil {
		return coach.Briefing{}, err
	}

	if m.coach == nil {
		return coach.Briefing{}, apperr.FeatureDisabled("coach briefing is not configured")
	}

	evalCP := 0
	var themes []string
	var commentary string
	if n := len(rec.Annotations); n > 0 {
		last := rec.Annotations[n-1]
		evalCP = last.EvalCP
		themes = last.Themes
		commentary = last.Commentary
	}

	board, err := chessboard.NewFromFEN(rec.FEN)
	if err != nil {
		return coach.Briefing{}, apperr.Persistence("coach briefing: invalid session position", err)
	}
	features := insight.AnalyzePosition(board.Snapshot())

	in := coach.PositionInput{
		SessionID:            rec.ID,
		FEN:                  rec.FEN,
		EvalCP:               evalCP,
		MoveCount:            len(rec.MoveLog),
		Difficulty:           rec.Difficulty,
		Themes:               themes,
		LastPlayerCommentary: commentary,
		MaterialDiffCP:       features.MaterialDiffCP,
		ExtendedCenterDiff:   features.ExtendedCenterDiff,
		AdvancedPieceDiff:    features.AdvancedPieceDiff,
		BishopPairDiff:       features.BishopPairDiff,
		PassedPawnDiff:       features.PassedPawnDiff,
	}

	if m.engine != nil && m.engine.IsAvailable() {
		if lines, err := m.engine.AnalyzeLines(ctx, rec.FEN, coachMultiPVLines, m.tuning.MoveTimeLimit); err != nil {
			slog.Warn("coach: multi-PV analysis failed, briefing built without key lines", "session_id", rec.ID, "error", err)
		} else {
			in.KeyLines = renderKeyLines(rec.FEN, lines)
		}
	}

	return m.coach.Build(ctx, in)
}

// renderKeyLines converts each multi-PV candidate's UCI move sequence into
// SAN from the session's current position, truncated to coachMultiPVPlies,
// in the "{formatted_eval}: {san1 san2 …}" shape the coach briefing's Key
// Lines section uses. A line whose moves fail to replay (a malformed engine
// reply) is skipped rather than aborting the whole briefing.
func renderKeyLines(fen string, lines []analyzer.PVLine) []string {
	out := make([]string, 0, len(lines))
	for _, pv := range lines {
		san, ok := replaySAN(fen, pv.UCI, coachMultiPVPlies)
		if !ok || len(san) == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s", coach.FormatEval(pv.Eval.CP), strings.Join(san, " ")))
	}
	return out
}

// replaySAN applies up to maxPlies of a UCI move sequence to the position at
// fen, one move at a time, collecting each move's SAN rendering before it is
// applied (SAN depends on the position it was played from).
func replaySAN(fen string, uciMoves []string, maxPlies int) ([]string, bool) {
	board, err := chessboard.NewFromFEN(fen)
	if err != nil {
		return nil, false
	}
	san := make([]string, 0, maxPlies)
	for i, uci := range uciMoves {
		if i >= maxPlies {
			break
		}
		s, err := board.SAN(uci)
		if err != nil {
			return san, len(san) > 0
		}
		if err := board.ApplyUCI(uci); err != nil {
			return san, len(san) > 0
		}
		san = append(san, s)
	}
	return san, true
}
