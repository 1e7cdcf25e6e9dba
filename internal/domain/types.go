// Package domain holds the session engine's core record types: the shapes
// every other package (sessionstore, session, matchmaking, coach, httpapi)
// shares rather than redefines locally.
package domain

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Result is the semantic way a completed session ended, independent of any
// wire format (PGN's "1-0"/"0-1"/"1/2-1/2"/"*" tokens are rendered from it
// only at export time, see chessboard.ResultToken).
const (
	ResultCheckmate = "checkmate"
	ResultStalemate = "stalemate"
	ResultResigned  = "resigned"
	ResultDraw      = "draw"
	ResultAbandoned = "abandoned"
)

// Winner identifies which side a completed session favored. Single-player
// sessions use "player"/"engine"; multiplayer sessions use "white"/"black";
// a drawn session records "draw"; an aborted session has no winner.
const (
	WinnerPlayer = "player"
	WinnerEngine = "engine"
	WinnerWhite  = "white"
	WinnerBlack  = "black"
	WinnerDraw   = "draw"
)

type PlayerColor string

const (
	ColorWhite PlayerColor = "white"
	ColorBlack PlayerColor = "black"
	ColorAuto  PlayerColor = "auto"
)

// ClockState tracks remaining time for both sides, in milliseconds.
type ClockState struct {
	WhiteMs int64 `json:"white_ms"`
	BlackMs int64 `json:"black_ms"`
}

// PlyAnnotation is the per-move analysis record attached to a session's
// move log: the evaluation swing, the derived verdict, any detected
// themes, and the human-readable commentary. Side is "player" or "engine"
// for a single-player move, "white" or "black" for a multiplayer move.
type PlyAnnotation struct {
	Ply        int       `json:"ply"`
	Side       string    `json:"side"`
	UCI        string    `json:"uci"`
	SAN        string    `json:"san"`
	EvalCP     int       `json:"eval_cp"`
	DeltaCP    int       `json:"delta_cp"`
	Verdict    string    `json:"verdict"`
	Themes     []string  `json:"themes"`
	Commentary string    `json:"commentary"`
	Timestamp  time.Time `json:"timestamp"`
}

// OpponentProfile is an opaque, stable-shape payload describing the
// engine's running read on the human player's style. Its internal fields
// are heuristic and may evolve; callers treat it as an opaque JSON blob.
type OpponentProfile struct {
	TacticalScore      float64 `json:"tactical_score"`
	EarlyBlunderRisk   float64 `json:"early_blunder_risk"`
	AggressionScore    float64 `json:"aggression_score"`
	GamesObserved      int     `json:"games_observed"`
}

// SessionRecord is the full persisted state of one game, single-player or
// multiplayer.
type SessionRecord struct {
	ID              string      `json:"session_id"`
	Status          Status      `json:"status"`
	IsMultiplayer   bool        `json:"is_multiplayer"`
	PlayerColor     PlayerColor `json:"player_color"` // single-player only
	PlayerWhiteID   string      `json:"player_white_id,omitempty"`
	PlayerBlackID   string      `json:"player_black_id,omitempty"`
	InitialFEN      string      `json:"initial_fen,omitempty"`
	FEN             string      `json:"fen"`
	MoveLog         []string    `json:"move_log"` // UCI moves, in order
	Clocks          ClockState  `json:"clocks"`
	Difficulty      string      `json:"difficulty,omitempty"`
	EngineDepth     int         `json:"engine_depth,omitempty"`
	EngineRating    int         `json:"engine_rating,omitempty"`
	ExploitMode     bool        `json:"exploit_mode"`
	Opening         string      `json:"opening,omitempty"`
	Result          string      `json:"result,omitempty"` // semantic Result* constant, set at completion
	Winner          string      `json:"winner,omitempty"`
	PlayerID        string      `json:"player_id,omitempty"`
	PlayerRating    int         `json:"player_rating,omitempty"`
	RatingDelta     int         `json:"player_rating_delta,omitempty"`
	OpponentProfile OpponentProfile `json:"opponent_profile"`
	Annotations     []PlyAnnotation `json:"annotations"`
	TimeControl     string      `json:"time_control,omitempty"` // "{initial_ms}:{increment_ms}"
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Version         int         `json:"-"`
}

// DifficultyPreset maps a player-facing difficulty name to the engine
// rating and search depth it implies.
type DifficultyPreset struct {
	Name  string
	Rating int
	Depth int
}

var DifficultyPresets = []DifficultyPreset{
	{"beginner", 1320, 1},
	{"intermediate", 1600, 2},
	{"advanced", 2000, 3},
	{"expert", 2300, 4},
	{"grandmaster", 2600, 5},
}

// ResolveEngineSettings decides engine depth/rating/difficulty name from a
// session-create payload: an explicit difficulty name wins, then an
// explicit rating, then an explicit depth, then the configured default.
func ResolveEngineSettings(difficulty string, explicitRating, explicitDepth, defaultDepth int) (name string, rating, depth int) {
	for _, p := range DifficultyPresets {
		if p.Name == difficulty {
			return p.Name, p.Rating, p.Depth
		}
	}
	if explicitRating > 0 {
		return nearestPresetName(explicitRating), explicitRating, depthForRating(explicitRating)
	}
	if explicitDepth > 0 {
		return "custom", ratingForDepth(explicitDepth), explicitDepth
	}
	return "custom", ratingForDepth(defaultDepth), defaultDepth
}

func nearestPresetName(rating int) string {
	best := DifficultyPresets[0]
	bestDiff := abs(rating - best.Rating)
	for _, p := range DifficultyPresets[1:] {
		if d := abs(rating - p.Rating); d < bestDiff {
			best, bestDiff = p, d
		}
	}
	return best.Name
}

func depthForRating(rating int) int {
	for _, p := range DifficultyPresets {
		if p.Rating == rating {
			return p.Depth
		}
	}
	return 3
}

func ratingForDepth(depth int) int {
	for _, p := range DifficultyPresets {
		if p.Depth == depth {
			return p.Rating
		}
	}
	return 1600
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// QueueEntry is one waiting player in the matchmaking queue.
type QueueEntry struct {
	PlayerID       string      `json:"player_id"`
	TimeControl    string      `json:"time_control"` // bucket key "{initial_ms}:{increment_ms}"
	PreferredColor PlayerColor `json:"preferred_color"`
	JoinedAt       time.Time   `json:"joined_at"`
}

// MatchNotification is the at-most-once delivery record a matched player
// consumes by polling queue status.
type MatchNotification struct {
	SessionID string      `json:"session_id"`
	Color     PlayerColor `json:"color"`
	OpponentID string     `json:"opponent_id"`
}

// EngineEvent is one row of a session's append-only audit trail, as
// written by internal/telemetry and read back for the analytics endpoints.
type EngineEvent struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UserStats summarizes one player's history across every session (single
// or multiplayer) they have taken part in.
type UserStats struct {
	UserID        string `json:"user_id"`
	GamesPlayed   int    `json:"games_played"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	Draws         int    `json:"draws"`
	CurrentRating int    `json:"current_rating,omitempty"`
}
