package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/chessica/backend/internal/apperr"
	"github.com/chessica/backend/internal/domain"
)

// Repository is the session engine's relational persistence boundary: one
// row per session, with the move log, clocks and annotations stored as
// JSON columns the same way the original SQLAlchemy model kept structured
// fields alongside a handful of JSON blobs.
type Repository struct {
	db     *sql.DB
	cache  Cache
	driver string
}

// Open selects a driver from databaseURL's scheme ("postgres://" or
// "sqlite://") and runs the schema migration if the sessions table does
// not exist yet.
func Open(databaseURL string, cache Cache) (*Repository, error) {
	driver, dsn := parseDatabaseURL(databaseURL)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, apperr.Persistence("sessionstore: open", err)
	}
	if err := db.Ping(); err != nil {
		return nil, apperr.Persistence("sessionstore: ping", err)
	}
	repo := &Repository{db: db, cache: cache, driver: driver}
	if err := repo.migrate(); err != nil {
		return nil, apperr.Persistence("sessionstore: migrate", err)
	}
	return repo, nil
}

func parseDatabaseURL(url string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres", url
	case strings.HasPrefix(url, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(url, "sqlite://")
	default:
		return "sqlite3", url
	}
}

func (r *Repository) migrate() error {
	ddl := `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	is_multiplayer BOOLEAN NOT NULL,
	player_color TEXT,
	player_white_id TEXT,
	player_black_id TEXT,
	initial_fen TEXT,
	fen TEXT NOT NULL,
	move_log TEXT NOT NULL,
	clocks TEXT NOT NULL,
	difficulty TEXT,
	engine_depth INTEGER,
	engine_rating INTEGER,
	exploit_mode BOOLEAN,
	opening TEXT,
	result TEXT,
	winner TEXT,
	player_id TEXT,
	player_rating INTEGER,
	rating_delta INTEGER,
	opponent_profile TEXT,
	annotations TEXT,
	time_control TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	version INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS engine_events (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`
	_, err := r.db.Exec(ddl)
	return err
}

// Create inserts a brand-new session and populates the cache.
func (r *Repository) Create(ctx context.Context, rec *domain.SessionRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt, rec.Version = now, now, 1

	moveLog, _ := json.Marshal(rec.MoveLog)
	clocks, _ := json.Marshal(rec.Clocks)
	profile, _ := json.Marshal(rec.OpponentProfile)
	annotations, _ := json.Marshal(rec.Annotations)

	_, err := r.db.ExecContext(ctx, r.rebind(`
INSERT INTO sessions (id, status, is_multiplayer, player_color, player_white_id, player_black_id,
	initial_fen, fen, move_log, clocks, difficulty, engine_depth, engine_rating, exploit_mode,
	opening, result, winner, player_id, player_rating, rating_delta, opponent_profile, annotations,
	time_control, created_at, updated_at, version)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`),
		rec.ID, rec.Status, rec.IsMultiplayer, rec.PlayerColor, rec.PlayerWhiteID, rec.PlayerBlackID,
		rec.InitialFEN, rec.FEN, string(moveLog), string(clocks), rec.Difficulty, rec.EngineDepth,
		rec.EngineRating, rec.ExploitMode, rec.Opening, rec.Result, rec.Winner, rec.PlayerID,
		rec.PlayerRating, rec.RatingDelta, string(profile), string(annotations), rec.TimeControl,
		rec.CreatedAt, rec.UpdatedAt, rec.Version,
	)
	if err != nil {
		return apperr.Persistence("sessionstore: create", err)
	}
	r.cache.Set(ctx, rec)
	return nil
}

// Get fetches a session, cache-first, falling back to the database and
// repopulating the cache on a miss.
func (r *Repository) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	if rec, ok := r.cache.Get(ctx, id); ok {
		return rec, nil
	}
	rec, err := r.getFromDB(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, rec)
	return rec, nil
}

func (r *Repository) getFromDB(ctx context.Context, id string) (*domain.SessionRecord, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`
SELECT id, status, is_multiplayer, player_color, player_white_id, player_black_id, initial_fen, fen,
	move_log, clocks, difficulty, engine_depth, engine_rating, exploit_mode, opening, result, winner,
	player_id, player_rating, rating_delta, opponent_profile, annotations, time_control, created_at,
	updated_at, version
FROM sessions WHERE id = ?`), id)
	rec, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("session not found")
	}
	if err != nil {
		return nil, apperr.Persistence("sessionstore: get", err)
	}
	return rec, nil
}

// Save persists every mutable field of rec, bumps its version, and
// repopulates the cache — mirroring the original repository's
// "update row then repopulate cache" save path.
func (r *Repository) Save(ctx context.Context, rec *domain.SessionRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	rec.Version++

	moveLog, _ := json.Marshal(rec.MoveLog)
	clocks, _ := json.Marshal(rec.Clocks)
	profile, _ := json.Marshal(rec.OpponentProfile)
	annotations, _ := json.Marshal(rec.Annotations)

	res, err := r.db.ExecContext(ctx, r.rebind(`
UPDATE sessions SET status=?, fen=?, move_log=?, clocks=?, opening=?, result=?, winner=?,
	player_rating=?, rating_delta=?, opponent_profile=?, annotations=?, updated_at=?, version=?
WHERE id=?`),
		rec.Status, rec.FEN, string(moveLog), string(clocks), rec.Opening, rec.Result, rec.Winner,
		rec.PlayerRating, rec.RatingDelta, string(profile), string(annotations), rec.UpdatedAt,
		rec.Version, rec.ID,
	)
	if err != nil {
		return apperr.Persistence("sessionstore: save", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("session not found")
	}
	r.cache.Set(ctx, rec)
	return nil
}

// AppendEvent writes one telemetry row; used by internal/telemetry.
func (r *Repository) AppendEvent(ctx context.Context, id, sessionID, eventType string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, r.rebind(
		`INSERT INTO engine_events (id, session_id, event_type, payload, created_at) VALUES (?,?,?,?,?)`),
		id, sessionID, eventType, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return apperr.Persistence("sessionstore: append event", err)
	}
	return nil
}

// ListEvents returns a session's audit trail in the order it was written,
// for the analytics event-log endpoint.
func (r *Repository) ListEvents(ctx context.Context, sessionID string) ([]domain.EngineEvent, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(
		`SELECT id, session_id, event_type, payload, created_at FROM engine_events WHERE session_id=? ORDER BY created_at ASC`),
		sessionID,
	)
	if err != nil {
		return nil, apperr.Persistence("sessionstore: list events", err)
	}
	defer rows.Close()

	var out []domain.EngineEvent
	for rows.Next() {
		var e domain.EngineEvent
		var payload string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, apperr.Persistence("sessionstore: scan event", err)
		}
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}

// UserStats aggregates a player's completed sessions, single-player or
// multiplayer, into a won/lost/drawn summary plus their most recently
// recorded single-player rating.
func (r *Repository) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	stats := domain.UserStats{UserID: userID}

	rows, err := r.db.QueryContext(ctx, r.rebind(`
SELECT is_multiplayer, player_color, player_white_id, player_black_id, winner, result, player_rating
FROM sessions
WHERE status = 'completed' AND (player_id = ? OR player_white_id = ? OR player_black_id = ?)`),
		userID, userID, userID,
	)
	if err != nil {
		return stats, apperr.Persistence("sessionstore: user stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var isMultiplayer bool
		var color, whiteID, blackID, winner, result sql.NullString
		var rating sql.NullInt64
		if err := rows.Scan(&isMultiplayer, &color, &whiteID, &blackID, &winner, &result, &rating); err != nil {
			return stats, apperr.Persistence("sessionstore: scan user stats row", err)
		}

		stats.GamesPlayed++
		mine := domain.PlayerColor(color.String)
		if isMultiplayer {
			if whiteID.String == userID {
				mine = domain.ColorWhite
			} else {
				mine = domain.ColorBlack
			}
		}

		switch {
		case winner.String == domain.WinnerDraw:
			stats.Draws++
		case !isMultiplayer && winner.String == domain.WinnerPlayer:
			stats.Wins++
		case !isMultiplayer && winner.String == domain.WinnerEngine:
			stats.Losses++
		case isMultiplayer && winner.String == string(mine):
			stats.Wins++
		case isMultiplayer && winner.String != "":
			stats.Losses++
		}

		if !isMultiplayer && rating.Valid && rating.Int64 > 0 {
			stats.CurrentRating = int(rating.Int64)
		}
	}
	return stats, rows.Err()
}

// rebind rewrites "?" placeholders into Postgres's "$N" form when the
// active driver is Postgres; SQLite accepts "?" natively.
func (r *Repository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*domain.SessionRecord, error) {
	var rec domain.SessionRecord
	var moveLog, clocks, profile, annotations string
	var playerColor, playerWhiteID, playerBlackID, initialFEN, difficulty, opening, result, winner, playerID, timeControl sql.NullString
	var engineDepth, engineRating, playerRating, ratingDelta sql.NullInt64
	var exploitMode sql.NullBool

	if err := row.Scan(
		&rec.ID, &rec.Status, &rec.IsMultiplayer, &playerColor, &playerWhiteID, &playerBlackID,
		&initialFEN, &rec.FEN, &moveLog, &clocks, &difficulty, &engineDepth, &engineRating,
		&exploitMode, &opening, &result, &winner, &playerID, &playerRating, &ratingDelta, &profile,
		&annotations, &timeControl, &rec.CreatedAt, &rec.UpdatedAt, &rec.Version,
	); err != nil {
		return nil, err
	}

	rec.PlayerColor = domain.PlayerColor(playerColor.String)
	rec.PlayerWhiteID = playerWhiteID.String
	rec.PlayerBlackID = playerBlackID.String
	rec.InitialFEN = initialFEN.String
	rec.Difficulty = difficulty.String
	rec.EngineDepth = int(engineDepth.Int64)
	rec.EngineRating = int(engineRating.Int64)
	rec.ExploitMode = exploitMode.Bool
	rec.Opening = opening.String
	rec.Result = result.String
	rec.Winner = winner.String
	rec.PlayerID = playerID.String
	rec.PlayerRating = int(playerRating.Int64)
	rec.RatingDelta = int(ratingDelta.Int64)
	rec.TimeControl = timeControl.String

	_ = json.Unmarshal([]byte(moveLog), &rec.MoveLog)
	_ = json.Unmarshal([]byte(clocks), &rec.Clocks)
	_ = json.Unmarshal([]byte(profile), &rec.OpponentProfile)
	_ = json.Unmarshal([]byte(annotations), &rec.Annotations)

	return &rec, nil
}
