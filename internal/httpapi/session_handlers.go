package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/chessica/backend/internal/domain"
	"github.com/chessica/backend/internal/session"
)

type timeControlDTO struct {
	InitialMs   int64 `json:"initial_ms"`
	IncrementMs int64 `json:"increment_ms"`
}

type createSessionRequest struct {
	Variant      string          `json:"variant"`
	TimeControl  timeControlDTO  `json:"time_control"`
	Color        domain.PlayerColor `json:"color"`
	ExploitMode  bool            `json:"exploit_mode"`
	EngineDepth  int             `json:"engine_depth"`
	Difficulty   string          `json:"difficulty"`
	EngineRating int             `json:"engine_rating"`
	PlayerID     string          `json:"player_id"`
	PlayerRating int             `json:"player_rating"`
	InitialFEN   string          `json:"initial_fen"`
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	if playerID, ok := authenticatedPlayerID(r); ok && req.PlayerID == "" {
		req.PlayerID = playerID
	}

	rec, err := h.deps.Machine.Create(r.Context(), session.CreateRequest{
		PlayerColor:  req.Color,
		Difficulty:   req.Difficulty,
		EngineRating: req.EngineRating,
		EngineDepth:  req.EngineDepth,
		InitialFEN:   req.InitialFEN,
		ExploitMode:  req.ExploitMode,
		PlayerID:     req.PlayerID,
		PlayerRating: req.PlayerRating,
		InitialMs:    req.TimeControl.InitialMs,
		IncrementMs:  req.TimeControl.IncrementMs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := h.deps.Machine.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type submitMoveRequest struct {
	UCI      string `json:"uci"`
	ClientTS int64  `json:"client_ts"`
	PlayerID string `json:"player_id"`
}

func (h *handlers) submitMove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req submitMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	resp, err := h.deps.Machine.SubmitMove(r.Context(), id, req.UCI)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) resignSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		PlayerID string `json:"player_id"`
	}
	_ = decodeJSON(r, &req)

	rec, err := h.deps.Machine.Resign(r.Context(), session.ResignRequest{SessionID: id, PlayerID: req.PlayerID})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) coachSummary(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	briefing, err := h.deps.Machine.CoachSummary(r.Context(), session.CoachSummaryRequest{SessionID: id})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, briefing)
}

func (h *handlers) replay(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := h.deps.Machine.Replay(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) exportPGN(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q := r.URL.Query()
	pgn, err := h.deps.Machine.ExportPGN(r.Context(), session.ExportPGNRequest{
		SessionID: id,
		Event:     q.Get("event"),
		Site:      q.Get("site"),
		Date:      q.Get("date"),
		Round:     q.Get("round"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-chess-pgn")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.pgn"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(pgn))
}
