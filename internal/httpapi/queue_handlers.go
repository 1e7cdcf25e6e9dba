package httpapi

import (
	"net/http"

	"github.com/chessica/backend/internal/domain"
	"github.com/chessica/backend/internal/matchmaking"
	"github.com/chessica/backend/internal/session"
)

func bucketKey(tc timeControlDTO) string {
	return matchmaking.Bucket(tc.InitialMs, tc.IncrementMs)
}

type joinQueueRequest struct {
	PlayerID       string         `json:"player_id"`
	TimeControl    timeControlDTO `json:"time_control"`
	PreferredColor domain.PlayerColor `json:"preferred_color"`
}

func (h *handlers) joinQueue(w http.ResponseWriter, r *http.Request) {
	var req joinQueueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	if req.PreferredColor == "" {
		req.PreferredColor = domain.ColorAuto
	}

	status, err := h.deps.Machine.JoinQueue(r.Context(), h.deps.Queue, session.JoinQueueRequest{
		PlayerID:       req.PlayerID,
		InitialMs:      req.TimeControl.InitialMs,
		IncrementMs:    req.TimeControl.IncrementMs,
		PreferredColor: req.PreferredColor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *handlers) leaveQueue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	playerID := q.Get("player_id")
	tc := timeControlDTO{}
	tc.InitialMs = parseQueryInt64(q.Get("initial_ms"))
	tc.IncrementMs = parseQueryInt64(q.Get("increment_ms"))

	if err := session.LeaveQueue(r.Context(), h.deps.Queue, playerID, bucketKey(tc)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) queueStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	playerID := q.Get("player_id")
	tc := timeControlDTO{}
	tc.InitialMs = parseQueryInt64(q.Get("initial_ms"))
	tc.IncrementMs = parseQueryInt64(q.Get("increment_ms"))

	status := session.PollQueueStatus(r.Context(), h.deps.Queue, playerID, bucketKey(tc))
	writeJSON(w, http.StatusOK, status)
}

func parseQueryInt64(s string) int64 {
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	return n
}
