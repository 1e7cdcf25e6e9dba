package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/chessica/backend/internal/session"
)

type createMultiplayerRequest struct {
	WhitePlayerID string         `json:"white_player_id"`
	BlackPlayerID string         `json:"black_player_id"`
	TimeControl   timeControlDTO `json:"time_control"`
}

func (h *handlers) createMultiplayer(w http.ResponseWriter, r *http.Request) {
	var req createMultiplayerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	rec, err := h.deps.Machine.CreateMultiplayer(r.Context(), session.CreateMultiplayerRequest{
		WhitePlayerID: req.WhitePlayerID,
		BlackPlayerID: req.BlackPlayerID,
		TimeControl:   bucketKey(req.TimeControl),
		InitialMs:     req.TimeControl.InitialMs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type multiplayerMoveRequest struct {
	UCI      string `json:"uci"`
	PlayerID string `json:"player_id"`
}

func (h *handlers) multiplayerMove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req multiplayerMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	resp, err := h.deps.Machine.MultiplayerMove(r.Context(), session.MultiplayerMoveRequest{
		SessionID: id,
		PlayerID:  req.PlayerID,
		UCI:       req.UCI,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type multiplayerPlayerRequest struct {
	PlayerID string `json:"player_id"`
}

func (h *handlers) multiplayerResign(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req multiplayerPlayerRequest
	_ = decodeJSON(r, &req)

	rec, err := h.deps.Machine.Resign(r.Context(), session.ResignRequest{SessionID: id, PlayerID: req.PlayerID})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) multiplayerDraw(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := h.deps.Machine.Draw(r.Context(), session.DrawRequest{SessionID: id})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) multiplayerAbort(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := h.deps.Machine.Abort(r.Context(), session.AbortRequest{SessionID: id})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
