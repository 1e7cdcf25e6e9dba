package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (h *handlers) sessionEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	events, err := h.deps.Repo.ListEvents(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *handlers) userStats(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	stats, err := h.deps.Repo.UserStats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
