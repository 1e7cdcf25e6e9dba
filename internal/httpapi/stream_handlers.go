package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// stream upgrades the connection to a websocket feed of one session's
// events, closing with code 4404 first if the session does not exist.
func (h *handlers) stream(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.deps.Machine.Get(r.Context(), id); err != nil {
		h.deps.Hub.RejectUnknownSession(w, r)
		return
	}
	h.deps.Hub.ServeWS(w, r, id)
}
