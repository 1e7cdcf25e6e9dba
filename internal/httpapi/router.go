// Package httpapi wires the session engine's operations onto an HTTP
// surface: a gorilla/mux router, the CORS/logging/auth middleware chain
// adapted from handlers.MakeCORSMiddleware/LoggingMiddleware, and one
// handler per spec'd endpoint, each a thin translation from JSON request
// body to a session.Machine call and back.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chessica/backend/internal/config"
	"github.com/chessica/backend/internal/matchmaking"
	"github.com/chessica/backend/internal/session"
	"github.com/chessica/backend/internal/sessionstore"
	"github.com/chessica/backend/internal/stream"
)

// Deps is everything the router needs from the composition root.
type Deps struct {
	Config   *config.Config
	Machine  *session.Machine
	Queue    *matchmaking.Queue
	Repo     *sessionstore.Repository
	Hub      *stream.Hub
	Verifier TokenVerifier // nil disables token verification even if auth_feature_enabled is true
}

type handlers struct {
	deps Deps
}

// NewRouter builds the full route tree: unauthenticated liveness/metrics
// endpoints at the root, and every session/multiplayer/matchmaking/
// analytics/stream endpoint under the configured API prefix.
func NewRouter(deps Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(MakeCORSMiddleware(deps.Config))
	router.Use(LoggingMiddleware)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	h := &handlers{deps: deps}
	api := router.PathPrefix(deps.Config.Server.APIPrefix).Subrouter()
	api.Use(MakeAuthMiddleware(deps.Config, deps.Verifier))

	api.HandleFunc("/sessions", h.createSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", h.getSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/moves", h.submitMove).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/resign", h.resignSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/coach", h.coachSummary).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/replay", h.replay).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/pgn", h.exportPGN).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/stream", h.stream).Methods(http.MethodGet)

	api.HandleFunc("/multiplayer/sessions", h.createMultiplayer).Methods(http.MethodPost)
	api.HandleFunc("/multiplayer/sessions/{id}/moves", h.multiplayerMove).Methods(http.MethodPost)
	api.HandleFunc("/multiplayer/sessions/{id}/resign", h.multiplayerResign).Methods(http.MethodPost)
	api.HandleFunc("/multiplayer/sessions/{id}/draw", h.multiplayerDraw).Methods(http.MethodPost)
	api.HandleFunc("/multiplayer/sessions/{id}/abort", h.multiplayerAbort).Methods(http.MethodPost)

	api.HandleFunc("/multiplayer/queue", h.joinQueue).Methods(http.MethodPost)
	api.HandleFunc("/multiplayer/queue", h.leaveQueue).Methods(http.MethodDelete)
	api.HandleFunc("/multiplayer/queue", h.queueStatus).Methods(http.MethodGet)

	api.HandleFunc("/analytics/sessions/{id}/events", h.sessionEvents).Methods(http.MethodGet)
	api.HandleFunc("/analytics/stats/{user_id}", h.userStats).Methods(http.MethodGet)

	return router
}
