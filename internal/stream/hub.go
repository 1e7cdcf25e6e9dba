// Package stream fans session events out to every websocket subscriber
// watching that session, using mutex-guarded per-session subscriber sets
// plus a snapshot-before-send/prune-on-failure discipline so broadcast
// never holds its lock across a blocking socket write.
package stream

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is a server-pushed message. Type is one of "engine_move",
// "player_move", "game_over" or "coach_update".
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

const writeTimeout = 5 * time.Second

// Hub tracks one subscriber set per session and serializes membership
// changes behind a mutex; broadcasting snapshots a session's subscriber set
// before sending so a slow or dead socket never blocks the lock other
// goroutines need to register/unregister.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*websocket.Conn]bool
	upgrader    websocket.Upgrader
}

func NewHub(allowedOrigins []string) *Hub {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}
	return &Hub{
		subscribers: make(map[string]map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				return originSet[r.Header.Get("Origin")]
			},
		},
	}
}

// Subscribe registers conn against sessionID.
func (h *Hub) Subscribe(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[sessionID]
	if !ok {
		set = make(map[*websocket.Conn]bool)
		h.subscribers[sessionID] = set
	}
	set[conn] = true
}

// Unsubscribe removes conn, pruning the session's set entirely once empty.
func (h *Hub) Unsubscribe(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[sessionID]
	if !ok {
		return
	}
	delete(set, conn)
	_ = conn.Close()
	if len(set) == 0 {
		delete(h.subscribers, sessionID)
	}
}

// Broadcast pushes event to every live subscriber of its session. The
// subscriber set is copied under a read lock and released before any
// network write, so a concurrent Subscribe/Unsubscribe is never blocked.
// Writes go out one subscriber at a time, each bounded by writeTimeout, so
// a dead connection delays delivery to the rest by at most that timeout.
func (h *Hub) Broadcast(event Event) {
	event.Timestamp = time.Now()

	h.mu.RLock()
	set := h.subscribers[event.SessionID]
	conns := make([]*websocket.Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	var dead []*websocket.Conn
	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteJSON(event); err != nil {
			slog.Warn("stream: dropping subscriber after write failure", "session_id", event.SessionID, "error", err)
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		h.Unsubscribe(event.SessionID, c)
	}
}

// SubscriberCount reports how many sockets are watching a session, used by
// tests.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[sessionID])
}

// ServeWS upgrades the request and subscribes the resulting connection to
// sessionID, blocking until the client disconnects. Unknown sessions are
// rejected with close code 4404 by the caller before ServeWS is invoked.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream: upgrade failed", "error", err)
		return
	}
	h.Subscribe(sessionID, conn)
	defer h.Unsubscribe(sessionID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// RejectUnknownSession upgrades then immediately closes a connection with
// close code 4404, for a stream request naming a session that does not
// exist.
func (h *Hub) RejectUnknownSession(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	msg := websocket.FormatCloseMessage(4404, "unknown session")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	_ = conn.Close()
}
