package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"example.com/abonos/internal/ledger"
)

const (
	pingEvery  = 25 * time.Second
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Envelope is the frame pushed to websocket clients.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type InvalidatePayload struct {
	Tags []ledger.Tag `json:"tags"`
}

type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.ws.Close()
	})
}

// Hub fans ledger bumps out to connected clients so open views know which
// data went stale.
type Hub struct {
	verifier Verifier
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*ClientConn]struct{}
}

func NewHub(v Verifier, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{verifier: v, log: log, clients: make(map[*ClientConn]struct{})}
}

// Notify matches ledger.Listener. It never blocks; clients whose buffer is
// full are dropped.
func (h *Hub) Notify(tags []ledger.Tag) {
	msg, err := json.Marshal(Envelope{Type: "invalidate", Payload: mustJSON(InvalidatePayload{Tags: tags})})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			c.Close()
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *ClientConn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *ClientConn) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.Close()
	}
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.Close()
	}
}

// ServeHTTP upgrades an authenticated request. The token comes from the
// Authorization header or the token query parameter, since browsers cannot
// set headers on websocket handshakes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing token")
		return
	}
	claims, err := h.verifier.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	cc := &ClientConn{ws: ws, send: make(chan []byte, sendBuffer)}
	h.add(cc)
	h.log.Debug("ws client connected", "user", claims.Username, "clients", h.Len())

	// writer loop
	go func() {
		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()

		for {
			select {
			case msg, ok := <-cc.send:
				if !ok {
					return
				}
				_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.remove(cc)
					return
				}
			case <-ticker.C:
				_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					h.remove(cc)
					return
				}
			}
		}
	}()

	// reader loop; clients only send control frames
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(cc)
	h.log.Debug("ws client disconnected", "user", claims.Username)
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
