package notify

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/marketbook/marketbook-api/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	defaultBufferSize = 32
)

// AudienceAdmins addresses every connected global admin.
const AudienceAdmins = "admins"

// Message is the JSON frame written to websocket clients.
type Message struct {
	Event        string `json:"event"`
	Notification any    `json:"notification,omitempty"`
}

// Pusher delivers a message to an audience: a user id or AudienceAdmins.
type Pusher interface {
	Push(ctx context.Context, audience string, msg Message) error
}

// Authenticator resolves the token presented on the upgrade request.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// Hub tracks live websocket connections per audience on this instance.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*connection]struct{}
	upgrader websocket.Upgrader
	auth     Authenticator
	logger   *zap.Logger
}

// NewHub constructs a hub.
func NewHub(authenticator Authenticator, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]map[*connection]struct{}),
		auth:    authenticator,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				originHost := hostWithoutPort(origin)
				return originHost == hostWithoutPort(r.Host) || isLoopback(originHost)
			},
		},
	}
}

// ServeHTTP authenticates ?token= and upgrades the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, err := h.auth.Authenticate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	audience := AudienceFor(principal)
	if audience == "" {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &connection{hub: h, socket: conn, audience: audience, send: make(chan Message, defaultBufferSize)}
	h.register(client)

	go client.writeLoop()
	client.readLoop()
}

// AudienceFor maps a principal to the key its connections are filed under.
func AudienceFor(p *auth.Principal) string {
	switch {
	case p.IsGlobalAdmin():
		return AudienceAdmins
	case p.IsUser():
		return p.UserID()
	}
	return ""
}

// Push delivers msg to local connections of audience. It never blocks on a
// slow client.
func (h *Hub) Push(_ context.Context, audience string, msg Message) error {
	h.Deliver(audience, msg)
	return nil
}

// Deliver enqueues msg for every local connection of audience.
func (h *Hub) Deliver(audience string, msg Message) {
	h.mu.RLock()
	targets := make([]*connection, 0, len(h.clients[audience]))
	for client := range h.clients[audience] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if !client.enqueue(msg) {
			h.logger.Warn("dropping slow websocket client", zap.String("audience", audience))
			client.close()
		}
	}
}

// Connections returns the number of live connections for audience.
func (h *Hub) Connections(audience string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[audience])
}

func (h *Hub) register(client *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.audience] == nil {
		h.clients[client.audience] = make(map[*connection]struct{})
	}
	h.clients[client.audience][client] = struct{}{}
}

func (h *Hub) unregister(client *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[client.audience]
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.audience)
	}
}

type connection struct {
	hub      *Hub
	socket   *websocket.Conn
	audience string
	send     chan Message
	once     sync.Once

	mu     sync.Mutex
	closed bool
}

// enqueue reports false when the client's buffer is full.
func (c *connection) enqueue(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// readLoop only services control frames; clients never send data.
func (c *connection) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket closed", zap.String("audience", c.audience), zap.Error(err))
			}
			return
		}
	}
}

func (c *connection) writeLoop() {
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		_ = c.socket.Close()
	})
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	host = strings.TrimSuffix(host, "/")
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
