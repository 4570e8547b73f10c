package broadcast

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	user string
}

// Hub keeps the websocket clients of every connected user and pushes
// notifications to them. Clients connect on /ws?user=<id>.
type Hub struct {
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	clients map[string]map[*client]bool
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		now:     time.Now,
		clients: make(map[string]map[*client]bool),
	}
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
		}
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), user: user}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.clients[c.user] == nil {
		h.clients[c.user] = make(map[*client]bool)
	}
	h.clients[c.user][c] = true
	if h.logger != nil {
		h.logger.Debug("websocket client registered", zap.String("user", c.user))
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.user]; ok && set[c] {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.user)
		}
		close(c.send)
	}
}

// readPump only drains the connection so that closes are noticed.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Connected returns how many connections user has open.
func (h *Hub) Connected(user string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[user])
}

// SendMessage queues the notification on every connection of the audience.
// Slow clients whose buffer is full are dropped.
func (h *Hub) SendMessage(_ context.Context, audience []string, topic string, payload any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, user := range audience {
		set := h.clients[user]
		if len(set) == 0 {
			continue
		}
		data, err := encode(user, topic, payload, h.now())
		if err != nil {
			return err
		}
		for c := range set {
			select {
			case c.send <- data:
			default:
				delete(set, c)
				close(c.send)
			}
		}
		if len(set) == 0 {
			delete(h.clients, user)
		}
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for user, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, user)
	}
	return nil
}

// ListenAndServe serves the hub on address until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, address string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	srv := &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if h.logger != nil {
		h.logger.Info("starting websocket server", zap.String("address", address))
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket server: %w", err)
	}
	return nil
}
