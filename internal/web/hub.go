package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Clownyz/rentals-bot/internal/metrics"
	"github.com/Clownyz/rentals-bot/internal/notify"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	clientBuf  = 32
	backlog    = 64
)

// ErrHubBacklog is returned by Notify when the hub cannot keep up.
var ErrHubBacklog = errors.New("live panel backlog full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes public notifications to connected panel pages. It is a
// notify.Notifier.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub returns a Hub. Run must be called for it to deliver anything.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, backlog),
		done:       make(chan struct{}),
	}
}

// Run serves clients until ctx is cancelled, then disconnects them all.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*client]bool)
	defer func() {
		close(h.done)
		for c := range clients {
			close(c.send)
			metrics.PanelClients.Dec()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			clients[c] = true
			metrics.PanelClients.Inc()
			slog.Info("panel client connected", "client", c.id)

		case c := <-h.unregister:
			if clients[c] {
				delete(clients, c)
				close(c.send)
				metrics.PanelClients.Dec()
				slog.Info("panel client disconnected", "client", c.id)
			}

		case payload := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- payload:
				default:
					// Slow client; drop it rather than block the others.
					delete(clients, c)
					close(c.send)
					metrics.PanelClients.Dec()
					slog.Warn("dropping slow panel client", "client", c.id)
				}
			}
		}
	}
}

// Notify queues msg for every connected client. Direct messages are never
// forwarded, and attachments are stripped because a public panel has no
// access control.
func (h *Hub) Notify(_ context.Context, msg notify.Message) error {
	if !msg.Public() {
		return nil
	}

	ev := notify.EventFromMessage(msg)
	ev.Attachments = nil
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return nil
	default:
		return ErrHubBacklog
	}
}

// ServeWS handles GET /ws.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, clientBuf)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

// writePump copies queued events to the connection and keeps it alive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client input and unregisters the client once the
// connection drops.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("panel client read failed", "client", c.id, "error", err)
			}
			return
		}
	}
}
