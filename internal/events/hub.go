package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"medwise-api/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var ErrHubClosed = errors.New("events: hub closed")

// Client is one dashboard websocket connection.
type Client struct {
	identity model.Identity
	conn     *websocket.Conn
	send     chan []byte
}

// Hub keeps the connected dashboards and pushes each event to the clients
// allowed to see it. Clients that fall behind are dropped.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64
	upgrader   websocket.Upgrader
	log        *slog.Logger
}

// NewHub builds a hub. checkOrigin may be nil to accept same-origin only.
func NewHub(log *slog.Logger, checkOrigin func(*http.Request) bool) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader:   websocket.Upgrader{CheckOrigin: checkOrigin},
		log:        log,
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			h.count.Add(1)
			h.log.Debug("ws client registered", "user_id", c.identity.UserID, "role", c.identity.Role)
		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
			}
		case e := <-h.broadcast:
			msg, err := json.Marshal(e)
			if err != nil {
				h.log.Error("ws marshal event", "error", err)
				continue
			}
			for c := range h.clients {
				if !e.VisibleTo(c.identity) {
					continue
				}
				select {
				case c.send <- msg:
				default:
					h.log.Warn("ws client too slow, dropping", "user_id", c.identity.UserID)
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Add(-1)
}

// Clients returns the number of registered connections.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

func (h *Hub) Publish(ctx context.Context, e Event) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.broadcast <- e:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve upgrades the request and streams events visible to id until the
// peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, id model.Identity) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{identity: id, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return ErrHubClosed
	}

	go c.writePump()
	go c.readPump(h)
	return nil
}

// readPump only watches for close and pong frames.
func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
