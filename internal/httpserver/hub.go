package httpserver

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// wsEvent is what open tabs receive for every bus event.
type wsEvent struct {
	Topic      events.Topic `json:"topic"`
	CustomerID *int         `json:"customerId,omitempty"`
	Payload    any          `json:"payload,omitempty"`
	At         time.Time    `json:"at"`
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans bus events out to every connected tab.
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[*wsClient]struct{}
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	count      atomic.Int64
	gauge      prometheus.Gauge
}

// NewHub returns a hub; gauge may be nil. Call Run before serving.
func NewHub(gauge prometheus.Gauge) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		gauge:      gauge,
	}
}

func (h *Hub) Count() int { return int(h.count.Load()) }

func (h *Hub) track(n int) {
	h.count.Store(int64(n))
	if h.gauge != nil {
		h.gauge.Set(float64(n))
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every connection.
func (h *Hub) Run(ctx context.Context) {
	l := logging.FromContext(ctx).With("component", "ws_hub")
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.track(0)
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.track(len(h.clients))
			l.Info("ws_client_connected", "total", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.track(len(h.clients))
				l.Info("ws_client_disconnected", "total", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
					h.track(len(h.clients))
					l.Warn("ws_client_dropped", "total", len(h.clients))
				}
			}
		}
	}
}

// Attach forwards every bus event to the hub. A full broadcast queue drops
// the event.
func (h *Hub) Attach(bus *events.Bus) func() {
	return bus.SubscribeAll(func(ctx context.Context, ev events.Event) {
		msg, err := json.Marshal(wsEvent{Topic: ev.Topic, CustomerID: ev.CustomerID, Payload: ev.Payload, At: ev.At})
		if err != nil {
			logging.FromContext(ctx).Warn("ws_encode_error", "topic", string(ev.Topic), "error", err)
			return
		}
		select {
		case h.broadcast <- msg:
		default:
			logging.FromContext(ctx).Warn("ws_broadcast_full", "topic", string(ev.Topic))
		}
	})
}

func (h *handlers) websocket(c echo.Context) error {
	hub := h.d.Hub
	conn, err := hub.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logging.FromContext(c.Request().Context()).Warn("ws_upgrade_error", "error", err)
		return nil
	}
	client := &wsClient{hub: hub, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return nil
	}
	go client.writePump()
	go client.readPump()
	return nil
}

// readPump only keeps the connection alive; tabs never send anything the
// shell acts on.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
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

func (c *wsClient) writePump() {
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
