package realtime

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/gmp-id/gmpcms/internal/logging"
)

// Subscription narrows the events a dashboard receives. Empty lists match
// everything.
type Subscription struct {
	Types     []string
	Resources []string
}

// ParseSubscription reads comma separated "types" and "resource" values.
func ParseSubscription(types, resources string) Subscription {
	return Subscription{Types: splitList(types), Resources: splitList(resources)}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// Matches reports whether ev passes both filters.
func (s Subscription) Matches(ev Event) bool {
	if len(s.Types) > 0 && !slices.Contains(s.Types, ev.Type) {
		return false
	}
	return len(s.Resources) == 0 || slices.Contains(s.Resources, ev.Resource)
}

// Hub fans activity events out to connected admin dashboards. All client
// bookkeeping happens on the run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	events     chan Event
	counts     chan chan int
	done       chan struct{}
	clients    map[*Client]struct{}
}

type socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

// Client is one websocket subscriber.
type Client struct {
	hub  *Hub
	conn socket
	sub  Subscription
	send chan []byte
}

type pingTicker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

var newPingTicker = func() pingTicker {
	return timeTicker{time.NewTicker(30 * time.Second)}
}

const (
	clientBuffer = 64
	eventBuffer  = 256
)

func NewHub() *Hub {
	h := &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan Event, eventBuffer),
		counts:     make(chan chan int),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			h.drop(client)
		case ev := <-h.events:
			h.deliver(ev)
		case reply := <-h.counts:
			reply <- len(h.clients)
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// deliver encodes ev once and hands it to every matching client. A client
// whose buffer is full is disconnected rather than stalling the others.
func (h *Hub) deliver(ev Event) {
	var payload []byte
	for client := range h.clients {
		if !client.sub.Matches(ev) {
			continue
		}
		if payload == nil {
			data, err := json.Marshal(ev)
			if err != nil {
				logging.L().Warn("failed to marshal activity event", zap.Error(err))
				return
			}
			payload = data
		}
		select {
		case client.send <- payload:
		default:
			logging.L().Debug("disconnecting slow dashboard client")
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	_ = client.conn.Close()
}

// Close disconnects every client and stops the hub loop.
func (h *Hub) Close() {
	close(h.done)
}

// Publish queues ev without blocking; events are dropped when the queue is full.
func (h *Hub) Publish(ev Event) {
	select {
	case h.events <- ev:
	default:
		logging.L().Warn("dropping activity event",
			zap.String("type", ev.Type),
			zap.String("resource", ev.Resource),
		)
	}
}

// ClientCount returns the number of connected dashboards.
func (h *Hub) ClientCount() int {
	reply := make(chan int)
	select {
	case h.counts <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// RequireUpgrade rejects plain HTTP requests on the websocket route.
func RequireUpgrade(c fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// Handler upgrades the connection and streams events until the peer leaves.
// The query parameters "types" and "resource" set the subscription.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		h.serve(conn, ParseSubscription(conn.Query("types"), conn.Query("resource")))
	})
}

func (h *Hub) serve(conn socket, sub Subscription) {
	client := &Client{
		hub:  h,
		conn: conn,
		sub:  sub,
		send: make(chan []byte, clientBuffer),
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

// readPump drains the socket until it fails; dashboards never send anything
// meaningful.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := newPingTicker()
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C():
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
