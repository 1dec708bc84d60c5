// Package statehub streams resource snapshots to WebSocket clients.
//
// Clients subscribe to topics; every Publish on a topic is forwarded to its
// subscribers, and a new subscriber immediately receives the latest snapshot.
package statehub

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// MessageType identifies a WebSocket message.
type MessageType string

const (
	// Server -> Client messages.
	MessageTypeSnapshot     MessageType = "snapshot"
	MessageTypeSubscribed   MessageType = "subscribed"
	MessageTypeUnsubscribed MessageType = "unsubscribed"
	MessageTypePong         MessageType = "pong"
	MessageTypeError        MessageType = "error"

	// Client -> Server messages.
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"
)

// Message is the unit exchanged over a connection.
type Message struct {
	Type    MessageType `json:"type"`
	Topic   string      `json:"topic,omitempty"`
	Payload any         `json:"payload,omitempty"`
}

// Option configures a Hub.
type Option func(*Hub)

// WithAllowedOrigins sets the origins allowed to connect. "*" allows all.
// With no origins configured only same-origin requests are accepted.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Hub) {
		h.origins = origins
	}
}

// WithClientObserver registers fn to receive the client count after every
// connect and disconnect.
func WithClientObserver(fn func(n int)) Option {
	return func(h *Hub) {
		h.observe = fn
	}
}

// Hub tracks clients and their topic subscriptions.
type Hub struct {
	log      *slog.Logger
	origins  []string
	upgrader websocket.Upgrader
	observe  func(int)

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{} // closed when Run returns

	// pubMu orders the latest write of a Publish with its broadcast send.
	pubMu sync.Mutex

	mu            sync.RWMutex
	clients       map[*Client]struct{}
	subscriptions map[string]map[*Client]struct{}
	latest        map[string]*Message
}

// NewHub creates a Hub. Run must be running for clients to connect.
func NewHub(log *slog.Logger, opts ...Option) *Hub {
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{
		log:           log.With("component", "statehub"),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan *Message, 256),
		done:          make(chan struct{}),
		clients:       make(map[*Client]struct{}),
		subscriptions: make(map[string]map[*Client]struct{}),
		latest:        make(map[string]*Message),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = newUpgrader(h.origins)
	return h
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"

	originSet := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		originSet[origin] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(allowedOrigins) == 0 {
				return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
			}
			return allowAll || originSet[origin]
		},
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("starting state hub")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.dropLocked(c)
			}
			h.mu.Unlock()
			h.notifyCount()
			h.log.Info("stopping state hub")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			for _, topic := range c.topics {
				h.subscribeLocked(c, topic)
			}
			h.mu.Unlock()
			h.notifyCount()
			h.log.Debug("client registered", "client", c.id)

		case c := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(c)
			h.mu.Unlock()
			h.notifyCount()
			h.log.Debug("client unregistered", "client", c.id)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.subscriptions[msg.Topic] {
				if !c.enqueue(msg) {
					h.log.Warn("client too slow, disconnecting", "client", c.id)
					h.dropLocked(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// dropLocked removes c from the hub and closes its send channel.
// h.mu must be held.
func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for topic, subs := range h.subscriptions {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.subscriptions, topic)
		}
	}
	c.close()
}

func (h *Hub) notifyCount() {
	if h.observe != nil {
		h.observe(h.ClientCount())
	}
}

// Publish records payload as the latest snapshot of topic and forwards it
// to the topic's subscribers. It never blocks.
func (h *Hub) Publish(topic string, payload any) {
	msg := &Message{Type: MessageTypeSnapshot, Topic: topic, Payload: payload}

	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	h.mu.Lock()
	h.latest[topic] = msg
	h.mu.Unlock()

	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("broadcast channel full, dropping snapshot", "topic", topic)
	}
}

// Latest returns the latest snapshot published on topic.
func (h *Hub) Latest(topic string) (any, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg, ok := h.latest[topic]
	if !ok {
		return nil, false
	}
	return msg.Payload, true
}

// Subscribe adds c to topic and queues the latest snapshot for it.
func (h *Hub) Subscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribeLocked(c, topic)
}

// subscribeLocked is Subscribe with h.mu held.
func (h *Hub) subscribeLocked(c *Client, topic string) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	subs, ok := h.subscriptions[topic]
	if !ok {
		subs = make(map[*Client]struct{})
		h.subscriptions[topic] = subs
	}
	subs[c] = struct{}{}

	c.enqueue(&Message{Type: MessageTypeSubscribed, Topic: topic})
	if msg, ok := h.latest[topic]; ok {
		c.enqueue(msg)
	}
	h.log.Debug("client subscribed", "client", c.id, "topic", topic)
}

// Unsubscribe removes c from topic.
func (h *Hub) Unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subscriptions[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.subscriptions, topic)
		}
	}
	c.enqueue(&Message{Type: MessageTypeUnsubscribed, Topic: topic})
	h.log.Debug("client unsubscribed", "client", c.id, "topic", topic)
}

// SubscriberCount returns the number of clients subscribed to topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[topic])
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket connection. Topics listed
// in the "topic" query parameter are subscribed on connect.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := r.Header.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}

	c := newClient(h, conn, id)
	for _, topic := range r.URL.Query()["topic"] {
		if topic != "" {
			c.topics = append(c.topics, topic)
		}
	}

	// Run subscribes c.topics while registering c.
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
