package relay

import (
	"sort"
	"sync"
)

// Conn is the transport side of a realtime connection. The production
// implementation wraps a fiber websocket connection; tests substitute
// in-memory fakes.
type Conn interface {
	Send(event Event) error
	Close() error
}

// Client binds one authenticated identity to one transport connection.
type Client struct {
	ID     string // connection id, unique per transport connection
	UserID string
	conn   Conn
}

// NewClient creates a client for the given transport connection.
func NewClient(id, userID string, conn Conn) *Client {
	return &Client{ID: id, UserID: userID, conn: conn}
}

// Send delivers an event to the client's transport.
func (c *Client) Send(event Event) error {
	return c.conn.Send(event)
}

// Hub tracks connections and their room-topic subscriptions and fans events
// out to them. The subscription table is the single source of truth for room
// membership: active-subscriber lists are always derived from it at query
// time, never tracked separately.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client         // connID -> client
	topics  map[string]map[string]bool // topic -> set of connIDs
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		topics:  make(map[string]map[string]bool),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

// Unregister removes a client and all of its subscriptions. It returns the
// topics the client was subscribed to and is safe to call more than once.
func (h *Hub) Unregister(connID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var subscribed []string
	for topic, conns := range h.topics {
		if conns[connID] {
			delete(conns, connID)
			subscribed = append(subscribed, topic)
			if len(conns) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	delete(h.clients, connID)
	return subscribed
}

// Subscribe adds the connection to a topic. It reports whether the
// connection is registered.
func (h *Hub) Subscribe(connID, topic string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[connID]; !ok {
		return false
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]bool)
	}
	h.topics[topic][connID] = true
	return true
}

// Unsubscribe removes the connection from a topic and reports whether it was
// subscribed.
func (h *Hub) Unsubscribe(connID, topic string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.topics[topic]
	if !ok || !conns[connID] {
		return false
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(h.topics, topic)
	}
	return true
}

// IsSubscribed reports whether the connection currently holds a live
// subscription to the topic.
func (h *Hub) IsSubscribed(connID, topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.topics[topic][connID]
}

// TopicUserIDs returns the identities currently subscribed to the topic,
// derived from the live subscription table, deduplicated and sorted.
func (h *Hub) TopicUserIDs(topic string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	ids := []string{}
	for connID := range h.topics[topic] {
		client, ok := h.clients[connID]
		if !ok || seen[client.UserID] {
			continue
		}
		seen[client.UserID] = true
		ids = append(ids, client.UserID)
	}
	sort.Strings(ids)
	return ids
}

// snapshotAll returns all registered clients.
func (h *Hub) snapshotAll() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// snapshotTopic returns the clients subscribed to a topic, minus exceptConnID
// when non-empty.
func (h *Hub) snapshotTopic(topic, exceptConnID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var clients []*Client
	for connID := range h.topics[topic] {
		if connID == exceptConnID {
			continue
		}
		if client, ok := h.clients[connID]; ok {
			clients = append(clients, client)
		}
	}
	return clients
}

// BroadcastAll sends the event to every registered connection.
func (h *Hub) BroadcastAll(event Event) {
	for _, client := range h.snapshotAll() {
		_ = client.Send(event)
	}
}

// BroadcastTopic sends the event to every subscriber of the topic.
func (h *Hub) BroadcastTopic(topic string, event Event) {
	for _, client := range h.snapshotTopic(topic, "") {
		_ = client.Send(event)
	}
}

// BroadcastTopicExcept sends the event to every subscriber of the topic
// except the named connection.
func (h *Hub) BroadcastTopicExcept(topic, exceptConnID string, event Event) {
	for _, client := range h.snapshotTopic(topic, exceptConnID) {
		_ = client.Send(event)
	}
}

// SendToConn sends the event to a single connection if it is registered.
func (h *Hub) SendToConn(connID string, event Event) {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		_ = client.Send(event)
	}
}

// CloseConn closes the transport of the given connection, if registered. The
// connection's own read loop then runs the normal disconnect cleanup.
func (h *Hub) CloseConn(connID string) {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		_ = client.conn.Close()
	}
}

// CloseAll closes every connected transport.
func (h *Hub) CloseAll() {
	for _, client := range h.snapshotAll() {
		_ = client.conn.Close()
	}
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
