package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fortuna/laurel/internal/awards"
)

// Message types exchanged with clients.
const (
	MessageTypeAwardsCalculated = "awards_calculated"
	MessageTypeSubscribe        = "subscribe"
	MessageTypeUnsubscribe      = "unsubscribe"
	MessageTypeHeartbeat        = "heartbeat"
	MessageTypeError            = "error"
)

// ServerMessage is every frame the server writes.
type ServerMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts award passes to them
type Hub struct {
	clients   map[*Client]bool
	clientsMu sync.RWMutex

	broadcast  chan awards.PassSummary
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	totalConnections int64
	totalMessages    int64
	metricsMu        sync.Mutex

	log logrus.FieldLogger
}

// NewHub creates a new Hub instance
func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan awards.PassSummary, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logger.WithField("component", "ws_hub"),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("✓ Hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case summary := <-h.broadcast:
			h.broadcastSummary(summary)
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.close()
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// AwardsCalculated queues a finished pass for every subscribed client.
// A full buffer drops the pass.
func (h *Hub) AwardsCalculated(_ context.Context, summary awards.PassSummary) error {
	select {
	case h.broadcast <- summary:
	default:
		h.log.WithField("award_type", summary.AwardType).Warn("⚠️  Broadcast buffer full, dropping message")
	}
	return nil
}

var _ awards.Notifier = (*Hub)(nil)

func (h *Hub) registerClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.clients[c] = true
	h.incrementTotalConnections()

	h.log.WithFields(logrus.Fields{"client_id": c.ID, "clients": len(h.clients)}).Debug("Client connected")
}

func (h *Hub) unregisterClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
		h.log.WithFields(logrus.Fields{"client_id": c.ID, "clients": len(h.clients)}).Debug("Client disconnected")
	}
}

// broadcastSummary sends a pass to every client whose filter matches it.
// Clients with a full buffer are disconnected.
func (h *Hub) broadcastSummary(summary awards.PassSummary) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	message := ServerMessage{
		Type:      MessageTypeAwardsCalculated,
		Payload:   summary,
		Timestamp: time.Now().UTC(),
	}

	sent, dropped := 0, 0
	for _, c := range clients {
		if !c.MatchesFilter(summary) {
			continue
		}
		if c.TrySend(message) {
			sent++
			continue
		}
		dropped++
		go h.Unregister(c)
	}

	if sent > 0 {
		h.incrementTotalMessages()
	}
	if dropped > 0 {
		h.log.WithField("dropped", dropped).Warn("⚠️  Disconnected slow clients")
	}
}

// Metrics reports connection and message counters.
func (h *Hub) Metrics() map[string]interface{} {
	h.metricsMu.Lock()
	totalConnections := h.totalConnections
	totalMessages := h.totalMessages
	h.metricsMu.Unlock()

	return map[string]interface{}{
		"active_clients":     h.ClientCount(),
		"total_connections":  totalConnections,
		"total_messages":     totalMessages,
		"broadcast_capacity": cap(h.broadcast),
		"broadcast_usage":    len(h.broadcast),
	}
}

// ClientCount returns the number of active clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// shutdown closes all client connections
func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.log.WithField("clients", len(h.clients)).Info("Shutting down hub")

	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

func (h *Hub) incrementTotalConnections() {
	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()
	h.totalConnections++
}

func (h *Hub) incrementTotalMessages() {
	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()
	h.totalMessages++
}
