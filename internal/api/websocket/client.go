package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/fortuna/laurel/internal/awards"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	sendBufferSize = 64
)

// ClientMessage is a frame sent by a client. Subscribe narrows the passes
// the client receives; empty fields match everything.
type ClientMessage struct {
	Type       string   `json:"type"`
	AwardTypes []string `json:"award_types,omitempty"`
	Season     string   `json:"season,omitempty"`
}

// SubscriptionFilter selects which passes a client receives.
type SubscriptionFilter struct {
	AwardTypes []awards.AwardType `json:"award_types"`
	Season     string             `json:"season"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID   string
	conn *websocket.Conn
	Send chan ServerMessage
	hub  *Hub
	log  logrus.FieldLogger

	filter   SubscriptionFilter
	filterMu sync.RWMutex

	sendMu sync.Mutex
	closed bool
}

// NewClient creates a new client instance
func NewClient(conn *websocket.Conn, hub *Hub) *Client {
	id := uuid.NewString()
	return &Client{
		ID:   id,
		conn: conn,
		Send: make(chan ServerMessage, sendBufferSize),
		hub:  hub,
		log:  hub.log.WithField("client_id", id),
	}
}

// ReadPump handles client frames until the connection fails.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if ctx.Err() != nil {
			return
		}
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("Unexpected close")
			}
			return
		}
		c.handleClientMessage(msg)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.log.WithError(err).Debug("Write failed")
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

// TrySend queues a message without blocking. It reports false when the
// buffer is full or the client is already closed.
func (c *Client) TrySend(msg ServerMessage) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

// close shuts the send channel once; called by the hub.
func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// SetFilter updates the client's subscription filter
func (c *Client) SetFilter(filter SubscriptionFilter) {
	c.filterMu.Lock()
	defer c.filterMu.Unlock()
	c.filter = filter
}

// Filter returns the client's current filter
func (c *Client) Filter() SubscriptionFilter {
	c.filterMu.RLock()
	defer c.filterMu.RUnlock()
	return c.filter
}

// MatchesFilter reports whether a pass matches the client's filter. A pass
// over every season matches any season filter.
func (c *Client) MatchesFilter(summary awards.PassSummary) bool {
	c.filterMu.RLock()
	defer c.filterMu.RUnlock()

	if c.filter.Season != "" && summary.Season != "" && c.filter.Season != summary.Season {
		return false
	}
	if len(c.filter.AwardTypes) == 0 {
		return true
	}
	for _, t := range c.filter.AwardTypes {
		if t == summary.AwardType {
			return true
		}
	}
	return false
}

func (c *Client) handleClientMessage(msg ClientMessage) {
	switch msg.Type {
	case MessageTypeSubscribe:
		c.handleSubscribe(msg)
	case MessageTypeUnsubscribe:
		c.SetFilter(SubscriptionFilter{})
		c.log.Debug("Client unsubscribed")
	case MessageTypeHeartbeat:
		c.TrySend(ServerMessage{Type: MessageTypeHeartbeat, Payload: c.Filter(), Timestamp: time.Now().UTC()})
	default:
		c.sendError("unknown_message_type", "unknown message type: "+msg.Type)
	}
}

func (c *Client) handleSubscribe(msg ClientMessage) {
	filter := SubscriptionFilter{Season: msg.Season}
	for _, raw := range msg.AwardTypes {
		t, err := awards.ParseAwardType(raw)
		if err != nil {
			c.sendError("invalid_filter", err.Error())
			return
		}
		filter.AwardTypes = append(filter.AwardTypes, t)
	}

	c.SetFilter(filter)
	c.TrySend(ServerMessage{Type: MessageTypeSubscribe, Payload: filter, Timestamp: time.Now().UTC()})
	c.log.WithFields(logrus.Fields{"award_types": filter.AwardTypes, "season": filter.Season}).Debug("Client subscribed")
}

func (c *Client) sendError(code, message string) {
	c.TrySend(ServerMessage{
		Type:      MessageTypeError,
		Payload:   map[string]string{"code": code, "message": message},
		Timestamp: time.Now().UTC(),
	})
}
