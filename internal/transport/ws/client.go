package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/pkg/logger"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	checkTimeout   = 2 * time.Second
	maxMessageSize = 4096
	sendBufSize    = 256
)

// ContactChecker decides whether typing indicators may flow between two users.
type ContactChecker interface {
	IsEligible(ctx context.Context, ownerID, candidateID uuid.UUID) (bool, error)
}

// Client represents a single WebSocket connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	userID   uuid.UUID
	contacts ContactChecker
	log      *logger.Logger

	send chan []byte
	done chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, contacts ContactChecker, log *logger.Logger) *Client {
	conn.SetReadLimit(maxMessageSize)
	return &Client{
		hub:      hub,
		conn:     conn,
		userID:   userID,
		contacts: contacts,
		log:      log.With("user_id", userID),
		send:     make(chan []byte, sendBufSize),
		done:     make(chan struct{}),
	}
}

// close is called by the hub only, once per client.
func (c *Client) close() {
	close(c.done)
}

// ReadPump reads events from the WebSocket until the connection drops.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(ctx, c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.log.Debug("ws client closed connection")
			} else {
				c.log.Debug("ws read failed", "err", err)
			}
			return
		}

		c.handleEvent(ctx, &event)
	}
}

// WritePump writes queued events to the WebSocket and keeps it alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				c.log.Debug("ws write failed", "err", err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				c.log.Debug("ws ping failed", "err", err)
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Client) write(message []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, message)
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(ctx context.Context, event *Event) {
	switch event.Type {
	case EventTypeTypingStart, EventTypeTypingStop:
		var p TypingTarget
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ToID == uuid.Nil {
			c.sendError("INVALID_PAYLOAD", "to_id required for typing events")
			return
		}
		c.relayTyping(ctx, p.ToID, event.Type == EventTypeTypingStart)

	case EventTypePing:
		c.reply(&Event{Type: EventTypePong})

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) relayTyping(ctx context.Context, toID uuid.UUID, active bool) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	ok, err := c.contacts.IsEligible(ctx, c.userID, toID)
	if err != nil {
		c.log.Warn("typing eligibility check failed", "to_id", toID, "err", err)
		return
	}
	if !ok {
		c.sendError("FORBIDDEN", "you are not allowed to contact this user")
		return
	}

	evt, err := NewEvent(EventTypeTyping, TypingPayload{FromID: c.userID, Active: active})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := c.hub.SendToUser(ctx, toID, data); err != nil {
		c.log.Debug("typing relay dropped", "to_id", toID, "err", err)
	}
}

func (c *Client) sendError(code, message string) {
	evt, err := NewEvent(EventTypeError, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	c.reply(evt)
}

// reply goes through the hub so writes stay on the WritePump goroutine.
func (c *Client) reply(evt *Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	_ = c.hub.SendToUser(ctx, c.userID, data)
}
