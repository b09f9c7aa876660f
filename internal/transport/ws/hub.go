package ws

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/pkg/logger"
)

var ErrHubStopped = errors.New("ws hub stopped")

// Hub owns the private channel of every connected user. One connection per
// user: a new connection replaces the previous one.
type Hub struct {
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	direct     chan *directMsg
	stopped    chan struct{}

	log *logger.Logger
}

type directMsg struct {
	userID uuid.UUID
	data   []byte
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan *directMsg, 256),
		stopped:    make(chan struct{}),
		log:        log,
	}
}

// Run starts the Hub's main event loop and returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for id, client := range h.clients {
			delete(h.clients, id)
			client.close()
		}
		close(h.stopped)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			if old, ok := h.clients[client.userID]; ok {
				old.close()
			}
			h.clients[client.userID] = client
			h.log.Debug("ws client connected", "user_id", client.userID, "total", len(h.clients))

		case client := <-h.unregister:
			if cur, ok := h.clients[client.userID]; ok && cur == client {
				delete(h.clients, client.userID)
				client.close()
				h.log.Debug("ws client disconnected", "user_id", client.userID, "total", len(h.clients))
			}

		case msg := <-h.direct:
			client, ok := h.clients[msg.userID]
			if !ok {
				continue
			}
			select {
			case client.send <- msg.data:
			default:
				// Client buffer full - disconnect
				delete(h.clients, client.userID)
				client.close()
				h.log.Warn("ws client too slow, dropped", "user_id", client.userID)
			}
		}
	}
}

// SendToUser queues data for the user's connection. A user who is not
// connected is not an error: there is nobody to deliver to.
func (h *Hub) SendToUser(ctx context.Context, userID uuid.UUID, data []byte) error {
	select {
	case h.direct <- &directMsg{userID: userID, data: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stopped:
		return ErrHubStopped
	}
}

func (h *Hub) add(ctx context.Context, c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stopped:
		return ErrHubStopped
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}
