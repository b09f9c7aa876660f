package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/internal/service"
)

// HubPublisher implements service.Publisher on top of the Hub: every user's
// connection is their private channel.
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, userID uuid.UUID, ev service.Event) error {
	evt, err := NewEvent(ev.Type, ev.Payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.hub.SendToUser(ctx, userID, data)
}
