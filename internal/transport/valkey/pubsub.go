// Package valkey fans private-channel events out across server instances.
// Every instance publishes to "user.<id>" and forwards whatever it receives
// on "user.*" to its local websocket hub.
package valkey

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/valkey-io/valkey-go"
	"github.com/vedran77/covoit/internal/service"
	"github.com/vedran77/covoit/internal/transport/ws"
	"github.com/vedran77/covoit/pkg/logger"
)

const channelPrefix = "user."

func Channel(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

func Connect(addr string) (valkey.Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, errors.Wrap(err, "valkey.Connect")
	}
	return client, nil
}

// Publisher implements service.Publisher with PUBLISH.
type Publisher struct {
	client valkey.Client
}

func NewPublisher(client valkey.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, userID uuid.UUID, ev service.Event) error {
	evt, err := ws.NewEvent(ev.Type, ev.Payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	cmd := p.client.B().Publish().Channel(Channel(userID)).Message(valkey.BinaryString(data)).Build()
	if err := p.client.Do(ctx, cmd).Error(); err != nil {
		return errors.Wrap(err, "valkey.Publish")
	}
	return nil
}

// Sink receives forwarded events; *ws.Hub satisfies it.
type Sink interface {
	SendToUser(ctx context.Context, userID uuid.UUID, data []byte) error
}

// Relay forwards private-channel messages to the local hub.
type Relay struct {
	client valkey.Client
	sink   Sink
	log    *logger.Logger
}

func NewRelay(client valkey.Client, sink Sink, log *logger.Logger) *Relay {
	return &Relay{client: client, sink: sink, log: log}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (r *Relay) Run(ctx context.Context) error {
	cmd := r.client.B().Psubscribe().Pattern(channelPrefix + "*").Build()
	err := r.client.Receive(ctx, cmd, func(msg valkey.PubSubMessage) {
		userID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, channelPrefix))
		if err != nil {
			r.log.Warn("valkey relay: bad channel", "channel", msg.Channel)
			return
		}
		if err := r.sink.SendToUser(ctx, userID, []byte(msg.Message)); err != nil {
			r.log.Debug("valkey relay: deliver failed", "user_id", userID, "err", err)
		}
	})
	if err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "valkey.Relay")
	}
	return nil
}
