package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/internal/domain"
	"github.com/vedran77/covoit/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	EventMessageNew  = "message.new"
	EventMessageSeen = "message.seen"
)

// PublishConcurrency caps the publishes one dispatch runs at once.
const PublishConcurrency = 8

// Event is what lands on a user's private channel.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// SeenReceipt tells the sender that reader caught up on their messages.
type SeenReceipt struct {
	ReaderID      uuid.UUID `json:"reader_id"`
	CounterpartID uuid.UUID `json:"counterpart_id"`
	Count         int64     `json:"count"`
}

//go:generate mockgen -destination=mocks/mock_publisher.go -package=mocks github.com/vedran77/covoit/internal/service Publisher

// Publisher delivers an event to one user's private channel.
type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, event Event) error
}

// Notifier broadcasts real-time events to connected clients.
type Notifier interface {
	NotifyMessage(msg *domain.Message)
	NotifySeen(readerID, counterpartID uuid.UUID, count int64)
}

// DeliveryNotifier pushes events to every publisher in the background. Each
// delivery is attempted once under a timeout; failures are logged and dropped.
type DeliveryNotifier struct {
	publishers []Publisher
	timeout    time.Duration
	log        *logger.Logger
	wg         sync.WaitGroup
}

func NewDeliveryNotifier(log *logger.Logger, timeout time.Duration, publishers ...Publisher) *DeliveryNotifier {
	return &DeliveryNotifier{
		publishers: publishers,
		timeout:    timeout,
		log:        log,
	}
}

// NotifyMessage sends the message to both participants' channels.
func (n *DeliveryNotifier) NotifyMessage(msg *domain.Message) {
	ev := Event{Type: EventMessageNew, Payload: msg}
	n.dispatch(ev, msg.SenderID, msg.RecipientID)
}

// NotifySeen tells counterpart that reader has seen count of their messages.
func (n *DeliveryNotifier) NotifySeen(readerID, counterpartID uuid.UUID, count int64) {
	ev := Event{
		Type: EventMessageSeen,
		Payload: SeenReceipt{
			ReaderID:      readerID,
			CounterpartID: counterpartID,
			Count:         count,
		},
	}
	n.dispatch(ev, counterpartID)
}

// Wait blocks until in-flight deliveries finish. Used on shutdown and in tests.
func (n *DeliveryNotifier) Wait() {
	n.wg.Wait()
}

func (n *DeliveryNotifier) dispatch(ev Event, userIDs ...uuid.UUID) {
	if len(n.publishers) == 0 {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		// Detached from the request: the sender already has its response.
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		var g errgroup.Group
		g.SetLimit(PublishConcurrency)
		for _, userID := range userIDs {
			for _, p := range n.publishers {
				g.Go(func() error {
					if err := n.publish(ctx, p, userID, ev); err != nil {
						n.log.Warn("notify failed", "event", ev.Type, "user_id", userID, "err", err)
					}
					return nil
				})
			}
		}
		_ = g.Wait()
	}()
}

func (n *DeliveryNotifier) publish(ctx context.Context, p Publisher, userID uuid.UUID, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publisher panic: %v", r)
		}
	}()
	return p.Publish(ctx, userID, ev)
}
