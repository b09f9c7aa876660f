package domain

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Message is a directed, append-only chat message. Seen is the only field
// that changes after creation, and only from false to true.
type Message struct {
	ID          uuid.UUID `json:"id"`
	SenderID    uuid.UUID `json:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Body        string    `json:"body"`
	SentAt      time.Time `json:"sent_at"`
	Seen        bool      `json:"seen"`
}

// Counterpart returns the other participant from owner's point of view.
func (m *Message) Counterpart(owner uuid.UUID) uuid.UUID {
	if m.SenderID == owner {
		return m.RecipientID
	}
	return m.SenderID
}

// Before reports whether m sorts before o in thread order (sent_at, then id).
func (m *Message) Before(o *Message) bool {
	if !m.SentAt.Equal(o.SentAt) {
		return m.SentAt.Before(o.SentAt)
	}
	return bytes.Compare(m.ID[:], o.ID[:]) < 0
}

// PairKey is the order independent identity of a conversation.
type PairKey struct {
	Low  uuid.UUID `json:"low"`
	High uuid.UUID `json:"high"`
}

func NewPairKey(a, b uuid.UUID) PairKey {
	if a.String() > b.String() {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

func (k PairKey) String() string {
	return k.Low.String() + ":" + k.High.String()
}

// Conversation is derived from the messages between two users; it is never stored.
type Conversation struct {
	Key          PairKey      `json:"key"`
	Participants [2]uuid.UUID `json:"participants"`
	LastMessage  *Message     `json:"last_message,omitempty"`
	// Created is true when the call that returned it materialized the conversation.
	Created bool `json:"created"`
}

// ConversationSummary is one row of a user's inbox.
type ConversationSummary struct {
	CounterpartID uuid.UUID `json:"counterpart_id"`
	LastMessage   Message   `json:"last_message"`
	UnreadCount   int64     `json:"unread_count"`
}
