package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one chat utterance. The server assigns ID and Timestamp when
// the message is persisted; a locally created message carries a provisional
// client key until the backend confirms it.
type Message struct {
	ID        int64     `json:"id,omitempty"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read,omitempty"`

	// Group messages carry the group id, match messages the request id.
	Group        int64 `json:"group,omitempty"`
	MatchRequest int64 `json:"match_request,omitempty"`

	// ClientKey identifies the message before the backend assigns an id.
	// It never goes over the wire.
	ClientKey string `json:"-"`
}

// NewProvisional creates the local record for a message the user just
// typed, before the backend create has resolved.
func NewProvisional(sender User, content string) Message {
	return Message{
		Sender:    Sender{User: sender},
		Content:   strings.TrimSpace(content),
		Timestamp: time.Now(),
		ClientKey: uuid.NewString(),
	}
}

// Provisional reports whether the message still lacks a server identity.
func (m Message) Provisional() bool {
	return m.ID == 0
}

// Key is the deduplication identity: the server id once persisted, the
// client key before.
func (m Message) Key() string {
	if m.ID != 0 {
		return fmt.Sprintf("id:%d", m.ID)
	}
	return "client:" + m.ClientKey
}

// Before orders messages for display: by timestamp ascending, ties broken
// by server id.
func (m Message) Before(other Message) bool {
	if !m.Timestamp.Equal(other.Timestamp) {
		return m.Timestamp.Before(other.Timestamp)
	}
	return m.ID < other.ID
}
