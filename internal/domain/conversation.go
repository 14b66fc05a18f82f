package domain

import (
	"fmt"
	"time"
)

// ConversationKind distinguishes the two chat scopes the app has: a
// roommate match and a study group.
type ConversationKind string

const (
	KindMatch ConversationKind = "match"
	KindGroup ConversationKind = "group"
)

// Conversation addresses one chat scope.
type Conversation struct {
	Kind ConversationKind
	ID   int64
}

func (c Conversation) String() string {
	return fmt.Sprintf("%s_%d", c.Kind, c.ID)
}

// SocketPath is the per-conversation WebSocket endpoint on the backend.
func (c Conversation) SocketPath() string {
	if c.Kind == KindGroup {
		return fmt.Sprintf("/ws/study-group/%d/", c.ID)
	}
	return fmt.Sprintf("/ws/chat/match_%d/", c.ID)
}

// Match request lifecycle states.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// MatchRequest gates the roommate chat: messages are only allowed once it
// is accepted. The serializer embeds the full message history.
type MatchRequest struct {
	ID             int64     `json:"id"`
	Sender         int64     `json:"sender"`
	Receiver       int64     `json:"receiver"`
	SenderDetail   *User     `json:"sender_detail,omitempty"`
	ReceiverDetail *User     `json:"receiver_detail,omitempty"`
	Status         string    `json:"status"`
	Message        string    `json:"message,omitempty"`
	Messages       []Message `json:"messages,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (r MatchRequest) Accepted() bool {
	return r.Status == StatusAccepted
}

// MatchProfile is a potential roommate as the matching endpoint scores
// them, with the state of any request already exchanged ("none" when there
// is none yet).
type MatchProfile struct {
	User               User    `json:"user"`
	CompatibilityScore float64 `json:"compatibility_score"`
	MatchStatus        string  `json:"match_status"`
}

// GroupMembership gates the study-group chat.
type GroupMembership struct {
	ID          int64     `json:"id"`
	Group       int64     `json:"group"`
	User        int64     `json:"user"`
	IsAccepted  bool      `json:"is_accepted"`
	RequestedAt time.Time `json:"requested_at"`
}

type StudyGroup struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Course      string   `json:"course"`
	Description string   `json:"description,omitempty"`
	SubjectTags []string `json:"subject_tags,omitempty"`
	Creator     int64    `json:"creator"`
}
