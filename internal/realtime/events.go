package realtime

import (
	"encoding/json"

	"github.com/universeapp/chatsync/internal/domain"
)

// Frame types understood by the backend consumers.
const (
	// Both directions.
	FrameChatMessage = "chat_message"
	// Server → client.
	FrameTypingIndicator = "typing_indicator"
	// Client → server. The server rebroadcasts it as typing_indicator.
	FrameTyping = "typing"
)

// Frame is the envelope for every socket message, discriminated by Type.
// Unknown types are ignored on receipt; the transport carries no sequence
// numbers and no acknowledgments.
type Frame struct {
	Type     string          `json:"type"`
	Message  json.RawMessage `json:"message,omitempty"`
	SenderID string          `json:"sender_id,omitempty"`
}

// NewMessageFrame wraps an already persisted message for fan-out to the
// other connected participants.
func NewMessageFrame(msg domain.Message) (*Frame, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Type:    FrameChatMessage,
		Message: data,
	}, nil
}

// NewTypingFrame announces local typing activity. It carries no payload.
func NewTypingFrame() *Frame {
	return &Frame{Type: FrameTyping}
}
