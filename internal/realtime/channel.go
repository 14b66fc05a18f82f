// Package realtime owns the live leg of a conversation: one WebSocket
// connection dialed once the conversation is chat-eligible, decoding
// inbound frames and routing them to the store and the typing tracker.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/universeapp/chatsync/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

var ErrAlreadyOpen = errors.New("channel already opened")

// State is the channel lifecycle. There is no automatic reconnection: any
// transport error lands in StateClosed and stays there, and the periodic
// history poll remains the delivery path.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// MessageSink receives chat messages decoded from inbound frames.
type MessageSink interface {
	Append(domain.Message)
}

// TypingSink receives peer typing signals.
type TypingSink interface {
	Signal()
}

// Channel bridges one conversation to its socket endpoint. Auth travels as
// a ?token= query param since the browser WebSocket API cannot set
// headers, and the backend expects the same here.
type Channel struct {
	conv     domain.Conversation
	baseURL  string
	token    func() string
	messages MessageSink
	typing   TypingSink
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	conn   *websocket.Conn
	cancel context.CancelFunc
}

func NewChannel(wsBaseURL string, conv domain.Conversation, token func() string, messages MessageSink, typing TypingSink, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		conv:     conv,
		baseURL:  wsBaseURL,
		token:    token,
		messages: messages,
		typing:   typing,
		logger:   logger,
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open dials the conversation socket and starts the read loop. It may be
// called once per channel; a closed channel is not redialed.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateClosed || c.cancel != nil {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	c.state = StateConnecting
	readCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, c.dialURL(), nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		cancel()
		return fmt.Errorf("dialing %s: %w", c.conv, err)
	}
	conn.SetReadLimit(maxMessageSize)

	c.mu.Lock()
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()

	go c.readLoop(readCtx, conn)
	return nil
}

func (c *Channel) dialURL() string {
	url := c.baseURL + c.conv.SocketPath()
	if tok := c.token(); tok != "" {
		url += "?token=" + tok
	}
	return url
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.Close()

	for {
		var frame Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.logger.Debug("channel closed by peer", "conversation", c.conv.String())
			} else if ctx.Err() == nil {
				c.logger.Debug("channel read error", "conversation", c.conv.String(), "error", err)
			}
			return
		}
		c.handleFrame(&frame)
	}
}

func (c *Channel) handleFrame(frame *Frame) {
	switch frame.Type {
	case FrameChatMessage:
		var msg domain.Message
		if err := json.Unmarshal(frame.Message, &msg); err != nil {
			c.logger.Debug("dropping malformed chat_message frame", "conversation", c.conv.String(), "error", err)
			return
		}
		c.messages.Append(msg)
	case FrameTypingIndicator:
		c.typing.Signal()
	default:
		// Unknown frame types are ignored so newer backends keep working.
	}
}

// Publish fans a persisted message out over the socket so other connected
// participants see it without waiting for their poll cycle. Skipped
// silently when the channel is not open; persistence already guarantees
// eventual delivery through the history path.
func (c *Channel) Publish(ctx context.Context, msg domain.Message) {
	conn, open := c.current()
	if !open {
		return
	}
	frame, err := NewMessageFrame(msg)
	if err != nil {
		c.logger.Debug("encoding message frame", "error", err)
		return
	}
	c.write(ctx, conn, frame)
}

// PublishTyping announces local typing activity. Fire-and-forget.
func (c *Channel) PublishTyping(ctx context.Context) {
	conn, open := c.current()
	if !open {
		return
	}
	c.write(ctx, conn, NewTypingFrame())
}

func (c *Channel) write(ctx context.Context, conn *websocket.Conn, frame *Frame) {
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, frame); err != nil {
		c.logger.Debug("channel write error", "conversation", c.conv.String(), "error", err)
	}
}

func (c *Channel) current() (*websocket.Conn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn, c.state == StateOpen
}

// Close tears the connection down and stops the read loop. Idempotent;
// leaving a conversation view must always end up here so no connection
// outlives its view.
func (c *Channel) Close() {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.state = StateClosed
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}
