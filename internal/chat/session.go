// Package chat composes the conversation store, realtime channel, typing
// presence and history poller behind a single per-conversation session,
// mirroring what the detail views wire together when a chat surface opens.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/universeapp/chatsync/internal/domain"
	"github.com/universeapp/chatsync/internal/presence"
	"github.com/universeapp/chatsync/internal/realtime"
	"github.com/universeapp/chatsync/internal/store"
	"github.com/universeapp/chatsync/pkg/validator"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrNotEligible    = errors.New("conversation is not chat-eligible")
	ErrAlreadyStarted = errors.New("session already started")
	ErrClosed         = errors.New("session closed")
)

// Backend is the REST surface a session needs. *api.Client implements it.
type Backend interface {
	ConversationHistory(ctx context.Context, conv domain.Conversation) ([]domain.Message, error)
	SendMessage(ctx context.Context, conv domain.Conversation, content string) (*domain.Message, error)
	GatingState(ctx context.Context, conv domain.Conversation) (bool, error)
}

// Transport is the realtime leg of the conversation. *realtime.Channel
// implements it.
type Transport interface {
	Open(ctx context.Context) error
	Publish(ctx context.Context, msg domain.Message)
	PublishTyping(ctx context.Context)
	State() realtime.State
	Close()
}

// TransportFunc builds the transport once the conversation turns
// chat-eligible, bound to the session's store and typing tracker.
type TransportFunc func(messages realtime.MessageSink, typing realtime.TypingSink) Transport

type Options struct {
	PollInterval time.Duration // history poll while open; default 5s
	GateInterval time.Duration // pending-state recheck; default 5s
	TypingDecay  time.Duration // typing flag quiet period; default 2s
	Logger       *slog.Logger
}

type Session struct {
	conv         domain.Conversation
	backend      Backend
	newTransport TransportFunc
	opts         Options
	logger       *slog.Logger

	store  *store.ConversationStore
	typing *presence.TypingPresence

	mu        sync.Mutex
	started   bool
	opened    bool
	closed    bool
	transport Transport
	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewSession(backend Backend, conv domain.Conversation, newTransport TransportFunc, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = realtime.DefaultPollInterval
	}
	if opts.GateInterval <= 0 {
		opts.GateInterval = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		conv:         conv,
		backend:      backend,
		newTransport: newTransport,
		opts:         opts,
		logger:       logger.With("conversation", conv.String()),
		store:        store.New(conv),
		typing:       presence.New(opts.TypingDecay),
	}
}

func (s *Session) Conversation() domain.Conversation {
	return s.conv
}

// Start checks chat eligibility and, once the conversation is accepted,
// loads history and opens the realtime channel, both exactly once. While
// the gating state is still pending nothing is fetched and no channel is
// constructed; a watcher rechecks the gate and opens on the transition.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.runCtx = runCtx
	s.cancel = cancel
	s.mu.Unlock()

	accepted, err := s.backend.GatingState(ctx, s.conv)
	if err != nil {
		return fmt.Errorf("checking chat eligibility: %w", err)
	}
	if accepted {
		return s.open(ctx)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go s.watchGate(runCtx)
	return nil
}

// watchGate rechecks a pending conversation until it turns accepted, then
// opens the session.
func (s *Session) watchGate(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.GateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			accepted, err := s.backend.GatingState(ctx, s.conv)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Debug("gate check failed", "error", err)
				}
				continue
			}
			if !accepted {
				continue
			}
			if err := s.open(ctx); err != nil {
				s.logger.Debug("history load failed on open, poller will retry", "error", err)
			}
			return
		}
	}
}

// open runs the accepted-transition work: construct the transport, dial it
// and load history concurrently, then start the poller. Guarded so it runs
// at most once per session.
func (s *Session) open(ctx context.Context) error {
	s.mu.Lock()
	if s.opened || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.opened = true
	transport := s.newTransport(s.store, s.typing)
	s.transport = transport
	runCtx := s.runCtx
	s.mu.Unlock()

	s.typing.SetBroadcaster(transport)

	var histErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := transport.Open(gctx); err != nil {
			// Transport failure degrades to poll-only, silently by
			// contract with the views.
			s.logger.Debug("realtime channel unavailable, poll-only", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		histErr = s.Reload(gctx)
		return nil
	})
	_ = g.Wait()

	poller := realtime.NewPoller(s.opts.PollInterval, func(ctx context.Context) ([]domain.Message, error) {
		return s.backend.ConversationHistory(ctx, s.conv)
	}, s.store, s.logger)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return histErr
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		poller.Run(runCtx)
	}()

	return histErr
}

// Reload refetches the history once. On failure the store keeps its prior
// contents and the error is reported to the caller.
func (s *Session) Reload(ctx context.Context) error {
	msgs, err := s.backend.ConversationHistory(ctx, s.conv)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	s.store.Replace(msgs)
	return nil
}

// Send persists the message, records the server's copy, and fans it out
// over the channel when open. On a persistence failure nothing is recorded
// and the caller keeps the input for retry; there is never an
// optimistic-only message left behind.
func (s *Session) Send(ctx context.Context, text string) (*domain.Message, error) {
	content := strings.TrimSpace(text)
	if errs := validator.ValidateMessage(content); errs.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMessage, errs["content"])
	}

	s.mu.Lock()
	opened, closed, transport := s.opened, s.closed, s.transport
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if !opened {
		return nil, ErrNotEligible
	}

	msg, err := s.backend.SendMessage(ctx, s.conv, content)
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}

	s.store.Append(*msg)
	transport.Publish(ctx, *msg)
	return msg, nil
}

// Messages is the ordered, de-duplicated view the UI renders from.
func (s *Session) Messages() []domain.Message {
	return s.store.Messages()
}

// PeerTyping reports the decaying typing flag.
func (s *Session) PeerTyping() bool {
	return s.typing.Typing()
}

// EmitTyping forwards local input activity to the channel, debounced.
func (s *Session) EmitTyping(ctx context.Context) {
	s.typing.EmitLocal(ctx)
}

// Ready reports whether the accepted transition already ran.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened && !s.closed
}

// ChannelState exposes the transport state, StateClosed before open.
func (s *Session) ChannelState() realtime.State {
	s.mu.Lock()
	transport := s.transport
	s.mu.Unlock()
	if transport == nil {
		return realtime.StateClosed
	}
	return transport.State()
}

// Close releases everything the session holds: the socket, the poller, the
// gate watcher and the typing decay timer. Idempotent. Leaving a
// conversation view without closing leaks a live connection and a running
// timer, so the views always defer this.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	transport := s.transport
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if transport != nil {
		transport.Close()
	}
	s.typing.Stop()
	s.wg.Wait()
}
