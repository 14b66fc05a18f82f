// Package presence tracks the transient "peer is typing" flag for one
// conversation. The signal carries no payload; the flag decays after a
// fixed quiet period unless another signal arrives first.
package presence

import (
	"context"
	"sync"
	"time"
)

const DefaultDecay = 2 * time.Second

// Broadcaster publishes local typing activity to the realtime channel.
type Broadcaster interface {
	PublishTyping(ctx context.Context)
}

type TypingPresence struct {
	decay time.Duration

	mu          sync.Mutex
	typing      bool
	timer       *time.Timer
	broadcaster Broadcaster
	lastEmit    time.Time
}

func New(decay time.Duration) *TypingPresence {
	if decay <= 0 {
		decay = DefaultDecay
	}
	return &TypingPresence{decay: decay}
}

// SetBroadcaster wires the realtime channel for local emission. Optional;
// without it EmitLocal is a no-op.
func (p *TypingPresence) SetBroadcaster(b Broadcaster) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcaster = b
}

// Signal marks the peer as typing and restarts the decay timer. A new
// signal before expiry restarts the timer rather than stacking a second
// one.
func (p *TypingPresence) Signal() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.typing = true
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.decay, p.expire)
}

func (p *TypingPresence) expire() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typing = false
	p.timer = nil
}

// Typing reports whether the peer signaled within the decay window.
func (p *TypingPresence) Typing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typing
}

// EmitLocal publishes a typing frame for local input activity, debounced
// to at most one frame per decay window. Callers may invoke it on every
// keystroke; the peer-visible indicator is unaffected since their flag
// restarts on each received frame anyway.
func (p *TypingPresence) EmitLocal(ctx context.Context) {
	p.mu.Lock()
	b := p.broadcaster
	now := time.Now()
	if b == nil || now.Sub(p.lastEmit) < p.decay {
		p.mu.Unlock()
		return
	}
	p.lastEmit = now
	p.mu.Unlock()

	b.PublishTyping(ctx)
}

// Stop cancels the pending decay timer. Called on conversation close so an
// abandoned view leaks no running timer.
func (p *TypingPresence) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.typing = false
}
