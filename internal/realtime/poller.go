package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/universeapp/chatsync/internal/domain"
)

const DefaultPollInterval = 5 * time.Second

// FetchFunc loads the full message history for the conversation.
type FetchFunc func(ctx context.Context) ([]domain.Message, error)

// Poller refetches conversation history on a fixed interval and merges it
// into the sink through idempotent appends. Together with the dedup rules
// in the store this is the only resilience mechanism: when the socket
// drops, delivery silently degrades to poll-only.
type Poller struct {
	interval time.Duration
	fetch    FetchFunc
	sink     MessageSink
	logger   *slog.Logger
}

func NewPoller(interval time.Duration, fetch FetchFunc, sink MessageSink, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		interval: interval,
		fetch:    fetch,
		sink:     sink,
		logger:   logger,
	}
}

// Run polls until ctx is canceled. A failed fetch leaves the sink alone
// and is retried on the next tick.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msgs, err := p.fetch(ctx)
			if err != nil {
				if ctx.Err() == nil {
					p.logger.Debug("history poll failed", "error", err)
				}
				continue
			}
			for _, m := range msgs {
				p.sink.Append(m)
			}
		}
	}
}
