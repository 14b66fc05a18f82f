package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	charmlog "charm.land/log/v2"

	"github.com/universeapp/chatsync/internal/api"
	"github.com/universeapp/chatsync/internal/chat"
	"github.com/universeapp/chatsync/internal/config"
	"github.com/universeapp/chatsync/internal/domain"
	"github.com/universeapp/chatsync/internal/realtime"
	"github.com/universeapp/chatsync/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		matchID  = flag.Int64("match", 0, "roommate match conversation id")
		groupID  = flag.Int64("group", 0, "study group conversation id")
		username = flag.String("username", os.Getenv("UNIVERSE_USERNAME"), "login username")
		password = flag.String("password", os.Getenv("UNIVERSE_PASSWORD"), "login password")
	)
	flag.Parse()

	logger := slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
	}))

	conv, err := pickConversation(*matchID, *groupID)
	if err != nil {
		return err
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess := session.New()
	client := api.NewClient(cfg.APIBaseURL, sess.AccessToken)
	client.SetTimeout(cfg.RequestTimeout)

	if err := sess.Authenticate(ctx, client, *username, *password); err != nil {
		return err
	}
	logger.Info("logged in", "user", sess.User().DisplayName())

	chatSession := chat.NewSession(client, conv, func(messages realtime.MessageSink, typing realtime.TypingSink) chat.Transport {
		return realtime.NewChannel(cfg.WSBaseURL, conv, sess.AccessToken, messages, typing, logger)
	}, chat.Options{
		PollInterval: cfg.PollInterval,
		GateInterval: cfg.GateInterval,
		TypingDecay:  cfg.TypingDecay,
		Logger:       logger,
	})
	defer chatSession.Close()

	if err := chatSession.Start(ctx); err != nil {
		logger.Warn("history unavailable, will retry on poll", "error", err)
	}
	if chatSession.Ready() {
		logger.Info("chat open", "conversation", conv.String(), "channel", chatSession.ChannelState().String())
	} else {
		logger.Info("membership pending, chat opens once accepted", "conversation", conv.String())
	}

	go renderLoop(ctx, chatSession, sess.User().ID)

	return inputLoop(ctx, chatSession, logger)
}

func pickConversation(matchID, groupID int64) (domain.Conversation, error) {
	switch {
	case matchID > 0 && groupID > 0:
		return domain.Conversation{}, errors.New("pass either -match or -group, not both")
	case matchID > 0:
		return domain.Conversation{Kind: domain.KindMatch, ID: matchID}, nil
	case groupID > 0:
		return domain.Conversation{Kind: domain.KindGroup, ID: groupID}, nil
	default:
		return domain.Conversation{}, errors.New("pass -match <id> or -group <id>")
	}
}

// renderLoop prints messages as the store view grows and flags typing
// transitions. The store snapshot is cheap and side-effect free, so
// re-reading it every tick is fine.
func renderLoop(ctx context.Context, s *chat.Session, selfID int64) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	printed := make(map[string]bool)
	wasTyping := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, msg := range s.Messages() {
				if printed[msg.Key()] {
					continue
				}
				printed[msg.Key()] = true
				name := msg.Sender.DisplayName()
				if msg.Sender.ID == selfID {
					name = "you"
				}
				fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Format("15:04"), name, msg.Content)
			}
			if typing := s.PeerTyping(); typing != wasTyping {
				wasTyping = typing
				if typing {
					fmt.Println("… typing")
				}
			}
		}
	}
}

func inputLoop(ctx context.Context, s *chat.Session, logger *slog.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "/quit" {
			return nil
		}

		s.EmitTyping(ctx)
		if _, err := s.Send(ctx, line); err != nil {
			if errors.Is(err, chat.ErrInvalidMessage) {
				continue
			}
			// Input stays in the terminal history; the user can resend.
			logger.Warn("send failed", "error", err)
		}
	}
	return scanner.Err()
}
