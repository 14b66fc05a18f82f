// Package api is the typed client for the Universe backend's REST surface.
// Authorization is enforced server-side; this client only attaches the
// session's bearer token and maps response statuses onto error kinds.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/universeapp/chatsync/internal/domain"
)

var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("not allowed")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrServer       = errors.New("server error")
)

// TokenSource supplies the current access token; empty means anonymous.
type TokenSource func() string

type Client struct {
	baseURL string
	token   TokenSource
	http    *http.Client
}

func NewClient(baseURL string, token TokenSource) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetTimeout overrides the default per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
		}
	}
	return nil
}

// statusError maps an error response onto a sentinel kind, keeping the
// backend's own message. The backend emits either {"error": ...} or DRF's
// {"detail": ...}.
func statusError(status int, body []byte) error {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(body, &payload)

	msg := payload.Error
	if msg == "" {
		msg = payload.Detail
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	var kind error
	switch {
	case status == http.StatusUnauthorized:
		kind = ErrUnauthorized
	case status == http.StatusForbidden:
		kind = ErrForbidden
	case status == http.StatusNotFound:
		kind = ErrNotFound
	case status < 500:
		kind = ErrInvalidInput
	default:
		kind = ErrServer
	}
	return fmt.Errorf("%w: %s", kind, msg)
}

// ConversationHistory loads the full message history for a conversation,
// whichever kind it is. Matches embed their history in the request record;
// groups expose a filtered message list.
func (c *Client) ConversationHistory(ctx context.Context, conv domain.Conversation) ([]domain.Message, error) {
	if conv.Kind == domain.KindGroup {
		return c.GroupMessages(ctx, conv.ID)
	}
	return c.MatchMessages(ctx, conv.ID)
}

// SendMessage persists a new message in the conversation and returns the
// server record with its assigned id and timestamp.
func (c *Client) SendMessage(ctx context.Context, conv domain.Conversation, content string) (*domain.Message, error) {
	if conv.Kind == domain.KindGroup {
		return c.SendGroupMessage(ctx, conv.ID, content)
	}
	return c.SendMatchMessage(ctx, conv.ID, content)
}

// GatingState reports whether the conversation's chat surface is reachable:
// an accepted match request or an accepted group membership.
func (c *Client) GatingState(ctx context.Context, conv domain.Conversation) (bool, error) {
	if conv.Kind == domain.KindGroup {
		m, err := c.Membership(ctx, conv.ID)
		if err != nil {
			return false, err
		}
		return m != nil && m.IsAccepted, nil
	}

	req, err := c.MatchRequest(ctx, conv.ID)
	if err != nil {
		return false, err
	}
	return req.Accepted(), nil
}
