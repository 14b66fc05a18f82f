package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/universeapp/chatsync/internal/domain"
)

// RoommateMatches lists potential roommates scored for compatibility,
// highest first.
func (c *Client) RoommateMatches(ctx context.Context) ([]domain.MatchProfile, error) {
	var profiles []domain.MatchProfile
	if err := c.do(ctx, http.MethodGet, "/api/roommate-matches/", nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// RoommateMatch loads one potential roommate's profile by user id.
func (c *Client) RoommateMatch(ctx context.Context, userID int64) (*domain.MatchProfile, error) {
	var profile domain.MatchProfile
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/roommate-matches/%d/", userID), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// MatchRequests lists every match request the current user is part of,
// newest first.
func (c *Client) MatchRequests(ctx context.Context) ([]domain.MatchRequest, error) {
	var reqs []domain.MatchRequest
	if err := c.do(ctx, http.MethodGet, "/api/match-requests/", nil, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (c *Client) MatchRequest(ctx context.Context, id int64) (*domain.MatchRequest, error) {
	var req domain.MatchRequest
	path := fmt.Sprintf("/api/match-requests/%d/", id)
	if err := c.do(ctx, http.MethodGet, path, nil, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// SendMatchRequest opens a roommate match request with an intro note.
func (c *Client) SendMatchRequest(ctx context.Context, receiverID int64, message string) (*domain.MatchRequest, error) {
	in := struct {
		Receiver int64  `json:"receiver"`
		Message  string `json:"message"`
	}{Receiver: receiverID, Message: message}

	var req domain.MatchRequest
	if err := c.do(ctx, http.MethodPost, "/api/match-requests/", in, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *Client) AcceptMatchRequest(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/match-requests/%d/accept/", id), nil, nil)
}

func (c *Client) RejectMatchRequest(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/match-requests/%d/reject/", id), nil, nil)
}

// CancelMatchRequest withdraws a pending request the current user sent.
func (c *Client) CancelMatchRequest(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/match-requests/%d/", id), nil, nil)
}

// MatchMessages loads the chat history of a match. The serializer embeds
// the messages in the request record; there is no standalone filtered
// endpoint for them.
func (c *Client) MatchMessages(ctx context.Context, matchID int64) ([]domain.Message, error) {
	req, err := c.MatchRequest(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return req.Messages, nil
}

// SendMatchMessage persists a chat message on an accepted match. The
// backend rejects writes while the request is still pending.
func (c *Client) SendMatchMessage(ctx context.Context, matchID int64, content string) (*domain.Message, error) {
	in := struct {
		MatchRequest int64  `json:"match_request"`
		Content      string `json:"content"`
	}{MatchRequest: matchID, Content: content}

	var msg domain.Message
	if err := c.do(ctx, http.MethodPost, "/api/messages/", in, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
