package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/universeapp/chatsync/internal/domain"
)

func (c *Client) StudyGroup(ctx context.Context, id int64) (*domain.StudyGroup, error) {
	var group domain.StudyGroup
	path := fmt.Sprintf("/api/study-groups/groups/%d/", id)
	if err := c.do(ctx, http.MethodGet, path, nil, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// Memberships lists the current user's group memberships, accepted or not.
func (c *Client) Memberships(ctx context.Context) ([]domain.GroupMembership, error) {
	var memberships []domain.GroupMembership
	if err := c.do(ctx, http.MethodGet, "/api/study-groups/memberships/", nil, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// Membership returns the current user's membership in one group, or nil
// when none exists. The backend only exposes the unfiltered list.
func (c *Client) Membership(ctx context.Context, groupID int64) (*domain.GroupMembership, error) {
	memberships, err := c.Memberships(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range memberships {
		if m.Group == groupID {
			return &m, nil
		}
	}
	return nil, nil
}

// RequestMembership asks to join a group. The membership starts pending
// until the group creator accepts it.
func (c *Client) RequestMembership(ctx context.Context, groupID int64) (*domain.GroupMembership, error) {
	in := map[string]int64{"group": groupID}
	var membership domain.GroupMembership
	if err := c.do(ctx, http.MethodPost, "/api/study-groups/memberships/", in, &membership); err != nil {
		return nil, err
	}
	return &membership, nil
}

func (c *Client) GroupMessages(ctx context.Context, groupID int64) ([]domain.Message, error) {
	var msgs []domain.Message
	path := fmt.Sprintf("/api/study-groups/messages/?group=%d", groupID)
	if err := c.do(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) SendGroupMessage(ctx context.Context, groupID int64, content string) (*domain.Message, error) {
	in := struct {
		Group   int64  `json:"group"`
		Content string `json:"content"`
	}{Group: groupID, Content: content}

	var msg domain.Message
	if err := c.do(ctx, http.MethodPost, "/api/study-groups/messages/", in, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
