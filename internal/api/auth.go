package api

import (
	"context"
	"net/http"

	"github.com/universeapp/chatsync/internal/domain"
)

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair is the simplejwt-style response from login and refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

func (c *Client) Login(ctx context.Context, input LoginInput) (*TokenPair, error) {
	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, "/api/auth/login/", input, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// RefreshToken trades the refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (*TokenPair, error) {
	in := map[string]string{"refresh": refresh}
	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, "/api/auth/token/refresh/", in, &pair); err != nil {
		return nil, err
	}
	if pair.Refresh == "" {
		pair.Refresh = refresh
	}
	return &pair, nil
}

func (c *Client) UserInfo(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/user-info/", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
