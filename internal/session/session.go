// Package session carries the authenticated identity through the client:
// one object holding the token pair and the resolved user, initialized at
// login and cleared at logout, handed to every component that needs
// identity instead of ad hoc token reads.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/universeapp/chatsync/internal/api"
	"github.com/universeapp/chatsync/internal/domain"
	"github.com/universeapp/chatsync/pkg/validator"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidInput     = errors.New("invalid login input")
)

type Session struct {
	mu      sync.RWMutex
	access  string
	refresh string
	user    domain.User
}

func New() *Session {
	return &Session{}
}

// AccessToken satisfies api.TokenSource and the channel's token func.
// Empty until Authenticate succeeds.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Session) User() domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access != ""
}

// Authenticate logs in and resolves the current user. The user id comes
// from the access token's user_id claim when present (the backend signed
// it; we only read it), falling back to the user-info endpoint.
func (s *Session) Authenticate(ctx context.Context, client *api.Client, username, password string) error {
	if errs := validator.ValidateLogin(username, password); errs.HasErrors() {
		return fmt.Errorf("%w: %v", ErrInvalidInput, errs)
	}

	pair, err := client.Login(ctx, api.LoginInput{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}

	s.mu.Lock()
	s.access = pair.Access
	s.refresh = pair.Refresh
	s.mu.Unlock()

	user, ok := userFromToken(pair.Access)
	if !ok {
		fetched, err := client.UserInfo(ctx)
		if err != nil {
			s.Logout()
			return fmt.Errorf("resolving current user: %w", err)
		}
		user = *fetched
	}
	if user.Username == "" {
		user.Username = username
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return nil
}

// Refresh trades the refresh token for a fresh access token.
func (s *Session) Refresh(ctx context.Context, client *api.Client) error {
	s.mu.RLock()
	refresh := s.refresh
	s.mu.RUnlock()
	if refresh == "" {
		return ErrNotAuthenticated
	}

	pair, err := client.RefreshToken(ctx, refresh)
	if err != nil {
		return fmt.Errorf("refreshing token: %w", err)
	}

	s.mu.Lock()
	s.access = pair.Access
	s.refresh = pair.Refresh
	s.mu.Unlock()
	return nil
}

// Logout clears the tokens and the resolved user.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	s.user = domain.User{}
}

// userFromToken reads the user_id and username claims without verifying
// the signature; the backend is the verifier, the client only needs the
// identity it already trusts the token with.
func userFromToken(token string) (domain.User, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return domain.User{}, false
	}

	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return domain.User{}, false
	}

	user := domain.User{ID: int64(id)}
	if username, ok := claims["username"].(string); ok {
		user.Username = username
	}
	return user, true
}
