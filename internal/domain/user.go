package domain

import (
	"encoding/json"
	"strings"
)

type User struct {
	ID             int64   `json:"id"`
	Username       string  `json:"username"`
	Email          string  `json:"email,omitempty"`
	FirstName      string  `json:"first_name,omitempty"`
	LastName       string  `json:"last_name,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

// DisplayName prefers the real name and falls back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Sender is a message author. The group message serializer emits a bare
// user id while the match serializer and the socket consumers emit a
// nested user object, so it decodes from either form.
type Sender struct {
	User
}

func (s *Sender) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if trimmed[0] != '{' {
		return json.Unmarshal(data, &s.ID)
	}
	return json.Unmarshal(data, &s.User)
}

func (s Sender) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.User)
}
