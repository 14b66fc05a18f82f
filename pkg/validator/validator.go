package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

const maxMessageLength = 2000

func ValidateLogin(username, password string) ValidationErrors {
	errs := make(ValidationErrors)

	username = strings.TrimSpace(username)
	if username == "" {
		errs.Add("username", "Username is required")
	} else if len(username) > 150 {
		errs.Add("username", "Username is too long")
	}

	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

func ValidateMessage(content string) ValidationErrors {
	errs := make(ValidationErrors)

	content = strings.TrimSpace(content)
	if content == "" {
		errs.Add("content", "Message content is required")
	} else if utf8.RuneCountInString(content) > maxMessageLength {
		errs.Add("content", fmt.Sprintf("Message must be at most %d characters", maxMessageLength))
	}

	return errs
}
