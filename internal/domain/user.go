// Package domain contains entity without transport, just meta-data and the
// small pure rules every side agrees on.
package domain

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxUsernameLen  = 36
	DefaultUsername = "guest"
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type UserID string

type User struct {
	ID          UserID   `json:"id"`
	Username    string   `json:"username"`
	Position    Position `json:"position"`
	Orientation float64  `json:"orientation"`
	IsMuted     bool     `json:"isMuted"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
// The user is placed on the spawn point.
func NewUser(username string) (*User, error) {
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	id := UserID(uuid.NewString())
	return &User{ID: id, Username: username, Position: SpawnPoint}, nil
}

// SanitizeUsername falls back to the guest name and trims overlong input
// on a rune boundary, so create and join never fail on a bad name.
func SanitizeUsername(username string) string {
	if username == "" {
		return DefaultUsername
	}
	if len(username) <= MaxUsernameLen {
		return username
	}
	cut := MaxUsernameLen
	for cut > 0 && !utf8.RuneStart(username[cut]) {
		cut--
	}
	return username[:cut]
}
