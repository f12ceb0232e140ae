package model

import (
	"math/rand/v2"
	"strings"
	"time"
)

// LocalUser is the device-only identity used when no remote backend is configured
type LocalUser struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AvatarColor string    `json:"avatar_color"`
	CreatedAt   time.Time `json:"created_at"`
}

// AvatarColors is the palette for generated avatars
var AvatarColors = []string{"#22c55e", "#3b82f6", "#f59e0b", "#ec4899", "#8b5cf6", "#14b8a6"}

// DefaultAvatarColor is used when none is set
const DefaultAvatarColor = "#22c55e"

// RandomAvatarColor picks a palette color
func RandomAvatarColor() string {
	return AvatarColors[rand.IntN(len(AvatarColors))]
}

// DisplayNameFromEmail returns the local part of an email address
func DisplayNameFromEmail(email string) string {
	name, _, _ := strings.Cut(email, "@")
	if name == "" {
		return "User"
	}
	return name
}

// Identity is whoever is using the app, from either backend
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarColor string `json:"avatar_color"`
}

// User represents a server account
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	AvatarColor  string    `json:"avatar_color"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthToken represents an active login on the server
type AuthToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// MagicLink represents a passwordless login link
type MagicLink struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	Used      bool      `json:"used"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the token has expired
func (t *AuthToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsExpired returns true if the magic link has expired
func (m *MagicLink) IsExpired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}
