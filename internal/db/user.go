package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/existflow/lockin/internal/model"
	"github.com/google/uuid"
)

// ErrNoLocalUser is returned when nobody is signed in on this device
var ErrNoLocalUser = errors.New("no local user")

// CreateLocalUser signs email in on this device, replacing any previous user
func (db *DB) CreateLocalUser(ctx context.Context, email string) (model.LocalUser, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.LocalUser{}, &model.ValidationError{Fields: []string{"email (required)"}}
	}

	u := model.LocalUser{
		ID:          model.LocalIDPrefix + uuid.NewString(),
		Email:       email,
		DisplayName: model.DisplayNameFromEmail(email),
		AvatarColor: model.RandomAvatarColor(),
		CreatedAt:   db.now().UTC(),
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO local_user (slot, id, email, display_name, avatar_color, created_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			id = excluded.id,
			email = excluded.email,
			display_name = excluded.display_name,
			avatar_color = excluded.avatar_color,
			created_at = excluded.created_at
	`, u.ID, u.Email, u.DisplayName, u.AvatarColor, formatTime(u.CreatedAt))
	if err != nil {
		return model.LocalUser{}, fmt.Errorf("failed to save local user: %w", err)
	}
	return u, nil
}

// LocalUser returns the signed-in local user or ErrNoLocalUser
func (db *DB) LocalUser(ctx context.Context) (model.LocalUser, error) {
	var (
		u         model.LocalUser
		createdAt string
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, email, display_name, avatar_color, created_at FROM local_user WHERE slot = 1
	`).Scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarColor, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LocalUser{}, ErrNoLocalUser
	}
	if err != nil {
		return model.LocalUser{}, fmt.Errorf("failed to load local user: %w", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.LocalUser{}, fmt.Errorf("local user: bad created_at: %w", err)
	}
	if u.AvatarColor == "" {
		u.AvatarColor = model.DefaultAvatarColor
	}
	return u, nil
}

// SignOutLocalUser removes the local user. Records they created stay.
func (db *DB) SignOutLocalUser(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM local_user`); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}
