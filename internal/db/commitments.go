package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/google/uuid"
)

// InsertCommitment stores c with a local- prefixed ID
func (db *DB) InsertCommitment(ctx context.Context, c model.Commitment) (model.Commitment, error) {
	if err := store.CheckStatus(c.Status); err != nil {
		return model.Commitment{}, err
	}
	if c.ID == "" {
		c.ID = model.LocalIDPrefix + uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = db.now()
	}
	c.CreatedAt = c.CreatedAt.UTC()

	_, err := db.ExecContext(ctx, `
		INSERT INTO commitments (id, alias, goal, duration_minutes, status, created_at, session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Alias, c.Goal, c.DurationMinutes, string(c.Status), formatTime(c.CreatedAt), nullString(c.SessionID))
	if err != nil {
		return model.Commitment{}, fmt.Errorf("failed to insert commitment: %w", err)
	}
	return c, nil
}

// ListCommitments returns commitments newest first
func (db *DB) ListCommitments(ctx context.Context, opts store.ListOptions) ([]model.Commitment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, alias, goal, duration_minutes, status, created_at, session_id
		FROM commitments
		ORDER BY created_at DESC
		LIMIT ?
	`, opts.EffectiveLimit())
	if err != nil {
		return nil, fmt.Errorf("failed to list commitments: %w", err)
	}
	defer rows.Close()

	out := []model.Commitment{}
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list commitments: %w", err)
	}
	return out, nil
}

// UpdateCommitmentStatus sets the status of an existing commitment
func (db *DB) UpdateCommitmentStatus(ctx context.Context, id string, status model.Status) (model.Commitment, error) {
	if err := store.CheckStatus(status); err != nil {
		return model.Commitment{}, err
	}

	res, err := db.ExecContext(ctx, `UPDATE commitments SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return model.Commitment{}, fmt.Errorf("failed to update commitment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Commitment{}, fmt.Errorf("commitment %s: %w", id, store.ErrNotFound)
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, alias, goal, duration_minutes, status, created_at, session_id
		FROM commitments WHERE id = ?
	`, id)
	c, err := scanCommitment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Commitment{}, fmt.Errorf("commitment %s: %w", id, store.ErrNotFound)
	}
	return c, err
}

// Subscribe returns a no-op subscription: the local store has no change feed
func (db *DB) Subscribe(ctx context.Context, h store.Handlers) (store.Subscription, error) {
	return store.NoopSubscription{}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCommitment(s scanner) (model.Commitment, error) {
	var (
		c         model.Commitment
		status    string
		createdAt string
		sessionID sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Alias, &c.Goal, &c.DurationMinutes, &status, &createdAt, &sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Commitment{}, err
		}
		return model.Commitment{}, fmt.Errorf("failed to scan commitment: %w", err)
	}
	c.Status = model.Status(status)
	t, err := parseTime(createdAt)
	if err != nil {
		return model.Commitment{}, fmt.Errorf("commitment %s: bad created_at: %w", c.ID, err)
	}
	c.CreatedAt = t
	if sessionID.Valid {
		c.SessionID = &sessionID.String
	}
	return c, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
