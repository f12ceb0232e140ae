package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/google/uuid"
)

// InsertSession stores s with a local- prefixed ID
func (db *DB) InsertSession(ctx context.Context, s model.Session) (model.Session, error) {
	if s.ID == "" {
		s.ID = model.LocalIDPrefix + uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = db.now()
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.StartedAt = s.StartedAt.UTC()

	var endedAt sql.NullString
	if s.EndedAt != nil {
		t := s.EndedAt.UTC()
		s.EndedAt = &t
		endedAt = sql.NullString{String: formatTime(t), Valid: true}
	}
	var rating sql.NullInt64
	if s.FocusRating != nil {
		rating = sql.NullInt64{Int64: int64(*s.FocusRating), Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, mode, goal, duration_minutes, started_at, ended_at, focus_rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, nullString(s.UserID), string(s.Mode), s.Goal, s.DurationMinutes,
		formatTime(s.StartedAt), endedAt, rating, formatTime(s.CreatedAt))
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to insert session: %w", err)
	}
	return s, nil
}

// ListSessions returns sessions newest first, filtered by owner when set
func (db *DB) ListSessions(ctx context.Context, opts store.ListOptions) ([]model.Session, error) {
	query := `
		SELECT id, user_id, mode, goal, duration_minutes, started_at, ended_at, focus_rating, created_at
		FROM sessions`
	args := []any{}
	if opts.UserID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, opts.UserID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, opts.EffectiveLimit())

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	out := []model.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return out, nil
}

func scanSession(s scanner) (model.Session, error) {
	var (
		sess                 model.Session
		userID, endedAt      sql.NullString
		mode                 string
		startedAt, createdAt string
		rating               sql.NullInt64
	)
	err := s.Scan(&sess.ID, &userID, &mode, &sess.Goal, &sess.DurationMinutes,
		&startedAt, &endedAt, &rating, &createdAt)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to scan session: %w", err)
	}

	sess.Mode = model.Mode(mode)
	if userID.Valid {
		sess.UserID = &userID.String
	}
	if rating.Valid {
		r := int(rating.Int64)
		sess.FocusRating = &r
	}
	if sess.StartedAt, err = parseTime(startedAt); err != nil {
		return model.Session{}, fmt.Errorf("session %s: bad started_at: %w", sess.ID, err)
	}
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Session{}, fmt.Errorf("session %s: bad created_at: %w", sess.ID, err)
	}
	if endedAt.Valid {
		var t time.Time
		if t, err = parseTime(endedAt.String); err != nil {
			return model.Session{}, fmt.Errorf("session %s: bad ended_at: %w", sess.ID, err)
		}
		sess.EndedAt = &t
	}
	return sess, nil
}
