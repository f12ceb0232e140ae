package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/lib/pq"
)

// Postgres codes the store maps to domain errors
const (
	pqUniqueViolation    = "23505"
	pqInvalidTextRepr    = "22P02"
	pqForeignKeyViolates = "23503"
)

// Postgres implements Records and Accounts on a PostgreSQL database
type Postgres struct {
	db *sql.DB
}

var (
	_ Records  = (*Postgres)(nil)
	_ Accounts = (*Postgres)(nil)
)

// OpenPostgres connects to dbURL and runs migrations
func OpenPostgres(dbURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	p := &Postgres{db: db}
	if err := p.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// Close closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Ping checks the connection
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Commitments

const commitmentColumns = `id, alias, goal, duration_minutes, status, created_at, session_id`

func scanCommitment(row interface{ Scan(...any) error }) (model.Commitment, error) {
	var (
		c         model.Commitment
		status    string
		sessionID sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Alias, &c.Goal, &c.DurationMinutes, &status, &c.CreatedAt, &sessionID); err != nil {
		return model.Commitment{}, err
	}
	c.Status = model.Status(status)
	c.CreatedAt = c.CreatedAt.UTC()
	if sessionID.Valid {
		c.SessionID = &sessionID.String
	}
	return c, nil
}

// InsertCommitment stores c. IDs are always assigned by the database.
func (p *Postgres) InsertCommitment(ctx context.Context, c model.Commitment) (model.Commitment, error) {
	if err := store.CheckStatus(c.Status); err != nil {
		return model.Commitment{}, err
	}

	row := p.db.QueryRowContext(ctx, `
		INSERT INTO commitments (alias, goal, duration_minutes, status, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		RETURNING `+commitmentColumns,
		c.Alias, c.Goal, c.DurationMinutes, string(c.Status), nullString(c.SessionID), nullTime(c.CreatedAt),
	)
	out, err := scanCommitment(row)
	if err != nil {
		return model.Commitment{}, fmt.Errorf("insert commitment: %w", err)
	}
	return out, nil
}

func (p *Postgres) ListCommitments(ctx context.Context, opts store.ListOptions) ([]model.Commitment, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+commitmentColumns+`
		FROM commitments
		ORDER BY created_at DESC
		LIMIT $1`, opts.EffectiveLimit())
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	defer rows.Close()

	out := []model.Commitment{}
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateCommitmentStatus(ctx context.Context, id string, status model.Status) (model.Commitment, error) {
	if err := store.CheckStatus(status); err != nil {
		return model.Commitment{}, err
	}

	row := p.db.QueryRowContext(ctx, `
		UPDATE commitments SET status = $1 WHERE id = $2
		RETURNING `+commitmentColumns, string(status), id)
	c, err := scanCommitment(row)
	switch {
	case errors.Is(err, sql.ErrNoRows), pqCode(err) == pqInvalidTextRepr:
		// a malformed UUID cannot name a row either
		return model.Commitment{}, fmt.Errorf("commitment %s: %w", id, store.ErrNotFound)
	case err != nil:
		return model.Commitment{}, fmt.Errorf("update commitment: %w", err)
	}
	return c, nil
}

// Sessions

const sessionColumns = `id, user_id, mode, goal, duration_minutes, started_at, ended_at, focus_rating, created_at`

func scanSession(row interface{ Scan(...any) error }) (model.Session, error) {
	var (
		s       model.Session
		userID  sql.NullString
		mode    string
		endedAt sql.NullTime
		rating  sql.NullInt64
	)
	if err := row.Scan(&s.ID, &userID, &mode, &s.Goal, &s.DurationMinutes, &s.StartedAt, &endedAt, &rating, &s.CreatedAt); err != nil {
		return model.Session{}, err
	}
	s.Mode = model.Mode(mode)
	s.StartedAt = s.StartedAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	if userID.Valid {
		s.UserID = &userID.String
	}
	if endedAt.Valid {
		t := endedAt.Time.UTC()
		s.EndedAt = &t
	}
	if rating.Valid {
		r := int(rating.Int64)
		s.FocusRating = &r
	}
	return s, nil
}

func (p *Postgres) InsertSession(ctx context.Context, s model.Session) (model.Session, error) {
	var endedAt sql.NullTime
	if s.EndedAt != nil {
		endedAt = sql.NullTime{Time: *s.EndedAt, Valid: true}
	}
	var rating sql.NullInt64
	if s.FocusRating != nil {
		rating = sql.NullInt64{Int64: int64(*s.FocusRating), Valid: true}
	}

	row := p.db.QueryRowContext(ctx, `
		INSERT INTO sessions (user_id, mode, goal, duration_minutes, started_at, ended_at, focus_rating, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
		RETURNING `+sessionColumns,
		nullString(s.UserID), string(s.Mode), s.Goal, s.DurationMinutes, s.StartedAt, endedAt, rating, nullTime(s.CreatedAt),
	)
	out, err := scanSession(row)
	if err != nil {
		if code := pqCode(err); code == pqForeignKeyViolates || code == pqInvalidTextRepr {
			return model.Session{}, store.ErrUnauthorized
		}
		return model.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return out, nil
}

func (p *Postgres) ListSessions(ctx context.Context, opts store.ListOptions) ([]model.Session, error) {
	if opts.UserID == "" {
		return nil, store.ErrUnauthorized
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, opts.UserID, opts.EffectiveLimit())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := []model.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Accounts

const userColumns = `id, email, display_name, avatar_color, COALESCE(password_hash, ''), created_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarColor, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (p *Postgres) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	var hash sql.NullString
	if u.PasswordHash != "" {
		hash = sql.NullString{String: u.PasswordHash, Valid: true}
	}
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO users (email, display_name, avatar_color, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		u.Email, u.DisplayName, u.AvatarColor, hash)
	out, err := scanUser(row)
	if pqCode(err) == pqUniqueViolation {
		return model.User{}, fmt.Errorf("user %s: %w", u.Email, ErrConflict)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return out, nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %s: %w", email, store.ErrNotFound)
	}
	return u, err
}

func (p *Postgres) UserByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) || pqCode(err) == pqInvalidTextRepr {
		return model.User{}, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	return u, err
}

func (p *Postgres) CreateToken(ctx context.Context, t model.AuthToken) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO auth_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)`,
		t.UserID, t.Token, t.ExpiresAt)
	return err
}

func (p *Postgres) Token(ctx context.Context, token string) (model.AuthToken, error) {
	var t model.AuthToken
	err := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, created_at FROM auth_tokens WHERE token = $1`, token,
	).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AuthToken{}, store.ErrNotFound
	}
	return t, err
}

func (p *Postgres) DeleteToken(ctx context.Context, token string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE token = $1`, token)
	return err
}

func (p *Postgres) CreateMagicLink(ctx context.Context, m model.MagicLink) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO magic_links (email, token, expires_at)
		VALUES ($1, $2, $3)`,
		m.Email, m.Token, m.ExpiresAt)
	return err
}

func (p *Postgres) ConsumeMagicLink(ctx context.Context, token string) (model.MagicLink, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.MagicLink{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var m model.MagicLink
	err = tx.QueryRowContext(ctx, `
		SELECT id, email, token, used, expires_at, created_at
		FROM magic_links WHERE token = $1 FOR UPDATE`, token,
	).Scan(&m.ID, &m.Email, &m.Token, &m.Used, &m.ExpiresAt, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MagicLink{}, store.ErrNotFound
	}
	if err != nil {
		return model.MagicLink{}, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE magic_links SET used = TRUE WHERE token = $1`, token); err != nil {
		return model.MagicLink{}, err
	}
	return m, tx.Commit()
}
