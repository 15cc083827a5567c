package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adsmirror/adsmirror/internal/core"
)

type userRow struct {
	ID           int64  `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    int64  `db:"created_at"`
}

func (r userRow) user() *core.User {
	return &core.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    time.Unix(r.CreatedAt, 0).UTC(),
	}
}

// CreateUser inserts a user; emails are unique case-insensitively.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*core.User, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	if email == "" || passwordHash == "" {
		return nil, errors.New("email and password hash are required")
	}

	row := userRow{Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC().Unix()}
	err = db.QueryRowxContext(ctx, `
		INSERT INTO users (email, password_hash, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`, row.Email, row.PasswordHash, row.CreatedAt).Scan(&row.ID)
	if err != nil {
		return nil, translate(err, "insert user")
	}
	return row.user(), nil
}

// GetUserByEmail looks up a user for login.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var row userRow
	if err := db.GetContext(ctx, &row, `
		SELECT id, email, password_hash, created_at FROM users WHERE email = ?
	`, normalizeEmail(email)); err != nil {
		return nil, translate(err, "fetch user")
	}
	return row.user(), nil
}

// GetUser looks up a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*core.User, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var row userRow
	if err := db.GetContext(ctx, &row, `
		SELECT id, email, password_hash, created_at FROM users WHERE id = ?
	`, id); err != nil {
		return nil, translate(err, "fetch user")
	}
	return row.user(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
