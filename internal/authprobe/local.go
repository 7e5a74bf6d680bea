package authprobe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// Querier is the subset of pgx used by the Postgres-backed stores.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// dummyHash keeps unknown-user checks as slow as real ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// LocalAuthenticator verifies bcrypt hashes in the users table. It is used
// when no hosted auth service is configured and never creates sessions.
type LocalAuthenticator struct {
	db Querier
}

// NewLocalAuthenticator creates an authenticator over the users table.
func NewLocalAuthenticator(db Querier) *LocalAuthenticator {
	if db == nil {
		panic("authprobe: database required")
	}
	return &LocalAuthenticator{db: db}
}

func (a *LocalAuthenticator) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var id, storedEmail, hash string
	err := a.db.QueryRow(ctx, `
		SELECT id::text, email, password_hash
		FROM users
		WHERE lower(email) = lower($1)
	`, strings.TrimSpace(email)).Scan(&id, &storedEmail, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authprobe: load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &Session{UserID: id, Email: storedEmail}, nil
}

// SignOut is a no-op; local verification issues no session.
func (a *LocalAuthenticator) SignOut(context.Context, *Session) error { return nil }

// HashPassword returns a bcrypt hash suitable for the users table.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("authprobe: hash password: %w", err)
	}
	return string(hash), nil
}
