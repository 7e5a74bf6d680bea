package authprobe

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PostgresRoleStore reads roles from user_roles.
type PostgresRoleStore struct {
	db Querier
}

// NewPostgresRoleStore creates a role store.
func NewPostgresRoleStore(db Querier) *PostgresRoleStore {
	if db == nil {
		panic("authprobe: database required")
	}
	return &PostgresRoleStore{db: db}
}

// RoleForUser returns the user's role or ErrRoleNotFound.
func (s *PostgresRoleStore) RoleForUser(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.db.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrRoleNotFound
	}
	if err != nil {
		return "", fmt.Errorf("authprobe: role lookup: %w", err)
	}
	return role, nil
}
