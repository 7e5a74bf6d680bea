package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"github.com/wolfman30/coaching-booking-platform/internal/authprobe"
)

// Creates or updates a local user and assigns a role, for deployments that
// verify credentials against the users table instead of AUTH_URL.
func main() {
	_ = godotenv.Load()

	if len(os.Args) < 3 {
		fmt.Println("Usage: go run ./scripts/seed-admin <email> <password> [role]")
		os.Exit(1)
	}
	email := strings.ToLower(strings.TrimSpace(os.Args[1]))
	password := os.Args[2]
	role := authprobe.AdminRole
	if len(os.Args) >= 4 {
		role = strings.TrimSpace(os.Args[3])
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Println("Error: DATABASE_URL environment variable not set")
		os.Exit(1)
	}

	if err := seed(context.Background(), databaseURL, email, password, role); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s now has role %q\n", email, role)
}

func seed(ctx context.Context, databaseURL, email, password, role string) error {
	hash, err := authprobe.HashPassword(password)
	if err != nil {
		return err
	}

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		var userID string
		err := tx.QueryRow(ctx, `SELECT id::text FROM users WHERE lower(email) = $1`, email).Scan(&userID)
		switch {
		case err == pgx.ErrNoRows:
			err = tx.QueryRow(ctx,
				`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id::text`,
				email, hash,
			).Scan(&userID)
		case err == nil:
			_, err = tx.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, hash)
		}
		if err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role
		`, userID, role)
		if err != nil {
			return fmt.Errorf("assign role: %w", err)
		}
		return nil
	})
}
