package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	pkgauth "github.com/Hayal27/chrm-server/pkg/auth"
)

// SeedAccount inserts an employee plus a linked user row and returns the
// account id. Usernames get a timestamp suffix so tests never collide.
func SeedAccount(ctx context.Context, pool *pgxpool.Pool, usernamePrefix, password string, roleID int) (string, string, error) {
	username := fmt.Sprintf("%s-%d", usernamePrefix, time.Now().UnixNano())
	email := username + "@example.com"

	var employeeID string
	err := pool.QueryRow(ctx, `
		INSERT INTO employees (full_name, email, department)
		VALUES ($1, $2, 'Human Resources')
		RETURNING id
	`, "Test Employee", email).Scan(&employeeID)
	if err != nil {
		return "", "", fmt.Errorf("failed to insert employee: %w", err)
	}

	var passwordHash *string
	if password != "" {
		hash, err := pkgauth.HashPassword(password)
		if err != nil {
			return "", "", err
		}
		passwordHash = &hash
	}

	var accountID string
	err = pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, role_id, employee_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, username, passwordHash, roleID, employeeID).Scan(&accountID)
	if err != nil {
		return "", "", fmt.Errorf("failed to insert user: %w", err)
	}

	return accountID, username, nil
}
