package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// User is an admin-panel account.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	PasswordHash string     `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const userColumns = `id, email, name, role, password_hash, last_login_at, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u         User
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &lastLogin, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return &u, nil
}

// GetUserByEmail looks a user up case-insensitively.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*User, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = $1`, NormalizeEmail(email))
	return scanUser(row)
}

// GetUserByID returns the user with the given id.
func GetUserByID(ctx context.Context, db *sql.DB, id string) (*User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// CreateUser inserts a user with an already hashed password.
func CreateUser(ctx context.Context, db *sql.DB, email, name, role, passwordHash string) (*User, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		NormalizeEmail(email), strings.TrimSpace(name), role, passwordHash,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// ListUsers returns every user, newest first.
func ListUsers(ctx context.Context, db *sql.DB) ([]User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// DeleteUserByEmail removes a user. It returns ErrUserNotFound when nothing matched.
func DeleteUserByEmail(ctx context.Context, db *sql.DB, email string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM users WHERE LOWER(email) = $1`, NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword stores a new hash and invalidates every token issued so far.
func UpdatePassword(ctx context.Context, db *sql.DB, email, passwordHash string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $1, tokens_valid_after = DATE_TRUNC('second', NOW()), updated_at = NOW()
		WHERE LOWER(email) = $2`,
		passwordHash, NormalizeEmail(email),
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// TouchLastLogin records a successful login.
func TouchLastLogin(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

// Session is the user state checked on every authenticated request.
type Session struct {
	UserID           string
	Email            string
	Name             string
	Role             string
	Revoked          bool
	TokensValidAfter time.Time
}

// LoadSession reads the current user row together with the revocation state
// of a token id in one round trip.
func LoadSession(ctx context.Context, db *sql.DB, userID, jti string) (*Session, error) {
	var s Session
	err := db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.name, u.role,
		       EXISTS (SELECT 1 FROM revoked_tokens r WHERE r.jti = $2) AS revoked,
		       u.tokens_valid_after
		FROM users u
		WHERE u.id = $1`,
		userID, jti,
	).Scan(&s.UserID, &s.Email, &s.Name, &s.Role, &s.Revoked, &s.TokensValidAfter)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
