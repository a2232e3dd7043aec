package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"yieldboard/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

const uniqueViolation = "23505"

const usersTable = `
	CREATE TABLE IF NOT EXISTS dashboard_users (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		hashed_password BYTEA NOT NULL,
		last_login_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// UserStore keeps dashboard accounts next to the reporting tables.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// EnsureTable creates dashboard_users when missing.
func (s *UserStore) EnsureTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, usersTable); err != nil {
		return fmt.Errorf("failed to create dashboard_users table: %w", err)
	}
	return nil
}

// CreateUser inserts a user. A duplicate email yields ErrUserExists.
func (s *UserStore) CreateUser(ctx context.Context, email string, hashedPassword []byte) (*models.User, error) {
	user := &models.User{}
	query := `
		INSERT INTO dashboard_users (email, hashed_password)
		VALUES (lower($1), $2)
		RETURNING id, email, created_at;
	`
	err := s.db.QueryRowContext(ctx, query, email, hashedPassword).Scan(&user.ID, &user.Email, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.WithFields(log.Fields{"user_id": user.ID, "email": user.Email}).Info("Dashboard user created")
	return user, nil
}

// GetUserByEmail matches the email case-insensitively.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime
	query := `
		SELECT id, email, hashed_password, last_login_at, created_at
		FROM dashboard_users
		WHERE email = lower($1);
	`
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&lastLogin,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}
	return user, nil
}

// RecordLogin stamps the user's last successful login.
func (s *UserStore) RecordLogin(ctx context.Context, userID int, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE dashboard_users SET last_login_at = $2 WHERE id = $1`, userID, at)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %d", ErrUserNotFound, userID)
	}
	return nil
}
