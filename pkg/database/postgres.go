package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"bookmark-manager-backend/pkg/models"

	_ "github.com/lib/pq"
)

// PostgresStore is the PostgreSQL implementation of Store.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens a connection pool and verifies connectivity.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error or panic. Every multi-step mutation goes through here so
// partial writes are never observable.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return mapError(err)
	}
	if err = tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

// nullIfEmpty maps "" to SQL NULL for optional text columns.
func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// ================= Users =================

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.AuthProvider == "" {
		user.AuthProvider = models.ProviderEmail
	}
	if !models.ValidProvider(user.AuthProvider) {
		return fmt.Errorf("%w: unknown auth provider %q", ErrInvalid, user.AuthProvider)
	}
	user.Email = models.NormalizeEmail(user.Email)

	query := `
		INSERT INTO users (email, username, password_hash, auth_provider, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING id, is_active, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		user.Email, nullIfEmpty(user.Username), user.PasswordHash, string(user.AuthProvider)).
		Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", mapError(err))
	}
	return nil
}

const userColumns = `id, email, COALESCE(username, ''), COALESCE(password_hash, ''), auth_provider, is_active, last_login, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var provider string
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &provider,
		&u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	u.AuthProvider = models.AuthProvider(provider)
	return &u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		models.NormalizeEmail(email))
	return scanUser(row)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PostgresStore) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = NOW(), updated_at = NOW() WHERE id = $1`, id)
	return mapError(err)
}

// ================= Health =================

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
