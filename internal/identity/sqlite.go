package identity

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/marqueeapp/marquee-server/internal/auth"
	"github.com/marqueeapp/marquee-server/internal/normalize"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteProvider stores credentials in a SQLite database.
type SQLiteProvider struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates a SQLite-backed credential provider at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &SQLiteProvider{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (p *SQLiteProvider) Close() error {
	return p.db.Close()
}

// CreateCredential stores a new credential with an argon2id password hash.
func (p *SQLiteProvider) CreateCredential(ctx context.Context, id, email, password string) (*Credential, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := formatTime(time.Now())
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO credentials (id, email, email_lower, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, email, normalize.Email(email), hash, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("insert credential: %w", err)
	}

	return &Credential{ID: id, Email: email}, nil
}

// DeleteCredential removes a credential. Missing rows are a no-op.
func (p *SQLiteProvider) DeleteCredential(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// UpdateDisplayName sets the display name on an existing credential.
func (p *SQLiteProvider) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE credentials SET display_name = ?, updated_at = ? WHERE id = ?`,
		displayName, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	if affected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// Verify checks an email and password pair. A missing credential and a
// wrong password both return ErrInvalidCredentials so callers cannot
// probe which emails exist.
func (p *SQLiteProvider) Verify(ctx context.Context, email, password string) (*Credential, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, display_name
		FROM credentials WHERE email_lower = ?`,
		normalize.Email(email),
	)

	var cred Credential
	var hash string
	if err := row.Scan(&cred.ID, &cred.Email, &hash, &cred.DisplayName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query credential: %w", err)
	}

	ok, err := auth.VerifyPassword(hash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return &cred, nil
}

// formatTime renders a timestamp for storage as RFC3339Nano text.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// isUniqueViolation detects SQLite unique constraint failures without
// depending on driver-specific error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
