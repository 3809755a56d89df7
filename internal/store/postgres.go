package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/tententen/internal/domain"
	_ "github.com/lib/pq"
)

// PostgresStore implements Repository using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres connects to PostgreSQL at dsn and ensures the schema exists.
func NewPostgres(dsn string) (Repository, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is required for the postgres driver")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS wizard_sessions (
		session_key TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		page TEXT NOT NULL,
		decision TEXT NOT NULL DEFAULT '',
		values_json TEXT,
		reflection_json TEXT,
		insight TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_wizard_sessions_updated ON wizard_sessions(updated_at);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSession retrieves a wizard session by key.
func (s *PostgresStore) GetSession(ctx context.Context, key string) (*domain.SessionState, error) {
	query := `SELECT ` + sessionColumns + ` FROM wizard_sessions WHERE session_key = $1`

	session, err := scanSession(s.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return session, nil
}

// UpsertSession creates or replaces a wizard session.
func (s *PostgresStore) UpsertSession(ctx context.Context, session *domain.SessionState) error {
	args, err := sessionArgs(session)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO wizard_sessions (` + sessionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (session_key) DO UPDATE SET
		page = EXCLUDED.page,
		decision = EXCLUDED.decision,
		values_json = EXCLUDED.values_json,
		reflection_json = EXCLUDED.reflection_json,
		insight = EXCLUDED.insight,
		updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// DeleteSession removes a wizard session.
func (s *PostgresStore) DeleteSession(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE session_key = $1`, key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// GetExpiredSessions retrieves sessions whose last update is older than ttl.
func (s *PostgresStore) GetExpiredSessions(ctx context.Context, ttl time.Duration) ([]*domain.SessionState, error) {
	threshold := time.Now().Add(-ttl).Unix()
	query := `SELECT ` + sessionColumns + ` FROM wizard_sessions WHERE updated_at < $1`

	rows, err := s.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close expired sessions rows", "error", closeErr)
		}
	}()

	var sessions []*domain.SessionState
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired sessions: %w", err)
	}

	return sessions, nil
}

// CleanupExpiredSessions removes sessions older than TTL.
func (s *PostgresStore) CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE updated_at < $1`, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// PurgeSessions removes all wizard sessions.
func (s *PostgresStore) PurgeSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM wizard_sessions`)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
