// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ashureev/tententen/internal/domain"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Repository defines the interface for persisting wizard sessions.
type Repository interface {
	// GetSession retrieves a session by its key. It returns (nil, nil) when absent.
	GetSession(ctx context.Context, key string) (*domain.SessionState, error)

	// UpsertSession creates or replaces a session record.
	UpsertSession(ctx context.Context, s *domain.SessionState) error

	// DeleteSession removes a session record.
	DeleteSession(ctx context.Context, key string) error

	// GetExpiredSessions retrieves sessions not updated within ttl.
	GetExpiredSessions(ctx context.Context, ttl time.Duration) ([]*domain.SessionState, error)

	// CleanupExpiredSessions removes sessions not updated within ttl.
	CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// PurgeSessions removes every session. Called at startup.
	PurgeSessions(ctx context.Context) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// Options selects and configures a Repository implementation.
type Options struct {
	Driver string
	// Path is the SQLite database file.
	Path string
	// DSN is the PostgreSQL connection string.
	DSN string
}

// New opens the repository selected by opts.Driver.
func New(opts Options) (Repository, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		return NewSQLite(opts.Path)
	case DriverPostgres:
		return NewPostgres(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const sessionColumns = `session_key, user_id, session_id, page, decision,
		       values_json, reflection_json, insight, created_at, updated_at`

func scanSession(row rowScanner) (*domain.SessionState, error) {
	var (
		key, page               string
		valuesJSON, reflectJSON sql.NullString
		createdAt, updatedAt    int64
		s                       domain.SessionState
	)
	if err := row.Scan(
		&key, &s.UserID, &s.SessionID, &page, &s.Decision,
		&valuesJSON, &reflectJSON, &s.Insight, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	p, err := domain.ParsePage(page)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", key, err)
	}
	s.Page = p
	s.CreatedAt = time.Unix(createdAt, 0)
	s.UpdatedAt = time.Unix(updatedAt, 0)

	if valuesJSON.Valid {
		var v domain.Values
		if err := json.Unmarshal([]byte(valuesJSON.String), &v); err != nil {
			return nil, fmt.Errorf("decode values for %s: %w", key, err)
		}
		s.Values = &v
	}
	if reflectJSON.Valid {
		var r domain.Reflection
		if err := json.Unmarshal([]byte(reflectJSON.String), &r); err != nil {
			return nil, fmt.Errorf("decode reflection for %s: %w", key, err)
		}
		s.Reflection = &r
	}
	return &s, nil
}

// sessionArgs returns the column values for an upsert in sessionColumns order.
func sessionArgs(s *domain.SessionState) ([]any, error) {
	var valuesJSON, reflectJSON any
	if s.Values != nil {
		b, err := json.Marshal(s.Values)
		if err != nil {
			return nil, fmt.Errorf("encode values: %w", err)
		}
		valuesJSON = string(b)
	}
	if s.Reflection != nil {
		b, err := json.Marshal(s.Reflection)
		if err != nil {
			return nil, fmt.Errorf("encode reflection: %w", err)
		}
		reflectJSON = string(b)
	}

	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = updatedAt
	}

	return []any{
		s.Key(), s.UserID, s.SessionID, string(s.Page), s.Decision,
		valuesJSON, reflectJSON, s.Insight, createdAt.Unix(), updatedAt.Unix(),
	}, nil
}
