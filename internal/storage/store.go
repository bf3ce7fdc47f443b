// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/tallysplit/tally/internal/models"
)

// ErrNotFound is returned when a session does not exist. Implementations
// wrap it so callers can test with errors.Is.
var ErrNotFound = errors.New("session not found")

// Store defines the interface for session storage operations. This
// abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateSession persists a new session. The session ID and timestamps
	// are populated by the store if unset.
	CreateSession(ctx context.Context, session *models.Session) error

	// GetSession retrieves a session with its full receipt state.
	// Returns an error if the session is not found.
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)

	// UpdateSession replaces a session's receipt state wholesale.
	// Returns an error if the session is not found.
	UpdateSession(ctx context.Context, session *models.Session) error

	// DeleteSession removes a session and everything attached to it.
	DeleteSession(ctx context.Context, sessionID string) error

	// Close releases any resources held by the store.
	Close() error
}
