package storage

import (
	"context"
	"errors"

	"github.com/vietddude/armctl/internal/core/domain"
)

var (
	// ErrClosed is returned when a journal is used after Close
	ErrClosed = errors.New("journal closed")
)

// JournalRepository stores the history of commands sent to the controller.
// Writes are best effort from the caller's point of view: a failing journal
// never changes a command's outcome.
type JournalRepository interface {
	// Record appends a finished command
	Record(ctx context.Context, rec *domain.CommandRecord) error

	// Recent returns up to limit records, newest first
	Recent(ctx context.Context, limit int) ([]*domain.CommandRecord, error)

	// Driver names the backend, for logs and metrics
	Driver() string

	// Close releases the backend connection
	Close() error
}

// DefaultMaxEntries bounds journals that trim themselves.
const DefaultMaxEntries = 1000
