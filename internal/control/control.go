package control

import (
	"context"

	"github.com/vietddude/armctl/internal/core/domain"
)

// Commander is the command surface of a Session. Front-ends depend on it
// rather than on *Session.
type Commander interface {
	// Initialize moves the arm to its controller-defined start position
	Initialize(ctx context.Context) (domain.Object, error)

	// MoveAbsolute validates pose and sends it. A non-nil override replaces
	// the session limits for this call only.
	MoveAbsolute(ctx context.Context, pose domain.Pose, override *domain.Limits) (domain.Object, error)

	// Run executes a sequence step by step
	Run(ctx context.Context, seq *Sequence) ([]StepResult, error)

	// History returns the most recent journal entries, newest first
	History(ctx context.Context, limit int) ([]*domain.CommandRecord, error)

	// Limits returns the session envelope
	Limits() domain.Limits

	// Close releases the transport and the journal
	Close() error
}

var _ Commander = (*Session)(nil)
