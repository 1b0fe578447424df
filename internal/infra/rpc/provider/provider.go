// Package provider implements single-attempt transports to the arm controller.
//
// This package contains:
//   - Operation: one HTTP request against a controller endpoint
//   - HTTPProvider: JSON over HTTP implementation with failure classification
//   - TransientError: the only failure class worth retrying
//   - ProviderMonitor: latency and status tracking
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/vietddude/armctl/internal/core/domain"
)

// Operation is one request against the controller.
type Operation struct {
	// Name is used for logs and metric labels (e.g. "init", "move").
	Name string

	// Method is the HTTP method, POST when empty.
	Method string

	// Path is relative to the provider's base URL.
	Path string

	// Body is JSON-encoded when non-nil. Nil means no request body.
	Body any
}

// Doer sends a single HTTP request. *http.Client satisfies it; tests inject
// scripted transports.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider executes operations, one attempt per call.
type Provider interface {
	// GetName returns the provider identifier.
	GetName() string

	// Execute performs exactly one attempt of op.
	Execute(ctx context.Context, op Operation) (domain.Object, error)

	// Close releases idle connections.
	Close() error
}

// TransientReason says why an attempt failed in a way that may succeed on retry.
type TransientReason string

const (
	ReasonTimeout TransientReason = "timeout"
	ReasonRefused TransientReason = "connection_refused"
	ReasonReset   TransientReason = "connection_reset"
)

// TransientError is a network-level failure: refused, reset or timed out.
type TransientError struct {
	Reason  TransientReason
	Attempt time.Duration
	Err     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient %s after %v: %v", e.Reason, e.Attempt.Round(time.Millisecond), e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err carries a *TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// classifyTransport maps a transport error to a transient reason. ok is false
// for errors that a retry cannot fix (bad URL, TLS failures, DNS, ...).
func classifyTransport(err error) (TransientReason, bool) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout, true
	case errors.Is(err, syscall.ECONNREFUSED):
		return ReasonRefused, true
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return ReasonReset, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout, true
	}

	// Some transport errors only carry the cause as text, e.g. a pooled
	// keep-alive connection the server already closed.
	msg := err.Error()
	if strings.Contains(msg, "server closed idle connection") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "broken pipe") {
		return ReasonReset, true
	}

	return "", false
}
