// Package control is the client facade for the arm controller: it owns the
// transport, validates every pose against the safety envelope before anything
// goes on the wire, and journals each command.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/armctl/internal/core/domain"
	"github.com/vietddude/armctl/internal/core/validator"
	"github.com/vietddude/armctl/internal/infra/rpc"
	"github.com/vietddude/armctl/internal/infra/rpc/routing"
	"github.com/vietddude/armctl/internal/infra/storage"
	"github.com/vietddude/armctl/internal/infra/storage/memory"
	"github.com/vietddude/armctl/internal/metrics"
)

const (
	// PathInit homes the arm.
	PathInit = "/move/init"
	// PathMoveAbsolute commands an absolute pose.
	PathMoveAbsolute = "/move/absolute"

	DefaultTimeout    = 5 * time.Second
	DefaultMaxRetries = 3

	journalWriteTimeout = 2 * time.Second
)

// Config holds everything a Session needs.
type Config struct {
	// BaseURL of the controller, e.g. http://192.168.1.20:80. Required.
	BaseURL string
	// Timeout bounds each HTTP attempt. Zero means DefaultTimeout.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Limits is the session envelope. Nil uses domain.DefaultLimits.
	Limits *domain.Limits
	// Retry tunes backoff. Its MaxRetries is ignored in favour of MaxRetries.
	Retry routing.RetryConfig

	Doer    rpc.Doer
	Journal storage.JournalRepository
	Logger  *slog.Logger

	// Sleep replaces backoff waits. Nil sleeps for real.
	Sleep routing.SleepFunc
}

// DefaultConfig returns a Config for baseURL with default timeout and retries.
// A bare Config{BaseURL: u} gets the default timeout but no retries.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		Retry:      routing.DefaultRetryConfig,
	}
}

func (c Config) validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return domain.NewConfigError("controller base URL is required (set --base-url, controller.base_url or PHOSPHOBOT_BASE_URL)")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.NewConfigError("controller base URL %q must be an absolute http or https URL", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return domain.NewConfigError("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return domain.NewConfigError("retries must be >= 0, got %d", c.MaxRetries)
	}
	return nil
}

// Session is a connection to one controller. Calls on a Session are
// serialised; at most one request sequence is in flight.
type Session struct {
	mu      sync.Mutex
	client  *rpc.Client
	limits  domain.Limits
	journal storage.JournalRepository
	logger  *slog.Logger
	closed  bool
}

// Open validates cfg and creates a Session. No request is sent.
func Open(cfg Config) (*Session, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limits := domain.DefaultLimits()
	if cfg.Limits != nil {
		limits = *cfg.Limits
	}

	retry := cfg.Retry
	retry.MaxRetries = cfg.MaxRetries

	client, err := rpc.NewClient(rpc.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Retry:   retry,
		Doer:    cfg.Doer,
		Logger:  logger,
		Sleep:   cfg.Sleep,
	})
	if err != nil {
		return nil, err
	}

	journal := cfg.Journal
	if journal == nil {
		journal = memory.NewJournalRepo(0)
	}

	logger.Debug("Session opened",
		"base_url", cfg.BaseURL,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries,
		"journal", journal.Driver(),
	)

	return &Session{
		client:  client,
		limits:  limits,
		journal: journal,
		logger:  logger,
	}, nil
}

// WithSession opens a Session, runs fn and closes the session on every exit
// path, panics included.
func WithSession(ctx context.Context, cfg Config, fn func(ctx context.Context, s *Session) error) (err error) {
	s, err := Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(ctx, s)
}

// Initialize asks the controller to move to its start position. Calling it
// before the first move is a convention, not a requirement.
func (s *Session) Initialize(ctx context.Context) (domain.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.send(ctx, domain.ActionInit, PathInit, nil, nil)
}

// MoveAbsolute validates pose against the session limits, or against
// override when non-nil, and sends it. A rejected pose never reaches the
// transport.
func (s *Session) MoveAbsolute(ctx context.Context, pose domain.Pose, override *domain.Limits) (domain.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	limits := domain.WithOverride(s.limits, override)
	valid, err := validator.Validate(pose, limits)
	if err != nil {
		s.reject(ctx, pose, err)
		return nil, err
	}

	return s.send(ctx, domain.ActionMove, PathMoveAbsolute, valid, &valid)
}

// History returns up to limit journal entries, newest first.
func (s *Session) History(ctx context.Context, limit int) ([]*domain.CommandRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	recs, err := s.journal.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("read %s journal: %w", s.journal.Driver(), err)
	}
	return recs, nil
}

// Limits returns the session envelope.
func (s *Session) Limits() domain.Limits {
	return s.limits
}

// Stats returns transport statistics.
func (s *Session) Stats() rpc.MonitorStats {
	return s.client.Stats()
}

// Close releases the transport and the journal. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return errors.Join(s.client.Close(), s.journal.Close())
}

func (s *Session) checkOpen() error {
	if s.closed {
		return domain.NewConfigError("session is closed")
	}
	return nil
}

func (s *Session) send(
	ctx context.Context,
	action domain.CommandAction,
	path string,
	body any,
	pose *domain.Pose,
) (domain.Object, error) {
	start := time.Now()
	rec := &domain.CommandRecord{
		ID:        uuid.NewString(),
		Action:    action,
		Pose:      pose,
		StartedAt: start.UTC(),
	}

	res, err := s.client.Post(ctx, path, body)
	rec.Attempts = res.Attempts
	rec.Duration = time.Since(start)
	s.finish(ctx, rec, err)

	if err != nil {
		return nil, err
	}
	return res.Object, nil
}

func (s *Session) reject(ctx context.Context, pose domain.Pose, err error) {
	if e, ok := domain.AsError(err); ok && e.Kind == domain.KindOutOfEnvelope {
		metrics.RejectedTotal.WithLabelValues(string(e.Field), e.Bound).Inc()
	}

	rec := &domain.CommandRecord{
		ID:        uuid.NewString(),
		Action:    domain.ActionMove,
		StartedAt: time.Now().UTC(),
	}
	// JSON cannot carry NaN or Inf; the error text names the bad field.
	if pose.Finite() {
		rec.Pose = &pose
	}
	s.finish(ctx, rec, err)
}

// finish fills in the outcome, updates metrics and writes the journal.
func (s *Session) finish(ctx context.Context, rec *domain.CommandRecord, err error) {
	rec.Outcome = domain.OutcomeOK
	if err != nil {
		rec.Outcome = "error"
		rec.Error = err.Error()
		if e, ok := domain.AsError(err); ok {
			rec.Outcome = string(e.Kind)
			rec.StatusCode = e.StatusCode
		}
	}

	metrics.CommandsTotal.WithLabelValues(string(rec.Action), rec.Outcome).Inc()
	if err == nil {
		metrics.LastCommandTimestamp.WithLabelValues(string(rec.Action)).SetToCurrentTime()
		s.logger.Info("Command succeeded",
			"action", rec.Action,
			"attempts", rec.Attempts,
			"duration", rec.Duration,
		)
	} else {
		s.logger.Debug("Command failed",
			"action", rec.Action,
			"outcome", rec.Outcome,
			"attempts", rec.Attempts,
			"error", err,
		)
	}

	// The command already happened; a cancelled caller must not lose the entry.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalWriteTimeout)
	defer cancel()
	if jerr := s.journal.Record(jctx, rec); jerr != nil {
		metrics.JournalErrorsTotal.WithLabelValues(s.journal.Driver()).Inc()
		s.logger.Warn("Failed to write command journal",
			"driver", s.journal.Driver(),
			"id", rec.ID,
			"error", jerr,
		)
	}
}
