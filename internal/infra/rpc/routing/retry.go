package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/vietddude/armctl/internal/core/domain"
	"github.com/vietddude/armctl/internal/infra/rpc/provider"
)

// DefaultBaseDelay is the wait before the first retry. Each further retry
// doubles it, up to DefaultMaxDelay.
const DefaultBaseDelay = 250 * time.Millisecond

// DefaultMaxDelay caps a single backoff wait.
const DefaultMaxDelay = 5 * time.Second

// MaxJitter bounds RetryConfig.Jitter.
const MaxJitter = 0.2

// RetryConfig defines retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	// 0 means a single attempt.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// Jitter spreads each delay uniformly over ±Jitter of its value.
	// 0 disables it; values are clamped to [0, MaxJitter].
	Jitter float64
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxRetries: 3,
	BaseDelay:  DefaultBaseDelay,
	MaxDelay:   DefaultMaxDelay,
	Multiplier: 2.0,
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = c.BaseDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2.0
	}
	c.Jitter = math.Max(0, math.Min(c.Jitter, MaxJitter))
	return c
}

// Backoff returns the wait after failed attempt n (0-based) and before
// attempt n+1, without jitter.
func (c RetryConfig) Backoff(n int) time.Duration {
	c = c.normalized()
	d := float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(n))
	if d >= float64(c.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

// ClassifyError determines the action for a given error. Only network-level
// transient failures are retried; a response of any kind is final.
func ClassifyError(err error) ErrorAction {
	if err != nil && provider.IsTransient(err) {
		return ActionRetry
	}
	return ActionFatal
}

// State is a step of the retry state machine.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateBackoff
	StateSucceeded
	StateFailed
	StateExhausted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateBackoff:
		return "backoff"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateExhausted:
		return "exhausted"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s != StateIdle && s != StateAttempting && s != StateBackoff
}

// Transition is reported to an Observer on every state change.
type Transition struct {
	Operation string
	From      State
	To        State
	// Attempt is the 0-based attempt the transition belongs to.
	Attempt int
	// Delay is set when entering StateBackoff.
	Delay time.Duration
	Err   error
}

// Observer receives state transitions. It runs synchronously on the calling
// goroutine and must not block.
type Observer func(Transition)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Outcome describes a finished retry sequence.
type Outcome struct {
	Result   domain.Object
	Attempts int
	Elapsed  time.Duration
}

// Executor runs an operation against a provider, retrying transient failures
// with exponential backoff.
type Executor struct {
	config   RetryConfig
	observer Observer
	sleep    SleepFunc
	random   func() float64
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithObserver registers an observer for state transitions.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// WithSleep replaces the backoff wait, mostly for tests.
func WithSleep(s SleepFunc) ExecutorOption {
	return func(e *Executor) { e.sleep = s }
}

// WithRandom replaces the jitter source. f must return values in [0, 1).
func WithRandom(f func() float64) ExecutorOption {
	return func(e *Executor) { e.random = f }
}

// NewExecutor creates an executor for config.
func NewExecutor(config RetryConfig, opts ...ExecutorOption) *Executor {
	e := &Executor{
		config: config.normalized(),
		sleep:  sleepContext,
		random: rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective retry configuration.
func (e *Executor) Config() RetryConfig {
	return e.config
}

// Execute runs op until it succeeds, fails with a non-transient error, runs
// out of retries, or ctx is done. Attempts are numbered 0..MaxRetries, so at
// most MaxRetries+1 requests are sent. Errors are always *domain.Error.
func (e *Executor) Execute(ctx context.Context, p provider.Provider, op provider.Operation) (Outcome, error) {
	start := time.Now()
	from := StateIdle

	for attempt := 0; ; attempt++ {
		e.emit(Transition{Operation: op.Name, From: from, To: StateAttempting, Attempt: attempt})

		result, err := p.Execute(ctx, op)
		out := Outcome{Attempts: attempt + 1}

		if err == nil {
			out.Result = result
			out.Elapsed = time.Since(start)
			e.emit(Transition{Operation: op.Name, From: StateAttempting, To: StateSucceeded, Attempt: attempt})
			return out, nil
		}

		if ClassifyError(err) == ActionFatal {
			out.Elapsed = time.Since(start)
			final := asDomainError(err)
			to := StateFailed
			if final.Kind == domain.KindCancelled {
				to = StateCancelled
			}
			e.emit(Transition{Operation: op.Name, From: StateAttempting, To: to, Attempt: attempt, Err: final})
			return out, final
		}

		if attempt >= e.config.MaxRetries {
			out.Elapsed = time.Since(start)
			exhausted := &domain.Error{
				Kind:     domain.KindTimeoutExhausted,
				Message:  fmt.Sprintf("%s gave up after %d attempts", opName(op), attempt+1),
				Attempts: attempt + 1,
				Err:      err,
			}
			e.emit(Transition{Operation: op.Name, From: StateAttempting, To: StateExhausted, Attempt: attempt, Err: exhausted})
			return out, exhausted
		}

		delay := e.delay(attempt)
		e.emit(Transition{Operation: op.Name, From: StateAttempting, To: StateBackoff, Attempt: attempt, Delay: delay, Err: err})

		if serr := e.sleep(ctx, delay); serr != nil {
			out.Elapsed = time.Since(start)
			cancelled := &domain.Error{
				Kind:     domain.KindCancelled,
				Message:  fmt.Sprintf("%s cancelled while waiting to retry", opName(op)),
				Attempts: attempt + 1,
				Err:      serr,
			}
			e.emit(Transition{Operation: op.Name, From: StateBackoff, To: StateCancelled, Attempt: attempt, Err: cancelled})
			return out, cancelled
		}
		from = StateBackoff
	}
}

// CallWithRetry executes op with exponential backoff using config.
func CallWithRetry(
	ctx context.Context,
	p provider.Provider,
	op provider.Operation,
	config RetryConfig,
) (domain.Object, error) {
	out, err := NewExecutor(config).Execute(ctx, p, op)
	return out.Result, err
}

func (e *Executor) delay(attempt int) time.Duration {
	d := e.config.Backoff(attempt)
	if e.config.Jitter == 0 {
		return d
	}
	spread := 1 + e.config.Jitter*(2*e.random()-1)
	return time.Duration(float64(d) * spread)
}

func (e *Executor) emit(t Transition) {
	if e.observer != nil {
		e.observer(t)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// asDomainError keeps the library boundary typed: a foreign error is treated
// as a transport failure with no response.
func asDomainError(err error) *domain.Error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return &domain.Error{
		Kind:       domain.KindHTTP,
		StatusCode: domain.StatusNoResponse,
		Message:    "request failed",
		Err:        err,
	}
}

func opName(op provider.Operation) string {
	if op.Name != "" {
		return op.Name
	}
	return op.Path
}
