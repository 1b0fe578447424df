package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/armctl/internal/core/domain"
	"github.com/vietddude/armctl/internal/infra/rpc/provider"
	"github.com/vietddude/armctl/internal/infra/rpc/routing"
	"github.com/vietddude/armctl/internal/metrics"
)

// Config holds everything needed to build a Client.
type Config struct {
	BaseURL string
	// Timeout bounds each attempt, not the whole retry sequence.
	Timeout time.Duration
	Retry   RetryConfig
	// Doer overrides the HTTP transport. Nil uses a pooled *http.Client.
	Doer   Doer
	Logger *slog.Logger

	// Sleep replaces the backoff wait. Nil sleeps for real.
	Sleep routing.SleepFunc
	// Observer additionally receives every retry state transition.
	Observer routing.Observer
}

// Result is a successful execution.
type Result struct {
	Object   domain.Object
	Attempts int
	Elapsed  time.Duration
}

// Client is the high-level interface for talking to the controller.
// It is safe for concurrent use, though callers normally serialise commands.
type Client struct {
	provider *provider.HTTPProvider
	executor *routing.Executor
	logger   *slog.Logger
	observer routing.Observer

	closeOnce sync.Once
}

// NewClient creates a new client. The base URL must be non-empty and the
// timeout positive.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, domain.NewConfigError("controller base URL is empty")
	}
	if cfg.Timeout <= 0 {
		return nil, domain.NewConfigError("timeout must be positive, got %v", cfg.Timeout)
	}
	if cfg.Retry.MaxRetries < 0 {
		return nil, domain.NewConfigError("max retries must be >= 0, got %d", cfg.Retry.MaxRetries)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		provider: provider.NewHTTPProvider("controller", cfg.BaseURL, cfg.Timeout, cfg.Doer),
		logger:   logger,
		observer: cfg.Observer,
	}

	opts := []routing.ExecutorOption{routing.WithObserver(c.observe)}
	if cfg.Sleep != nil {
		opts = append(opts, routing.WithSleep(cfg.Sleep))
	}
	c.executor = routing.NewExecutor(cfg.Retry, opts...)

	return c, nil
}

// Execute sends method path with an optional JSON body, retrying transient
// failures. Errors are always *domain.Error.
func (c *Client) Execute(ctx context.Context, method, path string, body any) (Result, error) {
	op := provider.Operation{
		Name:   operationName(path),
		Method: method,
		Path:   path,
		Body:   body,
	}

	out, err := c.executor.Execute(ctx, c.provider, op)
	metrics.CommandLatency.WithLabelValues(op.Name).Observe(out.Elapsed.Seconds())
	if err != nil {
		return Result{Attempts: out.Attempts, Elapsed: out.Elapsed}, err
	}

	return Result{Object: out.Result, Attempts: out.Attempts, Elapsed: out.Elapsed}, nil
}

// Post is Execute with method POST.
func (c *Client) Post(ctx context.Context, path string, body any) (Result, error) {
	return c.Execute(ctx, http.MethodPost, path, body)
}

// URL returns the absolute URL path resolves to.
func (c *Client) URL(path string) string {
	return c.provider.URL(path)
}

// RetryConfig returns the effective retry configuration.
func (c *Client) RetryConfig() RetryConfig {
	return c.executor.Config()
}

// Stats returns transport monitoring statistics.
func (c *Client) Stats() MonitorStats {
	return c.provider.Monitor.GetStats()
}

// Close releases idle connections. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.provider.Close()
	})
	return err
}

func (c *Client) observe(t routing.Transition) {
	switch t.To {
	case routing.StateAttempting:
		c.logger.Debug("Sending request", "operation", t.Operation, "attempt", t.Attempt+1)
	case routing.StateSucceeded:
		metrics.AttemptsTotal.WithLabelValues(t.Operation, "success").Inc()
		c.logger.Debug("Request succeeded", "operation", t.Operation, "attempts", t.Attempt+1)
	case routing.StateBackoff:
		reason := "unknown"
		var te *provider.TransientError
		if errors.As(t.Err, &te) {
			reason = string(te.Reason)
		}
		metrics.AttemptsTotal.WithLabelValues(t.Operation, "transient").Inc()
		metrics.RetriesTotal.WithLabelValues(t.Operation, reason).Inc()
		c.logger.Warn("Transient failure, retrying",
			"operation", t.Operation,
			"attempt", t.Attempt+1,
			"reason", reason,
			"delay", t.Delay,
			"error", t.Err,
		)
	case routing.StateExhausted:
		metrics.AttemptsTotal.WithLabelValues(t.Operation, "transient").Inc()
		c.logger.Error("Retries exhausted", "operation", t.Operation, "attempts", t.Attempt+1, "error", t.Err)
	case routing.StateFailed, routing.StateCancelled:
		metrics.AttemptsTotal.WithLabelValues(t.Operation, "failure").Inc()
		c.logger.Debug("Request failed", "operation", t.Operation, "state", t.To, "error", t.Err)
	}

	if c.observer != nil {
		c.observer(t)
	}
}

// operationName turns "/move/absolute" into "move_absolute" for labels.
func operationName(path string) string {
	name := strings.Trim(path, "/")
	if name == "" {
		return "root"
	}
	return strings.ReplaceAll(name, "/", "_")
}
