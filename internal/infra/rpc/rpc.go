// Package rpc provides a resilient HTTP client for the arm controller.
//
// This package offers:
//   - Single-attempt JSON over HTTP transport with failure classification
//   - Exponential backoff for transient network failures only
//   - Structured logging and Prometheus metrics for every attempt
//
// # Quick Start
//
//	import "github.com/vietddude/armctl/internal/infra/rpc"
//
//	client, err := rpc.NewClient(rpc.Config{
//	    BaseURL: "http://localhost:80",
//	    Timeout: 5 * time.Second,
//	    Retry:   rpc.DefaultRetryConfig,
//	})
//	defer client.Close()
//
//	result, err := client.Execute(ctx, http.MethodPost, "/move/init", nil)
//
// # Package Structure
//
//   - provider/ - HTTPProvider, transient error classification, monitoring
//   - routing/  - Retry state machine and backoff schedule
//
// The commonly used types are re-exported at the root level.
package rpc

import (
	"github.com/vietddude/armctl/internal/infra/rpc/provider"
	"github.com/vietddude/armctl/internal/infra/rpc/routing"
)

// Provider is the single-attempt transport interface.
type Provider = provider.Provider

// HTTPProvider implements Provider over HTTP.
type HTTPProvider = provider.HTTPProvider

// Doer sends one HTTP request.
type Doer = provider.Doer

// Operation is one request against the controller.
type Operation = provider.Operation

// TransientError marks a retryable network failure.
type TransientError = provider.TransientError

// MonitorStats holds monitoring statistics for a provider.
type MonitorStats = provider.MonitorStats

// RetryConfig defines retry behavior.
type RetryConfig = routing.RetryConfig

// Transition is a retry state change reported to observers.
type Transition = routing.Transition

// DefaultRetryConfig provides sensible retry defaults.
var DefaultRetryConfig = routing.DefaultRetryConfig

// DefaultBaseDelay is the first backoff wait.
const DefaultBaseDelay = routing.DefaultBaseDelay
