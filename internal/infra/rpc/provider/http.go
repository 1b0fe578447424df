package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/armctl/internal/core/domain"
)

// messageKeys are tried in order when pulling a human readable reason out of
// an error response body.
var messageKeys = []string{"message", "error", "detail", "reason"}

// HTTPProvider implements Provider for a JSON over HTTP controller.
type HTTPProvider struct {
	name    string
	baseURL string
	timeout time.Duration
	doer    Doer

	// owned is set when the provider built its own client and must release it.
	owned *http.Client

	Monitor *ProviderMonitor
}

// NewHTTPProvider creates a provider for baseURL. Each attempt is bounded by
// timeout. A nil doer gets a pooled *http.Client.
func NewHTTPProvider(name, baseURL string, timeout time.Duration, doer Doer) *HTTPProvider {
	p := &HTTPProvider{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		doer:    doer,
		Monitor: NewProviderMonitor(),
	}
	if doer == nil {
		p.owned = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
		p.doer = p.owned
	}
	return p
}

// Execute performs a single attempt. Transient network failures come back as
// *TransientError; every other failure is a *domain.Error.
func (p *HTTPProvider) Execute(ctx context.Context, op Operation) (domain.Object, error) {
	start := time.Now()

	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := p.newRequest(attemptCtx, op)
	if err != nil {
		p.Monitor.RecordFailure(err)
		return nil, err
	}

	resp, err := p.doer.Do(req)
	if err != nil {
		return nil, p.transportFailure(ctx, start, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.transportFailure(ctx, start, fmt.Errorf("read response: %w", err))
	}

	p.Monitor.RecordResponse(resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.Error{
			Kind:       domain.KindHTTP,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("controller returned %d: %s", resp.StatusCode, errorMessage(resp.StatusCode, body)),
			Body:       domain.Excerpt(body),
		}
	}

	obj, err := domain.DecodeObject(body)
	if err != nil {
		return nil, &domain.Error{
			Kind:       domain.KindResponseDecode,
			StatusCode: resp.StatusCode,
			Message:    "controller response is not a JSON object",
			Body:       domain.Excerpt(body),
			Err:        err,
		}
	}

	return obj, nil
}

// URL returns the absolute URL for path.
func (p *HTTPProvider) URL(path string) string {
	return p.baseURL + "/" + strings.TrimLeft(path, "/")
}

// GetName returns the provider's name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// Close releases idle connections of a provider-owned client.
func (p *HTTPProvider) Close() error {
	if p.owned != nil {
		p.owned.CloseIdleConnections()
	}
	return nil
}

func (p *HTTPProvider) newRequest(ctx context.Context, op Operation) (*http.Request, error) {
	method := op.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if op.Body != nil {
		data, err := json.Marshal(op.Body)
		if err != nil {
			return nil, &domain.Error{
				Kind:    domain.KindInvalidInput,
				Message: fmt.Sprintf("encode %s request body", op.Name),
				Err:     err,
			}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.URL(op.Path), body)
	if err != nil {
		return nil, &domain.Error{
			Kind:    domain.KindConfiguration,
			Message: fmt.Sprintf("build %s request", op.Name),
			Err:     err,
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// transportFailure classifies an error raised before a full response was read.
// ctx is the caller's context, not the per-attempt one.
func (p *HTTPProvider) transportFailure(ctx context.Context, start time.Time, err error) error {
	p.Monitor.RecordFailure(err)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return &domain.Error{
			Kind:    domain.KindCancelled,
			Message: "request cancelled by caller",
			Err:     ctxErr,
		}
	}

	if reason, ok := classifyTransport(err); ok {
		return &TransientError{Reason: reason, Attempt: time.Since(start), Err: err}
	}

	return &domain.Error{
		Kind:       domain.KindHTTP,
		StatusCode: domain.StatusNoResponse,
		Message:    "no response from controller",
		Err:        err,
	}
}

// errorMessage extracts a reason from an error body: a well-known string key
// of a JSON object, else the trimmed body, else the status text.
func errorMessage(status int, body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range messageKeys {
			if s, ok := fields[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}

	if text := domain.Excerpt(body); text != "" {
		return text
	}

	if text := http.StatusText(status); text != "" {
		return text
	}
	return "unknown error"
}

