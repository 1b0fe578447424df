package routing

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/vietddude/armctl/internal/core/domain"
	"github.com/vietddude/armctl/internal/infra/rpc/provider"
)

// scriptedProvider replays a fixed list of results, repeating the last one.
type scriptedProvider struct {
	steps []func() (domain.Object, error)
	calls int
}

func (p *scriptedProvider) GetName() string { return "scripted" }
func (p *scriptedProvider) Close() error    { return nil }

func (p *scriptedProvider) Execute(ctx context.Context, op provider.Operation) (domain.Object, error) {
	i := p.calls
	if i >= len(p.steps) {
		i = len(p.steps) - 1
	}
	p.calls++
	return p.steps[i]()
}

func transient(reason provider.TransientReason, cause error) func() (domain.Object, error) {
	return func() (domain.Object, error) {
		return nil, &provider.TransientError{Reason: reason, Err: cause}
	}
}

func ok() (domain.Object, error) {
	return domain.Object{"ok": domain.Bool(true)}, nil
}

// recordSleep captures backoff waits without sleeping.
func recordSleep(delays *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

var noop = provider.Operation{Name: "init", Path: "/move/init"}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err    error
		expect ErrorAction
	}{
		{&provider.TransientError{Reason: provider.ReasonTimeout, Err: context.DeadlineExceeded}, ActionRetry},
		{&provider.TransientError{Reason: provider.ReasonReset, Err: syscall.ECONNRESET}, ActionRetry},
		{&domain.Error{Kind: domain.KindHTTP, StatusCode: 503}, ActionFatal},
		{&domain.Error{Kind: domain.KindHTTP, StatusCode: 404}, ActionFatal},
		{&domain.Error{Kind: domain.KindResponseDecode}, ActionFatal},
		{&domain.Error{Kind: domain.KindCancelled}, ActionFatal},
		{errors.New("connection reset by peer"), ActionFatal},
		{nil, ActionFatal},
	}

	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.expect {
			t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestBackoffSchedule(t *testing.T) {
	cfg := DefaultRetryConfig
	want := []time.Duration{
		250 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second,
		5 * time.Second,
	}
	for n, w := range want {
		if got := cfg.Backoff(n); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", n, got, w)
		}
	}
	if got := cfg.Backoff(500); got != DefaultMaxDelay {
		t.Errorf("Backoff(500) = %v, want cap", got)
	}
}

func TestExecute_ExhaustsAfterMaxRetries(t *testing.T) {
	p := &scriptedProvider{steps: []func() (domain.Object, error){
		transient(provider.ReasonTimeout, context.DeadlineExceeded),
	}}

	var delays []time.Duration
	exec := NewExecutor(RetryConfig{MaxRetries: 3}, WithSleep(recordSleep(&delays)))
	out, err := exec.Execute(context.Background(), p, noop)

	if p.calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", p.calls)
	}
	if out.Attempts != 4 {
		t.Errorf("outcome attempts = %d", out.Attempts)
	}

	e, isDomain := domain.AsError(err)
	if !isDomain || e.Kind != domain.KindTimeoutExhausted {
		t.Fatalf("expected TimeoutExhausted, got %v", err)
	}
	if e.Attempts != 4 {
		t.Errorf("error attempts = %d, want 4", e.Attempts)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("last transport error not wrapped")
	}

	want := []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestExecute_RecoversAfterResets(t *testing.T) {
	p := &scriptedProvider{steps: []func() (domain.Object, error){
		transient(provider.ReasonReset, syscall.ECONNRESET),
		transient(provider.ReasonReset, syscall.ECONNRESET),
		ok,
	}}

	var delays []time.Duration
	exec := NewExecutor(RetryConfig{MaxRetries: 3}, WithSleep(recordSleep(&delays)))
	out, err := exec.Execute(context.Background(), p, noop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Attempts != 3 || p.calls != 3 {
		t.Errorf("attempts = %d calls = %d, want 3", out.Attempts, p.calls)
	}
	if v, _ := out.Result["ok"].AsBool(); !v {
		t.Errorf("unexpected result %v", out.Result)
	}
	if len(delays) != 2 {
		t.Errorf("expected 2 backoff waits, got %v", delays)
	}
}

func TestExecute_NonTransientIsNotRetried(t *testing.T) {
	for _, kind := range []domain.ErrorKind{domain.KindHTTP, domain.KindResponseDecode} {
		p := &scriptedProvider{steps: []func() (domain.Object, error){
			func() (domain.Object, error) {
				return nil, &domain.Error{Kind: kind, StatusCode: 404}
			},
		}}

		var delays []time.Duration
		exec := NewExecutor(RetryConfig{MaxRetries: 5}, WithSleep(recordSleep(&delays)))
		out, err := exec.Execute(context.Background(), p, noop)

		if p.calls != 1 || out.Attempts != 1 {
			t.Errorf("%s: expected a single attempt, got %d", kind, p.calls)
		}
		if k, _ := domain.KindOf(err); k != kind {
			t.Errorf("%s: got error %v", kind, err)
		}
		if len(delays) != 0 {
			t.Errorf("%s: unexpected backoff %v", kind, delays)
		}
	}
}

func TestExecute_ZeroRetriesMeansOneAttempt(t *testing.T) {
	p := &scriptedProvider{steps: []func() (domain.Object, error){
		transient(provider.ReasonRefused, syscall.ECONNREFUSED),
	}}

	exec := NewExecutor(RetryConfig{MaxRetries: 0}, WithSleep(func(context.Context, time.Duration) error {
		t.Fatal("must not sleep with zero retries")
		return nil
	}))
	_, err := exec.Execute(context.Background(), p, noop)

	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
	e, _ := domain.AsError(err)
	if e == nil || e.Kind != domain.KindTimeoutExhausted || e.Attempts != 1 {
		t.Errorf("expected TimeoutExhausted after 1 attempt, got %v", err)
	}
}

func TestExecute_CancelledDuringBackoff(t *testing.T) {
	p := &scriptedProvider{steps: []func() (domain.Object, error){
		transient(provider.ReasonTimeout, context.DeadlineExceeded),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	exec := NewExecutor(RetryConfig{MaxRetries: 3}, WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}))
	_, err := exec.Execute(ctx, p, noop)

	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("expected Cancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("context error not wrapped")
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

func TestExecute_RealSleepHonoursContext(t *testing.T) {
	p := &scriptedProvider{steps: []func() (domain.Object, error){
		transient(provider.ReasonTimeout, context.DeadlineExceeded),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewExecutor(RetryConfig{MaxRetries: 3, BaseDelay: time.Minute}).Execute(ctx, p, noop)
	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("expected Cancelled, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("backoff did not stop on context deadline")
	}
}

func TestExecute_ObserverSeesStateMachine(t *testing.T) {
	p := &scriptedProvider{steps: []func() (domain.Object, error){
		transient(provider.ReasonReset, syscall.ECONNRESET),
		ok,
	}}

	var seen []Transition
	exec := NewExecutor(RetryConfig{MaxRetries: 2},
		WithSleep(recordSleep(new([]time.Duration))),
		WithObserver(func(tr Transition) { seen = append(seen, tr) }),
	)
	if _, err := exec.Execute(context.Background(), p, noop); err != nil {
		t.Fatal(err)
	}

	want := []struct{ from, to State }{
		{StateIdle, StateAttempting},
		{StateAttempting, StateBackoff},
		{StateBackoff, StateAttempting},
		{StateAttempting, StateSucceeded},
	}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %+v", seen)
	}
	for i, w := range want {
		if seen[i].From != w.from || seen[i].To != w.to {
			t.Errorf("transition %d = %s->%s, want %s->%s", i, seen[i].From, seen[i].To, w.from, w.to)
		}
	}
	if seen[1].Delay != DefaultBaseDelay {
		t.Errorf("backoff delay = %v", seen[1].Delay)
	}
	if !seen[3].To.Terminal() || seen[1].To.Terminal() {
		t.Error("terminal flags wrong")
	}
}

func TestExecute_JitterStaysInBand(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 1, Jitter: 0.2}
	for _, r := range []float64{0, 0.5, 0.999} {
		var delays []time.Duration
		p := &scriptedProvider{steps: []func() (domain.Object, error){
			transient(provider.ReasonTimeout, context.DeadlineExceeded),
			ok,
		}}
		rnd := r
		exec := NewExecutor(cfg, WithSleep(recordSleep(&delays)), WithRandom(func() float64 { return rnd }))
		if _, err := exec.Execute(context.Background(), p, noop); err != nil {
			t.Fatal(err)
		}

		lo := time.Duration(float64(DefaultBaseDelay) * 0.8)
		hi := time.Duration(float64(DefaultBaseDelay) * 1.2)
		if delays[0] < lo || delays[0] > hi {
			t.Errorf("random %v: delay %v outside [%v, %v]", r, delays[0], lo, hi)
		}
	}
}

func TestExecute_JitterIsClamped(t *testing.T) {
	for _, j := range []float64{0.9, -0.3} {
		exec := NewExecutor(RetryConfig{MaxRetries: 1, Jitter: j})
		got := exec.Config().Jitter
		if got < 0 || got > MaxJitter {
			t.Errorf("Jitter(%v) normalized to %v, want within [0, %v]", j, got, MaxJitter)
		}
	}

	// Extreme random draws still stay inside ±20 %.
	for _, r := range []float64{0, 0.999} {
		var delays []time.Duration
		p := &scriptedProvider{steps: []func() (domain.Object, error){
			transient(provider.ReasonTimeout, context.DeadlineExceeded),
			ok,
		}}
		rnd := r
		exec := NewExecutor(RetryConfig{MaxRetries: 1, Jitter: 0.9},
			WithSleep(recordSleep(&delays)), WithRandom(func() float64 { return rnd }))
		if _, err := exec.Execute(context.Background(), p, noop); err != nil {
			t.Fatal(err)
		}
		lo := time.Duration(float64(DefaultBaseDelay) * (1 - MaxJitter))
		hi := time.Duration(float64(DefaultBaseDelay) * (1 + MaxJitter))
		if delays[0] < lo || delays[0] > hi {
			t.Errorf("random %v: delay %v outside [%v, %v]", r, delays[0], lo, hi)
		}
	}
}

func TestExecute_ForeignErrorsBecomeHTTPErrors(t *testing.T) {
	p := &scriptedProvider{steps: []func() (domain.Object, error){
		func() (domain.Object, error) { return nil, errors.New("weird") },
	}}
	_, err := NewExecutor(DefaultRetryConfig).Execute(context.Background(), p, noop)

	e, isDomain := domain.AsError(err)
	if !isDomain || e.Kind != domain.KindHTTP || e.StatusCode != domain.StatusNoResponse {
		t.Fatalf("expected HttpError without status, got %v", err)
	}
}
