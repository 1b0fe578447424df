// Package sim is an in-process stand-in for the arm controller HTTP service.
// It accepts the same endpoints, records what it receives and can be told to
// misbehave for the next few requests.
package sim

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vietddude/armctl/internal/core/domain"
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "armsim_requests_total",
		Help: "Total number of requests received by the simulated controller",
	},
	[]string{"path", "fault"},
)

// Controller is the simulated arm.
type Controller struct {
	mu       sync.Mutex
	faults   []Fault
	poses    []domain.Pose
	inits    int
	requests int

	logger *slog.Logger
}

// NewController creates a healthy simulated arm.
func NewController(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{logger: logger}
}

// FailNext makes the next n requests fail with f, after any faults already
// queued.
func (c *Controller) FailNext(n int, f Fault) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < n; i++ {
		c.faults = append(c.faults, f)
	}
}

// Poses returns every pose accepted so far.
func (c *Controller) Poses() []domain.Pose {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Pose, len(c.poses))
	copy(out, c.poses)
	return out
}

// Inits returns how many init requests were answered.
func (c *Controller) Inits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inits
}

// Requests returns how many requests arrived, faulted ones included.
func (c *Controller) Requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests
}

// Handler returns the HTTP routes of the controller.
func (c *Controller) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(c.injectFaults)

	r.Post("/move/init", c.handleInit)
	r.Post("/move/absolute", c.handleMoveAbsolute)
	r.Get("/status", c.handleStatus)

	return r
}

func (c *Controller) nextFault() (Fault, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests++
	if len(c.faults) == 0 {
		return Fault{}, false
	}
	f := c.faults[0]
	c.faults = c.faults[1:]
	return f, true
}

func (c *Controller) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := c.nextFault()
		if !ok {
			requestsTotal.WithLabelValues(r.URL.Path, "none").Inc()
			next.ServeHTTP(w, r)
			return
		}

		requestsTotal.WithLabelValues(r.URL.Path, string(f.Kind)).Inc()
		c.logger.Debug("Injecting fault", "path", r.URL.Path, "fault", f.String())

		switch f.Kind {
		case FaultReset:
			resetConnection(w)
		case FaultStatus:
			writeJSON(w, f.Status, map[string]any{"detail": "injected failure"})
		case FaultGarbage:
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html>definitely not json</html>"))
		case FaultArray:
			writeJSON(w, http.StatusOK, []any{"not", "an", "object"})
		case FaultSlow:
			select {
			case <-r.Context().Done():
				return
			case <-time.After(f.Delay):
			}
			next.ServeHTTP(w, r)
		}
	})
}

func (c *Controller) handleInit(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.inits++
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (c *Controller) handleMoveAbsolute(w http.ResponseWriter, r *http.Request) {
	var partial domain.PartialPose
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&partial); err != nil {
		c.logger.Warn("Invalid move body", "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "invalid JSON body: " + err.Error()})
		return
	}

	pose, err := partial.Complete()
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": err.Error()})
		return
	}

	c.mu.Lock()
	c.poses = append(c.poses, pose)
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "pose": pose})
}

func (c *Controller) handleStatus(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	resp := map[string]any{
		"initialized": c.inits > 0,
		"moves":       len(c.poses),
		"requests":    c.requests,
	}
	if n := len(c.poses); n > 0 {
		resp["pose"] = c.poses[n-1]
	}
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// resetConnection closes the client connection with an RST, so the peer sees
// "connection reset" rather than a clean EOF.
func resetConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic(http.ErrAbortHandler)
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(http.ErrAbortHandler)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
	}
	_ = conn.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encode response failed", "error", err)
	}
}
