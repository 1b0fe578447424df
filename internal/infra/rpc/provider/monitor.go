package provider

import (
	"sync"
	"time"
)

// ProviderStatus represents the health state of the controller as seen from
// this client.
type ProviderStatus int

const (
	StatusHealthy     ProviderStatus = iota // Responding normally
	StatusDegraded                          // Slow or returning errors
	StatusUnreachable                       // Recent attempts got no response at all
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// MonitorStats holds monitoring statistics for a provider.
type MonitorStats struct {
	Status          ProviderStatus
	AverageLatency  time.Duration
	Responses       int
	Failures        int
	StatusCounts    map[int]int
	ConsecutiveFail int
	LastError       string
	LastSuccessAt   time.Time
	LastFailureAt   time.Time
}

// ProviderMonitor tracks latency, response codes and transport failures.
type ProviderMonitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	statusCounts    map[int]int
	responses       int
	failures        int
	consecutiveFail int
	lastError       string
	lastSuccessAt   time.Time
	lastFailureAt   time.Time

	slowResponseThreshold time.Duration
	unreachableAfter      int
}

// NewProviderMonitor creates a new monitor with default settings.
func NewProviderMonitor() *ProviderMonitor {
	return &ProviderMonitor{
		recentLatencies:       make([]time.Duration, 0, 50),
		maxLatencyWindow:      50,
		statusCounts:          make(map[int]int),
		slowResponseThreshold: 2 * time.Second,
		unreachableAfter:      3,
	}
}

// RecordResponse records a received response, whatever its status.
func (pm *ProviderMonitor) RecordResponse(statusCode int, latency time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.recentLatencies = append(pm.recentLatencies, latency)
	if len(pm.recentLatencies) > pm.maxLatencyWindow {
		pm.recentLatencies = pm.recentLatencies[1:]
	}

	pm.responses++
	pm.statusCounts[statusCode]++
	pm.consecutiveFail = 0

	if statusCode >= 200 && statusCode <= 299 {
		pm.lastSuccessAt = time.Now()
	} else {
		pm.lastFailureAt = time.Now()
	}
}

// RecordFailure records an attempt that produced no response.
func (pm *ProviderMonitor) RecordFailure(err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.failures++
	pm.consecutiveFail++
	pm.lastFailureAt = time.Now()
	if err != nil {
		pm.lastError = err.Error()
	}
}

// CheckProviderStatus returns the current status of the provider.
func (pm *ProviderMonitor) CheckProviderStatus() ProviderStatus {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.statusLocked()
}

func (pm *ProviderMonitor) statusLocked() ProviderStatus {
	if pm.consecutiveFail >= pm.unreachableAfter {
		return StatusUnreachable
	}
	if pm.consecutiveFail > 0 {
		return StatusDegraded
	}
	if len(pm.recentLatencies) > 0 && pm.averageLocked() > pm.slowResponseThreshold {
		return StatusDegraded
	}
	return StatusHealthy
}

// GetAverageLatency returns the average latency of recent responses.
func (pm *ProviderMonitor) GetAverageLatency() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.averageLocked()
}

func (pm *ProviderMonitor) averageLocked() time.Duration {
	if len(pm.recentLatencies) == 0 {
		return 0
	}

	var total time.Duration
	for _, lat := range pm.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(pm.recentLatencies))
}

// GetStats returns current monitoring statistics.
func (pm *ProviderMonitor) GetStats() MonitorStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	counts := make(map[int]int, len(pm.statusCounts))
	for code, n := range pm.statusCounts {
		counts[code] = n
	}

	return MonitorStats{
		Status:          pm.statusLocked(),
		AverageLatency:  pm.averageLocked(),
		Responses:       pm.responses,
		Failures:        pm.failures,
		StatusCounts:    counts,
		ConsecutiveFail: pm.consecutiveFail,
		LastError:       pm.lastError,
		LastSuccessAt:   pm.lastSuccessAt,
		LastFailureAt:   pm.lastFailureAt,
	}
}
