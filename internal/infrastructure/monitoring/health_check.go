package monitoring

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ProbeFunc checks one dependency. A nil error means the dependency is
// reachable.
type ProbeFunc func(ctx context.Context) error

type probe struct {
	fn       ProbeFunc
	interval time.Duration
	timeout  time.Duration
}

// HealthChecker runs named dependency probes for the readiness endpoint
// and keeps a record of which dependencies are currently failing.
type HealthChecker struct {
	mu       sync.RWMutex
	probes   map[string]probe
	degraded map[string]struct{}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		probes:   make(map[string]probe),
		degraded: make(map[string]struct{}),
	}
}

func (h *HealthChecker) AddCheck(name string, fn ProbeFunc, interval, timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = probe{fn: fn, interval: interval, timeout: timeout}
}

// CheckAll probes every dependency now and reports per-check results.
// The aggregate status is "unhealthy" if any probe fails.
func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	probes := make(map[string]probe, len(h.probes))
	for name, p := range h.probes {
		probes[name] = p
	}
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(probes)),
	}

	for name, p := range probes {
		err := h.runProbe(ctx, name, p)
		if err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = err.Error()
		} else {
			status.Checks[name] = "ok"
		}
	}
	return status
}

// Degraded returns the names of dependencies whose most recent probe
// failed, sorted for stable output.
func (h *HealthChecker) Degraded() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.degraded))
	for name := range h.degraded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartBackgroundChecks launches one goroutine per probe that re-checks
// the dependency on its interval until ctx is cancelled.
func (h *HealthChecker) StartBackgroundChecks(ctx context.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for name, p := range h.probes {
		go h.probeLoop(ctx, name, p)
	}
}

func (h *HealthChecker) probeLoop(ctx context.Context, name string, p probe) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = h.runProbe(ctx, name, p)
		}
	}
}

func (h *HealthChecker) runProbe(ctx context.Context, name string, p probe) error {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.fn(probeCtx)
	cancel()

	h.mu.Lock()
	if err != nil {
		h.degraded[name] = struct{}{}
	} else {
		delete(h.degraded, name)
	}
	h.mu.Unlock()
	return err
}
