// Package health implements liveness and readiness probes for the HTTP
// server. Probes run on a shared background ticker; each one must fail a few
// times in a row before it flips unhealthy, so a single slow poll does not
// take the service out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// kind separates probes that gate traffic from probes that gate restarts.
type kind int

const (
	liveness kind = iota
	readiness
)

// Thresholds before a probe changes state. Failing must be consecutive;
// a single success flips it back.
const (
	defaultFailAfter = 3
	defaultPassAfter = 1
)

// probe is one registered check plus its streak-tracking state. The streak
// counters belong to the poll loop alone; ok and lastErr cross goroutines
// and are accessed atomically.
type probe struct {
	name    string
	kind    kind
	timeout time.Duration
	fn      CheckFunc

	ok      atomic.Bool
	lastErr atomic.Pointer[error]

	failStreak int
	passStreak int
}

func (p *probe) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(ctx)
	p.lastErr.Store(&err)

	if err != nil {
		p.passStreak = 0
		if p.failStreak++; p.failStreak >= defaultFailAfter {
			p.ok.Store(false)
		}
		return
	}
	p.failStreak = 0
	if p.passStreak++; p.passStreak >= defaultPassAfter {
		p.ok.Store(true)
	}
}

func (p *probe) failure() (string, bool) {
	if p.ok.Load() {
		return "", false
	}
	if e := p.lastErr.Load(); e != nil && *e != nil {
		return (*e).Error(), true
	}
	return "check is unhealthy", true
}

// Health is the probe registry and poller. Register everything before
// calling Start; registration is not safe concurrently with polling.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probe
	cancel context.CancelFunc
}

// New creates an empty registry. The service starts not-ready; call
// SetReady(true) once initialization is complete.
func New() *Health {
	return &Health{}
}

func (h *Health) add(k kind, name string, timeout time.Duration, fn CheckFunc) {
	p := &probe{name: name, kind: k, timeout: timeout, fn: fn}
	// Healthy until the first poll says otherwise.
	p.ok.Store(true)

	h.mu.Lock()
	h.probes = append(h.probes, p)
	h.mu.Unlock()
}

// AddLivenessCheck registers a probe that decides whether the process should
// be restarted, e.g. a goroutine-leak guard.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(liveness, name, timeout, fn)
}

// AddReadinessCheck registers a probe that decides whether the service may
// receive traffic, e.g. database connectivity or storage writability.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(readiness, name, timeout, fn)
}

// Start polls every registered probe on a shared interval until ctx is
// cancelled or Stop is called. Every probe is polled once immediately.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := make([]*probe, len(h.probes))
	copy(probes, h.probes)
	h.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for _, p := range probes {
			p.poll(ctx)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, p := range probes {
					p.poll(ctx)
				}
			}
		}
	}()
}

// Stop halts polling. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate: true after startup, false while
// draining during shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// is passing.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, p := range h.snapshot(readiness) {
		if _, failed := p.failure(); failed {
			return false
		}
	}
	return true
}

func (h *Health) snapshot(k kind) []*probe {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*probe
	for _, p := range h.probes {
		if p.kind == k {
			out = append(out, p)
		}
	}
	return out
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while every liveness probe passes, 503
// with per-probe failure details otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.respond(w, h.failures(liveness))
}

// ReadyEndpoint serves /readyz: 200 while the service is marked ready and
// every readiness probe passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.failures(readiness)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	h.respond(w, failures)
}

func (h *Health) failures(k kind) map[string]string {
	failures := make(map[string]string)
	for _, p := range h.snapshot(k) {
		if msg, failed := p.failure(); failed {
			failures[p.name] = msg
		}
	}
	return failures
}

func (h *Health) respond(w http.ResponseWriter, failures map[string]string) {
	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
