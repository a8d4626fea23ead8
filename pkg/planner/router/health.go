package router

import (
	"sync"
	"time"
)

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

const (
	DefaultFailureThreshold = 3
	DefaultRecoveryTimeout  = 30 * time.Second
)

// health is the circuit breaker of one routed planner.
type health struct {
	mu sync.Mutex

	state circuitState

	failures    int
	lastFailure time.Time

	probing bool
}

// acquire reports whether a request may be sent. An open circuit turns
// half-open after the recovery timeout and then admits a single probe.
func (h *health) acquire(now time.Time, recovery time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case circuitOpen:
		if now.Sub(h.lastFailure) < recovery {
			return false
		}

		h.state = circuitHalfOpen
		fallthrough

	case circuitHalfOpen:
		if h.probing {
			return false
		}

		h.probing = true
		return true

	default:
		return true
	}
}

func (h *health) success() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state = circuitClosed
	h.failures = 0
	h.probing = false
}

// release ends a probe without judging the planner.
func (h *health) release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.probing = false
}

func (h *health) failure(now time.Time, threshold int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.failures++
	h.lastFailure = now
	h.probing = false

	if h.state == circuitHalfOpen || h.failures >= threshold {
		h.state = circuitOpen
	}
}

func (h *health) available(now time.Time, recovery time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case circuitOpen:
		return now.Sub(h.lastFailure) >= recovery

	case circuitHalfOpen:
		return !h.probing

	default:
		return true
	}
}
