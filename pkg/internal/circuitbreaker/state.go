package circuitbreaker

import (
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// Allow reports whether a call may proceed. An open breaker whose window has
// elapsed closes itself first.
func (cb *CircuitBreaker) Allow() bool {
	cb.stateLock.Lock()
	now := cb.now()
	allowed := cb.allowed
	shouldReset := false
	if !allowed && (cb.timeWindow <= 0 || now.Sub(cb.lastTripped) >= cb.timeWindow) {
		cb.allowed = true
		cb.errorCount = 0
		allowed = true
		shouldReset = true
	}
	cb.stateLock.Unlock()

	if shouldReset {
		cb.signalReset()
		cb.NotifyLoggers(types.InfoLevel, "Circuit breaker reset", "component", cb.snapshotMetadata(), "event", "Reset", "auto", true)
	}
	return allowed
}

// RecordError records a failure and trips the breaker when the threshold is reached.
func (cb *CircuitBreaker) RecordError() {
	cb.stateLock.Lock()
	now := cb.now()
	if cb.debounce > 0 && !cb.lastErrorTime.IsZero() && now.Sub(cb.lastErrorTime) < cb.debounce {
		cb.stateLock.Unlock()
		return
	}
	cb.lastErrorTime = now
	cb.errorCount++
	errorCount := cb.errorCount
	shouldTrip := cb.allowed && errorCount >= cb.errorThreshold
	if shouldTrip {
		cb.allowed = false
		cb.lastTripped = now
	}
	nextReset := now.Add(cb.timeWindow)
	cb.stateLock.Unlock()

	metadata := cb.snapshotMetadata()
	cb.NotifyLoggers(types.DebugLevel, "Circuit breaker recorded error", "component", metadata, "errorCount", errorCount, "errorThreshold", cb.errorThreshold)
	if shouldTrip {
		cb.NotifyLoggers(types.WarnLevel, "Circuit breaker tripped", "component", metadata, "event", "Trip", "errorThreshold", cb.errorThreshold, "nextReset", nextReset)
	}
}

// RecordSuccess clears the error count of a closed breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.stateLock.Lock()
	if cb.allowed {
		cb.errorCount = 0
	}
	cb.stateLock.Unlock()
}

// Reset moves the breaker back to the closed state.
func (cb *CircuitBreaker) Reset() {
	cb.stateLock.Lock()
	if cb.allowed {
		cb.stateLock.Unlock()
		return
	}
	cb.allowed = true
	cb.errorCount = 0
	cb.stateLock.Unlock()

	cb.signalReset()
	cb.NotifyLoggers(types.InfoLevel, "Circuit breaker reset", "component", cb.snapshotMetadata(), "event", "Reset", "auto", false)
}

// Trip forces the breaker into the open state.
func (cb *CircuitBreaker) Trip() {
	cb.stateLock.Lock()
	if !cb.allowed {
		cb.stateLock.Unlock()
		return
	}
	now := cb.now()
	cb.allowed = false
	cb.lastTripped = now
	nextReset := now.Add(cb.timeWindow)
	cb.stateLock.Unlock()

	cb.NotifyLoggers(types.WarnLevel, "Circuit breaker tripped", "component", cb.snapshotMetadata(), "event", "Trip", "forced", true, "nextReset", nextReset)
}
