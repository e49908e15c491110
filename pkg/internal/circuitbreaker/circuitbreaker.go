// Package circuitbreaker stops repeated calls to a failing dependency. After
// ErrorThreshold errors the breaker opens; it closes again once TimeWindow
// has elapsed since it tripped, or when Reset is called.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

// CircuitBreaker guards outbound sends.
type CircuitBreaker struct {
	componentMetadata types.ComponentMetadata
	loggers           []types.Logger
	configLock        sync.Mutex

	stateLock      sync.Mutex
	errorThreshold int
	timeWindow     time.Duration
	debounce       time.Duration
	errorCount     int
	allowed        bool
	lastTripped    time.Time
	lastErrorTime  time.Time
	now            func() time.Time

	resetNotifyChan chan struct{}
}

// NewCircuitBreaker trips after errorThreshold errors and auto-resets after timeWindow.
func NewCircuitBreaker(errorThreshold int, timeWindow time.Duration, options ...types.Option[*CircuitBreaker]) *CircuitBreaker {
	if errorThreshold <= 0 {
		errorThreshold = 1
	}
	cb := &CircuitBreaker{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "CIRCUIT_BREAKER",
		},
		errorThreshold:  errorThreshold,
		timeWindow:      timeWindow,
		allowed:         true,
		now:             time.Now,
		resetNotifyChan: make(chan struct{}, 1),
	}
	for _, option := range options {
		option(cb)
	}
	cb.NotifyLoggers(types.DebugLevel, "Circuit breaker created",
		"component", cb.snapshotMetadata(),
		"event", "Create",
		"errorThreshold", errorThreshold,
		"timeWindow", timeWindow,
	)
	return cb
}

// ResetNotify fires (coalesced) whenever the breaker closes again.
func (cb *CircuitBreaker) ResetNotify() <-chan struct{} {
	return cb.resetNotifyChan
}

// GetComponentMetadata returns the breaker's metadata.
func (cb *CircuitBreaker) GetComponentMetadata() types.ComponentMetadata {
	return cb.snapshotMetadata()
}

// ErrorCount returns the errors recorded since the last reset.
func (cb *CircuitBreaker) ErrorCount() int {
	cb.stateLock.Lock()
	defer cb.stateLock.Unlock()
	return cb.errorCount
}
