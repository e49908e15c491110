package circuitbreaker

import (
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// ConnectLogger attaches loggers.
func (cb *CircuitBreaker) ConnectLogger(loggers ...types.Logger) {
	cb.configLock.Lock()
	cb.loggers = append(cb.loggers, loggers...)
	cb.configLock.Unlock()
}

// SetComponentMetadata updates the circuit breaker name and id.
func (cb *CircuitBreaker) SetComponentMetadata(name string, id string) {
	cb.configLock.Lock()
	cb.componentMetadata = types.ComponentMetadata{Name: name, ID: id, Type: cb.componentMetadata.Type}
	cb.configLock.Unlock()
}

// SetDebouncePeriod configures the minimum spacing between recorded errors.
func (cb *CircuitBreaker) SetDebouncePeriod(d time.Duration) {
	if d < 0 {
		d = 0
	}
	cb.stateLock.Lock()
	cb.debounce = d
	cb.stateLock.Unlock()
}
