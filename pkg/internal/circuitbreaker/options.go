package circuitbreaker

import (
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// WithLogger attaches loggers to the breaker.
func WithLogger(logger ...types.Logger) types.Option[*CircuitBreaker] {
	return func(cb *CircuitBreaker) {
		cb.ConnectLogger(logger...)
	}
}

// WithComponentMetadata sets the breaker's name and id.
func WithComponentMetadata(name string, id string) types.Option[*CircuitBreaker] {
	return func(cb *CircuitBreaker) {
		cb.SetComponentMetadata(name, id)
	}
}

// WithDebounce ignores errors recorded within d of the previous one.
func WithDebounce(d time.Duration) types.Option[*CircuitBreaker] {
	return func(cb *CircuitBreaker) {
		cb.SetDebouncePeriod(d)
	}
}

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) types.Option[*CircuitBreaker] {
	return func(cb *CircuitBreaker) {
		if now != nil {
			cb.now = now
		}
	}
}
