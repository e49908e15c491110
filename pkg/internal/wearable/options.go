package wearable

import (
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/circuitbreaker"
	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// WithLogger attaches loggers.
func WithLogger(loggers ...types.Logger) types.Option[*Link] {
	return func(l *Link) {
		l.loggersLock.Lock()
		l.loggers = append(l.loggers, loggers...)
		l.loggersLock.Unlock()
	}
}

// WithComponentMetadata sets the link's name and id.
func WithComponentMetadata(name, id string) types.Option[*Link] {
	return func(l *Link) {
		l.componentMetadata.Name = name
		if id != "" {
			l.componentMetadata.ID = id
		}
	}
}

// WithCircuitBreaker replaces the default send breaker.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) types.Option[*Link] {
	return func(l *Link) { l.breaker = cb }
}

// WithMeter counts batches and drops on m.
func WithMeter(m *meter.Meter) types.Option[*Link] {
	return func(l *Link) { l.meter = m }
}

// WithSeriesQueue sets the capacity of the sensor batch queue.
func WithSeriesQueue(n int) types.Option[*Link] {
	return func(l *Link) {
		if n > 0 {
			l.seriesQueue = n
		}
	}
}

// WithPublishTimeout bounds each outbound send.
func WithPublishTimeout(d time.Duration) types.Option[*Link] {
	return func(l *Link) {
		if d > 0 {
			l.publishTimeout = d
		}
	}
}
