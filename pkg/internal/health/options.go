package health

import (
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// WithLogger attaches loggers.
func WithLogger(loggers ...types.Logger) types.Option[*Monitor] {
	return func(m *Monitor) {
		m.loggersLock.Lock()
		m.loggers = append(m.loggers, loggers...)
		m.loggersLock.Unlock()
	}
}

// WithInterval sets the tick period.
func WithInterval(d time.Duration) types.Option[*Monitor] {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithAckWindow bounds the wait for the wearable's ack. It is capped at the interval.
func WithAckWindow(d time.Duration) types.Option[*Monitor] {
	return func(m *Monitor) { m.ackWindow = d }
}

// WithMinEEGSamples requires n live records per tick before the headset counts as connected.
func WithMinEEGSamples(n int) types.Option[*Monitor] {
	return func(m *Monitor) {
		if n > 0 {
			m.minEEGSamples = int64(n)
		}
	}
}

// WithMeter counts ticks on mt.
func WithMeter(mt *meter.Meter) types.Option[*Monitor] {
	return func(m *Monitor) { m.meter = mt }
}

// WithClock replaces time.Now for CheckedAt stamps.
func WithClock(now func() time.Time) types.Option[*Monitor] {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// WithComponentMetadata sets the monitor's name and id.
func WithComponentMetadata(name, id string) types.Option[*Monitor] {
	return func(m *Monitor) {
		m.componentMetadata.Name = name
		if id != "" {
			m.componentMetadata.ID = id
		}
	}
}
