package headset

import (
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// WithLogger attaches loggers.
func WithLogger(loggers ...types.Logger) types.Option[*Headset] {
	return func(h *Headset) {
		h.loggersLock.Lock()
		h.loggers = append(h.loggers, loggers...)
		h.loggersLock.Unlock()
	}
}

// WithComponentMetadata sets the headset's name and id.
func WithComponentMetadata(name, id string) types.Option[*Headset] {
	return func(h *Headset) {
		h.componentMetadata.Name = name
		if id != "" {
			h.componentMetadata.ID = id
		}
	}
}

// WithQueueSize sets the sample queue capacity.
func WithQueueSize(n int) types.Option[*Headset] {
	return func(h *Headset) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// WithReconnectDelay sets the pause before redialing a dropped session.
func WithReconnectDelay(d time.Duration) types.Option[*Headset] {
	return func(h *Headset) {
		if d > 0 {
			h.reconnectDelay = d
		}
	}
}

// WithMeter counts accepted, dropped and malformed records on m.
func WithMeter(m *meter.Meter) types.Option[*Headset] {
	return func(h *Headset) { h.meter = m }
}
