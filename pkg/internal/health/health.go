// Package health decides, on a fixed tick, whether the headset and the
// wearable are both live. The result gates the start of every protocol run.
package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

const (
	DefaultInterval = 2 * time.Second
	// DefaultAckFraction is the share of the interval spent waiting for the wearable's ack.
	DefaultAckFraction = 0.75
)

// Wearable is the part of the wearable link the monitor probes.
type Wearable interface {
	Reachable(ctx context.Context) (int, error)
	SendHealthCheck(ctx context.Context) error
	HealthAcks() <-chan struct{}
	DrainHealthAcks()
}

// Monitor publishes a ConnectivityState once per interval.
type Monitor struct {
	componentMetadata types.ComponentMetadata
	wearable          Wearable
	meter             *meter.Meter
	interval          time.Duration
	ackWindow         time.Duration
	minEEGSamples     int64
	now               func() time.Time

	eegSamples atomic.Int64

	stateLock   sync.Mutex
	state       types.ConnectivityState
	subscribers []chan types.ConnectivityState

	loggers     []types.Logger
	loggersLock sync.Mutex
}

// NewMonitor builds a monitor probing wearable. A nil wearable is never connected.
func NewMonitor(wearable Wearable, options ...types.Option[*Monitor]) *Monitor {
	m := &Monitor{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "HEALTH_MONITOR",
		},
		wearable:      wearable,
		interval:      DefaultInterval,
		minEEGSamples: 1,
		now:           time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	if m.ackWindow <= 0 || m.ackWindow > m.interval {
		m.ackWindow = time.Duration(float64(m.interval) * DefaultAckFraction)
	}
	return m
}

// GetComponentMetadata returns the monitor's metadata.
func (m *Monitor) GetComponentMetadata() types.ComponentMetadata {
	return m.componentMetadata
}

// Interval is the tick period.
func (m *Monitor) Interval() time.Duration { return m.interval }

// MarkEEGSample records that the headset produced a record. Zero sequences
// do not count as live data.
func (m *Monitor) MarkEEGSample(seq int64) {
	if seq != 0 {
		m.eegSamples.Add(1)
	}
}

// State returns the most recently published connectivity.
func (m *Monitor) State() types.ConnectivityState {
	m.stateLock.Lock()
	defer m.stateLock.Unlock()
	return m.state
}

// Subscribe returns a channel holding the latest published state. A slow
// reader only ever sees the newest value.
func (m *Monitor) Subscribe() <-chan types.ConnectivityState {
	ch := make(chan types.ConnectivityState, 1)
	m.stateLock.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.stateLock.Unlock()
	return ch
}

// NotifyLoggers emits a log entry to all configured loggers.
func (m *Monitor) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	m.loggersLock.Lock()
	loggers := append([]types.Logger(nil), m.loggers...)
	m.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
