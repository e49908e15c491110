// Package meter counts pipeline events and samples host load alongside them.
package meter

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

// Meter holds named monotonic counters. A nil *Meter is valid and records nothing.
type Meter struct {
	componentMetadata types.ComponentMetadata
	startTime         time.Time

	mutex  sync.Mutex
	counts map[string]*uint64

	loggers     []types.Logger
	loggersLock sync.Mutex
}

// NewMeter returns a meter with the standard metrics registered at zero.
func NewMeter(options ...types.Option[*Meter]) *Meter {
	m := &Meter{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "METER",
		},
		startTime: time.Now(),
		counts:    make(map[string]*uint64),
	}
	for _, name := range StandardMetrics {
		m.counter(name)
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *Meter) counter(name string) *uint64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	c, ok := m.counts[name]
	if !ok {
		c = new(uint64)
		m.counts[name] = c
	}
	return c
}

// IncrementCount adds one to the named metric.
func (m *Meter) IncrementCount(name string) {
	m.Add(name, 1)
}

// Add adds n to the named metric.
func (m *Meter) Add(name string, n uint64) {
	if m == nil || n == 0 {
		return
	}
	atomic.AddUint64(m.counter(name), n)
}

// GetMetricCount returns the current value of the named metric.
func (m *Meter) GetMetricCount(name string) uint64 {
	if m == nil {
		return 0
	}
	return atomic.LoadUint64(m.counter(name))
}

// GetMetricNames returns every registered metric name, sorted.
func (m *Meter) GetMetricNames() []string {
	if m == nil {
		return nil
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	names := make([]string, 0, len(m.counts))
	for name := range m.counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResetMetrics zeroes every counter.
func (m *Meter) ResetMetrics() {
	if m == nil {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, c := range m.counts {
		atomic.StoreUint64(c, 0)
	}
}

// GetComponentMetadata returns the meter's metadata.
func (m *Meter) GetComponentMetadata() types.ComponentMetadata {
	return m.componentMetadata
}

// ConnectLogger attaches loggers used by Report and Monitor.
func (m *Meter) ConnectLogger(l ...types.Logger) {
	m.loggersLock.Lock()
	defer m.loggersLock.Unlock()
	m.loggers = append(m.loggers, l...)
}

// NotifyLoggers emits a log entry to all configured loggers.
func (m *Meter) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	m.loggersLock.Lock()
	loggers := append([]types.Logger(nil), m.loggers...)
	m.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
