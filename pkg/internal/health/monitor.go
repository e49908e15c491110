package health

import (
	"context"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// Run ticks until ctx ends. Probe failures only ever mark a device as
// disconnected for that tick.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.NotifyLoggers(types.DebugLevel, "Health monitor started",
		"component", m.GetComponentMetadata(), "event", "Start", "interval", m.interval, "ack_window", m.ackWindow)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one probe cycle and publishes its result.
func (m *Monitor) Tick(ctx context.Context) types.ConnectivityState {
	state := types.ConnectivityState{
		WatchConnected: m.probeWearable(ctx),
		EEGConnected:   m.eegSamples.Swap(0) >= m.minEEGSamples,
		CheckedAt:      m.now(),
	}
	m.meter.IncrementCount(meter.MetricHealthTicks)
	m.publish(state)
	return state
}

func (m *Monitor) probeWearable(ctx context.Context) bool {
	if m.wearable == nil {
		return false
	}
	n, err := m.wearable.Reachable(ctx)
	if err != nil {
		m.NotifyLoggers(types.WarnLevel, "Wearable reachability check failed",
			"component", m.GetComponentMetadata(), "event", "Probe", "result", "FAILURE", "error", err)
		return false
	}
	if n < 1 {
		return false
	}

	m.wearable.DrainHealthAcks()
	if err := m.wearable.SendHealthCheck(ctx); err != nil {
		m.NotifyLoggers(types.WarnLevel, "Health check send failed",
			"component", m.GetComponentMetadata(), "event", "Probe", "result", "FAILURE", "error", err)
		return false
	}

	timer := time.NewTimer(m.ackWindow)
	defer timer.Stop()
	select {
	case <-m.wearable.HealthAcks():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func (m *Monitor) publish(state types.ConnectivityState) {
	m.stateLock.Lock()
	prev := m.state
	m.state = state
	subs := append([]chan types.ConnectivityState(nil), m.subscribers...)
	m.stateLock.Unlock()

	for _, ch := range subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}

	if prev.EEGConnected != state.EEGConnected || prev.WatchConnected != state.WatchConnected {
		m.NotifyLoggers(types.InfoLevel, "Connectivity changed",
			"component", m.GetComponentMetadata(), "event", "Connectivity",
			"eeg_connected", state.EEGConnected, "watch_connected", state.WatchConnected)
	}
}
