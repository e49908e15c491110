package protocol

import (
	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

func (m *Machine) consumeEEG() {
	defer m.wg.Done()
	samples := m.headset.Samples()
	for {
		select {
		case <-m.ctx.Done():
			return
		case s, ok := <-samples:
			if !ok {
				return
			}
			m.acceptEEG(s)
		}
	}
}

// acceptEEG marks liveness, then appends while the gate is open and the
// countdown has budget left.
func (m *Machine) acceptEEG(s types.EEGSample) {
	if m.health != nil && s.Sequence != 0 {
		m.health.MarkEEGSample(s.Sequence)
	}
	if !m.eeg.IsOpen() {
		return
	}
	if !m.countdown.Take() {
		m.meter.IncrementCount(meter.MetricEEGSamplesRejected)
		return
	}
	if m.eeg.Append(s) {
		m.meter.IncrementCount(meter.MetricEEGSamplesAccepted)
	} else {
		m.meter.IncrementCount(meter.MetricEEGSamplesRejected)
	}
}

func (m *Machine) consumeSeries() {
	defer m.wg.Done()
	series := m.wearable.Series()
	for {
		select {
		case <-m.ctx.Done():
			return
		case batch, ok := <-series:
			if !ok {
				return
			}
			m.acceptSeries(batch)
		}
	}
}

// acceptSeries replaces each non-empty stream of the current window with
// the batch. Batches outside a recording window are discarded.
func (m *Machine) acceptSeries(batch types.SensorSeries) {
	kept := false
	if len(batch.HeartRate) > 0 && m.hr.Replace(batch.HeartRate) {
		kept = true
	}
	if len(batch.EDA) > 0 && m.eda.Replace(batch.EDA) {
		kept = true
	}
	if !kept {
		m.NotifyLoggers(types.DebugLevel, "Discarding wearable batch outside recording window",
			"component", m.GetComponentMetadata(), "event", "Series",
			"heart_rate", len(batch.HeartRate), "eda", len(batch.EDA))
		return
	}
	m.NotifyLoggers(types.DebugLevel, "Wearable batch buffered",
		"component", m.GetComponentMetadata(), "event", "Series",
		"heart_rate", len(batch.HeartRate), "eda", len(batch.EDA))
}
