package protocol

import (
	"github.com/joeydtaylor/foodback/pkg/internal/classifier"
	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// WithLogger attaches loggers.
func WithLogger(loggers ...types.Logger) types.Option[*Machine] {
	return func(m *Machine) {
		m.loggersLock.Lock()
		m.loggers = append(m.loggers, loggers...)
		m.loggersLock.Unlock()
	}
}

// WithComponentMetadata sets the machine's name and id.
func WithComponentMetadata(name, id string) types.Option[*Machine] {
	return func(m *Machine) {
		m.componentMetadata.Name = name
		if id != "" {
			m.componentMetadata.ID = id
		}
	}
}

// WithHeadset sets the EEG producer drained by the machine.
func WithHeadset(src EEGSource) types.Option[*Machine] {
	return func(m *Machine) { m.headset = src }
}

// WithWearable sets the wearable link.
func WithWearable(w Wearable) types.Option[*Machine] {
	return func(m *Machine) { m.wearable = w }
}

// WithConnectivity sets the health monitor consulted by Start.
func WithConnectivity(c Connectivity) types.Option[*Machine] {
	return func(m *Machine) { m.health = c }
}

// WithClassifier sets the model used by the inference flow.
func WithClassifier(c classifier.Classifier) types.Option[*Machine] {
	return func(m *Machine) { m.classifier = c }
}

// WithPersister sets the store used by the collection flow.
func WithPersister(p Persister) types.Option[*Machine] {
	return func(m *Machine) { m.persister = p }
}

// WithPublisher forwards session outcomes to p.
func WithPublisher(p Publisher) types.Option[*Machine] {
	return func(m *Machine) { m.publisher = p }
}

// WithMeter counts samples and sessions on mt.
func WithMeter(mt *meter.Meter) types.Option[*Machine] {
	return func(m *Machine) { m.meter = mt }
}
