package persistence

import (
	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// WithLogger attaches loggers.
func WithLogger(loggers ...types.Logger) types.Option[*Store] {
	return func(s *Store) {
		s.loggersLock.Lock()
		s.loggers = append(s.loggers, loggers...)
		s.loggersLock.Unlock()
	}
}

// WithExporter runs e after every successful save.
func WithExporter(e ...Exporter) types.Option[*Store] {
	return func(s *Store) {
		for _, x := range e {
			if x != nil {
				s.exporters = append(s.exporters, x)
			}
		}
	}
}

// WithMeter counts failed exports on m.
func WithMeter(m *meter.Meter) types.Option[*Store] {
	return func(s *Store) { s.meter = m }
}

// WithComponentMetadata sets the store's name and id.
func WithComponentMetadata(name, id string) types.Option[*Store] {
	return func(s *Store) {
		s.componentMetadata.Name = name
		if id != "" {
			s.componentMetadata.ID = id
		}
	}
}
