package meter

import "github.com/joeydtaylor/foodback/pkg/internal/types"

// WithLogger attaches loggers.
func WithLogger(l ...types.Logger) types.Option[*Meter] {
	return func(m *Meter) { m.ConnectLogger(l...) }
}

// WithComponentMetadata sets the meter's name and id.
func WithComponentMetadata(name string, id string) types.Option[*Meter] {
	return func(m *Meter) {
		m.componentMetadata.Name = name
		if id != "" {
			m.componentMetadata.ID = id
		}
	}
}
