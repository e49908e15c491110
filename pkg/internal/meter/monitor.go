package meter

import (
	"context"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// Report logs one snapshot at info level.
func (m *Meter) Report(ctx context.Context) Snapshot {
	s := m.Snapshot(ctx, 0)
	if m == nil {
		return s
	}
	kv := []interface{}{
		"component", m.GetComponentMetadata(),
		"event", "Report",
		"elapsed", s.Elapsed,
		"cpu_percent", s.CPUPercent,
		"ram_percent", s.RAMPercent,
		"goroutines", s.Goroutines,
	}
	for _, name := range m.GetMetricNames() {
		kv = append(kv, name, s.Counts[name])
	}
	m.NotifyLoggers(types.InfoLevel, "Meter report", kv...)
	return s
}

// Monitor reports every interval until ctx ends, then reports once more.
func (m *Meter) Monitor(ctx context.Context, interval time.Duration) {
	if m == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Report(context.Background())
			return
		case <-ticker.C:
			m.Report(ctx)
		}
	}
}
