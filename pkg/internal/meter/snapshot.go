package meter

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

// Snapshot is a point-in-time copy of the counters plus host load.
type Snapshot struct {
	Taken      time.Time
	Elapsed    time.Duration
	Counts     map[string]uint64
	CPUPercent float64
	RAMPercent float64
	Goroutines int
}

// Snapshot copies every counter and samples CPU over sampleWindow. A zero
// window reads the CPU figure since the previous call.
func (m *Meter) Snapshot(ctx context.Context, sampleWindow time.Duration) Snapshot {
	s := Snapshot{
		Taken:      time.Now(),
		Counts:     make(map[string]uint64),
		Goroutines: runtime.NumGoroutine(),
	}
	if m == nil {
		return s
	}
	s.Elapsed = s.Taken.Sub(m.startTime)
	for _, name := range m.GetMetricNames() {
		s.Counts[name] = m.GetMetricCount(name)
	}

	if cpuPercentages, err := cpu.PercentWithContext(ctx, sampleWindow, false); err == nil && len(cpuPercentages) > 0 {
		s.CPUPercent = cpuPercentages[0]
	}
	if memStats, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.RAMPercent = memStats.UsedPercent
	}
	return s
}
