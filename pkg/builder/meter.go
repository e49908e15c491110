package builder

import (
	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

type Meter = meter.Meter

type MeterSnapshot = meter.Snapshot

// Counter names reported by a pipeline's meter.
const (
	MetricEEGSamplesAccepted     = meter.MetricEEGSamplesAccepted
	MetricEEGSamplesRejected     = meter.MetricEEGSamplesRejected
	MetricEEGSamplesDropped      = meter.MetricEEGSamplesDropped
	MetricEEGFramesMalformed     = meter.MetricEEGFramesMalformed
	MetricWearableBatches        = meter.MetricWearableBatches
	MetricWearableBatchesDropped = meter.MetricWearableBatchesDropped
	MetricWearableMalformed      = meter.MetricWearableMalformed
	MetricHealthTicks            = meter.MetricHealthTicks
	MetricSessionsCompleted      = meter.MetricSessionsCompleted
	MetricSessionsFailed         = meter.MetricSessionsFailed
	MetricClassifications        = meter.MetricClassifications
	MetricExportsFailed          = meter.MetricExportsFailed
)

// NewMeter builds a standalone meter reporting to loggers.
func NewMeter(loggers ...types.Logger) *Meter {
	return meter.NewMeter(meter.WithLogger(loggers...))
}
