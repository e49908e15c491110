package meter

const (
	MetricEEGSamplesAccepted     = "eeg_samples_accepted"
	MetricEEGSamplesRejected     = "eeg_samples_rejected"
	MetricEEGSamplesDropped      = "eeg_samples_dropped"
	MetricEEGFramesMalformed     = "eeg_frames_malformed"
	MetricWearableBatches        = "wearable_batches"
	MetricWearableBatchesDropped = "wearable_batches_dropped"
	MetricWearableMalformed      = "wearable_messages_malformed"
	MetricHealthTicks            = "health_ticks"
	MetricSessionsCompleted      = "sessions_completed"
	MetricSessionsFailed         = "sessions_failed"
	MetricClassifications        = "classifications"
	MetricExportsFailed          = "exports_failed"
)

// StandardMetrics are registered by NewMeter so reports list them even at zero.
var StandardMetrics = []string{
	MetricEEGSamplesAccepted,
	MetricEEGSamplesRejected,
	MetricEEGSamplesDropped,
	MetricEEGFramesMalformed,
	MetricWearableBatches,
	MetricWearableBatchesDropped,
	MetricWearableMalformed,
	MetricHealthTicks,
	MetricSessionsCompleted,
	MetricSessionsFailed,
	MetricClassifications,
	MetricExportsFailed,
}
