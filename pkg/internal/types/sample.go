package types

import "gonum.org/v1/gonum/mat"

// EEGChannelCount is the number of electrode channels carried by every EEG record.
const EEGChannelCount = 6

// Stream identifies one of the three acquisition streams.
type Stream string

const (
	StreamEEG       Stream = "eeg"
	StreamHeartRate Stream = "heart_rate"
	StreamEDA       Stream = "eda"
)

// TimestampedSample is a scalar wearable reading. Timestamp is milliseconds since the Unix epoch.
type TimestampedSample struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// EEGSample is one headset tick. Sequence is a liveness signal only: a non-zero value means the
// source is actively transmitting. Arrival order is the logical order.
type EEGSample struct {
	Sequence int64
	Channels [EEGChannelCount]float64
}

// SensorSeries is one batch of wearable readings as delivered on the sensor series endpoint.
type SensorSeries struct {
	HeartRate []TimestampedSample `json:"heart_rate"`
	EDA       []TimestampedSample `json:"eda"`
}

// AlignedWindow holds the classifier inputs for one recording window:
// EEG is 6×N, HeartRate and EDA are 1×M.
type AlignedWindow struct {
	EEG       *mat.Dense
	HeartRate *mat.Dense
	EDA       *mat.Dense
}

// BandPowers is the relative spectral power (percent) in the classic EEG bands.
type BandPowers struct {
	Delta float64 `json:"delta"`
	Theta float64 `json:"theta"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Prediction is the outcome of one inference window.
type Prediction struct {
	Class      int        `json:"class"`
	Scores     []float64  `json:"scores"`
	BandPowers BandPowers `json:"band_powers"`
}
