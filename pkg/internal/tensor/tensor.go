// Package tensor assembles the channel-major matrices consumed by the classifier.
package tensor

import (
	"errors"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyEEG is returned when a window holds no EEG samples.
var ErrEmptyEEG = errors.New("tensor: empty eeg buffer")

// ErrEmptyAux is returned when an auxiliary stream is empty at build time.
var ErrEmptyAux = errors.New("tensor: empty auxiliary stream")

// EEG returns a 6×N matrix: row c holds channel c in arrival order.
func EEG(samples []types.EEGSample) (*mat.Dense, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyEEG
	}
	n := len(samples)
	data := make([]float64, types.EEGChannelCount*n)
	for col, s := range samples {
		for ch := 0; ch < types.EEGChannelCount; ch++ {
			data[ch*n+col] = s.Channels[ch]
		}
	}
	return mat.NewDense(types.EEGChannelCount, n, data), nil
}

// Aux wraps the values of an aligned stream in a 1×M matrix. It returns nil
// for an empty stream since gonum has no zero-sized dense matrix.
func Aux(samples []types.TimestampedSample) *mat.Dense {
	if len(samples) == 0 {
		return nil
	}
	data := make([]float64, len(samples))
	for i, s := range samples {
		data[i] = s.Value
	}
	return mat.NewDense(1, len(samples), data)
}

// Build assembles an AlignedWindow from the EEG buffer and the aligned HR/EDA streams.
// N is not checked against any expected count.
func Build(eeg []types.EEGSample, hr, eda []types.TimestampedSample) (types.AlignedWindow, error) {
	eegM, err := EEG(eeg)
	if err != nil {
		return types.AlignedWindow{}, err
	}
	if len(hr) == 0 || len(eda) == 0 {
		return types.AlignedWindow{}, ErrEmptyAux
	}
	return types.AlignedWindow{EEG: eegM, HeartRate: Aux(hr), EDA: Aux(eda)}, nil
}

// Flatten returns the float32 row-major contents of m: channel 0's samples
// first, then channel 1's, and so on. This is the [1, C, T, 1] layout the
// model expects.
func Flatten(m mat.Matrix) []float32 {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	out := make([]float32, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, float32(m.At(i, j)))
		}
	}
	return out
}
