package classifier

import (
	"context"
	"math"

	"github.com/joeydtaylor/foodback/pkg/internal/spectral"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Spectral is a deterministic baseline scorer used when no trained model is
// wired. Each class is tied to one EEG band; its logit is that band's share
// of total power, nudged by the arousal implied by the EDA trend. Scores are
// the softmax of the logits.
type Spectral struct {
	SampleRate  float64
	Temperature float64
}

// NewSpectral returns a baseline for EEG sampled at fs.
func NewSpectral(fs float64) *Spectral {
	return &Spectral{SampleRate: fs, Temperature: 10}
}

// Classify implements Classifier.
func (s *Spectral) Classify(ctx context.Context, eeg, hr, eda *mat.Dense) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logits := spectral.Values(spectral.BandPowers(eeg, s.SampleRate))
	if eda != nil {
		_, m := eda.Dims()
		if m > 1 {
			row := mat.Row(nil, 0, eda)
			slope := (row[m-1] - row[0]) / float64(m-1)
			// higher arousal shifts weight toward the fast bands
			floats.AddScaled(logits, slope*float64(m), []float64{-1, -0.5, 0, 0.5, 1})
		}
	}
	temp := s.Temperature
	if temp <= 0 {
		temp = 1
	}
	floats.Scale(1/temp, logits)
	return softmax(logits), nil
}

// Close is a no-op.
func (s *Spectral) Close() error { return nil }

func softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	peak := floats.Max(logits)
	for i, v := range logits {
		out[i] = math.Exp(v - peak)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}
