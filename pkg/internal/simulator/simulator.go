// Package simulator provides synthetic devices for examples and tests: an
// EEG headset served over WebSocket and a smartwatch on the far end of a
// wearable Loopback.
package simulator

import (
	"math"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

const (
	DefaultEEGRate       = 500
	DefaultFrameInterval = 20 * time.Millisecond
	DefaultAmplitude     = 20.0
	DefaultHeartRateHz   = 5
	DefaultEDAHz         = 5
)

// EEGSamples returns n deterministic samples starting at sequence first.
// Channel c carries a (9+c) Hz sinusoid sampled at rate Hz.
func EEGSamples(first int64, n, rate int, amplitude float64) []types.EEGSample {
	out := make([]types.EEGSample, n)
	for i := range out {
		seq := first + int64(i)
		t := float64(seq-1) / float64(rate)
		out[i].Sequence = seq
		for c := range out[i].Channels {
			f := 9 + float64(c)
			out[i].Channels[c] = amplitude * math.Sin(2*math.Pi*f*t)
		}
	}
	return out
}

// SensorSeries returns a wearable batch covering window, ending at end.
func SensorSeries(end time.Time, window time.Duration, hrHz, edaHz int) types.SensorSeries {
	return types.SensorSeries{
		HeartRate: scalarSeries(end, window, hrHz, func(t float64) float64 { return 72 + 3*math.Sin(2*math.Pi*0.25*t) }),
		EDA:       scalarSeries(end, window, edaHz, func(t float64) float64 { return 0.4 + 0.05*t }),
	}
}

func scalarSeries(end time.Time, window time.Duration, hz int, f func(t float64) float64) []types.TimestampedSample {
	n := int(window.Seconds() * float64(hz))
	if n <= 0 {
		return nil
	}
	start := end.Add(-window)
	step := window / time.Duration(n)
	out := make([]types.TimestampedSample, n)
	for i := range out {
		at := start.Add(time.Duration(i+1) * step)
		out[i] = types.TimestampedSample{
			Timestamp: at.UnixMilli(),
			Value:     f(at.Sub(start).Seconds()),
		}
	}
	return out
}
