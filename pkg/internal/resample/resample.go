// Package resample linearly interpolates irregular timestamped samples onto a
// uniform grid of fixed rate and fixed length.
package resample

import (
	"math"
	"sort"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"gonum.org/v1/gonum/floats"
)

// TimestampedSample is re-exported for callers that only import this package.
type TimestampedSample = types.TimestampedSample

// Align converts samples to exactly targetHz × duration samples evenly spaced
// from the earliest input timestamp to that timestamp plus duration.
//
// The input is not modified. Samples sharing a timestamp collapse to the one
// that arrived last. An empty input yields an empty output. A single
// sample is padded with a copy at the end of the window so every grid point
// carries its value. Grid points past the last input sample take the degraded
// fallback of the sweep (the missing right neighbour reads as value 0 at the
// grid time), which is accepted rather than reported.
func Align(samples []TimestampedSample, targetHz int, duration time.Duration) []TimestampedSample {
	if len(samples) == 0 {
		return []TimestampedSample{}
	}
	m := gridSize(targetHz, duration)
	if m <= 0 {
		return []TimestampedSample{}
	}

	sorted := make([]TimestampedSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	sorted = collapseDuplicates(sorted)

	start := sorted[0].Timestamp
	span := duration.Milliseconds()
	if len(sorted) == 1 {
		sorted = append(sorted, TimestampedSample{Timestamp: start + span, Value: sorted[0].Value})
	}

	grid := targetGrid(start, span, m)
	out := make([]TimestampedSample, m)

	last := len(sorted) - 1
	j := 0
	for i, t := range grid {
		for j < last && sorted[j+1].Timestamp < t {
			j++
		}
		out[i] = TimestampedSample{Timestamp: t, Value: interpolate(sorted, j, t)}
	}
	return out
}

// collapseDuplicates keeps the last sample of each run of equal timestamps.
// sorted must be stably ordered by timestamp.
func collapseDuplicates(sorted []TimestampedSample) []TimestampedSample {
	out := sorted[:0]
	for _, s := range sorted {
		if n := len(out); n > 0 && out[n-1].Timestamp == s.Timestamp {
			out[n-1] = s
			continue
		}
		out = append(out, s)
	}
	return out
}

// targetGrid returns m timestamps start + round(i·step) with step = span/(m-1).
func targetGrid(start, span int64, m int) []int64 {
	grid := make([]int64, m)
	if m == 1 {
		grid[0] = start
		return grid
	}
	offsets := floats.Span(make([]float64, m), 0, float64(span))
	for i, off := range offsets {
		grid[i] = start + int64(math.Round(off))
	}
	return grid
}

// interpolate evaluates the line through sorted[j] and sorted[j+1] at t.
// Indices past the end fall back to time t and value 0.
func interpolate(sorted []TimestampedSample, j int, t int64) float64 {
	tf := float64(t)
	t1, v1 := tf, 0.0
	if j < len(sorted) {
		t1, v1 = float64(sorted[j].Timestamp), sorted[j].Value
	}
	t2, v2 := tf, 0.0
	if j+1 < len(sorted) {
		t2, v2 = float64(sorted[j+1].Timestamp), sorted[j+1].Value
	}
	if t2 == t1 {
		return v1
	}
	return v1 + (v2-v1)*((tf-t1)/(t2-t1))
}
