package resample

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func uniformInput(start int64, hz int, window time.Duration, f func(i int) float64) []TimestampedSample {
	grid := targetGrid(start, window.Milliseconds(), gridSize(hz, window))
	out := make([]TimestampedSample, len(grid))
	for i, ts := range grid {
		out[i] = TimestampedSample{Timestamp: ts, Value: f(i)}
	}
	return out
}

func TestAlign_LengthInvariant(t *testing.T) {
	in := []TimestampedSample{
		{Timestamp: 1_700_000_000_000, Value: 70},
		{Timestamp: 1_700_000_000_450, Value: 72},
		{Timestamp: 1_700_000_001_900, Value: 75},
	}
	cases := []struct {
		hz       int
		duration time.Duration
		want     int
	}{
		{125, 2 * time.Second, 250},
		{125, 10 * time.Second, 1250},
		{4, 2 * time.Second, 8},
		{1, time.Second, 1},
		{250, 500 * time.Millisecond, 125},
	}
	for _, tc := range cases {
		got := Align(in, tc.hz, tc.duration)
		if len(got) != tc.want {
			t.Fatalf("Align(%d Hz, %v) len = %d, want %d", tc.hz, tc.duration, len(got), tc.want)
		}
	}
}

func TestAlign_UniformInputIsIdempotent(t *testing.T) {
	in := uniformInput(1_700_000_000_000, 125, 2*time.Second, func(i int) float64 {
		return math.Sin(float64(i) / 7)
	})
	out := Align(in, 125, 2*time.Second)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Timestamp != in[i].Timestamp {
			t.Fatalf("timestamp[%d] = %d, want %d", i, out[i].Timestamp, in[i].Timestamp)
		}
		if math.Abs(out[i].Value-in[i].Value) > 1e-9 {
			t.Fatalf("value[%d] = %v, want %v", i, out[i].Value, in[i].Value)
		}
	}
}

func TestAlign_SingleSample(t *testing.T) {
	out := Align([]TimestampedSample{{Timestamp: 42, Value: 3.5}}, 125, 2*time.Second)
	if len(out) != 250 {
		t.Fatalf("len = %d", len(out))
	}
	for i, s := range out {
		if s.Value != 3.5 {
			t.Fatalf("value[%d] = %v, want 3.5", i, s.Value)
		}
	}
	if out[0].Timestamp != 42 || out[249].Timestamp != 2042 {
		t.Fatalf("grid bounds = %d..%d", out[0].Timestamp, out[249].Timestamp)
	}
}

func TestAlign_Empty(t *testing.T) {
	if out := Align(nil, 125, 2*time.Second); out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}
	if out := Align([]TimestampedSample{{Timestamp: 1, Value: 1}}, 0, time.Second); len(out) != 0 {
		t.Fatalf("expected empty output for zero rate, got %d", len(out))
	}
}

func TestAlign_SortInvariance(t *testing.T) {
	var in []TimestampedSample
	for i := 0; i < 10; i++ {
		in = append(in, TimestampedSample{Timestamp: 1000 + int64(i)*222, Value: float64(60 + i*i)})
	}
	want := Align(in, 125, 2*time.Second)

	shuffled := append([]TimestampedSample(nil), in...)
	r := rand.New(rand.NewSource(7))
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	got := Align(shuffled, 125, 2*time.Second)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d differs: %+v vs %+v", i, got[i], want[i])
		}
	}
}

func TestAlign_LinearBetweenNeighbours(t *testing.T) {
	in := []TimestampedSample{
		{Timestamp: 0, Value: 0},
		{Timestamp: 1000, Value: 10},
	}
	out := Align(in, 2, time.Second)
	// grid: 0, 1000
	if out[0].Value != 0 || out[1].Value != 10 {
		t.Fatalf("unexpected values %+v", out)
	}

	out = Align(in, 3, time.Second)
	// grid: 0, 500, 1000
	if len(out) != 3 || math.Abs(out[1].Value-5) > 1e-9 {
		t.Fatalf("midpoint = %+v", out)
	}
}

func TestAlign_PastLastSampleFallsBackToZero(t *testing.T) {
	in := []TimestampedSample{
		{Timestamp: 0, Value: 4},
		{Timestamp: 500, Value: 8},
	}
	out := Align(in, 5, time.Second)
	// grid: 0, 250, 500, 750, 1000
	if out[1].Value != 6 || out[2].Value != 8 {
		t.Fatalf("in-range values %+v", out)
	}
	if out[3].Value != 0 || out[4].Value != 0 {
		t.Fatalf("expected zero fallback past the last sample, got %+v", out[3:])
	}
}

func TestAlign_DuplicatesLastValueWins(t *testing.T) {
	in := []TimestampedSample{
		{Timestamp: 0, Value: 1},
		{Timestamp: 0, Value: 2},
		{Timestamp: 1000, Value: 4},
		{Timestamp: 1000, Value: 6},
	}
	out := Align(in, 2, time.Second)
	if out[0].Value != 2 || out[1].Value != 6 {
		t.Fatalf("expected last duplicate to win, got %+v", out)
	}
	if in[0].Value != 1 {
		t.Fatalf("input mutated")
	}
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Samples() != 250 {
		t.Fatalf("Samples = %d", cfg.Samples())
	}
	if got := cfg.Align([]TimestampedSample{{Timestamp: 5, Value: 1}}); len(got) != 250 {
		t.Fatalf("Align len = %d", len(got))
	}
}
