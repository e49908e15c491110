package spectral

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func sineWindow(freq, fs float64, n int) *mat.Dense {
	data := make([]float64, 6*n)
	for ch := 0; ch < 6; ch++ {
		for i := 0; i < n; i++ {
			data[ch*n+i] = 40 + 10*math.Sin(2*math.Pi*freq*float64(i)/fs+float64(ch))
		}
	}
	return mat.NewDense(6, n, data)
}

func TestBandPowers_DominantBand(t *testing.T) {
	cases := []struct {
		freq float64
		pick func([]float64) float64
		name string
	}{
		{10, func(v []float64) float64 { return v[2] }, "alpha"},
		{20, func(v []float64) float64 { return v[3] }, "beta"},
		{6, func(v []float64) float64 { return v[1] }, "theta"},
	}
	for _, tc := range cases {
		bp := Values(BandPowers(sineWindow(tc.freq, 500, 1000), 500))
		if got := tc.pick(bp); got < 50 {
			t.Fatalf("%v Hz: %s share = %.2f%%, bands %v", tc.freq, tc.name, got, bp)
		}
		sum := 0.0
		for _, v := range bp {
			sum += v
		}
		if math.Abs(sum-100) > 1e-6 {
			t.Fatalf("percentages sum to %v", sum)
		}
	}
}

func TestBandPowers_Degenerate(t *testing.T) {
	if bp := BandPowers(nil, 500); bp.Alpha != 0 {
		t.Fatalf("nil window produced %v", bp)
	}
	if bp := BandPowers(sineWindow(10, 500, 4), 500); Values(bp)[2] != 0 {
		t.Fatalf("too-short window produced %v", bp)
	}
	flat := mat.NewDense(6, 600, nil)
	if bp := BandPowers(flat, 500); Values(bp)[0] != 0 {
		t.Fatalf("flat window produced %v", bp)
	}
}

func TestSegmentLength(t *testing.T) {
	if got := segmentLength(500, 1000); got != 512 {
		t.Fatalf("segmentLength(500, 1000) = %d", got)
	}
	if got := segmentLength(500, 300); got != 256 {
		t.Fatalf("segmentLength(500, 300) = %d", got)
	}
	if got := nearestPowerOfTwo(250); got != 256 {
		t.Fatalf("nearestPowerOfTwo(250) = %d", got)
	}
}
