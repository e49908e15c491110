// Package spectral computes relative EEG band powers from a channel-major window.
package spectral

import (
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	dspectral "github.com/mjibson/go-dsp/spectral"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Band is a half-open frequency interval in Hz.
type Band struct {
	Name   string
	Lo, Hi float64
}

// Bands lists delta, theta, alpha, beta and gamma in BandPowers field order.
var Bands = [5]Band{
	{"delta", 1, 4},
	{"theta", 4, 8},
	{"alpha", 8, 13},
	{"beta", 13, 30},
	{"gamma", 30, 50},
}

const minSegment = 8

// BandPowers sums the Welch PSD of every channel over each band and returns
// each band's share of the total in percent. Channels too short for a
// segment are skipped; an all-zero result means no channel qualified.
func BandPowers(eeg mat.Matrix, fs float64) types.BandPowers {
	var sums [5]float64
	if eeg == nil || fs <= 0 {
		return types.BandPowers{}
	}
	rows, cols := eeg.Dims()
	nfft := segmentLength(fs, cols)
	if nfft < minSegment {
		return types.BandPowers{}
	}

	signal := make([]float64, cols)
	for r := 0; r < rows; r++ {
		mat.Row(signal, r, eeg)
		detrend(signal)
		pxx, freqs := dspectral.Pwelch(signal, fs, &dspectral.PwelchOptions{
			NFFT:     nfft,
			Noverlap: nfft / 2,
			Window:   window.Blackman,
		})
		for i, b := range Bands {
			sums[i] += bandPower(pxx, freqs, b.Lo, b.Hi)
		}
	}

	total := floats.Sum(sums[:])
	if total <= 0 {
		return types.BandPowers{}
	}
	floats.Scale(100/total, sums[:])
	return types.BandPowers{
		Delta: sums[0],
		Theta: sums[1],
		Alpha: sums[2],
		Beta:  sums[3],
		Gamma: sums[4],
	}
}

// Values returns the band powers in Bands order.
func Values(bp types.BandPowers) []float64 {
	return []float64{bp.Delta, bp.Theta, bp.Alpha, bp.Beta, bp.Gamma}
}

// detrend removes the constant component in place.
func detrend(x []float64) {
	floats.AddConst(-stat.Mean(x, nil), x)
}

// segmentLength picks the power of two nearest fs, shrunk until the signal
// is strictly longer than one segment.
func segmentLength(fs float64, n int) int {
	nfft := nearestPowerOfTwo(int(fs))
	for nfft >= minSegment && nfft >= n {
		nfft /= 2
	}
	return nfft
}

func nearestPowerOfTwo(v int) int {
	if v < 1 {
		return 1
	}
	lower := 1
	for lower*2 <= v {
		lower *= 2
	}
	upper := lower * 2
	if v-lower < upper-v {
		return lower
	}
	return upper
}

// bandPower integrates pxx over [lo, hi] with the trapezoidal rule.
func bandPower(pxx, freqs []float64, lo, hi float64) float64 {
	start, end := -1, -1
	for i, f := range freqs {
		if f < lo {
			continue
		}
		if f > hi {
			break
		}
		if start < 0 {
			start = i
		}
		end = i
	}
	if start < 0 || end <= start {
		return 0
	}
	return integrate.Trapezoidal(freqs[start:end+1], pxx[start:end+1])
}
