package persistence

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/OpenPSG/edf"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
	"gonum.org/v1/gonum/floats"
)

const (
	edfDigitalMin = -32768
	edfDigitalMax = 32767
)

// EDFExporter writes the EEG window, plus the aligned wearable streams when
// present, as a one-second-record EDF file.
type EDFExporter struct {
	dir string
}

// NewEDFExporter writes into dir.
func NewEDFExporter(dir string) *EDFExporter {
	return &EDFExporter{dir: dir}
}

func (e *EDFExporter) Name() string { return "edf" }

// Export returns the path of the written file.
func (e *EDFExporter) Export(_ context.Context, rec Record, res Result) (string, error) {
	fs := int(math.Round(rec.SampleRate))
	if fs <= 0 {
		return "", fmt.Errorf("edf export needs a positive sample rate, got %v", rec.SampleRate)
	}
	if len(rec.EEG) == 0 {
		return "", fmt.Errorf("edf export: no eeg samples")
	}
	if err := utils.EnsureDir(e.dir); err != nil {
		return "", err
	}

	series := make([][]float64, 0, types.EEGChannelCount+2)
	rates := make([]int, 0, types.EEGChannelCount+2)
	labels := make([]string, 0, types.EEGChannelCount+2)
	dims := make([]string, 0, types.EEGChannelCount+2)
	for ch := 0; ch < types.EEGChannelCount; ch++ {
		col := make([]float64, len(rec.EEG))
		for i, s := range rec.EEG {
			col[i] = s.Channels[ch]
		}
		series = append(series, col)
		rates = append(rates, fs)
		labels = append(labels, fmt.Sprintf("EEG ch%d", ch+1))
		dims = append(dims, "uV")
	}
	if rec.AlignedHz > 0 && len(rec.AlignedHeartRate) > 0 && len(rec.AlignedEDA) == len(rec.AlignedHeartRate) {
		series = append(series, values(rec.AlignedHeartRate), values(rec.AlignedEDA))
		rates = append(rates, rec.AlignedHz, rec.AlignedHz)
		labels = append(labels, "Heart rate", "EDA")
		dims = append(dims, "bpm", "uS")
	}

	signals := make([]edf.SignalHeader, len(series))
	for i, data := range series {
		lo, hi := physicalRange(data)
		signals[i] = edf.SignalHeader{
			Label:             labels[i],
			TransducerType:    "foodback",
			PhysicalDimension: dims[i],
			PhysicalMin:       lo,
			PhysicalMax:       hi,
			DigitalMin:        edfDigitalMin,
			DigitalMax:        edfDigitalMax,
			SamplesPerRecord:  rates[i],
		}
	}

	start := rec.StartedAt
	if start.IsZero() {
		start = time.Now()
	}
	path := filepath.Join(e.dir, fmt.Sprintf("experiment_%04d.edf", res.Experiment))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	w, err := edf.Create(f, edf.Header{
		Version:            edf.Version0,
		PatientID:          rec.Subject,
		RecordingID:        fmt.Sprintf("experiment %d rating %d", res.Experiment, rec.Rating),
		StartTime:          start,
		DataRecordDuration: time.Second,
		SignalCount:        len(signals),
		Signals:            signals,
	})
	if err != nil {
		_ = f.Close()
		return "", err
	}

	records := (len(rec.EEG) + fs - 1) / fs
	for r := 0; r < records; r++ {
		block := make([][]float64, len(series))
		for i, data := range series {
			block[i] = recordSlice(data, r, rates[i])
		}
		if err := w.WriteRecord(block); err != nil {
			_ = f.Close()
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

func values(samples []types.TimestampedSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}

// recordSlice returns samples [r*n, (r+1)*n), padding past the end with the last value.
func recordSlice(data []float64, r, n int) []float64 {
	out := make([]float64, n)
	var last float64
	if len(data) > 0 {
		last = data[len(data)-1]
	}
	for i := range out {
		idx := r*n + i
		if idx < len(data) {
			out[i] = data[idx]
		} else {
			out[i] = last
		}
	}
	return out
}

func physicalRange(data []float64) (float64, float64) {
	if len(data) == 0 {
		return -1, 1
	}
	// The header stores two decimals; round outward so reader and writer scale identically.
	lo := math.Floor(floats.Min(data)*100) / 100
	hi := math.Ceil(floats.Max(data)*100) / 100
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	return lo, hi
}
