package tensor

import (
	"errors"
	"testing"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

func eegSamples(n int) []types.EEGSample {
	out := make([]types.EEGSample, n)
	for i := range out {
		out[i].Sequence = int64(i + 1)
		for ch := 0; ch < types.EEGChannelCount; ch++ {
			out[i].Channels[ch] = float64(ch*1000 + i)
		}
	}
	return out
}

func TestEEG_ChannelMajor(t *testing.T) {
	m, err := EEG(eegSamples(500))
	if err != nil {
		t.Fatalf("EEG: %v", err)
	}
	r, c := m.Dims()
	if r != 6 || c != 500 {
		t.Fatalf("dims = %dx%d, want 6x500", r, c)
	}
	if m.At(3, 17) != 3017 {
		t.Fatalf("At(3,17) = %v", m.At(3, 17))
	}
}

func TestEEG_Empty(t *testing.T) {
	if _, err := EEG(nil); !errors.Is(err, ErrEmptyEEG) {
		t.Fatalf("expected ErrEmptyEEG, got %v", err)
	}
}

func TestBuild(t *testing.T) {
	aux := []types.TimestampedSample{{Timestamp: 1, Value: 0.5}, {Timestamp: 2, Value: 0.75}}
	w, err := Build(eegSamples(3), aux, aux)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r, c := w.HeartRate.Dims(); r != 1 || c != 2 {
		t.Fatalf("hr dims = %dx%d", r, c)
	}
	if w.EDA.At(0, 1) != 0.75 {
		t.Fatalf("eda value = %v", w.EDA.At(0, 1))
	}

	if _, err := Build(eegSamples(3), nil, aux); !errors.Is(err, ErrEmptyAux) {
		t.Fatalf("expected ErrEmptyAux, got %v", err)
	}
	if _, err := Build(nil, aux, aux); !errors.Is(err, ErrEmptyEEG) {
		t.Fatalf("expected ErrEmptyEEG, got %v", err)
	}
	if Aux(nil) != nil {
		t.Fatalf("expected nil for empty aux stream")
	}
}

func TestFlatten(t *testing.T) {
	m, _ := EEG(eegSamples(2))
	flat := Flatten(m)
	want := []float32{0, 1, 1000, 1001, 2000, 2001, 3000, 3001, 4000, 4001, 5000, 5001}
	if len(flat) != len(want) {
		t.Fatalf("len = %d", len(flat))
	}
	for i := range want {
		if flat[i] != want[i] {
			t.Fatalf("flat[%d] = %v, want %v", i, flat[i], want[i])
		}
	}
	if Flatten(nil) != nil {
		t.Fatalf("expected nil")
	}
}
