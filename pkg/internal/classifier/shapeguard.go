package classifier

import (
	"context"
	"fmt"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"gonum.org/v1/gonum/mat"
)

// ShapeGuard validates the tensor contract around another Classifier.
type ShapeGuard struct {
	Next       Classifier
	NumClasses int
	// EEGSamples and AuxSamples pin N and M when non-zero.
	EEGSamples int
	AuxSamples int
}

// NewShapeGuard wraps next with the default class count.
func NewShapeGuard(next Classifier) *ShapeGuard {
	return &ShapeGuard{Next: next, NumClasses: DefaultNumClasses}
}

// Classify checks the inputs, delegates, then checks the score length.
func (g *ShapeGuard) Classify(ctx context.Context, eeg, hr, eda *mat.Dense) ([]float64, error) {
	if err := g.checkInputs(eeg, hr, eda); err != nil {
		return nil, err
	}
	scores, err := g.Next.Classify(ctx, eeg, hr, eda)
	if err != nil {
		return nil, err
	}
	want := g.NumClasses
	if want <= 0 {
		want = DefaultNumClasses
	}
	if len(scores) != want {
		return nil, fmt.Errorf("%w: %d scores, want %d", ErrShape, len(scores), want)
	}
	return scores, nil
}

func (g *ShapeGuard) checkInputs(eeg, hr, eda *mat.Dense) error {
	if eeg == nil || hr == nil || eda == nil {
		return fmt.Errorf("%w: missing input tensor", ErrShape)
	}
	r, n := eeg.Dims()
	if r != types.EEGChannelCount {
		return fmt.Errorf("%w: eeg has %d rows, want %d", ErrShape, r, types.EEGChannelCount)
	}
	if g.EEGSamples > 0 && n != g.EEGSamples {
		return fmt.Errorf("%w: eeg has %d samples, want %d", ErrShape, n, g.EEGSamples)
	}
	hrRows, m := hr.Dims()
	edaRows, m2 := eda.Dims()
	if hrRows != 1 || edaRows != 1 {
		return fmt.Errorf("%w: auxiliary tensors must have one row", ErrShape)
	}
	if m != m2 {
		return fmt.Errorf("%w: hr has %d samples, eda has %d", ErrShape, m, m2)
	}
	if g.AuxSamples > 0 && m != g.AuxSamples {
		return fmt.Errorf("%w: aux has %d samples, want %d", ErrShape, m, g.AuxSamples)
	}
	return nil
}

// Close closes the wrapped classifier.
func (g *ShapeGuard) Close() error {
	if g.Next == nil {
		return nil
	}
	return g.Next.Close()
}
