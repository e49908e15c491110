// Package classifier defines the model contract for inference windows and a
// few adapters around it.
//
// A Classifier receives a 6×N EEG matrix and two 1×M auxiliary matrices and
// returns one score per class. The predicted class is the index of the
// highest score; ties resolve to the lowest index.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultNumClasses is the width of the score vector.
const DefaultNumClasses = 5

// ErrShape reports an input or output that violates the tensor contract.
var ErrShape = errors.New("classifier: shape mismatch")

// Classifier scores one aligned window.
type Classifier interface {
	Classify(ctx context.Context, eeg, hr, eda *mat.Dense) ([]float64, error)
	Close() error
}

// Argmax returns the index of the first maximum, or -1 for an empty vector.
func Argmax(scores []float64) int {
	if len(scores) == 0 {
		return -1
	}
	return floats.MaxIdx(scores)
}

// Func adapts a plain function to Classifier.
type Func func(ctx context.Context, eeg, hr, eda *mat.Dense) ([]float64, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, eeg, hr, eda *mat.Dense) ([]float64, error) {
	return f(ctx, eeg, hr, eda)
}

// Close is a no-op.
func (f Func) Close() error { return nil }

// SafeClassify invokes c and converts a panic into an error.
func SafeClassify(ctx context.Context, c Classifier, eeg, hr, eda *mat.Dense) (scores []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			scores = nil
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return c.Classify(ctx, eeg, hr, eda)
}
