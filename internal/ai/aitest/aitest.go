// Package aitest provides a deterministic fake ai.Estimator for tests.
package aitest

import (
	"github.com/cerkeai/cerkeGo/internal/ai"
	"github.com/cerkeai/cerkeGo/internal/codec"
)

// Fake is an ai.Estimator returning fixed scores and recording all calls.
type Fake struct {
	// Scores returned by Forward for every phase. By default a fixed pseudo-random vector.
	Scores []float32

	// TrainErr, if set, is returned by Train.
	TrainErr error

	ForwardBatchSizes []int
	TrainBatches      [][]ai.TrainingExample
	NumUpdateHard     int
	NumSave           int
}

var _ ai.Estimator = (*Fake)(nil)

// NewFake returns a Fake with the default scores.
func NewFake() *Fake {
	scores := make([]float32, codec.ActionSize)
	for ii := range scores {
		scores[ii] = float32((ii*7919)%1000) / 1000
	}
	return &Fake{Scores: scores}
}

// Forward implements ai.Estimator.
func (f *Fake) Forward(features [][]float32) ([][]float32, error) {
	if err := ai.ValidateFeatures(features); err != nil {
		return nil, err
	}
	f.ForwardBatchSizes = append(f.ForwardBatchSizes, len(features))
	scores := make([][]float32, len(features))
	for ii := range scores {
		scores[ii] = append([]float32(nil), f.Scores...)
	}
	return scores, nil
}

// Train implements ai.Estimator.
func (f *Fake) Train(batch []ai.TrainingExample) (float32, error) {
	if err := ai.ValidateBatch(batch); err != nil {
		return 0, err
	}
	if f.TrainErr != nil {
		return 0, f.TrainErr
	}
	f.TrainBatches = append(f.TrainBatches, batch)
	return 1 / float32(len(f.TrainBatches)), nil
}

// UpdateHard implements ai.Estimator.
func (f *Fake) UpdateHard() error {
	f.NumUpdateHard++
	return nil
}

// UpdateSoft implements ai.Estimator.
func (f *Fake) UpdateSoft(float32) error {
	return ai.ErrSoftUpdateUnsupported
}

// Save implements ai.Estimator.
func (f *Fake) Save() error {
	f.NumSave++
	return nil
}

func (f *Fake) String() string { return "fake" }
