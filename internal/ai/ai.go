// Package ai defines the Estimator capability that scores every action index of a game phase,
// and the registry of its implementations.
//
// An Estimator holds a pair of parametric functions of the same shape: the "live" one, which
// receives gradient updates, and the "target" one, a periodically refreshed frozen copy used for
// acting and for the temporal-difference targets.
package ai

import (
	"github.com/chewxy/math32"
	"github.com/cerkeai/cerkeGo/internal/codec"
	"github.com/cerkeai/cerkeGo/internal/parameters"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"slices"
)

var (
	// ErrEmptyBatch is returned by Estimator.Train when given no examples.
	ErrEmptyBatch = errors.New("empty training batch")

	// ErrSoftUpdateUnsupported is returned by Estimator.UpdateSoft by implementations that only
	// support hard target refreshes.
	ErrSoftUpdateUnsupported = errors.New("soft (Polyak) target update not supported")
)

// TrainingExample is one regression example: the loss is only applied where Mask is non-zero, so
// an example constrains the score of the action actually taken and nothing else.
type TrainingExample struct {
	Features []float32 // codec.StateSize
	Target   []float32 // codec.ActionSize
	Mask     []float32 // codec.ActionSize
}

// Estimator scores all action indices of encoded phases.
type Estimator interface {
	// Forward returns one score per action index (codec.ActionSize) for each of the given feature
	// vectors, using the target parameters. It doesn't change the estimator.
	Forward(features [][]float32) ([][]float32, error)

	// Train the live parameters on one batch, returning the loss before the update.
	// It fails on a malformed batch (empty or ragged), without changing any parameter.
	Train(batch []TrainingExample) (loss float32, err error)

	// UpdateHard copies the live parameters into the target parameters.
	UpdateHard() error

	// UpdateSoft moves the target parameters towards the live ones by a factor tau.
	UpdateSoft(tau float32) error

	// Save the estimator, if it is associated to a file or directory.
	Save() error

	// String returns the estimator name.
	String() string
}

// ValidateBatch checks that the batch is non-empty and that every example has the expected
// dimensions.
func ValidateBatch(batch []TrainingExample) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	for ii, example := range batch {
		if len(example.Features) != codec.StateSize {
			return errors.Errorf("training example #%d has %d features, wanted %d", ii, len(example.Features), codec.StateSize)
		}
		if len(example.Target) != codec.ActionSize || len(example.Mask) != codec.ActionSize {
			return errors.Errorf("training example #%d has target/mask of lengths %d/%d, wanted %d",
				ii, len(example.Target), len(example.Mask), codec.ActionSize)
		}
	}
	return nil
}

// ValidateFeatures checks a batch given to Estimator.Forward.
func ValidateFeatures(features [][]float32) error {
	if len(features) == 0 {
		return ErrEmptyBatch
	}
	for ii, f := range features {
		if len(f) != codec.StateSize {
			return errors.Errorf("feature vector #%d has %d entries, wanted %d", ii, len(f), codec.StateSize)
		}
	}
	return nil
}

// OneHotEncoding returns a slice of float32 with one element set to 1, and all others to 0.
func OneHotEncoding(total, selected int) (vec []float32) {
	vec = make([]float32, total)
	if total > 0 {
		vec[selected] = 1
	}
	return
}

// Softmax returns the Softmax of the given logits in a numerically stable way.
func Softmax(logits []float32) (probs []float32) {
	probs = make([]float32, len(logits))
	if len(logits) == 0 {
		return
	}
	// Subtracting the max keeps the probabilities, with smaller exponentials.
	maxValue := slices.Max(logits)
	var sum float32
	for ii, value := range logits {
		probs[ii] = math32.Exp(value - maxValue)
		sum += probs[ii]
	}
	for ii := range probs {
		probs[ii] /= sum
	}
	return
}

// Constructor of an Estimator from configuration parameters. It must pop the keys it uses, and
// return nil, nil if the parameters don't select it.
type Constructor func(params parameters.Params) (Estimator, error)

// RegisteredEstimators is populated by the init() functions of the estimator implementations,
// e.g. internal/ai/gomlx and internal/ai/mlp.
var RegisteredEstimators []Constructor

// New creates the Estimator selected by config, e.g. "dqn=/tmp/run,learning_rate=1e-4" or
// "mlp=weights.json". It is an error if no registered estimator is selected or if some
// parameter is left unused.
func New(config string) (Estimator, error) {
	params := parameters.NewFromConfigString(config)
	for _, constructor := range RegisteredEstimators {
		estimator, err := constructor(params)
		if err != nil {
			return nil, errors.WithMessagef(err, "creating estimator from %q", config)
		}
		if estimator == nil {
			continue
		}
		if err := params.CheckAllUsed(estimator.String()); err != nil {
			return nil, err
		}
		klog.V(1).Infof("Created estimator %s", estimator)
		return estimator, nil
	}
	return nil, errors.Errorf("no estimator selected by %q (%d registered): use \"dqn=<checkpoint_dir>\" or \"mlp=<weights_file>\"",
		config, len(RegisteredEstimators))
}
