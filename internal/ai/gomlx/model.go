package gomlx

import (
	"github.com/cerkeai/cerkeGo/internal/codec"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
	fnnLayer "github.com/gomlx/gomlx/ml/layers/fnn"
	"github.com/gomlx/gomlx/ml/layers/regularizers"
	"github.com/gomlx/gomlx/ml/train/losses"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
)

// Scopes of the two copies of the network variables.
const (
	LiveScope   = "live"
	TargetScope = "target"
)

// ParamHuberDelta is the context hyperparameter with the threshold where the Huber loss turns
// from quadratic to linear.
const ParamHuberDelta = "huber_delta"

// newContext creates a context initialized with hyperparameters set to their defaults.
func newContext() *context.Context {
	ctx := context.New()
	ctx.RngStateReset()
	ctx.SetParams(map[string]any{
		"batch_size": 128,

		optimizers.ParamOptimizer:    "adam",
		optimizers.ParamLearningRate: 2.5e-4,
		optimizers.ParamAdamEpsilon:  1e-7,
		activations.ParamActivation:  "relu",
		layers.ParamDropoutRate:      0.0,
		regularizers.ParamL2:         0.0,

		fnnLayer.ParamNumHiddenLayers: 2,
		fnnLayer.ParamNumHiddenNodes:  128,
		fnnLayer.ParamResidual:        false,
		fnnLayer.ParamNormalization:   "batch",

		ParamHuberDelta: 1.0,
	})
	return ctx.Checked(false)
}

// qGraph returns the scores of every action for the batch of features, shaped
// [batch_size, codec.ActionSize]. ctx must be scoped in LiveScope or TargetScope.
func qGraph(ctx *context.Context, features *Node) *Node {
	batchSize := features.Shape().Dim(0)
	scores := fnnLayer.New(ctx.In("fnn"), features, codec.ActionSize).Done()
	scores.AssertDims(batchSize, codec.ActionSize)
	return scores
}

// maskedHuberLoss is the Huber loss between predictions and targets, averaged over the entries
// where mask is set. There is one such entry per example, the action taken.
func maskedHuberLoss(ctx *context.Context, predictions, targets, mask *Node) *Node {
	delta := context.GetParamOr(ctx, ParamHuberDelta, 1.0)
	return losses.MakeHuberLoss(delta)([]*Node{targets, GreaterThanScalar(mask, 0)}, []*Node{predictions})
}

// paddedBatchSize returns a padded batchSize for the given numExamples.
// This is important so we don't have too many different versions of the program for every different batch size.
func paddedBatchSize(ctx *context.Context, numExamples int) int {
	defaultBatchSize := context.GetParamOr(ctx, "batch_size", 128)
	if numExamples == defaultBatchSize {
		return numExamples
	}
	paddedSize := 1
	for paddedSize < numExamples {
		// Increase 1.5x at a time.
		paddedSize = paddedSize + (paddedSize+1)/2
	}
	return paddedSize
}

// matrixTensor builds a [batchSize, width] float32 tensor with the given rows, zero padded.
func matrixTensor(rows [][]float32, batchSize, width int) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dtypes.Float32, batchSize, width))
	tensors.MutableFlatData(t, func(flat []float32) {
		for ii, row := range rows {
			copy(flat[ii*width:(ii+1)*width], row)
		}
	})
	return t
}
