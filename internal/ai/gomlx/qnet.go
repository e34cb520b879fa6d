package gomlx

import (
	"fmt"
	"github.com/cerkeai/cerkeGo/internal/ai"
	"github.com/cerkeai/cerkeGo/internal/codec"
	"github.com/cerkeai/cerkeGo/internal/parameters"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/checkpoints"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"strings"
	"sync"
)

// QNetwork implements ai.Estimator with a GoMLX feed-forward network. The live and target copies
// of the weights live in the same context, under LiveScope and TargetScope.
type QNetwork struct {
	ctx *context.Context

	// Executors.
	targetExec, liveExec, trainStepExec *context.Exec

	// optimizer used when training the live network.
	optimizer optimizers.Interface

	// checkpoint handler, if the network is being saved/loaded to/from disk.
	checkpoint *checkpoints.Handler

	// checkpointsToKeep is the number of copies of older checkpoints to keep around.
	checkpointsToKeep int

	// NumCompilations of computation graphs.
	NumCompilations int

	// muLearning "write" for learning and target updates, and "read" for scoring.
	muLearning sync.RWMutex

	// muSave makes saving sequential.
	muSave sync.Mutex
}

var _ ai.Estimator = (*QNetwork)(nil)

// NewQNetwork creates a QNetwork with hyperparameters taken from params (the keys are popped).
// If dir is not empty, the network is loaded from (and saved to) the checkpoint there.
func NewQNetwork(dir string, params parameters.Params) (*QNetwork, error) {
	q := &QNetwork{ctx: newContext()}
	var err error
	if err = extractParams("dqn", params, q.ctx); err != nil {
		return nil, err
	}
	q.checkpointsToKeep, err = parameters.PopParamOr(params, "keep", 10)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		q.checkpoint, err = checkpoints.Build(q.ctx).Dir(dir).Keep(q.checkpointsToKeep).Immediate().Done()
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to build checkpoint for dqn in path %s", dir)
		}
	}
	loadedTarget := q.numVariables(TargetScope) > 0

	q.optimizer = optimizers.FromContext(q.ctx)
	q.createExecutors()

	// Force creating/loading of variables without race conditions first.
	zeros := [][]float32{make([]float32, codec.StateSize)}
	if err = exceptions.TryCatch[error](func() {
		_ = q.forward(q.targetExec, zeros)
		_ = q.forward(q.liveExec, zeros)
	}); err != nil {
		return nil, errors.WithMessagef(err, "creating variables of %s", q)
	}
	q.ctx.EnumerateVariables(func(v *context.Variable) {
		if inScope(v.Scope(), TargetScope) {
			v.SetTrainable(false)
		}
	})
	if !loadedTarget {
		// Fresh (or live-only) network: start with identical copies.
		if err = q.UpdateHard(); err != nil {
			return nil, err
		}
	}
	klog.V(1).Infof("Created %s: %d live variables", q, q.numVariables(LiveScope))
	return q, nil
}

func (q *QNetwork) createExecutors() {
	muNewClient.Lock()
	defer muNewClient.Unlock()
	q.targetExec = context.NewExec(backend(), q.ctx,
		func(ctx *context.Context, features *graph.Node) *graph.Node {
			q.NumCompilations++
			return qGraph(ctx.In(TargetScope), features)
		})
	q.liveExec = context.NewExec(backend(), q.ctx,
		func(ctx *context.Context, features *graph.Node) *graph.Node {
			q.NumCompilations++
			return qGraph(ctx.In(LiveScope), features)
		})
	q.trainStepExec = context.NewExec(backend(), q.ctx,
		func(ctx *context.Context, features, targets, mask *graph.Node) *graph.Node {
			q.NumCompilations++
			g := features.Graph()
			ctx.SetTraining(g, true)
			predictions := qGraph(ctx.In(LiveScope), features)
			loss := maskedHuberLoss(ctx, predictions, targets, mask)
			q.optimizer.UpdateGraph(ctx, g, loss)
			train.ExecPerStepUpdateGraphFn(ctx, g)
			return loss
		})
	q.trainStepExec.SetMaxCache(100)
}

// String implements fmt.Stringer and ai.Estimator.
func (q *QNetwork) String() string {
	if q == nil {
		return "<nil>[GoMLX]"
	}
	name := fmt.Sprintf("dqn[GoMLX/%s]", backend().Name())
	if q.checkpoint == nil || q.checkpoint.Dir() == "" {
		return name
	}
	return fmt.Sprintf("%s@%s", name, q.checkpoint.Dir())
}

// Forward implements ai.Estimator, scoring with the target network.
func (q *QNetwork) Forward(features [][]float32) (scores [][]float32, err error) {
	if err = ai.ValidateFeatures(features); err != nil {
		return nil, err
	}
	q.muLearning.RLock()
	defer q.muLearning.RUnlock()
	err = exceptions.TryCatch[error](func() { scores = q.forward(q.targetExec, features) })
	return
}

// ForwardLive is like Forward, but scores with the live network.
func (q *QNetwork) ForwardLive(features [][]float32) (scores [][]float32, err error) {
	if err = ai.ValidateFeatures(features); err != nil {
		return nil, err
	}
	q.muLearning.RLock()
	defer q.muLearning.RUnlock()
	err = exceptions.TryCatch[error](func() { scores = q.forward(q.liveExec, features) })
	return
}

func (q *QNetwork) forward(exec *context.Exec, features [][]float32) [][]float32 {
	batchSize := paddedBatchSize(q.ctx, len(features))
	input := matrixTensor(features, batchSize, codec.StateSize)
	scoresT := exec.Call(graph.DonateTensorBuffer(input, backend()))[0]
	scores := scoresT.Value().([][]float32)
	// Remove any padding:
	return scores[:len(features)]
}

// Train implements ai.Estimator. Batches are not padded, since padding would bias the batch
// normalization statistics: callers should keep the batch size constant.
func (q *QNetwork) Train(batch []ai.TrainingExample) (loss float32, err error) {
	if err = ai.ValidateBatch(batch); err != nil {
		return 0, err
	}
	n := len(batch)
	features := make([][]float32, n)
	targets := make([][]float32, n)
	masks := make([][]float32, n)
	for ii, example := range batch {
		features[ii], targets[ii], masks[ii] = example.Features, example.Target, example.Mask
	}
	inputs := []any{
		graph.DonateTensorBuffer(matrixTensor(features, n, codec.StateSize), backend()),
		graph.DonateTensorBuffer(matrixTensor(targets, n, codec.ActionSize), backend()),
		graph.DonateTensorBuffer(matrixTensor(masks, n, codec.ActionSize), backend()),
	}
	q.muLearning.Lock()
	defer q.muLearning.Unlock()
	err = exceptions.TryCatch[error](func() {
		lossT := q.trainStepExec.Call(inputs...)[0]
		loss = tensors.ToScalar[float32](lossT)
	})
	if err != nil {
		return 0, errors.WithMessagef(err, "training %s on %d examples", q, n)
	}
	return loss, nil
}

// UpdateHard implements ai.Estimator: the value of every live variable is copied into its
// target counterpart.
func (q *QNetwork) UpdateHard() error {
	q.muLearning.Lock()
	defer q.muLearning.Unlock()
	var err error
	livePrefix := "/" + LiveScope
	q.ctx.EnumerateVariables(func(v *context.Variable) {
		if err != nil || !inScope(v.Scope(), LiveScope) {
			return
		}
		targetScope := "/" + TargetScope + strings.TrimPrefix(v.Scope(), livePrefix)
		target := q.ctx.InspectVariable(targetScope, v.Name())
		if target == nil {
			err = errors.Errorf("%s: variable %s/%s has no target counterpart in %s", q, v.Scope(), v.Name(), targetScope)
			return
		}
		var value *tensors.Tensor
		value, err = cloneTensor(v.Value())
		if err != nil {
			err = errors.WithMessagef(err, "copying variable %s/%s", v.Scope(), v.Name())
			return
		}
		target.SetValue(value)
	})
	return err
}

// UpdateSoft implements ai.Estimator. Only hard updates are supported.
func (q *QNetwork) UpdateSoft(tau float32) error {
	return errors.WithMessagef(ai.ErrSoftUpdateUnsupported, "%s with tau=%g", q, tau)
}

// Save implements ai.Estimator, creating a new checkpoint.
func (q *QNetwork) Save() error {
	q.muSave.Lock()
	defer q.muSave.Unlock()
	if q.checkpoint == nil {
		klog.Warningf("This %s model is not associated to a checkpoint directory, not saving", q)
		return nil
	}
	q.muLearning.RLock()
	defer q.muLearning.RUnlock()
	return q.checkpoint.Save()
}

// Context returns the context holding both networks and the hyperparameters.
func (q *QNetwork) Context() *context.Context {
	return q.ctx
}

func (q *QNetwork) numVariables(scope string) (count int) {
	q.ctx.EnumerateVariables(func(v *context.Variable) {
		if inScope(v.Scope(), scope) {
			count++
		}
	})
	return
}

// inScope returns whether the absolute variable scope is scope or is nested in it.
func inScope(variableScope, scope string) bool {
	prefix := context.ScopeSeparator + scope
	return variableScope == prefix || strings.HasPrefix(variableScope, prefix+context.ScopeSeparator)
}

// cloneTensor returns a tensor with a copy of the contents of t.
func cloneTensor(t *tensors.Tensor) (*tensors.Tensor, error) {
	dims := t.Shape().Dimensions
	switch t.DType() {
	case dtypes.Float32:
		return tensors.FromFlatDataAndDimensions(tensors.CopyFlatData[float32](t), dims...), nil
	case dtypes.Float64:
		return tensors.FromFlatDataAndDimensions(tensors.CopyFlatData[float64](t), dims...), nil
	case dtypes.Int32:
		return tensors.FromFlatDataAndDimensions(tensors.CopyFlatData[int32](t), dims...), nil
	case dtypes.Int64:
		return tensors.FromFlatDataAndDimensions(tensors.CopyFlatData[int64](t), dims...), nil
	}
	return nil, errors.Errorf("unsupported dtype %s", t.DType())
}
