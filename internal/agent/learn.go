package agent

import (
	"github.com/cerkeai/cerkeGo/internal/ai"
	"github.com/cerkeai/cerkeGo/internal/codec"
	"github.com/cerkeai/cerkeGo/internal/memory"
	"github.com/cerkeai/cerkeGo/internal/state"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// TrainingExample builds the regression example for taking action in a phase with the given
// features: the target vector holds y at action and zeros elsewhere, and the mask is 1 only at
// action. So the untaken actions don't contribute to the loss.
func TrainingExample(features []float32, action int, y float32) ai.TrainingExample {
	target := make([]float32, codec.ActionSize)
	target[action] = y
	return ai.TrainingExample{
		Features: features,
		Target:   target,
		Mask:     ai.OneHotEncoding(codec.ActionSize, action),
	}
}

// TDTargets returns the temporal-difference targets y = r + gamma * max_a' Q_target(s', a') for
// the experiences, maximizing only over the legal actions of s'. Terminal experiences have y = r.
// All the next phases are scored with one call to the target estimator.
func (a *Agent) TDTargets(experiences []*memory.Experience) ([]float32, error) {
	targets := make([]float32, len(experiences))
	var nextPhases []state.Phase
	var continued []int
	for ii, e := range experiences {
		targets[ii] = e.Value
		if e.Terminal {
			continue
		}
		if e.Next == nil || len(e.NextLegal) == 0 {
			return nil, errors.Errorf("non-terminal experience without next decision point: %s", e)
		}
		nextPhases = append(nextPhases, e.Next)
		continued = append(continued, ii)
	}
	if len(nextPhases) == 0 {
		return targets, nil
	}
	scores, err := a.estimator.Forward(codec.EncodeBatch(nextPhases))
	if err != nil {
		return nil, errors.WithMessagef(err, "scoring %d next phases", len(nextPhases))
	}
	for jj, ii := range continued {
		maxQ := math32.Inf(-1)
		for _, action := range experiences[ii].NextLegal {
			maxQ = max(maxQ, scores[jj][action])
		}
		targets[ii] += a.config.Gamma * maxQ
	}
	return targets, nil
}

// Learn runs one learning step: it samples experiences from the replay memory, trains the live
// estimator towards their TD targets, and every RefreshEvery steps copies the live parameters to
// the target estimator.
//
// If anything fails the step is abandoned without counting it: there is no partial update.
func (a *Agent) Learn() (loss float32, err error) {
	if a.memory.Len() == 0 {
		return 0, ErrEmptyMemory
	}
	experiences := a.memory.SampleN(a.config.Samples)
	targets, err := a.TDTargets(experiences)
	if err != nil {
		return 0, errors.WithMessagef(err, "learning step %d", a.iteration)
	}
	phases := make([]state.Phase, len(experiences))
	for ii, e := range experiences {
		phases[ii] = e.State
	}
	features := codec.EncodeBatch(phases)
	batch := make([]ai.TrainingExample, len(experiences))
	for ii, e := range experiences {
		if e.Action < 0 || e.Action >= codec.ActionSize {
			return 0, errors.Errorf("learning step %d: experience with invalid action %d", a.iteration, e.Action)
		}
		batch[ii] = TrainingExample(features[ii], e.Action, targets[ii])
	}
	loss, err = a.estimator.Train(batch)
	if err != nil {
		klog.Errorf("Learning step %d abandoned: %+v", a.iteration, err)
		return 0, errors.WithMessagef(err, "learning step %d", a.iteration)
	}
	refresh := a.iteration%a.config.RefreshEvery == a.config.RefreshEvery-1
	a.iteration++
	if refresh {
		if err = a.estimator.UpdateHard(); err != nil {
			return loss, errors.WithMessagef(err, "refreshing target after learning step %d", a.iteration)
		}
		klog.V(1).Infof("Target estimator refreshed after learning step %d", a.iteration)
	}
	klog.V(2).Infof("Learning step %d: loss=%g", a.iteration, loss)
	return loss, nil
}
