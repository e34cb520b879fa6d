package agent

import (
	"github.com/cerkeai/cerkeGo/internal/codec"
	"github.com/cerkeai/cerkeGo/internal/policy"
	"github.com/cerkeai/cerkeGo/internal/state"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Selection is the action chosen for a phase.
type Selection struct {
	Candidate state.Candidate
	Action    int

	// Legal holds the legal action indices of the phase, sorted.
	Legal []int
}

// decisionPoint holds what is needed to choose an action for a phase.
type decisionPoint struct {
	phase      state.Phase
	candidates state.Candidates
	mask       []bool
}

func (a *Agent) decisionPoint(p state.Phase) (decisionPoint, error) {
	candidates, err := a.engine.Candidates(p)
	if err != nil {
		return decisionPoint{}, errors.WithMessagef(err, "listing candidates of %s", p.Kind())
	}
	if candidates.Len() == 0 {
		return decisionPoint{}, errors.Errorf("phase %s has no candidates", p.Kind())
	}
	return decisionPoint{phase: p, candidates: candidates, mask: codec.LegalMask(p, candidates)}, nil
}

// policyFor returns the policy used for the phase kind.
func (a *Agent) policyFor(kind state.PhaseKind) policy.Policy {
	if kind == state.KindStart {
		return a.movePolicy
	}
	return a.decisionPolicy
}

func (a *Agent) choose(point decisionPoint, scores []float32) (selection Selection, err error) {
	err = exceptions.TryCatch[error](func() {
		selection.Action = a.policyFor(point.phase.Kind()).Choose(scores, point.mask)
		selection.Candidate = codec.DecodeAction(selection.Action, point.candidates)
	})
	if err != nil {
		return Selection{}, errors.WithMessagef(err, "choosing action for %s", point.phase.Kind())
	}
	selection.Legal = codec.LegalActions(point.mask)
	if klog.V(2).Enabled() {
		klog.Infof("%s: chose %s (%d) among %d legal actions, score %g",
			point.phase.Kind(), codec.DescribeAction(selection.Action), selection.Action,
			len(selection.Legal), scores[selection.Action])
	}
	return selection, nil
}

// SelectAction lists the candidates of the phase, scores it with the target estimator and
// chooses a legal action with the policy for the phase kind.
func (a *Agent) SelectAction(p state.Phase) (Selection, error) {
	selections, err := a.BatchSelect([]state.Phase{p})
	if err != nil {
		return Selection{}, err
	}
	return selections[0], nil
}

// BatchSelect is like SelectAction for many phases, with one estimator call for all of them.
func (a *Agent) BatchSelect(phases []state.Phase) ([]Selection, error) {
	if len(phases) == 0 {
		return nil, nil
	}
	points := make([]decisionPoint, len(phases))
	for ii, p := range phases {
		var err error
		if points[ii], err = a.decisionPoint(p); err != nil {
			return nil, err
		}
	}
	scores, err := a.estimator.Forward(codec.EncodeBatch(phases))
	if err != nil {
		return nil, errors.WithMessagef(err, "scoring %d phases with %s", len(phases), a.estimator)
	}
	if len(scores) != len(phases) {
		return nil, errors.Errorf("%s returned %d score vectors for %d phases", a.estimator, len(scores), len(phases))
	}
	selections := make([]Selection, len(phases))
	for ii, point := range points {
		if selections[ii], err = a.choose(point, scores[ii]); err != nil {
			return nil, err
		}
	}
	return selections, nil
}
