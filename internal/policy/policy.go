// Package policy implements the exploration policies that pick one action index given the
// estimator scores and the legal mask.
package policy

import (
	"fmt"
	"github.com/cerkeai/cerkeGo/internal/ai"
	"github.com/chewxy/math32"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"math/rand/v2"
)

// Policy chooses an action index among the legal ones.
//
// Choose panics if the mask has no legal index, or if scores and mask have different lengths:
// the caller always has at least one legal candidate.
type Policy interface {
	Choose(scores []float32, mask []bool) int
	String() string
}

// Default values of the policies parameters.
const (
	DefaultGreedyProbability = 0.98
	DefaultBeta              = 2.0
)

func checkInputs(scores []float32, mask []bool) {
	if len(scores) != len(mask) {
		exceptions.Panicf("policy: %d scores for a mask of %d entries", len(scores), len(mask))
	}
}

// argMax returns the legal index of highest score, the first one on ties. NaN scores are only
// chosen if all legal scores are NaN.
func argMax(scores []float32, mask []bool) int {
	checkInputs(scores, mask)
	best := -1
	for idx, legal := range mask {
		if legal && (best == -1 || scores[idx] > scores[best] || math32.IsNaN(scores[best])) {
			best = idx
		}
	}
	if best == -1 {
		exceptions.Panicf("policy: no legal action to choose from")
	}
	return best
}

// Greedy always picks the legal index of highest score, the first one on ties.
type Greedy struct{}

var _ Policy = Greedy{}

// Choose implements Policy.
func (Greedy) Choose(scores []float32, mask []bool) int {
	return argMax(scores, mask)
}

func (Greedy) String() string { return "greedy" }

// EpsilonGreedy picks the greedy index with probability GreedyProbability, and a uniformly
// random legal index otherwise.
type EpsilonGreedy struct {
	GreedyProbability float32
	rng               *rand.Rand
}

var _ Policy = (*EpsilonGreedy)(nil)

// NewEpsilonGreedy returns an EpsilonGreedy policy drawing from rng.
func NewEpsilonGreedy(greedyProbability float32, rng *rand.Rand) *EpsilonGreedy {
	return &EpsilonGreedy{GreedyProbability: greedyProbability, rng: rng}
}

// Choose implements Policy.
func (p *EpsilonGreedy) Choose(scores []float32, mask []bool) int {
	if p.rng.Float32() < p.GreedyProbability {
		return argMax(scores, mask)
	}
	checkInputs(scores, mask)
	var numLegal int
	for _, legal := range mask {
		if legal {
			numLegal++
		}
	}
	if numLegal == 0 {
		exceptions.Panicf("policy: no legal action to choose from")
	}
	nth := p.rng.IntN(numLegal)
	for idx, legal := range mask {
		if !legal {
			continue
		}
		if nth == 0 {
			return idx
		}
		nth--
	}
	return -1 // Not reached.
}

func (p *EpsilonGreedy) String() string {
	return fmt.Sprintf("epsilon(greedy=%g)", p.GreedyProbability)
}

// Boltzmann samples a legal index with probability proportional to exp(Beta * score).
type Boltzmann struct {
	Beta float32
	rng  *rand.Rand
}

var _ Policy = (*Boltzmann)(nil)

// NewBoltzmann returns a Boltzmann policy drawing from rng.
func NewBoltzmann(beta float32, rng *rand.Rand) *Boltzmann {
	return &Boltzmann{Beta: beta, rng: rng}
}

// Choose implements Policy.
func (p *Boltzmann) Choose(scores []float32, mask []bool) int {
	checkInputs(scores, mask)
	var legalIndices []int
	var logits []float32
	for idx, legal := range mask {
		if legal {
			legalIndices = append(legalIndices, idx)
			logits = append(logits, p.Beta*scores[idx])
		}
	}
	if len(legalIndices) == 0 {
		exceptions.Panicf("policy: no legal action to choose from")
	}
	probabilities := ai.Softmax(logits)
	chance := p.rng.Float32()
	for ii, probability := range probabilities {
		if math32.IsNaN(probability) {
			// Non-finite scores: fall back to the greedy choice.
			klog.Warningf("Boltzmann policy with non-finite scores, choosing greedily")
			return argMax(scores, mask)
		}
		if chance < probability {
			return legalIndices[ii]
		}
		chance -= probability
	}
	// Rounding errors.
	return legalIndices[len(legalIndices)-1]
}

func (p *Boltzmann) String() string {
	return fmt.Sprintf("boltzmann(beta=%g)", p.Beta)
}

// New creates the policy with the given name: "epsilon", "boltzmann" or "greedy".
func New(name string, greedyProbability, beta float32, rng *rand.Rand) (Policy, error) {
	switch name {
	case "epsilon", "":
		return NewEpsilonGreedy(greedyProbability, rng), nil
	case "boltzmann":
		return NewBoltzmann(beta, rng), nil
	case "greedy":
		return Greedy{}, nil
	}
	return nil, errors.Errorf("unknown policy %q, valid values are \"epsilon\", \"boltzmann\" or \"greedy\"", name)
}
