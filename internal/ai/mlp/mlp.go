// Package mlp implements the ai.Estimator with a pair of go-deep multi-layer perceptrons.
//
// It is a pure Go alternative to the GoMLX estimator, slower but with no backend to set up.
// It is selected with the configuration "mlp=<weights_file>", where the weights are saved as JSON.
package mlp

import (
	"encoding/json"
	"fmt"
	"github.com/cerkeai/cerkeGo/internal/ai"
	"github.com/cerkeai/cerkeGo/internal/codec"
	"github.com/cerkeai/cerkeGo/internal/parameters"
	"github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// ConfigKey selects the MLP in the estimator configuration.
const ConfigKey = "mlp"

const notSpecified = "#<not_specified>"

// Config of the network architecture and training.
type Config struct {
	HiddenLayers []int
	LearningRate float64
}

// DefaultConfig returns the reference architecture: 2 hidden layers of 128 units.
func DefaultConfig() Config {
	return Config{HiddenLayers: []int{128, 128}, LearningRate: 2.5e-4}
}

// savedNetworks is the JSON format of the weights file.
type savedNetworks struct {
	Config  Config
	Live    [][][]float64
	Target  [][][]float64
	NumSave int
}

// MLP implements ai.Estimator with go-deep networks.
type MLP struct {
	config       Config
	filePath     string
	live, target *deep.Neural
	numSave      int

	// solver and trainer live as long as the estimator, so Adam keeps its moments across
	// learning steps.
	solver  *persistentSolver
	trainer training.Trainer

	// mu serializes all calls: go-deep networks keep activations in their neurons.
	mu sync.Mutex
}

var _ ai.Estimator = (*MLP)(nil)

func newNeural(config Config) *deep.Neural {
	return deep.NewNeural(&deep.Config{
		Inputs:     codec.StateSize,
		Layout:     append(slices.Clone(config.HiddenLayers), codec.ActionSize),
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeRegression,
		Loss:       deep.LossMeanSquared,
		Weight:     deep.NewNormal(0.0, 0.1),
		Bias:       true,
	})
}

// NewMLP creates the network pair. If filePath is not empty and exists, the weights are loaded
// from it, and its configuration takes precedence over config.
func NewMLP(filePath string, config Config) (*MLP, error) {
	m := &MLP{config: config, filePath: filePath}
	var saved *savedNetworks
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		switch {
		case err == nil:
			saved = &savedNetworks{}
			if err := json.Unmarshal(data, saved); err != nil {
				return nil, errors.Wrapf(err, "parsing weights file %q", filePath)
			}
			m.config = saved.Config
			m.numSave = saved.NumSave
		case os.IsNotExist(err):
			klog.V(1).Infof("Weights file %q not found, starting %s with random weights", filePath, ConfigKey)
		default:
			return nil, errors.Wrapf(err, "reading weights file %q", filePath)
		}
	}
	m.live = newNeural(m.config)
	m.target = newNeural(m.config)
	if saved != nil {
		if err := checkWeights(m.live, saved.Live); err != nil {
			return nil, errors.WithMessagef(err, "live weights in %q", filePath)
		}
		if err := checkWeights(m.target, saved.Target); err != nil {
			return nil, errors.WithMessagef(err, "target weights in %q", filePath)
		}
		m.live.ApplyWeights(saved.Live)
		m.target.ApplyWeights(saved.Target)
	} else {
		m.target.ApplyWeights(m.live.Weights())
	}
	m.solver = &persistentSolver{Solver: training.NewAdam(m.config.LearningRate, 0.9, 0.999, 1e-8)}
	m.trainer = training.NewTrainer(m.solver, 0)
	return m, nil
}

// persistentSolver keeps the state of a training.Solver across calls to Trainer.Train, which
// re-initializes its solver every time. It also counts the Train calls as the solver iteration,
// so Adam's bias correction follows the number of learning steps.
type persistentSolver struct {
	training.Solver
	size, step int
}

// Init implements training.Solver. Only the first call, or a change of size, initializes the
// wrapped solver.
func (s *persistentSolver) Init(size int) {
	s.step++
	if s.size == size {
		return
	}
	s.size = size
	s.Solver.Init(size)
}

// Update implements training.Solver.
func (s *persistentSolver) Update(value, gradient float64, _, idx int) float64 {
	return s.Solver.Update(value, gradient, s.step, idx)
}

// checkWeights verifies that the loaded weights match the network layout.
func checkWeights(n *deep.Neural, weights [][][]float64) error {
	if len(weights) != len(n.Layers) {
		return errors.Errorf("%d layers, network has %d", len(weights), len(n.Layers))
	}
	for ii, layer := range n.Layers {
		if len(weights[ii]) != len(layer.Neurons) {
			return errors.Errorf("layer #%d has %d neurons, network has %d", ii, len(weights[ii]), len(layer.Neurons))
		}
		for jj, neuron := range layer.Neurons {
			if len(weights[ii][jj]) != len(neuron.In) {
				return errors.Errorf("neuron #%d of layer #%d has %d inputs, network has %d",
					jj, ii, len(weights[ii][jj]), len(neuron.In))
			}
		}
	}
	return nil
}

// New creates an MLP if params has the key "mlp", or returns nil, nil otherwise.
// Other keys: "hidden" (units per hidden layer), "layers" (number of hidden layers) and
// "learning_rate".
func New(params parameters.Params) (*MLP, error) {
	filePath, _ := parameters.PopParamOr(params, ConfigKey, notSpecified)
	if filePath == notSpecified {
		return nil, nil
	}
	config := DefaultConfig()
	hidden, err := parameters.PopParamOr(params, "hidden", config.HiddenLayers[0])
	if err != nil {
		return nil, err
	}
	numLayers, err := parameters.PopParamOr(params, "layers", len(config.HiddenLayers))
	if err != nil {
		return nil, err
	}
	if hidden <= 0 || numLayers < 0 {
		return nil, errors.Errorf("invalid %s architecture: layers=%d, hidden=%d", ConfigKey, numLayers, hidden)
	}
	config.HiddenLayers = make([]int, numLayers)
	for ii := range config.HiddenLayers {
		config.HiddenLayers[ii] = hidden
	}
	config.LearningRate, err = parameters.PopParamOr(params, "learning_rate", config.LearningRate)
	if err != nil {
		return nil, err
	}
	return NewMLP(filePath, config)
}

func init() {
	ai.RegisteredEstimators = append(ai.RegisteredEstimators,
		func(params parameters.Params) (ai.Estimator, error) {
			m, err := New(params)
			if m == nil || err != nil {
				return nil, err
			}
			return m, nil
		})
}

// String implements fmt.Stringer and ai.Estimator.
func (m *MLP) String() string {
	name := fmt.Sprintf("%s%v[go-deep]", ConfigKey, m.config.HiddenLayers)
	if m.filePath == "" {
		return name
	}
	return name + "@" + m.filePath
}

func toFloat64(values []float32) []float64 {
	out := make([]float64, len(values))
	for ii, v := range values {
		out[ii] = float64(v)
	}
	return out
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for ii, v := range values {
		out[ii] = float32(v)
	}
	return out
}

// Forward implements ai.Estimator, scoring with the target network.
func (m *MLP) Forward(features [][]float32) ([][]float32, error) {
	if err := ai.ValidateFeatures(features); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	scores := make([][]float32, len(features))
	for ii, f := range features {
		scores[ii] = toFloat32(m.target.Predict(toFloat64(f)))
	}
	return scores, nil
}

// ForwardLive is like Forward, but scores with the live network.
func (m *MLP) ForwardLive(features [][]float32) ([][]float32, error) {
	if err := ai.ValidateFeatures(features); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	scores := make([][]float32, len(features))
	for ii, f := range features {
		scores[ii] = toFloat32(m.live.Predict(toFloat64(f)))
	}
	return scores, nil
}

// Train implements ai.Estimator with one epoch of Adam over the batch. The optimizer state
// carries over from the previous calls.
//
// The go-deep loss covers all outputs, so the masked-out entries of the responses are set to the
// current live predictions: their error, and gradient, is zero.
// The returned loss is the masked mean squared error before the update.
func (m *MLP) Train(batch []ai.TrainingExample) (float32, error) {
	if err := ai.ValidateBatch(batch); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	examples := make(training.Examples, len(batch))
	var loss float64
	for ii, example := range batch {
		input := toFloat64(example.Features)
		response := m.live.Predict(input)
		for jj, mask := range example.Mask {
			if mask == 0 {
				continue
			}
			diff := float64(example.Target[jj]) - response[jj]
			loss += diff * diff
			response[jj] = float64(example.Target[jj])
		}
		examples[ii] = training.Example{Input: input, Response: response}
	}
	m.trainer.Train(m.live, examples, nil, 1)
	return float32(loss / float64(len(batch))), nil
}

// UpdateHard implements ai.Estimator.
func (m *MLP) UpdateHard() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target.ApplyWeights(m.live.Weights())
	return nil
}

// UpdateSoft implements ai.Estimator. Only hard updates are supported.
func (m *MLP) UpdateSoft(tau float32) error {
	return errors.WithMessagef(ai.ErrSoftUpdateUnsupported, "%s with tau=%g", m, tau)
}

// Save implements ai.Estimator. The file is written to a temporary name and renamed once complete.
func (m *MLP) Save() error {
	if m.filePath == "" {
		klog.Warningf("This %s model is not associated to a file, not saving", m)
		return nil
	}
	m.mu.Lock()
	m.numSave++
	saved := savedNetworks{
		Config:  m.config,
		Live:    m.live.Weights(),
		Target:  m.target.Weights(),
		NumSave: m.numSave,
	}
	m.mu.Unlock()
	data, err := json.Marshal(saved)
	if err != nil {
		return errors.Wrapf(err, "encoding weights of %s", m)
	}
	if dir := filepath.Dir(m.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating directory for %q", m.filePath)
		}
	}
	tmpPath := m.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %q", tmpPath)
	}
	if err := os.Rename(tmpPath, m.filePath); err != nil {
		return errors.Wrapf(err, "renaming %q to %q", tmpPath, m.filePath)
	}
	klog.V(1).Infof("Saved %s (save #%d)", m, m.numSave)
	return nil
}
