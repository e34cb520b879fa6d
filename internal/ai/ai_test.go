package ai

import (
	"github.com/cerkeai/cerkeGo/internal/codec"
	"github.com/cerkeai/cerkeGo/internal/parameters"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float32{1, 1, 1, 1})
	for _, p := range probs {
		assert.InDelta(t, 0.25, p, 1e-6)
	}
	// Large values don't overflow.
	probs = Softmax([]float32{1000, 0})
	assert.InDelta(t, 1, probs[0], 1e-6)
	assert.InDelta(t, 0, probs[1], 1e-6)
	assert.Empty(t, Softmax(nil))
}

func TestOneHotEncoding(t *testing.T) {
	assert.Equal(t, []float32{0, 0, 1}, OneHotEncoding(3, 2))
	assert.Empty(t, OneHotEncoding(0, 0))
}

func TestValidateBatch(t *testing.T) {
	require.ErrorIs(t, ValidateBatch(nil), ErrEmptyBatch)
	good := TrainingExample{
		Features: make([]float32, codec.StateSize),
		Target:   make([]float32, codec.ActionSize),
		Mask:     make([]float32, codec.ActionSize),
	}
	require.NoError(t, ValidateBatch([]TrainingExample{good, good}))
	ragged := good
	ragged.Features = ragged.Features[:10]
	require.Error(t, ValidateBatch([]TrainingExample{good, ragged}))
	ragged = good
	ragged.Mask = nil
	require.Error(t, ValidateBatch([]TrainingExample{ragged}))

	require.ErrorIs(t, ValidateFeatures(nil), ErrEmptyBatch)
	require.Error(t, ValidateFeatures([][]float32{make([]float32, 3)}))
	require.NoError(t, ValidateFeatures([][]float32{good.Features}))
}

type namedEstimator struct {
	Estimator
	name string
}

func (e *namedEstimator) String() string { return e.name }

func TestNew(t *testing.T) {
	saved := RegisteredEstimators
	defer func() { RegisteredEstimators = saved }()
	RegisteredEstimators = []Constructor{
		func(params parameters.Params) (Estimator, error) {
			if _, found := params["broken"]; found {
				return nil, errors.New("broken")
			}
			return nil, nil
		},
		func(params parameters.Params) (Estimator, error) {
			name, _ := parameters.PopParamOr(params, "fake", "")
			if name == "" {
				return nil, nil
			}
			return &namedEstimator{name: name}, nil
		},
	}

	e, err := New("fake=x")
	require.NoError(t, err)
	assert.Equal(t, "x", e.String())

	_, err = New("fake=x,typo=1")
	require.ErrorContains(t, err, "typo")

	_, err = New("other=1")
	require.Error(t, err)

	_, err = New("broken,fake=x")
	require.ErrorContains(t, err, "broken")
}
