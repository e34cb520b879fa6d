package parameters

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNewFromConfigString(t *testing.T) {
	params := NewFromConfigString("gamma=0.99, samples=500,,fifo,path=a=b")
	assert.Equal(t, Params{"gamma": "0.99", "samples": "500", "fifo": "", "path": "a=b"}, params)
	assert.Empty(t, NewFromConfigString(""))
}

func TestPopParamOr(t *testing.T) {
	params := NewFromConfigString("gamma=0.99,samples=500,fifo,policy=boltzmann,bad=x")

	gamma, err := PopParamOr(params, "gamma", float32(0.5))
	require.NoError(t, err)
	assert.Equal(t, float32(0.99), gamma)

	samples, err := PopParamOr(params, "samples", 10)
	require.NoError(t, err)
	assert.Equal(t, 500, samples)

	fifo, err := PopParamOr(params, "fifo", false)
	require.NoError(t, err)
	assert.True(t, fifo)

	policy, err := PopParamOr(params, "policy", "epsilon")
	require.NoError(t, err)
	assert.Equal(t, "boltzmann", policy)

	beta, err := PopParamOr(params, "beta", 2.0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, beta)

	_, err = PopParamOr(params, "bad", 1)
	require.Error(t, err)
	_, err = GetParamOr(params, "bad", true)
	require.Error(t, err)

	err = params.CheckAllUsed("test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	delete(params, "bad")
	require.NoError(t, params.CheckAllUsed("test"))
}

func TestClone(t *testing.T) {
	params := NewFromConfigString("a=1,b=2")
	clone := params.Clone()
	delete(clone, "a")
	assert.Len(t, params, 2)
	assert.Len(t, clone, 1)
}
