// Package gomlx implements the ai.Estimator with a GoMLX Q-network: a feed-forward network from
// the encoded phase to one score per action index, trained with a masked Huber loss.
//
// It is selected with the configuration "dqn=<checkpoint_dir>" (an empty directory name trains
// without saving), and it accepts all the context hyperparameters listed with "dqn=help".
package gomlx

import (
	"bytes"
	"fmt"
	"github.com/cerkeai/cerkeGo/internal/ai"
	"github.com/cerkeai/cerkeGo/internal/parameters"
	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/simplego"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"slices"
	"sync"
)

var (
	// Backend is a singleton, the same for all estimators.
	// It can be selected with the environment variable GOMLX_BACKEND.
	backend = sync.OnceValue(func() backends.Backend { return backends.New() })

	// muNewClient is a Mutex used to synchronize access to GoMLX client initialization
	// or related critical sections.
	muNewClient sync.Mutex
)

// ConfigKey selects the QNetwork in the estimator configuration.
const ConfigKey = "dqn"

const notSpecified = "#<not_specified>"

// New creates a QNetwork if params has the key "dqn", or returns nil, nil otherwise.
func New(params parameters.Params) (*QNetwork, error) {
	dir, _ := parameters.PopParamOr(params, ConfigKey, notSpecified)
	if dir == notSpecified {
		return nil, nil
	}
	if slices.Index([]string{"help", "--help", "-help", "-h"}, dir) != -1 {
		writeHyperparametersHelp(newContext())
		return nil, errors.Errorf("%s help requested", ConfigKey)
	}
	return NewQNetwork(dir, params)
}

// init registers New as a potential estimator, so end users can use it.
func init() {
	ai.RegisteredEstimators = append(ai.RegisteredEstimators,
		func(params parameters.Params) (ai.Estimator, error) {
			q, err := New(params)
			if q == nil || err != nil {
				return nil, err
			}
			return q, nil
		})
}

// writeHyperparametersHelp enumerates all the hyperparameters set in the context.
func writeHyperparametersHelp(ctx *context.Context) {
	buf := &bytes.Buffer{}
	_, _ = fmt.Fprintf(buf, "Estimator %s parameters:\n", ConfigKey)
	_, _ = fmt.Fprintf(buf, "\t%s=<checkpoint_dir> to load and save the network in the given directory\n", ConfigKey)
	_, _ = fmt.Fprintf(buf, "\t\"keep\": number of checkpoints to keep, default value is 10\n")
	ctx.EnumerateParams(func(scope, key string, value any) {
		if scope != context.RootScope {
			return
		}
		_, _ = fmt.Fprintf(buf, "\t%q: default value is %v\n", key, value)
	})
	klog.Info(buf)
}

// extractParams and write them as context hyperparameters
func extractParams(modelName string, params parameters.Params, ctx *context.Context) error {
	var err error
	ctx.EnumerateParams(func(scope, key string, valueAny any) {
		if err != nil || scope != context.RootScope {
			return
		}
		var value any
		var newErr error
		switch defaultValue := valueAny.(type) {
		case string:
			value, newErr = parameters.PopParamOr(params, key, defaultValue)
		case int:
			value, newErr = parameters.PopParamOr(params, key, defaultValue)
		case float64:
			value, newErr = parameters.PopParamOr(params, key, defaultValue)
		case float32:
			value, newErr = parameters.PopParamOr(params, key, defaultValue)
		case bool:
			value, newErr = parameters.PopParamOr(params, key, defaultValue)
		default:
			err = errors.Errorf("model %s parameter %q is of unknown type %T", modelName, key, defaultValue)
			return
		}
		if newErr != nil {
			err = errors.WithMessagef(newErr, "parsing %q (%T) for model %s", key, valueAny, modelName)
			return
		}
		ctx.SetParam(key, value)
	})
	return err
}
