package main

import (
	"fmt"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// runInfo identifies one training run. Its directory holds the estimator weights, the exported
// experiences and a run_info.txt file with the fields below.
type runInfo struct {
	ID    string
	Name  string
	Dir   string
	Seed  uint64
	Start time.Time
}

// newRun creates the run directory (reusing it if it exists, to continue training) and writes
// its description.
func newRun(runsDir, name string, seed uint64) (*runInfo, error) {
	run := &runInfo{
		ID:    uuid.NewString(),
		Name:  name,
		Seed:  seed,
		Start: time.Now().UTC(),
	}
	if run.Name == "" {
		run.Name = run.Start.Format("20060102T150405Z")
	}
	if strings.ContainsRune(run.Name, os.PathSeparator) {
		return nil, errors.Errorf("invalid run name %q: it must not contain %q", run.Name, os.PathSeparator)
	}
	if run.Seed == 0 {
		run.Seed = rand.Uint64()
	}
	run.Dir = filepath.Join(runsDir, run.Name)
	if err := os.MkdirAll(run.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating run directory %q", run.Dir)
	}
	info := fmt.Sprintf("id: %s\nname: %s\nseed: %d\nstart: %s\nargs: %q\n",
		run.ID, run.Name, run.Seed, run.Start.Format(time.RFC3339), os.Args[1:])
	infoPath := filepath.Join(run.Dir, "run_info.txt")
	if err := os.WriteFile(infoPath, []byte(info), 0o644); err != nil {
		return nil, errors.Wrapf(err, "writing %q", infoPath)
	}
	return run, nil
}

// rng returns a new random number generator seeded by the run.
func (r *runInfo) rng() *rand.Rand {
	return rand.New(rand.NewPCG(r.Seed, 0))
}
