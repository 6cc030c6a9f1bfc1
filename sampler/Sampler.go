// Package sampler implements action selection from policy outputs.
// During rollout, a Sampler draws one action per game from the action
// distribution produced by the policy head, optionally mixing in
// uniform exploration noise.
package sampler

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/SunnyWangGitHub/ELF/utils/floatutils"
)

// Config describes a configuration of a Sampler
type Config struct {
	// Epsilon is the probability of replacing the sampled action by
	// a uniformly random one
	Epsilon float64 `json:"Epsilon"`

	// Greedy selects the most probable action instead of sampling
	Greedy bool `json:"Greedy"`
}

// Validate returns an error describing whether or not the
// configuration is valid
func (c Config) Validate() error {
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("epsilon must be in [0, 1] \n\thave(%v)",
			c.Epsilon)
	}
	return nil
}

// Sampler draws actions from per-game action distributions
type Sampler struct {
	cfg Config
	src rand.Source
	rng *rand.Rand
}

// New creates and returns a new Sampler
func New(c Config, seed uint64) (*Sampler, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	src := rand.NewSource(seed)
	return &Sampler{
		cfg: c,
		src: src,
		rng: rand.New(src),
	}, nil
}

// Sample draws one action index per game from pi, a batch-major
// matrix of numGames rows of numActions action probabilities
func (s *Sampler) Sample(pi []float64, numGames, numActions int) ([]int,
	error) {
	if len(pi) != numGames*numActions {
		return nil, fmt.Errorf("sample: illegal distribution length "+
			"\n\twant(%v)\n\thave(%v)", numGames*numActions, len(pi))
	}

	actions := make([]int, numGames)
	for g := 0; g < numGames; g++ {
		probs := pi[g*numActions : (g+1)*numActions]

		if s.cfg.Epsilon > 0 && s.rng.Float64() < s.cfg.Epsilon {
			actions[g] = s.rng.Intn(numActions)
			continue
		}

		if s.cfg.Greedy {
			// Break ties between equally probable actions at random
			best := floatutils.ArgMax(probs...)
			actions[g] = best[s.rng.Intn(len(best))]
			continue
		}

		weights := make([]float64, numActions)
		copy(weights, probs)
		dist := distuv.NewCategorical(weights, s.src)
		actions[g] = int(dist.Rand())
	}
	return actions, nil
}
