package method

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/SunnyWangGitHub/ELF/stats"
)

// DiscountedReward converts a terminal value estimate and a stream of
// per-step immediate rewards into bootstrapped discounted returns. It
// holds the most recent return across calls within one trajectory;
// SetR fully resets that state, so the estimator is never shared
// across concurrent trajectories.
type DiscountedReward struct {
	discount float64
	r        *mat.VecDense
}

// NewDiscountedReward creates and returns a new DiscountedReward
// estimator
func NewDiscountedReward(c DiscountedRewardConfig) (*DiscountedReward,
	error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newdiscountedreward: %v", err)
	}
	return &DiscountedReward{discount: c.Discount}, nil
}

// SetR resets the estimator's state from a detached terminal value
// estimate, one entry per trajectory instance. No decay is applied at
// this boundary step.
func (d *DiscountedReward) SetR(terminalValue []float64, st *stats.Stats) {
	backing := make([]float64, len(terminalValue))
	copy(backing, terminalValue)
	d.r = mat.NewVecDense(len(backing), backing)

	st.Feed("bootstrap_V", stat.Mean(terminalValue, nil))
}

// Feed applies one step of reward, discount and terminal masking and
// returns the updated discounted return. At an episode boundary the
// bootstrap value beyond the boundary is discarded entirely and the
// return resets to the immediate reward. The returned vector is the
// estimator's live state and is advanced by the next Feed.
func (d *DiscountedReward) Feed(r []float64, terminal []bool,
	st *stats.Stats) (*mat.VecDense, error) {
	if d.r == nil {
		return nil, fmt.Errorf("feed: SetR must be called before Feed")
	}
	if len(r) != d.r.Len() {
		return nil, fmt.Errorf("feed: illegal reward length \n\twant(%v)"+
			"\n\thave(%v)", d.r.Len(), len(r))
	}
	if len(terminal) != d.r.Len() {
		return nil, fmt.Errorf("feed: illegal terminal length \n\twant(%v)"+
			"\n\thave(%v)", d.r.Len(), len(terminal))
	}

	for i := 0; i < d.r.Len(); i++ {
		if terminal[i] {
			d.r.SetVec(i, r[i])
		} else {
			d.r.SetVec(i, r[i]+d.discount*d.r.AtVec(i))
		}
	}

	st.Feed("reward", stat.Mean(r, nil))
	return d.r, nil
}
