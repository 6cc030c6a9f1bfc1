// Package batch implements trajectory batches. A Batch holds the data
// produced by rolling out a policy in a set of simulated games for T
// timesteps: state frames, immediate rewards, terminal flags, the
// sampled actions, and the behaviour policy's action distribution at
// sampling time.
package batch

import (
	"fmt"
)

// Batch is an ordered sequence of T timesteps, each holding data for
// NumGames trajectory instances. Batches are created by rollout code
// and are read-only to update rules.
type Batch struct {
	numGames   int
	features   int
	numActions int

	states    [][]float64 // T x (numGames * features), batch-major
	rewards   [][]float64 // T x numGames
	terminals [][]bool    // T x numGames
	actions   [][]int     // T x numGames
	oldPi     [][]float64 // T x (numGames * numActions), batch-major
}

// New creates an empty Batch for numGames trajectory instances with
// the given state feature count and number of discrete actions.
func New(numGames, features, numActions int) *Batch {
	return &Batch{
		numGames:   numGames,
		features:   features,
		numActions: numActions,
	}
}

// Append adds one timestep of rollout data to the Batch. The states
// and oldPi slices are batch-major: one row of features (respectively
// action probabilities) per game.
func (b *Batch) Append(states, rewards []float64, terminals []bool,
	actions []int, oldPi []float64) error {
	if len(states) != b.numGames*b.features {
		return fmt.Errorf("append: illegal states length \n\twant(%v)"+
			"\n\thave(%v)", b.numGames*b.features, len(states))
	}
	if len(rewards) != b.numGames {
		return fmt.Errorf("append: illegal rewards length \n\twant(%v)"+
			"\n\thave(%v)", b.numGames, len(rewards))
	}
	if len(terminals) != b.numGames {
		return fmt.Errorf("append: illegal terminals length \n\twant(%v)"+
			"\n\thave(%v)", b.numGames, len(terminals))
	}
	if len(actions) != b.numGames {
		return fmt.Errorf("append: illegal actions length \n\twant(%v)"+
			"\n\thave(%v)", b.numGames, len(actions))
	}
	if oldPi != nil && len(oldPi) != b.numGames*b.numActions {
		return fmt.Errorf("append: illegal oldPi length \n\twant(%v)"+
			"\n\thave(%v)", b.numGames*b.numActions, len(oldPi))
	}

	b.states = append(b.states, states)
	b.rewards = append(b.rewards, rewards)
	b.terminals = append(b.terminals, terminals)
	b.actions = append(b.actions, actions)
	b.oldPi = append(b.oldPi, oldPi)
	return nil
}

// Len returns the number of timesteps T in the Batch
func (b *Batch) Len() int {
	return len(b.states)
}

// NumGames returns the number of trajectory instances in the Batch
func (b *Batch) NumGames() int {
	return b.numGames
}

// Features returns the number of state features per game per timestep
func (b *Batch) Features() int {
	return b.features
}

// NumActions returns the number of discrete actions
func (b *Batch) NumActions() int {
	return b.numActions
}

// Rewards returns the immediate rewards at timestep t, one per game
func (b *Batch) Rewards(t int) []float64 {
	return b.rewards[t]
}

// Terminals returns the terminal flags at timestep t, one per game
func (b *Batch) Terminals(t int) []bool {
	return b.terminals[t]
}

// Actions returns the sampled action indices at timestep t
func (b *Batch) Actions(t int) []int {
	return b.actions[t]
}

// OldPi returns the behaviour policy's action distribution at
// timestep t, or nil if none was recorded
func (b *Batch) OldPi(t int) []float64 {
	return b.oldPi[t]
}

// Validate returns an error describing why the Batch cannot be used
// for an update, or nil if it can. Updates walk the trajectory
// backward from a terminal bootstrap state, so at least two timesteps
// are required.
func (b *Batch) Validate() error {
	if b.Len() < 2 {
		return fmt.Errorf("validate: trajectory length must be at least 2 "+
			"\n\thave(%v)", b.Len())
	}
	return nil
}

// Hist returns the history view of the Batch at timestep t: whatever
// slice of the trajectory a model needs to score step t.
func (b *Batch) Hist(t int) View {
	return View{b: b, t: t}
}

// View is a read-only view of a Batch's history up to and including
// one timestep.
type View struct {
	b *Batch
	t int
}

// T returns the timestep the View ends at
func (v View) T() int {
	return v.t
}

// Frames flattens the last n state frames ending at the View's
// timestep into a batch-major input row per game. Frames before the
// start of the trajectory are zero-padded.
func (v View) Frames(n int) []float64 {
	b := v.b
	out := make([]float64, b.numGames*n*b.features)

	for g := 0; g < b.numGames; g++ {
		row := out[g*n*b.features : (g+1)*n*b.features]
		for f := 0; f < n; f++ {
			t := v.t - (n - 1) + f
			if t < 0 {
				continue // zero padding before the trajectory start
			}
			src := b.states[t][g*b.features : (g+1)*b.features]
			copy(row[f*b.features:(f+1)*b.features], src)
		}
	}
	return out
}

// Actions returns the sampled action indices at the View's timestep
func (v View) Actions() []int {
	return v.b.actions[v.t]
}

// OldPi returns the behaviour policy's action distribution at the
// View's timestep, or nil if none was recorded
func (v View) OldPi() []float64 {
	return v.b.oldPi[v.t]
}
