// Package method implements update rules: given a trajectory batch
// produced by rolling out a policy, an update rule computes losses
// and triggers gradient propagation on a model. The package follows
// the feed/accumulate design of the surrounding training framework:
// collaborators attach their loss nodes to the model's graph once at
// construction and bind per-timestep inputs on every feed.
package method

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"

	"github.com/SunnyWangGitHub/ELF/batch"
	"github.com/SunnyWangGitHub/ELF/model"
	"github.com/SunnyWangGitHub/ELF/network"
	"github.com/SunnyWangGitHub/ELF/stats"
)

// ActorCritic coordinates one end-of-trajectory actor-critic update.
// It walks the trajectory backward, invokes the model once per step,
// advances the discounted-return estimator, computes the advantage
// from the detached value estimate, and triggers one gradient
// propagation per step. Each step's backward pass runs and is
// released before the next step's forward pass, so peak memory is
// bounded by one timestep's graph rather than growing with the
// trajectory.
type ActorCritic struct {
	cfg ActorCriticConfig

	m       *model.Model
	dr      *DiscountedReward
	pg      *PolicyGradient
	matcher *ValueMatcher

	frames int

	errNode *G.Node
	errVal  G.Value
	trainVM G.VM
}

// NewActorCritic creates and returns a new ActorCritic update rule
// bound to the model registered as "model" in mi. The combined
// policy and value loss and its gradient nodes are attached to the
// model's graph here.
func NewActorCritic(c ActorCriticConfig,
	mi *model.Interface) (*ActorCritic, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newactorcritic: %v", err)
	}

	m, err := mi.Model("model")
	if err != nil {
		return nil, fmt.Errorf("newactorcritic: %v", err)
	}
	net := m.Net()

	if net.BatchSize() != c.NumGames {
		return nil, fmt.Errorf("newactorcritic: network batch size must "+
			"match the number of games \n\twant(%v)\n\thave(%v)", c.NumGames,
			net.BatchSize())
	}

	v, ok := net.OutputNodes()[c.ValueNode]
	if !ok {
		return nil, fmt.Errorf("newactorcritic: network has no output "+
			"named %v", c.ValueNode)
	}
	if len(v.Shape()) != 2 || v.Shape()[1] != 1 {
		return nil, fmt.Errorf("newactorcritic: value output must be "+
			"squeezable to one value per game \n\thave shape(%v)", v.Shape())
	}

	dr, err := NewDiscountedReward(c.Reward)
	if err != nil {
		return nil, fmt.Errorf("newactorcritic: %v", err)
	}
	pg, err := NewPolicyGradient(net, c.PG)
	if err != nil {
		return nil, fmt.Errorf("newactorcritic: %v", err)
	}
	matcher, err := NewValueMatcher(net, c.ValueNode)
	if err != nil {
		return nil, fmt.Errorf("newactorcritic: %v", err)
	}

	a := &ActorCritic{
		cfg:     c,
		m:       m,
		dr:      dr,
		pg:      pg,
		matcher: matcher,
	}

	a.errNode = addErr(nil, pg.Loss())
	a.errNode = addErr(a.errNode, matcher.Loss())
	G.Read(a.errNode, &a.errVal)

	if _, err := G.Grad(a.errNode, net.Learnables()...); err != nil {
		return nil, fmt.Errorf("newactorcritic: could not compute the "+
			"combined loss gradient: %v", err)
	}
	a.trainVM = G.NewTapeMachine(net.Graph(),
		G.BindDualValues(net.Learnables()...))

	return a, nil
}

// Update performs one actor-critic update on a trajectory batch with
// T >= 2 timesteps. It triggers exactly T-1 gradient accumulations on
// the model and feeds at least "cost" to the stats sink. Failures
// propagate to the caller unchanged; a backward pass that already ran
// for a later timestep has already mutated the model's gradient
// buffers.
func (a *ActorCritic) Update(mi *model.Interface, b *batch.Batch,
	st *stats.Stats) error {
	m, err := mi.Model("model")
	if err != nil {
		return fmt.Errorf("update: %v", err)
	}
	if m != a.m {
		return fmt.Errorf("update: model interface does not hold the " +
			"model this update rule was constructed with")
	}

	T := b.Len()
	if err := b.Validate(); err != nil {
		return fmt.Errorf("update: %v", err)
	}
	if b.NumGames() != a.cfg.NumGames {
		return fmt.Errorf("update: illegal number of games \n\twant(%v)"+
			"\n\thave(%v)", a.cfg.NumGames, b.NumGames())
	}
	net := a.m.Net()
	if b.Features() <= 0 || net.Features()%b.Features() != 0 {
		return fmt.Errorf("update: network features must be a multiple of "+
			"batch features \n\tnetwork(%v)\n\tbatch(%v)", net.Features(),
			b.Features())
	}
	a.frames = net.Features() / b.Features()

	// Placement is queried once per call; every host-produced scalar
	// below goes through the same decision.
	dev := a.m.Device()

	// Terminal step: the value estimate at T-1 seeds bootstrapping
	vLast, _, err := a.forward(b.Hist(T - 1))
	if err != nil {
		return fmt.Errorf("update: %v", err)
	}
	a.dr.SetR(vLast, st)

	var totErr []float64

	for t := T - 2; t >= 0; t-- {
		bht := b.Hist(t)
		V, outs, err := a.forward(bht)
		if err != nil {
			return fmt.Errorf("update: %v", err)
		}

		r := dev.Colocate(b.Rewards(t))
		R, err := a.dr.Feed(r, b.Terminals(t), st)
		if err != nil {
			return fmt.Errorf("update: %v", err)
		}

		// R - V with the detached numeric value of V: the advantage
		// must not carry a gradient path back through the value head
		advantage := mat.NewVecDense(len(V), nil)
		advantage.SubVec(R, mat.NewVecDense(len(V), V))

		if err := a.pg.Feed(advantage, outs, bht, st); err != nil {
			return fmt.Errorf("update: %v", err)
		}
		if err := a.matcher.Feed(V, R, st); err != nil {
			return fmt.Errorf("update: %v", err)
		}

		// Immediate per-step backward pass: the step's graph is
		// executed and released before the next step's forward pass
		if err := a.trainVM.RunAll(); err != nil {
			return fmt.Errorf("update: could not run backward pass at "+
				"timestep %v: %v", t, err)
		}
		if err := a.m.AccumGrads(); err != nil {
			return fmt.Errorf("update: %v", err)
		}
		a.trainVM.Reset()

		stepErr := network.ValueFloats(a.errVal)
		if totErr == nil {
			totErr = make([]float64, len(stepErr))
		}
		floats.Add(totErr, stepErr)

		a.pg.ReportEntropy(st)
	}

	st.Feed("cost", totErr[0]/float64(T-1))
	return nil
}

// forward runs the model forward on the history view and returns the
// detached, squeezed value estimate along with the full output
// mapping
func (a *ActorCritic) forward(view batch.View) ([]float64,
	map[string]G.Value, error) {
	outs, err := a.m.Forward(view.Frames(a.frames))
	if err != nil {
		return nil, nil, err
	}

	vOut, ok := outs[a.cfg.ValueNode]
	if !ok || vOut == nil {
		return nil, nil, fmt.Errorf("forward: model output has no node "+
			"named %v", a.cfg.ValueNode)
	}

	V := network.ValueFloats(vOut)
	if len(V) != a.cfg.NumGames {
		return nil, nil, fmt.Errorf("forward: illegal value estimate "+
			"length \n\twant(%v)\n\thave(%v)", a.cfg.NumGames, len(V))
	}
	return V, outs, nil
}
