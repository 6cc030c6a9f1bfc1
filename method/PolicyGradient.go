package method

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/SunnyWangGitHub/ELF/batch"
	"github.com/SunnyWangGitHub/ELF/network"
	"github.com/SunnyWangGitHub/ELF/stats"
	"github.com/SunnyWangGitHub/ELF/utils/floatutils"
	"github.com/SunnyWangGitHub/ELF/utils/op"
)

// PolicyGradient computes a policy-gradient loss from an advantage
// signal and the policy logits produced by the model. The loss node
// is attached to the model's graph at construction; Feed binds the
// advantage and the selected actions for one timestep.
//
// The advantage enters the graph through a plain input node, so no
// gradient flows from the policy objective back through the value
// head: the value estimate serves the policy only as a fixed
// baseline.
type PolicyGradient struct {
	cfg        PolicyGradientConfig
	batchSize  int
	numActions int

	advantage *G.Node
	actions   *G.Node
	loss      *G.Node

	entropyVal G.Value
}

// NewPolicyGradient attaches a policy-gradient loss against the
// configured policy head of net. The head is interpreted as
// unnormalized logits over discrete actions.
func NewPolicyGradient(net network.NamedNet,
	c PolicyGradientConfig) (*PolicyGradient, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newpolicygradient: %v", err)
	}

	logits, ok := net.OutputNodes()[c.PolicyNode]
	if !ok {
		return nil, fmt.Errorf("newpolicygradient: network has no output "+
			"named %v", c.PolicyNode)
	}
	if len(logits.Shape()) != 2 {
		return nil, fmt.Errorf("newpolicygradient: policy head must be a "+
			"matrix \n\thave shape(%v)", logits.Shape())
	}

	g := net.Graph()
	batchSize := logits.Shape()[0]
	numActions := logits.Shape()[1]

	// log π and π through a log-sum-exp softmax, with a probability
	// floor before the log
	lse := op.LogSumExp(logits, 1)
	logPi := G.Must(G.BroadcastSub(logits, lse, nil, []byte{1}))
	pi := G.Must(G.Exp(logPi))
	clipped, err := op.Clip(pi, c.MinProb, 1.0)
	if err != nil {
		return nil, fmt.Errorf("newpolicygradient: could not clip policy "+
			"probabilities: %v", err)
	}
	logPiSafe := G.Must(G.Log(clipped))

	// One-hot selection of the sampled actions
	actions := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batchSize, numActions),
		G.WithName("sampled_actions"),
		G.WithInit(G.Zeroes()),
	)
	logPa := G.Must(G.HadamardProd(actions, logPiSafe))
	logPa = G.Must(G.Sum(logPa, 1))

	advantage := G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(batchSize),
		G.WithName("advantage"),
		G.WithInit(G.Zeroes()),
	)

	loss := G.Must(G.HadamardProd(logPa, advantage))
	loss = G.Must(G.Mean(loss))
	loss = G.Must(G.Neg(loss))

	entropy := G.Must(G.HadamardProd(pi, logPiSafe))
	entropy = G.Must(G.Sum(entropy, 1))
	entropy = G.Must(G.Mean(entropy))
	entropy = G.Must(G.Neg(entropy))

	if c.EntropyRatio > 0 {
		weighted := G.Must(G.Mul(G.NewConstant(c.EntropyRatio), entropy))
		loss = G.Must(G.Sub(loss, weighted))
	}

	pg := &PolicyGradient{
		cfg:        c,
		batchSize:  batchSize,
		numActions: numActions,
		advantage:  advantage,
		actions:    actions,
		loss:       loss,
	}
	G.Read(entropy, &pg.entropyVal)

	return pg, nil
}

// Loss returns the policy-gradient loss node
func (p *PolicyGradient) Loss() *G.Node {
	return p.loss
}

// Feed binds the advantage signal and the sampled actions of the
// given history view for the current timestep. The model output of
// the current forward pass supplies the present policy; when a ratio
// clamp is configured and the view carries the behaviour policy's
// distribution, the (already detached) advantage is importance
// weighted by the clamped ratio of present to behaviour probability
// of the sampled action.
func (p *PolicyGradient) Feed(advantage *mat.VecDense,
	out map[string]G.Value, view batch.View, st *stats.Stats) error {
	if advantage.Len() != p.batchSize {
		return fmt.Errorf("feed: illegal advantage length \n\twant(%v)"+
			"\n\thave(%v)", p.batchSize, advantage.Len())
	}
	sampled := view.Actions()
	if len(sampled) != p.batchSize {
		return fmt.Errorf("feed: illegal action count \n\twant(%v)"+
			"\n\thave(%v)", p.batchSize, len(sampled))
	}

	oneHot := make([]float64, p.batchSize*p.numActions)
	for i, a := range sampled {
		if a < 0 || a >= p.numActions {
			return fmt.Errorf("feed: action index out of range "+
				"\n\thave(%v)\n\tnum actions(%v)", a, p.numActions)
		}
		oneHot[i*p.numActions+a] = 1.0
	}

	adv := make([]float64, p.batchSize)
	for i := 0; i < p.batchSize; i++ {
		adv[i] = advantage.AtVec(i)
	}

	if p.cfg.RatioClamp > 0 && view.OldPi() != nil {
		if err := p.importanceWeight(adv, sampled, out, view.OldPi()); err != nil {
			return fmt.Errorf("feed: %v", err)
		}
	}

	advTensor := tensor.New(
		tensor.WithBacking(adv),
		tensor.WithShape(p.batchSize),
	)
	if err := G.Let(p.advantage, advTensor); err != nil {
		return fmt.Errorf("feed: could not bind advantage: %v", err)
	}

	actionTensor := tensor.New(
		tensor.WithBacking(oneHot),
		tensor.WithShape(p.batchSize, p.numActions),
	)
	if err := G.Let(p.actions, actionTensor); err != nil {
		return fmt.Errorf("feed: could not bind actions: %v", err)
	}

	return nil
}

// importanceWeight scales the detached advantage by the clamped ratio
// of the present policy's probability of the sampled action to the
// behaviour policy's. The ratio carries no gradient, so it is
// computed on host values.
func (p *PolicyGradient) importanceWeight(adv []float64, sampled []int,
	out map[string]G.Value, oldPi []float64) error {
	logitsVal, ok := out[p.cfg.PolicyNode]
	if !ok {
		return fmt.Errorf("model output has no node named %v",
			p.cfg.PolicyNode)
	}
	logits := network.ValueFloats(logitsVal)
	if len(logits) != p.batchSize*p.numActions {
		return fmt.Errorf("illegal policy output length \n\twant(%v)"+
			"\n\thave(%v)", p.batchSize*p.numActions, len(logits))
	}
	if len(oldPi) != p.batchSize*p.numActions {
		return fmt.Errorf("illegal behaviour policy length \n\twant(%v)"+
			"\n\thave(%v)", p.batchSize*p.numActions, len(oldPi))
	}

	clamp := p.cfg.RatioClamp
	for i := 0; i < p.batchSize; i++ {
		row := floatutils.Softmax(logits[i*p.numActions : (i+1)*p.numActions])
		now := floatutils.Clip(row[sampled[i]], p.cfg.MinProb, 1.0)
		old := floatutils.Clip(oldPi[i*p.numActions+sampled[i]],
			p.cfg.MinProb, 1.0)
		ratio := floatutils.Clip(now/old, 1/clamp, clamp)
		adv[i] *= ratio
	}
	return nil
}

// ReportEntropy feeds the policy entropy of the most recent backward
// run to the stats sink
func (p *PolicyGradient) ReportEntropy(st *stats.Stats) {
	if p.entropyVal == nil {
		return
	}
	st.Feed("entropy", network.ValueFloats(p.entropyVal)[0])
}
