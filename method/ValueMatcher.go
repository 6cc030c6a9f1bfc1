package method

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/SunnyWangGitHub/ELF/network"
	"github.com/SunnyWangGitHub/ELF/stats"
)

// ValueMatcher computes a regression loss between the model's
// predicted state value and a target return. The loss node is
// attached to the model's graph at construction; Feed binds the
// target for one timestep.
type ValueMatcher struct {
	valueNode string
	batchSize int

	target  *G.Node
	loss    *G.Node
	lossVal G.Value
}

// NewValueMatcher attaches a squared-error value loss against the
// named value head of net
func NewValueMatcher(net network.NamedNet, valueNode string) (*ValueMatcher,
	error) {
	v, ok := net.OutputNodes()[valueNode]
	if !ok {
		return nil, fmt.Errorf("newvaluematcher: network has no output "+
			"named %v", valueNode)
	}

	target := G.NewMatrix(
		net.Graph(),
		tensor.Float64,
		G.WithShape(v.Shape()...),
		G.WithName("value_target"),
		G.WithInit(G.Zeroes()),
	)

	loss := G.Must(G.Sub(v, target))
	loss = G.Must(G.Square(loss))
	loss = G.Must(G.Mean(loss))

	m := &ValueMatcher{
		valueNode: valueNode,
		batchSize: net.BatchSize(),
		target:    target,
		loss:      loss,
	}
	G.Read(m.loss, &m.lossVal)

	return m, nil
}

// Loss returns the value-matching loss node
func (m *ValueMatcher) Loss() *G.Node {
	return m.loss
}

// Feed binds the target return for the current timestep and feeds
// value magnitude statistics. The predicted values are the detached
// outputs of the current forward pass; the gradient path runs through
// the value head node, not through predicted.
func (m *ValueMatcher) Feed(predicted []float64, target *mat.VecDense,
	st *stats.Stats) error {
	if len(predicted) != m.batchSize {
		return fmt.Errorf("feed: illegal predicted value length "+
			"\n\twant(%v)\n\thave(%v)", m.batchSize, len(predicted))
	}
	if target.Len() != m.batchSize {
		return fmt.Errorf("feed: illegal target length \n\twant(%v)"+
			"\n\thave(%v)", m.batchSize, target.Len())
	}

	backing := make([]float64, m.batchSize)
	var predSum, errSum float64
	for i := 0; i < m.batchSize; i++ {
		backing[i] = target.AtVec(i)
		predSum += predicted[i]
		errSum += math.Abs(predicted[i] - backing[i])
	}

	targetTensor := tensor.New(
		tensor.WithBacking(backing),
		tensor.WithShape(m.batchSize, 1),
	)
	if err := G.Let(m.target, targetTensor); err != nil {
		return fmt.Errorf("feed: could not bind target: %v", err)
	}

	st.Feed("predicted_V", predSum/float64(m.batchSize))
	st.Feed("error_V", errSum/float64(m.batchSize))
	return nil
}

// LossValue returns the numeric value of the loss from the most
// recent backward run
func (m *ValueMatcher) LossValue() []float64 {
	if m.lossVal == nil {
		return nil
	}
	return network.ValueFloats(m.lossVal)
}
