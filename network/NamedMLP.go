package network

import (
	"fmt"
	"sort"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// namedMLP implements a multi-layered perceptron with a shared trunk
// and one linear output head per named output.
type namedMLP struct {
	g     *G.ExprGraph
	input *G.Node

	trunk []*fcLayer
	heads map[string]*fcLayer

	outputs map[string]*G.Node
	outVals map[string]*G.Value

	batchSize int
	features  int

	learnables G.Nodes
}

// NewNamedMLP creates and returns a new multi-layered perceptron with
// named output heads on graph g. The trunk has len(hiddenSizes)
// layers; for index i, hiddenSizes[i] is the number of units in trunk
// layer i, biases[i] is whether that layer has a bias unit, and
// activations[i] is its activation function. On top of the trunk, one
// linear layer with a bias unit is added per entry of heads, mapping
// the head name to its output width. With no hidden sizes the heads
// read the input directly.
func NewNamedMLP(features, batch int, g *G.ExprGraph, hiddenSizes []int,
	biases []bool, init G.InitWFn, activations []*Activation,
	heads map[string]int) (NamedNet, error) {
	if len(hiddenSizes) != len(activations) {
		msg := "newnamedmlp: invalid number of activations\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		msg := "newnamedmlp: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}
	if len(heads) == 0 {
		return nil, fmt.Errorf("newnamedmlp: at least one output head " +
			"is required")
	}

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	trunk := addFCLayers(g, hiddenSizes, biases, activations, init, features,
		"trunk")

	trunkOut := input
	var err error
	for i, l := range trunk {
		if trunkOut, err = l.fwd(trunkOut); err != nil {
			return nil, fmt.Errorf("newnamedmlp: could not compute forward "+
				"pass of trunk layer %v: %v", i, err)
		}
	}

	trunkWidth := features
	if len(hiddenSizes) > 0 {
		trunkWidth = hiddenSizes[len(hiddenSizes)-1]
	}

	// Head creation is ordered by name so that node construction, and
	// with it the learnables ordering, is deterministic.
	names := make([]string, 0, len(heads))
	for name := range heads {
		names = append(names, name)
	}
	sort.Strings(names)

	net := &namedMLP{
		g:         g,
		input:     input,
		trunk:     trunk,
		heads:     make(map[string]*fcLayer, len(heads)),
		outputs:   make(map[string]*G.Node, len(heads)),
		outVals:   make(map[string]*G.Value, len(heads)),
		batchSize: batch,
		features:  features,
	}

	for _, name := range names {
		head := newFCLayer(g, trunkWidth, heads[name], true, init,
			Identity(), name)
		out, err := head.fwd(trunkOut)
		if err != nil {
			return nil, fmt.Errorf("newnamedmlp: could not compute forward "+
				"pass of head %v: %v", name, err)
		}

		net.heads[name] = head
		net.outputs[name] = out

		var val G.Value
		net.outVals[name] = &val
		G.Read(out, net.outVals[name])
	}

	return net, nil
}

// Graph returns the computational graph of the namedMLP
func (n *namedMLP) Graph() *G.ExprGraph {
	return n.g
}

// BatchSize returns the batch size of inputs to the namedMLP
func (n *namedMLP) BatchSize() int {
	return n.batchSize
}

// Features returns the number of input features per sample in the
// batch
func (n *namedMLP) Features() int {
	return n.features
}

// SetInput sets the value of the input node before running the
// forward pass
func (n *namedMLP) SetInput(input []float64) error {
	if len(input) != n.features*n.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", n.features*n.batchSize, len(input))
	}
	inputTensor := newInputTensor(input, n.batchSize, n.features)
	return G.Let(n.input, inputTensor)
}

// OutputNodes returns the graph nodes holding the named outputs
func (n *namedMLP) OutputNodes() map[string]*G.Node {
	return n.outputs
}

// Outputs returns the named output values from the most recent
// virtual machine run
func (n *namedMLP) Outputs() map[string]G.Value {
	out := make(map[string]G.Value, len(n.outVals))
	for name, val := range n.outVals {
		out[name] = *val
	}
	return out
}

// Learnables returns the learnable nodes in the namedMLP. Trunk
// parameters come first, then head parameters in name order.
func (n *namedMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if n.learnables == nil {
		n.learnables = n.computeLearnables()
	}
	return n.learnables
}

func (n *namedMLP) computeLearnables() G.Nodes {
	learnables := make(G.Nodes, 0, 2*(len(n.trunk)+len(n.heads)))

	layers := make([]*fcLayer, 0, len(n.trunk)+len(n.heads))
	layers = append(layers, n.trunk...)

	names := make([]string, 0, len(n.heads))
	for name := range n.heads {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		layers = append(layers, n.heads[name])
	}

	for _, l := range layers {
		learnables = append(learnables, l.weights)
		if l.bias != nil {
			learnables = append(learnables, l.bias)
		}
	}
	return learnables
}
