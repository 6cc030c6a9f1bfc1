// Package network implements neural networks with named output heads
// on Gorgonia computational graphs. A model maps a batch of state
// history to a set of named output tensors, e.g. a policy head "pi"
// and a state-value head "V".
package network

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NamedNet is a neural network whose outputs are identified by name.
// Output values are populated on each virtual machine run through
// Gorgonia Read bindings and remain valid until the next run.
type NamedNet interface {
	Graph() *G.ExprGraph
	BatchSize() int
	Features() int
	SetInput([]float64) error
	OutputNodes() map[string]*G.Node
	Outputs() map[string]G.Value
	Learnables() G.Nodes
}

// ValueFloats copies the data of a Gorgonia value into a []float64.
// Scalar values yield a slice of length one.
func ValueFloats(v G.Value) []float64 {
	switch data := v.Data().(type) {
	case float64:
		return []float64{data}
	case []float64:
		out := make([]float64, len(data))
		copy(out, data)
		return out
	default:
		panic("valuefloats: unsupported value type")
	}
}

// newInputTensor wraps a flat backing slice in a tensor shaped for a
// graph input node
func newInputTensor(backing []float64, shape ...int) *tensor.Dense {
	return tensor.New(
		tensor.WithBacking(backing),
		tensor.WithShape(shape...),
	)
}
