// Package model implements the model interface: a registry of named
// trainable models. A Model owns a network with named outputs, the
// solver that updates its weights, and one gradient accumulation
// buffer per learnable parameter. Update rules trigger one backward
// pass per timestep and accumulate the resulting gradients here;
// weight updates apply the accumulated gradients in a single solver
// step.
package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/SunnyWangGitHub/ELF/network"
	"github.com/SunnyWangGitHub/ELF/solver"
)

// Interface is a registry of named Models
type Interface struct {
	models map[string]*Model
}

// NewInterface creates and returns a new empty model Interface
func NewInterface() *Interface {
	return &Interface{models: make(map[string]*Model)}
}

// Add registers a Model under the given name
func (mi *Interface) Add(name string, m *Model) error {
	if _, ok := mi.models[name]; ok {
		return fmt.Errorf("add: model %v already registered", name)
	}
	mi.models[name] = m
	return nil
}

// Model returns the Model registered under the given name
func (mi *Interface) Model(name string) (*Model, error) {
	m, ok := mi.models[name]
	if !ok {
		return nil, fmt.Errorf("model: no model named %v", name)
	}
	return m, nil
}

// Model is one named trainable model
type Model struct {
	net    network.NamedNet
	sol    *solver.Solver
	device Device

	// Maximum global gradient norm applied at accumulation time.
	// Zero disables clipping.
	gradClipNorm float64

	fwdVM G.VM

	accum     []*tensor.Dense
	pairs     []G.ValueGrad
	gradSteps int
}

// New creates and returns a new Model. The Model's forward virtual
// machine is compiled here, so New must be called before any update
// rule attaches loss nodes to the network's graph.
func New(net network.NamedNet, sol *solver.Solver, device Device,
	gradClipNorm float64) (*Model, error) {
	if gradClipNorm < 0 {
		return nil, fmt.Errorf("new: gradient clipping norm cannot be "+
			"negative \n\thave(%v)", gradClipNorm)
	}

	learnables := net.Learnables()
	accum := make([]*tensor.Dense, len(learnables))
	pairs := make([]G.ValueGrad, len(learnables))
	for i, n := range learnables {
		shape := n.Shape()
		backing := make([]float64, shape.TotalSize())
		accum[i] = tensor.New(
			tensor.WithBacking(backing),
			tensor.WithShape(shape...),
		)
		pairs[i] = &accumPair{node: n, grad: accum[i]}
	}

	return &Model{
		net:          net,
		sol:          sol,
		device:       device,
		gradClipNorm: gradClipNorm,
		fwdVM:        G.NewTapeMachine(net.Graph()),
		accum:        accum,
		pairs:        pairs,
	}, nil
}

// Net returns the Model's network
func (m *Model) Net() network.NamedNet {
	return m.net
}

// Device returns the Model's placement
func (m *Model) Device() Device {
	return m.device
}

// Forward runs the network forward on the given input and returns
// the named output values. The returned values are overwritten by the
// next virtual machine run on the network's graph.
func (m *Model) Forward(input []float64) (map[string]G.Value, error) {
	if err := m.net.SetInput(input); err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}
	if err := m.fwdVM.RunAll(); err != nil {
		return nil, fmt.Errorf("forward: could not run forward pass: %v", err)
	}
	m.fwdVM.Reset()
	return m.net.Outputs(), nil
}

// AccumGrads adds each learnable's current gradient into its
// accumulation buffer and zeroes the node gradient, so that repeated
// per-timestep backward passes accumulate rather than overwrite.
// When a clipping norm is configured, the step's gradients are scaled
// down to that global norm before accumulation.
func (m *Model) AccumGrads() error {
	learnables := m.net.Learnables()

	grads := make([]*tensor.Dense, len(learnables))
	for i, n := range learnables {
		gv, err := n.Grad()
		if err != nil {
			return fmt.Errorf("accumgrads: no gradient for %v: %v", n.Name(),
				err)
		}
		gt, ok := gv.(*tensor.Dense)
		if !ok {
			return fmt.Errorf("accumgrads: unsupported gradient value type "+
				"%T for %v", gv, n.Name())
		}
		grads[i] = gt
	}

	if m.gradClipNorm > 0 {
		clipGrads(grads, m.gradClipNorm)
	}

	for i, gt := range grads {
		if _, err := m.accum[i].Add(gt, tensor.UseUnsafe()); err != nil {
			return fmt.Errorf("accumgrads: could not accumulate gradient "+
				"for %v: %v", learnables[i].Name(), err)
		}
		gt.Zero()
	}

	m.gradSteps++
	return nil
}

// GradSteps returns the number of gradient accumulations since the
// buffers were last zeroed
func (m *Model) GradSteps() int {
	return m.gradSteps
}

// Grads returns the live gradient accumulation buffers, one per
// learnable, in the network's Learnables order
func (m *Model) Grads() []*tensor.Dense {
	return m.accum
}

// ZeroGrads zeroes all gradient accumulation buffers
func (m *Model) ZeroGrads() {
	for _, a := range m.accum {
		a.Zero()
	}
	m.gradSteps = 0
}

// UpdateWeights applies the accumulated gradients in one solver step
// and zeroes the accumulation buffers
func (m *Model) UpdateWeights() error {
	if err := m.sol.Step(m.pairs); err != nil {
		return fmt.Errorf("updateweights: could not step solver: %v", err)
	}
	m.ZeroGrads()
	return nil
}

// clipGrads scales a step's gradients down to the given global norm
// if they exceed it
func clipGrads(grads []*tensor.Dense, maxNorm float64) {
	var sq float64
	for _, g := range grads {
		norm := floats.Norm(g.Data().([]float64), 2)
		sq += norm * norm
	}
	total := math.Sqrt(sq)
	if total <= maxNorm {
		return
	}

	scale := maxNorm / total
	for _, g := range grads {
		floats.Scale(scale, g.Data().([]float64))
	}
}

// accumPair pairs a learnable node's value with its accumulated
// gradient so that a Gorgonia Solver can step on it
type accumPair struct {
	node *G.Node
	grad *tensor.Dense
}

// Value implements the Gorgonia Valuer interface
func (p *accumPair) Value() G.Value {
	return p.node.Value()
}

// Grad implements the Gorgonia ValueGrad interface
func (p *accumPair) Grad() (G.Value, error) {
	return p.grad, nil
}
