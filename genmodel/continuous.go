package genmodel

import (
	"math"

	"github.com/active-inference/aifcore/aierrors"
	"github.com/active-inference/aifcore/belief"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// logVarClampLo/Hi bound log-variance outputs, per spec.md §4.1
// "numerical stability requires clamping log σ² to [-10, 10]".
const (
	logVarClampLo = -10.0
	logVarClampHi = 10.0
)

// FnNetwork is the minimal surface a differentiable obs/trans
// function needs to expose, generalized from GoLearn's
// network.NeuralNet so the continuous generative model can reuse its
// own graph/VM rather than depend on the whole NeuralNet interface.
type FnNetwork interface {
	Graph() *G.ExprGraph
	// Input is the node this network reads its state (and, for
	// trans_fn, action) vector from.
	Input() *G.Node
	// MeanOutput and LogVarOutput are the two output nodes: predicted
	// mean and predicted log-variance, both of the same dimension.
	MeanOutput() *G.Node
	LogVarOutput() *G.Node
	Learnables() G.Nodes
}

// Continuous is the differentiable analog of Discrete: obs_fn and
// trans_fn are closures over gorgonia graph nodes, each producing a
// (mean, logVar) pair that perception/inference treat as a Gaussian.
type Continuous struct {
	StateDim, ObsDim, ActionDim int

	ObsFn   FnNetwork
	TransFn FnNetwork

	// D0 is the (mean, logVar) prior over the initial continuous
	// state, per spec.md §3 "D as (μ, log σ²) pair".
	D0Mean, D0LogVar []float64
}

// PredictObs runs ObsFn forward on a state vector, returning the
// predicted observation Gaussian with log-variance clamped to
// [-10, 10].
func (c *Continuous) PredictObs(vm G.VM, state []float64) (*belief.Gaussian, error) {
	return runFn(vm, c.ObsFn, state)
}

// PredictNext runs TransFn forward on a concatenated (state, action)
// vector, returning the predicted next-state Gaussian.
func (c *Continuous) PredictNext(vm G.VM, stateAndAction []float64) (*belief.Gaussian, error) {
	return runFn(vm, c.TransFn, stateAndAction)
}

func runFn(vm G.VM, fn FnNetwork, input []float64) (*belief.Gaussian, error) {
	shape := fn.Input().Shape()
	t := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(append([]float64(nil), input...)))
	if err := G.Let(fn.Input(), t); err != nil {
		return nil, aierrors.New(aierrors.ExternalFailure, "genmodel.Continuous.predict", err)
	}
	vm.Reset()
	if err := vm.RunAll(); err != nil {
		return nil, aierrors.New(aierrors.ExternalFailure, "genmodel.Continuous.predict", err)
	}

	mean, err := nodeToSlice(fn.MeanOutput())
	if err != nil {
		return nil, aierrors.New(aierrors.ExternalFailure, "genmodel.Continuous.predict", err)
	}
	logVar, err := nodeToSlice(fn.LogVarOutput())
	if err != nil {
		return nil, aierrors.New(aierrors.ExternalFailure, "genmodel.Continuous.predict", err)
	}

	variance := make([]float64, len(logVar))
	for i, lv := range logVar {
		clamped := lv
		if clamped < logVarClampLo {
			clamped = logVarClampLo
		} else if clamped > logVarClampHi {
			clamped = logVarClampHi
		}
		variance[i] = math.Exp(clamped)
	}
	return belief.NewGaussian(mean, variance), nil
}

func nodeToSlice(n *G.Node) ([]float64, error) {
	v := n.Value()
	t, ok := v.(tensor.Tensor)
	if !ok {
		return nil, errNotATensor
	}
	data, ok := t.Data().([]float64)
	if !ok {
		return sliceFromDense(t)
	}
	return append([]float64(nil), data...), nil
}

func sliceFromDense(t tensor.Tensor) ([]float64, error) {
	dt, ok := t.(*tensor.Dense)
	if !ok {
		return nil, errNotATensor
	}
	out := make([]float64, dt.Size())
	for i := 0; i < dt.Size(); i++ {
		v, err := dt.At(i)
		if err != nil {
			return nil, err
		}
		f, ok := v.(float64)
		if !ok {
			return nil, errNotATensor
		}
		out[i] = f
	}
	return out, nil
}

// InitialBelief returns the Gaussian prior over the initial continuous
// state, from D0Mean/D0LogVar with the same [-10,10] clamp.
func (c *Continuous) InitialBelief() *belief.Gaussian {
	variance := make([]float64, len(c.D0LogVar))
	for i, lv := range c.D0LogVar {
		if lv < logVarClampLo {
			lv = logVarClampLo
		} else if lv > logVarClampHi {
			lv = logVarClampHi
		}
		variance[i] = math.Exp(lv)
	}
	return belief.NewGaussian(c.D0Mean, variance)
}

const errNotATensor = genmodelError("genmodel: output node did not evaluate to a float64 tensor")
