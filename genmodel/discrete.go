// Package genmodel implements the factorized discrete generative
// model (A/B/C/D tensors) and its continuous analog
// (differentiable observation/transition functions), following the
// shadow-copy-validate-commit update discipline used throughout this
// package. Grounded on GoLearn's consistent *mat.Dense/*mat.VecDense
// storage idiom and its network.NeuralNet closure-over-graph pattern
// for the continuous variant.
package genmodel

import (
	"math"

	"github.com/active-inference/aifcore/aierrors"
	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/tensor"
	"gonum.org/v1/gonum/mat"
)

// Dims fixes the dimensionality of a generative model at construction,
// per spec.md §3.
type Dims struct {
	S int // number of hidden states
	O int // number of observation classes
	U int // number of primitive actions
	T int // planning horizon, for C's column count
}

// Discrete is the factorized discrete generative model: A (O x S)
// column-stochastic likelihood, B (S x S x U) column-stochastic
// transition per action, C (O x T) log-preference, D (S)
// row-stochastic initial-state prior.
type Discrete struct {
	Dims Dims

	A *mat.Dense   // O x S
	B []*mat.Dense // length U, each S x S
	C *mat.Dense   // O x T
	D *mat.VecDense

	// pA/pB are Dirichlet pseudo-counts accumulated by UpdateParams,
	// the running sufficient statistic behind each posterior update.
	pA *mat.Dense
	pB []*mat.Dense
}

// NewDiscreteUniform builds a Discrete model with every column of A/B
// uniform, D uniform, and C all zero (no preference), per spec.md
// §4.1 "Initialization".
func NewDiscreteUniform(d Dims) *Discrete {
	m := &Discrete{Dims: d}
	m.A = mat.NewDense(d.O, d.S, nil)
	fillUniformColumns(m.A)
	m.B = make([]*mat.Dense, d.U)
	for u := 0; u < d.U; u++ {
		b := mat.NewDense(d.S, d.S, nil)
		fillUniformColumns(b)
		m.B[u] = b
	}
	m.C = mat.NewDense(d.O, d.T, nil)
	m.D = mat.NewVecDense(d.S, tensor.Uniform(d.S))

	m.pA = mat.NewDense(d.O, d.S, nil)
	m.pB = make([]*mat.Dense, d.U)
	for u := 0; u < d.U; u++ {
		m.pB[u] = mat.NewDense(d.S, d.S, nil)
	}
	return m
}

// NewDiscreteDirichlet builds a Discrete model whose A/B/D columns are
// drawn from Dirichlet(alpha0) priors, per spec.md §4.1.
func NewDiscreteDirichlet(d Dims, alpha0 float64, src *tensor.Source) *Discrete {
	m := NewDiscreteUniform(d)

	for s := 0; s < d.S; s++ {
		col := tensor.DirichletSample(src, uniformAlpha(d.O, alpha0))
		m.A.SetCol(s, col)
	}
	for u := 0; u < d.U; u++ {
		for s := 0; s < d.S; s++ {
			col := tensor.DirichletSample(src, uniformAlpha(d.S, alpha0))
			m.B[u].SetCol(s, col)
		}
	}
	m.D = mat.NewVecDense(d.S, tensor.DirichletSample(src, uniformAlpha(d.S, alpha0)))
	return m
}

func uniformAlpha(n int, alpha0 float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = alpha0
	}
	return out
}

func fillUniformColumns(m *mat.Dense) {
	r, c := m.Dims()
	v := 1.0 / float64(r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, v)
		}
	}
}

// PredictObs returns the predicted observation distribution
// A * b for a given belief over hidden states.
func (m *Discrete) PredictObs(b *belief.Categorical) *belief.Categorical {
	out := mat.NewVecDense(m.Dims.O, nil)
	out.MulVec(m.A, b.P)
	return belief.NewCategorical(out.RawVector().Data)
}

// PredictNext returns the predicted next-state belief B[:,:,u] * b for
// action u.
func (m *Discrete) PredictNext(b *belief.Categorical, u int) *belief.Categorical {
	out := mat.NewVecDense(m.Dims.S, nil)
	out.MulVec(m.B[u], b.P)
	return belief.NewCategorical(out.RawVector().Data)
}

// Sample draws a hidden state index from a belief using the model's
// own RNG-free contract (the caller supplies the source).
func (m *Discrete) Sample(b *belief.Categorical, src *tensor.Source) int {
	return b.Sample(src)
}

// NewDiscreteFromTensors builds a Discrete model from externally
// supplied tensors, validating them before zeroing the Dirichlet
// pseudo-count accumulators that UpdateParams needs.
func NewDiscreteFromTensors(d Dims, A *mat.Dense, B []*mat.Dense, C *mat.Dense, D *mat.VecDense) (*Discrete, error) {
	m := &Discrete{Dims: d, A: A, B: B, C: C, D: D}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.pA = mat.NewDense(d.O, d.S, nil)
	m.pB = make([]*mat.Dense, d.U)
	for u := 0; u < d.U; u++ {
		m.pB[u] = mat.NewDense(d.S, d.S, nil)
	}
	return m, nil
}

// Delta is a parameter update expressed as raw observation/action
// counts: an outer-product-style increment to accumulate into the
// Dirichlet pseudo-counts pA/pB before renormalizing A/B.
type Delta struct {
	// Obs/State is a single (o, s) co-occurrence to add to pA, or nil
	// to skip the A update.
	Obs, State *int
	// Action/From/To is a single (u, s, s') transition to add to pB,
	// or Action == nil to skip the B update.
	Action, From, To *int
}

// UpdateParams accumulates Δ into the Dirichlet pseudo-counts and
// recommits A/B from the renormalized counts, using the
// shadow-copy-validate-commit discipline spec.md §4.1 requires:
// mutations land on a scratch copy first, and only replace the live
// tensors once every column passes tensor.ColumnStochastic.
func (m *Discrete) UpdateParams(delta Delta) error {
	shadowA := cloneDense(m.pA)
	shadowB := make([]*mat.Dense, len(m.pB))
	for i, b := range m.pB {
		shadowB[i] = cloneDense(b)
	}

	if delta.Obs != nil && delta.State != nil {
		o, s := *delta.Obs, *delta.State
		if o < 0 || o >= m.Dims.O || s < 0 || s >= m.Dims.S {
			return aierrors.New(aierrors.InvariantViolation, "genmodel.UpdateParams",
				errIndexOutOfRange)
		}
		shadowA.Set(o, s, shadowA.At(o, s)+1)
	}
	if delta.Action != nil && delta.From != nil && delta.To != nil {
		u, from, to := *delta.Action, *delta.From, *delta.To
		if u < 0 || u >= m.Dims.U || from < 0 || from >= m.Dims.S || to < 0 || to >= m.Dims.S {
			return aierrors.New(aierrors.InvariantViolation, "genmodel.UpdateParams",
				errIndexOutOfRange)
		}
		shadowB[u].Set(to, from, shadowB[u].At(to, from)+1)
	}

	newA := cloneDense(shadowA)
	addAlphaFloor(newA)
	tensor.NormalizeColumns(newA)
	if !tensor.ColumnStochastic(newA, 1e-6) {
		return aierrors.New(aierrors.InvariantViolation, "genmodel.UpdateParams", errNotColumnStochastic)
	}

	newB := make([]*mat.Dense, len(shadowB))
	for i, b := range shadowB {
		nb := cloneDense(b)
		addAlphaFloor(nb)
		tensor.NormalizeColumns(nb)
		if !tensor.ColumnStochastic(nb, 1e-6) {
			return aierrors.New(aierrors.InvariantViolation, "genmodel.UpdateParams", errNotColumnStochastic)
		}
		newB[i] = nb
	}

	// Commit.
	m.pA = shadowA
	m.pB = shadowB
	m.A = newA
	m.B = newB
	return nil
}

func addAlphaFloor(m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v < tensor.Floor {
				m.Set(i, j, tensor.Floor)
			}
		}
	}
}

func cloneDense(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Copy(m)
	return out
}

// Validate reports an InvariantViolation if A, any B[u], are not
// column-stochastic, or if D is not a valid distribution.
func (m *Discrete) Validate() error {
	if !tensor.ColumnStochastic(m.A, 1e-6) {
		return aierrors.New(aierrors.InvariantViolation, "genmodel.Validate", errNotColumnStochastic)
	}
	for _, b := range m.B {
		if !tensor.ColumnStochastic(b, 1e-6) {
			return aierrors.New(aierrors.InvariantViolation, "genmodel.Validate", errNotColumnStochastic)
		}
	}
	sum := 0.0
	for i := 0; i < m.D.Len(); i++ {
		v := m.D.AtVec(i)
		if v < 0 || math.IsNaN(v) {
			return aierrors.New(aierrors.InvariantViolation, "genmodel.Validate", errNotDistribution)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-6 {
		return aierrors.New(aierrors.InvariantViolation, "genmodel.Validate", errNotDistribution)
	}
	return nil
}

// InitialBelief returns a Categorical belief seeded from D.
func (m *Discrete) InitialBelief() *belief.Categorical {
	out := mat.NewVecDense(m.D.Len(), nil)
	out.CopyVec(m.D)
	return &belief.Categorical{P: out}
}

type genmodelError string

func (e genmodelError) Error() string { return string(e) }

const (
	errIndexOutOfRange     genmodelError = "genmodel: index out of range"
	errNotColumnStochastic genmodelError = "genmodel: tensor is not column-stochastic"
	errNotDistribution     genmodelError = "genmodel: D is not a valid distribution"
)
