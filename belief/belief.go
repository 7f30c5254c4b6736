// Package belief implements the agent's internal posterior
// representations: categorical distributions over discrete state
// factors, Gaussian densities over continuous state, and particle
// sets for non-parametric posteriors. Grounded on the small
// immutable-value-type idiom of GoLearn's timestep.TimeStep, and on
// utils/matutils for the underlying vector operations.
package belief

import (
	"math"

	"github.com/active-inference/aifcore/aierrors"
	"github.com/active-inference/aifcore/tensor"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Belief is the common interface every posterior representation
// satisfies, per spec.md §3.
type Belief interface {
	// Normalize restores the distribution invariant (columns/vectors
	// summing to 1, floored above tensor.Floor) in place.
	Normalize()

	// Entropy returns the Shannon entropy (nats) of the distribution.
	Entropy() float64

	// Sample draws a single index/value from the distribution using
	// src as the source of randomness.
	Sample(src *tensor.Source) int
}

// Categorical is a posterior over a single discrete state factor.
type Categorical struct {
	P *mat.VecDense
}

// NewCategorical builds a Categorical from raw (possibly unnormalized)
// probabilities.
func NewCategorical(p []float64) *Categorical {
	c := &Categorical{P: mat.NewVecDense(len(p), append([]float64(nil), p...))}
	c.Normalize()
	return c
}

// UniformCategorical returns a Categorical with n equally likely
// outcomes.
func UniformCategorical(n int) *Categorical {
	return NewCategorical(tensor.Uniform(n))
}

func (c *Categorical) Normalize() {
	tensor.NormalizeVec(c.P)
}

func (c *Categorical) Entropy() float64 {
	return tensor.EntropyVec(c.P)
}

func (c *Categorical) Sample(src *tensor.Source) int {
	u := src.Float64()
	cum := 0.0
	n := c.P.Len()
	for i := 0; i < n; i++ {
		cum += c.P.AtVec(i)
		if u <= cum {
			return i
		}
	}
	return n - 1
}

// Mode returns the index of the highest-probability outcome, with
// ties broken toward the lowest index for determinism (spec.md §8).
func (c *Categorical) Mode() int {
	best, bestP := 0, c.P.AtVec(0)
	for i := 1; i < c.P.Len(); i++ {
		if v := c.P.AtVec(i); v > bestP {
			best, bestP = i, v
		}
	}
	return best
}

// KL returns KL(c || other) in nats.
func (c *Categorical) KL(other *Categorical) float64 {
	return tensor.KL(c.P.RawVector().Data, other.P.RawVector().Data)
}

// Clone returns an independent deep copy.
func (c *Categorical) Clone() *Categorical {
	cp := mat.NewVecDense(c.P.Len(), nil)
	cp.CopyVec(c.P)
	return &Categorical{P: cp}
}

// Gaussian is a posterior over a continuous state vector, represented
// by its mean and a diagonal covariance (the independence assumption
// used throughout the continuous pipeline, spec.md §4.2).
type Gaussian struct {
	Mean *mat.VecDense
	// Var holds the per-dimension variance; always kept >= tensor.Floor.
	Var *mat.VecDense
}

// NewGaussian builds a Gaussian from a mean and diagonal variance.
func NewGaussian(mean, variance []float64) *Gaussian {
	g := &Gaussian{
		Mean: mat.NewVecDense(len(mean), append([]float64(nil), mean...)),
		Var:  mat.NewVecDense(len(variance), append([]float64(nil), variance...)),
	}
	g.Normalize()
	return g
}

// Normalize floors every variance component at tensor.Floor; a
// Gaussian's mean needs no renormalization, but the interface is
// uniform across Belief implementations.
func (g *Gaussian) Normalize() {
	n := g.Var.Len()
	for i := 0; i < n; i++ {
		if v := g.Var.AtVec(i); v < tensor.Floor {
			g.Var.SetVec(i, tensor.Floor)
		}
	}
}

// Entropy returns the differential entropy of the factorized
// Gaussian, sum_i 0.5*log(2*pi*e*var_i).
func (g *Gaussian) Entropy() float64 {
	h := 0.0
	for i := 0; i < g.Var.Len(); i++ {
		d := distuv.Normal{Mu: 0, Sigma: math.Sqrt(g.Var.AtVec(i))}
		h += d.Entropy()
	}
	return h
}

// Sample draws from the Gaussian and returns the index of the
// dimension with the largest magnitude draw, so Gaussian satisfies
// the same Belief.Sample(int) contract as Categorical; callers
// working with continuous state should use SampleVec instead.
func (g *Gaussian) Sample(src *tensor.Source) int {
	best, bestAbs := 0, -1.0
	for i := 0; i < g.Mean.Len(); i++ {
		v := g.Mean.AtVec(i) + src.Normal()*sqrtClamp(g.Var.AtVec(i))
		a := v
		if a < 0 {
			a = -a
		}
		if a > bestAbs {
			best, bestAbs = i, a
		}
	}
	return best
}

// SampleVec draws a full continuous state sample from the Gaussian.
func (g *Gaussian) SampleVec(src *tensor.Source) *mat.VecDense {
	n := g.Mean.Len()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, g.Mean.AtVec(i)+src.Normal()*sqrtClamp(g.Var.AtVec(i)))
	}
	return out
}

// Clone returns an independent deep copy.
func (g *Gaussian) Clone() *Gaussian {
	m := mat.NewVecDense(g.Mean.Len(), nil)
	m.CopyVec(g.Mean)
	v := mat.NewVecDense(g.Var.Len(), nil)
	v.CopyVec(g.Var)
	return &Gaussian{Mean: m, Var: v}
}

func sqrtClamp(v float64) float64 {
	if v < tensor.Floor {
		v = tensor.Floor
	}
	return math.Sqrt(v)
}

// Particle is a single weighted hypothesis in a ParticleSet.
type Particle struct {
	State  *mat.VecDense
	Weight float64
}

// ParticleSet is a non-parametric posterior used when the belief is
// multi-modal or the transition/observation model is non-Gaussian
// (spec.md §4.5 ParticleFilter).
type ParticleSet struct {
	Particles []Particle
}

// NewParticleSet seeds n particles at the given initial state with
// uniform weight and Gaussian jitter of standard deviation jitterSD.
func NewParticleSet(n int, init *mat.VecDense, jitterSD float64, src *tensor.Source) *ParticleSet {
	ps := &ParticleSet{Particles: make([]Particle, n)}
	dim := init.Len()
	w := 1.0 / float64(n)
	for i := 0; i < n; i++ {
		s := mat.NewVecDense(dim, nil)
		for d := 0; d < dim; d++ {
			s.SetVec(d, init.AtVec(d)+src.Normal()*jitterSD)
		}
		ps.Particles[i] = Particle{State: s, Weight: w}
	}
	return ps
}

// Normalize rescales particle weights to sum to 1, flooring them at
// tensor.Floor first.
func (ps *ParticleSet) Normalize() {
	sum := 0.0
	for i := range ps.Particles {
		w := ps.Particles[i].Weight
		if w < tensor.Floor {
			w = tensor.Floor
			ps.Particles[i].Weight = w
		}
		sum += w
	}
	if sum <= 0 {
		u := 1.0 / float64(len(ps.Particles))
		for i := range ps.Particles {
			ps.Particles[i].Weight = u
		}
		return
	}
	for i := range ps.Particles {
		ps.Particles[i].Weight /= sum
	}
}

// Entropy returns the Shannon entropy of the particle weights,
// treating them as a categorical distribution over particle indices.
func (ps *ParticleSet) Entropy() float64 {
	w := make([]float64, len(ps.Particles))
	for i, p := range ps.Particles {
		w[i] = p.Weight
	}
	return tensor.Entropy(w)
}

// Sample draws a particle index proportional to weight.
func (ps *ParticleSet) Sample(src *tensor.Source) int {
	u := src.Float64()
	cum := 0.0
	for i, p := range ps.Particles {
		cum += p.Weight
		if u <= cum {
			return i
		}
	}
	return len(ps.Particles) - 1
}

// EffectiveSampleSize returns 1/sum(w_i^2), the standard ESS
// diagnostic used to decide when to resample (spec.md §4.5).
func (ps *ParticleSet) EffectiveSampleSize() float64 {
	sum := 0.0
	for _, p := range ps.Particles {
		sum += p.Weight * p.Weight
	}
	if sum <= 0 {
		return 0
	}
	return 1.0 / sum
}

// Mean returns the weighted mean state across particles.
func (ps *ParticleSet) Mean() *mat.VecDense {
	if len(ps.Particles) == 0 {
		return nil
	}
	dim := ps.Particles[0].State.Len()
	out := mat.NewVecDense(dim, nil)
	for _, p := range ps.Particles {
		for d := 0; d < dim; d++ {
			out.SetVec(d, out.AtVec(d)+p.Weight*p.State.AtVec(d))
		}
	}
	return out
}

// SystematicResample replaces the particle set with n equally
// weighted particles drawn via systematic resampling, the low-variance
// scheme used to avoid particle degeneracy.
func (ps *ParticleSet) SystematicResample(src *tensor.Source) {
	n := len(ps.Particles)
	if n == 0 {
		return
	}
	cum := make([]float64, n)
	sum := 0.0
	for i, p := range ps.Particles {
		sum += p.Weight
		cum[i] = sum
	}
	u0 := src.Float64() / float64(n)
	out := make([]Particle, n)
	j := 0
	for i := 0; i < n; i++ {
		u := u0 + float64(i)/float64(n)
		for j < n-1 && u > cum[j] {
			j++
		}
		src := ps.Particles[j]
		s := mat.NewVecDense(src.State.Len(), nil)
		s.CopyVec(src.State)
		out[i] = Particle{State: s, Weight: 1.0 / float64(n)}
	}
	ps.Particles = out
}

// Validate reports an aierrors.InvariantViolation if b is structurally
// empty: a zero-length Categorical or a ParticleSet with no particles.
// The probability values themselves are not inspected, and a Gaussian
// always passes.
func Validate(op string, b Belief) error {
	switch v := b.(type) {
	case *Categorical:
		if v.P.Len() == 0 {
			return aierrors.New(aierrors.InvariantViolation, op, errEmptyBelief)
		}
	case *ParticleSet:
		if len(v.Particles) == 0 {
			return aierrors.New(aierrors.InvariantViolation, op, errEmptyBelief)
		}
	}
	return nil
}

var errEmptyBelief = emptyBeliefError{}

type emptyBeliefError struct{}

func (emptyBeliefError) Error() string { return "belief has no support" }
