// Package tensor implements the numeric primitives shared by every
// numerical kernel in the active inference core: stable log/softmax,
// entropy and KL divergence, column/row stochastic normalization, and
// a seeded random source. It is adapted from the vector-helper idiom
// of GoLearn's utils/matutils package, generalized from RL-specific
// helpers (MaxVec tie-breaking, VecClip) to the primitives a
// probabilistic generative model needs.
package tensor

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Floor is the numerical floor every belief/probability component is
// clamped above, per spec.md §3.
const Floor = 1e-16

// Source wraps a seeded RNG so every stochastic component (Dirichlet
// sampling, particle resampling, trajectory sampling) draws from one
// reproducible stream, satisfying spec.md §8 "Determinism". Grounded
// on environment.UniformStarter's rand.NewSource(seed) idiom.
type Source struct {
	src rand.Source
	rng *rand.Rand
}

// NewSource builds a Source from a uint64 seed.
func NewSource(seed uint64) *Source {
	src := rand.NewSource(seed)
	return &Source{src: src, rng: rand.New(src)}
}

// Float64 returns a uniform draw in [0, 1).
func (s *Source) Float64() float64 {
	return s.rng.Float64()
}

// Gamma draws from a Gamma(alpha, 1) distribution, the building block
// DirichletSample uses.
func (s *Source) Gamma(alpha float64) float64 {
	g := distuv.Gamma{Alpha: alpha, Beta: 1, Src: s.src}
	return g.Rand()
}

// Normal draws a standard normal sample.
func (s *Source) Normal() float64 {
	n := distuv.Normal{Mu: 0, Sigma: 1, Src: s.src}
	return n.Rand()
}

// RandSource exposes the underlying rand.Source for callers (e.g.
// gonum/stat/distuv distributions, shuffles) that need it directly.
func (s *Source) RandSource() rand.Source {
	return s.src
}

// DirichletSample draws a single sample from Dirichlet(alpha) of
// dimension len(alpha), via the standard Gamma-construction: draw
// independent Gamma(alpha_i, 1) and normalize. Used by genmodel to
// initialize A/B/D columns from a Bayesian prior (spec.md §4.1).
func DirichletSample(s *Source, alpha []float64) []float64 {
	out := make([]float64, len(alpha))
	sum := 0.0
	for i, a := range alpha {
		g := s.Gamma(a)
		out[i] = g
		sum += g
	}
	if sum <= 0 {
		return Uniform(len(alpha))
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Uniform returns a length-n slice with every entry 1/n.
func Uniform(n int) []float64 {
	out := make([]float64, n)
	v := 1.0 / float64(n)
	for i := range out {
		out[i] = v
	}
	return out
}

// NormalizeVec rescales v in place so it sums to 1, flooring every
// component at Floor first. Returns the pre-normalization sum.
func NormalizeVec(v *mat.VecDense) float64 {
	n := v.Len()
	sum := 0.0
	for i := 0; i < n; i++ {
		x := v.AtVec(i)
		if x < Floor || math.IsNaN(x) {
			x = Floor
		}
		v.SetVec(i, x)
		sum += x
	}
	if sum <= 0 {
		for i := 0; i < n; i++ {
			v.SetVec(i, 1.0/float64(n))
		}
		return sum
	}
	for i := 0; i < n; i++ {
		v.SetVec(i, v.AtVec(i)/sum)
	}
	return sum
}

// ColumnStochastic reports whether every column of m sums to 1 within
// tol. Used to enforce the A/B/D invariants of spec.md §3.
func ColumnStochastic(m *mat.Dense, tol float64) bool {
	r, c := m.Dims()
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return false
			}
			sum += v
		}
		if math.Abs(sum-1) > tol {
			return false
		}
	}
	return true
}

// NormalizeColumns rescales every column of m to sum to 1, flooring
// negative/NaN entries at Floor first.
func NormalizeColumns(m *mat.Dense) {
	r, c := m.Dims()
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			v := m.At(i, j)
			if v < Floor || math.IsNaN(v) {
				v = Floor
				m.Set(i, j, v)
			}
			sum += v
		}
		if sum <= 0 {
			for i := 0; i < r; i++ {
				m.Set(i, j, 1.0/float64(r))
			}
			continue
		}
		for i := 0; i < r; i++ {
			m.Set(i, j, m.At(i, j)/sum)
		}
	}
}

// LogSumExp computes log(sum(exp(x))) in a numerically stable way.
func LogSumExp(x []float64) float64 {
	if len(x) == 0 {
		return math.Inf(-1)
	}
	max := x[0]
	for _, v := range x[1:] {
		if v > max {
			max = v
		}
	}
	if math.IsInf(max, -1) {
		return max
	}
	sum := 0.0
	for _, v := range x {
		sum += math.Exp(v - max)
	}
	return max + math.Log(sum)
}

// Softmax returns a new stable softmax of x.
func Softmax(x []float64) []float64 {
	lse := LogSumExp(x)
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Exp(v - lse)
	}
	return out
}

// Entropy returns the Shannon entropy (nats) of a normalized
// distribution p.
func Entropy(p []float64) float64 {
	h := 0.0
	for _, v := range p {
		if v <= 0 {
			continue
		}
		h -= v * math.Log(v)
	}
	return h
}

// EntropyVec is Entropy over a mat.Vector.
func EntropyVec(p mat.Vector) float64 {
	h := 0.0
	for i := 0; i < p.Len(); i++ {
		x := p.AtVec(i)
		if x <= 0 {
			continue
		}
		h -= x * math.Log(x)
	}
	return h
}

// KL computes the KL divergence KL(p || q) in nats, flooring zero
// entries so the computation never takes log(0).
func KL(p, q []float64) float64 {
	d := 0.0
	for i, pv := range p {
		if pv <= 0 {
			continue
		}
		qv := q[i]
		if qv < Floor {
			qv = Floor
		}
		d += pv * math.Log(pv/qv)
	}
	return d
}

// Dot is a thin wrapper used to keep call sites expressive.
func Dot(a, b *mat.VecDense) float64 {
	return mat.Dot(a, b)
}

// Clamp restricts x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
