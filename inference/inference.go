// Package inference implements the variational inference engines that
// turn an observation (plus optional prior belief and action context)
// into an updated posterior. Every engine is read-only on its inputs
// and never panics on degenerate observations, instead recording a
// diagnostic — an explicit struct carried alongside the belief, the
// idiom GoLearn uses for its own per-step timestep.TimeStep value
// types. The Engine implementations (VMP, BeliefPropagation) fall back
// to a uniform belief; ParticleFilter returns the input set unchanged
// on an out-of-range observation and an empty set for an empty input,
// and the gradient VI engines return their current q when obs_fn fails.
package inference

import (
	"math"

	"github.com/active-inference/aifcore/aierrors"
	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/tensor"
	"gonum.org/v1/gonum/mat"
)

// Diagnostics carries warnings and iteration counts alongside the
// belief an Engine returns, without forcing every caller to inspect
// the belief's shape to detect a fallback.
type Diagnostics struct {
	Degenerate bool
	Iterations int
	Warning    string
}

// Context bundles the optional previous-belief/action pair that
// BeliefPropagation needs and the other engines ignore.
type Context struct {
	Previous *belief.Categorical
	Action   int
	HasPrev  bool
}

// Engine is the common interface every inference variant satisfies.
type Engine interface {
	Infer(model *genmodel.Discrete, obs int, prior *belief.Categorical, ctx Context) (*belief.Categorical, Diagnostics)
}

// likelihoodColumn returns p(o|s) for every s, i.e. the o-th row of A
// read as a function of s.
func likelihoodColumn(model *genmodel.Discrete, obs int) []float64 {
	s := model.Dims.S
	out := make([]float64, s)
	for i := 0; i < s; i++ {
		out[i] = model.A.At(obs, i)
	}
	return out
}

func degenerate(dims int, op string) (*belief.Categorical, Diagnostics) {
	return belief.UniformCategorical(dims), Diagnostics{
		Degenerate: true,
		Warning:    op + ": degenerate observation, falling back to uniform belief",
	}
}

func validObs(model *genmodel.Discrete, obs int) bool {
	return obs >= 0 && obs < model.Dims.O
}

// VMP implements discrete Variational Message Passing: iterative
// multiplication of the observation likelihood with the current
// belief, normalized, repeated until convergence or a max iteration
// count, per spec.md §4.2.
type VMP struct {
	MaxIter int
	ThetaConv float64
}

// NewVMP returns a VMP engine with the defaults spec.md implies:
// enough iterations to converge on small state spaces, a tight
// convergence threshold.
func NewVMP() *VMP {
	return &VMP{MaxIter: 50, ThetaConv: 1e-6}
}

func (v *VMP) Infer(model *genmodel.Discrete, obs int, prior *belief.Categorical, _ Context) (*belief.Categorical, Diagnostics) {
	if !validObs(model, obs) || prior == nil {
		return degenerate(model.Dims.S, "inference.VMP.Infer")
	}
	lik := likelihoodColumn(model, obs)

	b := prior.Clone()
	iters := 0
	for ; iters < v.MaxIter; iters++ {
		prev := b.Clone()
		for i := 0; i < b.P.Len(); i++ {
			b.P.SetVec(i, b.P.AtVec(i)*lik[i])
		}
		b.Normalize()

		if maxAbsDelta(prev.P, b.P) < v.ThetaConv {
			iters++
			break
		}
	}
	return b, Diagnostics{Iterations: iters}
}

func maxAbsDelta(a, b *mat.VecDense) float64 {
	max := 0.0
	for i := 0; i < a.Len(); i++ {
		d := math.Abs(a.AtVec(i) - b.AtVec(i))
		if d > max {
			max = d
		}
	}
	return max
}

// BeliefPropagation composes VMP's observation update with a temporal
// prediction step through B[:,:,u], per spec.md §4.2: result =
// normalize(VMP(obs) .* (B[:,:,u] · previous_belief)).
type BeliefPropagation struct {
	VMP *VMP
}

// NewBeliefPropagation returns a BeliefPropagation engine using a
// default VMP for the observation half of the update.
func NewBeliefPropagation() *BeliefPropagation {
	return &BeliefPropagation{VMP: NewVMP()}
}

func (bp *BeliefPropagation) Infer(model *genmodel.Discrete, obs int, prior *belief.Categorical, ctx Context) (*belief.Categorical, Diagnostics) {
	if !ctx.HasPrev {
		return bp.VMP.Infer(model, obs, prior, ctx)
	}
	if !validObs(model, obs) || ctx.Previous == nil {
		return degenerate(model.Dims.S, "inference.BeliefPropagation.Infer")
	}

	predicted := model.PredictNext(ctx.Previous, ctx.Action)
	obsUpdated, diag := bp.VMP.Infer(model, obs, predicted, ctx)

	combined := mat.NewVecDense(model.Dims.S, nil)
	for i := 0; i < combined.Len(); i++ {
		combined.SetVec(i, obsUpdated.P.AtVec(i)*predicted.P.AtVec(i))
	}
	result := belief.NewCategorical(combined.RawVector().Data)
	return result, diag
}

// FreeEnergy computes the discrete variational free energy
// F = -H(b) - E_b[log p(o|s)] - E_b[log p(s)], per spec.md §4.2.
func FreeEnergy(model *genmodel.Discrete, b *belief.Categorical, obs int) (float64, error) {
	if !validObs(model, obs) {
		return 0, aierrors.New(aierrors.DegenerateObservation, "inference.FreeEnergy", errObsOutOfRange)
	}
	lik := likelihoodColumn(model, obs)

	entropy := b.Entropy()
	expectedLogLik := 0.0
	expectedLogPrior := 0.0
	for i := 0; i < b.P.Len(); i++ {
		p := b.P.AtVec(i)
		if p <= 0 {
			continue
		}
		l := lik[i]
		if l < tensor.Floor {
			l = tensor.Floor
		}
		expectedLogLik += p * math.Log(l)

		prior := model.D.AtVec(i)
		if prior < tensor.Floor {
			prior = tensor.Floor
		}
		expectedLogPrior += p * math.Log(prior)
	}
	return -entropy - expectedLogLik - expectedLogPrior, nil
}

// FreeEnergyContinuous computes the analytic KL to the prior Gaussian
// plus the negative log-likelihood of a continuous observation under
// q, per spec.md §4.2.
func FreeEnergyContinuous(q, prior *belief.Gaussian, obsMean, obsVar []float64, obs []float64) float64 {
	kl := gaussianKL(q, prior)
	nll := gaussianNLL(obsMean, obsVar, obs)
	return kl + nll
}

func gaussianKL(q, p *belief.Gaussian) float64 {
	sum := 0.0
	for i := 0; i < q.Mean.Len(); i++ {
		muQ, varQ := q.Mean.AtVec(i), q.Var.AtVec(i)
		muP, varP := p.Mean.AtVec(i), p.Var.AtVec(i)
		sum += 0.5 * (math.Log(varP/varQ) + (varQ+math.Pow(muQ-muP, 2))/varP - 1)
	}
	return sum
}

func gaussianNLL(mean, variance, obs []float64) float64 {
	sum := 0.0
	for i := range obs {
		v := variance[i]
		if v < tensor.Floor {
			v = tensor.Floor
		}
		d := obs[i] - mean[i]
		sum += 0.5 * (math.Log(2*math.Pi*v) + d*d/v)
	}
	return sum
}

type inferenceError string

func (e inferenceError) Error() string { return string(e) }

const errObsOutOfRange inferenceError = "inference: observation index out of range"
