package inference

import (
	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/tensor"
	"gonum.org/v1/gonum/mat"
)

// ParticleFilter implements sequential Monte Carlo inference:
// propagate particles through B (discrete) or trans_fn (continuous),
// weight by the observation likelihood, and systematically resample
// whenever the effective sample size drops below N/2, per spec.md
// §4.2.
type ParticleFilter struct {
	Src *tensor.Source
}

// NewParticleFilter returns a ParticleFilter drawing from src.
func NewParticleFilter(src *tensor.Source) *ParticleFilter {
	return &ParticleFilter{Src: src}
}

// InferDiscrete propagates a discrete ParticleSet (particle states are
// single-element state-index vectors) through model.B[action], weights
// by A[obs, state], and resamples if ESS < N/2.
func (pf *ParticleFilter) InferDiscrete(model *genmodel.Discrete, ps *belief.ParticleSet, action, obs int) (*belief.ParticleSet, Diagnostics) {
	if ps == nil || len(ps.Particles) == 0 {
		return emptyParticleSet(1), Diagnostics{Degenerate: true, Warning: "inference.ParticleFilter: empty particle set"}
	}
	if !validObs(model, obs) {
		return ps, Diagnostics{Degenerate: true, Warning: "inference.ParticleFilter: observation out of range"}
	}

	next := &belief.ParticleSet{Particles: make([]belief.Particle, len(ps.Particles))}
	for i, p := range ps.Particles {
		s := int(p.State.AtVec(0))
		if s < 0 || s >= model.Dims.S {
			s = 0
		}
		b := belief.NewCategorical(colAt(model, action, s))
		newState := b.Sample(pf.Src)
		lik := model.A.At(obs, newState)

		next.Particles[i] = belief.Particle{
			State:  mat.NewVecDense(1, []float64{float64(newState)}),
			Weight: p.Weight * lik,
		}
	}
	next.Normalize()

	if next.EffectiveSampleSize() < float64(len(next.Particles))/2 {
		next.SystematicResample(pf.Src)
	}
	return next, Diagnostics{}
}

func colAt(model *genmodel.Discrete, action, state int) []float64 {
	s := model.Dims.S
	out := make([]float64, s)
	for i := 0; i < s; i++ {
		out[i] = model.B[action].At(i, state)
	}
	return out
}

func emptyParticleSet(n int) *belief.ParticleSet {
	return &belief.ParticleSet{Particles: make([]belief.Particle, 0, n)}
}
