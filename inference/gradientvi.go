package inference

import (
	"math"

	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/solver"
	"github.com/active-inference/aifcore/tensor"
	G "gorgonia.org/gorgonia"
)

// GradientVI implements reparameterized-gradient variational
// inference for the continuous generative model: q = N(mu,
// diag(exp(logVar))) is optimized against the variational free energy
// KL(q||p) + NLL(o|s) with Adam-style updates, gradients clipped at
// GradClip, early-stopping when max|Δmu| < ThetaConv, per spec.md
// §4.2.
type GradientVI struct {
	MaxIter   int
	ThetaConv float64
	GradClip  float64
	StepSize  float64
}

// NewGradientVI returns a GradientVI engine with conservative
// defaults.
func NewGradientVI() *GradientVI {
	return &GradientVI{MaxIter: 100, ThetaConv: 1e-5, GradClip: 5.0, StepSize: 0.05}
}

func (g *GradientVI) adamConfig() solver.AdamConfig {
	return solver.AdamConfig{StepSize: g.StepSize, Epsilon: 1e-8, Beta1: 0.9, Beta2: 0.999, Clip: g.GradClip}
}

// InferContinuous runs the gradient-VI loop against a Continuous
// generative model's obs_fn, returning the optimized Gaussian
// posterior and the number of gradient steps taken.
func (g *GradientVI) InferContinuous(model *genmodel.Continuous, prior *belief.Gaussian, vm G.VM, obs []float64, src *tensor.Source) (*belief.Gaussian, Diagnostics) {
	dim := prior.Mean.Len()
	mu := make([]float64, dim)
	logVar := make([]float64, dim)
	copy(mu, prior.Mean.RawVector().Data)
	for i := range logVar {
		logVar[i] = math.Log(prior.Var.AtVec(i))
	}

	cfg := g.adamConfig()
	adamMu := solver.NewAdamState(cfg, dim)
	adamLV := solver.NewAdamState(cfg, dim)

	iters := 0
	for ; iters < g.MaxIter; iters++ {
		q := gaussianFromParams(mu, logVar)
		predicted, err := model.PredictObs(vm, sampleState(q, src))
		if err != nil {
			return q, Diagnostics{Degenerate: true, Warning: "inference.GradientVI: " + err.Error(), Iterations: iters}
		}

		gradMu, gradLV := gaussianVFEGrad(q, prior, predicted, obs)
		deltaMu := adamMu.Step(gradMu)
		deltaLV := adamLV.Step(gradLV)

		maxDelta := 0.0
		for i := range mu {
			mu[i] -= deltaMu[i]
			logVar[i] -= deltaLV[i]
			if d := math.Abs(deltaMu[i]); d > maxDelta {
				maxDelta = d
			}
		}
		if maxDelta < g.ThetaConv {
			iters++
			break
		}
	}

	return gaussianFromParams(mu, logVar), Diagnostics{Iterations: iters}
}

func gaussianFromParams(mu, logVar []float64) *belief.Gaussian {
	variance := make([]float64, len(logVar))
	for i, lv := range logVar {
		variance[i] = math.Exp(lv)
	}
	return belief.NewGaussian(mu, variance)
}

func sampleState(q *belief.Gaussian, src *tensor.Source) []float64 {
	v := q.SampleVec(src)
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// gaussianVFEGrad returns the gradient of KL(q||prior) + NLL(o|predicted)
// with respect to q's mean and log-variance, using the analytic form
// for a diagonal-Gaussian KL and a Gaussian observation likelihood.
func gaussianVFEGrad(q, prior, predicted *belief.Gaussian, obs []float64) ([]float64, []float64) {
	n := q.Mean.Len()
	gradMu := make([]float64, n)
	gradLV := make([]float64, n)
	for i := 0; i < n; i++ {
		muQ, varQ := q.Mean.AtVec(i), q.Var.AtVec(i)
		muP, varP := prior.Mean.AtVec(i), prior.Var.AtVec(i)

		dKLdMu := (muQ - muP) / varP
		dKLdLogVar := 0.5 * (varQ/varP - 1)

		predMu, predVar := predicted.Mean.AtVec(i), predicted.Var.AtVec(i)
		residual := predMu - obs[i]
		dNLLdMu := residual / predVar

		gradMu[i] = dKLdMu + dNLLdMu
		gradLV[i] = dKLdLogVar
	}
	return gradMu, gradLV
}

// NaturalGradientVI preconditions GradientVI's mean gradient with the
// Fisher information of a diagonal Gaussian (F^-1 ∇mu = Σ∇mu),
// damped by Lambda, per spec.md §4.2.
type NaturalGradientVI struct {
	Inner  *GradientVI
	Lambda float64
}

// NewNaturalGradientVI wraps a default GradientVI with Fisher
// preconditioning.
func NewNaturalGradientVI() *NaturalGradientVI {
	return &NaturalGradientVI{Inner: NewGradientVI(), Lambda: 1e-3}
}

func (n *NaturalGradientVI) InferContinuous(model *genmodel.Continuous, prior *belief.Gaussian, vm G.VM, obs []float64, src *tensor.Source) (*belief.Gaussian, Diagnostics) {
	dim := prior.Mean.Len()
	mu := make([]float64, dim)
	logVar := make([]float64, dim)
	copy(mu, prior.Mean.RawVector().Data)
	for i := range logVar {
		logVar[i] = math.Log(prior.Var.AtVec(i))
	}

	cfg := n.Inner.adamConfig()
	adamMu := solver.NewAdamState(cfg, dim)
	adamLV := solver.NewAdamState(cfg, dim)

	iters := 0
	for ; iters < n.Inner.MaxIter; iters++ {
		variance := make([]float64, dim)
		for i := range variance {
			variance[i] = math.Exp(logVar[i])
		}
		q := belief.NewGaussian(mu, variance)
		predicted, err := model.PredictObs(vm, sampleState(q, src))
		if err != nil {
			return q, Diagnostics{Degenerate: true, Warning: "inference.NaturalGradientVI: " + err.Error(), Iterations: iters}
		}

		gradMu, gradLV := gaussianVFEGrad(q, prior, predicted, obs)
		// Fisher-precondition: for a diagonal Gaussian, F^-1 ∇mu = Σ∇mu.
		for i := range gradMu {
			gradMu[i] = (variance[i] / (1 + n.Lambda)) * gradMu[i]
		}

		deltaMu := adamMu.Step(gradMu)
		deltaLV := adamLV.Step(gradLV)

		maxDelta := 0.0
		for i := range mu {
			mu[i] -= deltaMu[i]
			logVar[i] -= deltaLV[i]
			if d := math.Abs(deltaMu[i]); d > maxDelta {
				maxDelta = d
			}
		}
		if maxDelta < n.Inner.ThetaConv {
			iters++
			break
		}
	}

	return gaussianFromParams(mu, logVar), Diagnostics{Iterations: iters}
}
