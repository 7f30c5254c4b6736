// Package pipeline fuses external graph-structured observations (a
// feature vector per tick) into a belief, behind three interchangeable
// update modes, per spec.md §4.6. Linear is adapted from GoLearn's
// network.FullyConnected weight/bias layer shape, but implemented
// directly over gonum/mat since a single linear read-out needs no
// autodiff graph.
package pipeline

import (
	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/inference"
	"github.com/active-inference/aifcore/tensor"
	"gonum.org/v1/gonum/mat"
)

// Linear is the linear-Gaussian observation model g = W*s + bias,
// mapping a graph feature vector to an observation-class score per
// spec.md §4.6 "Bayesian" mode.
type Linear struct {
	W    *mat.Dense // O x F
	Bias *mat.VecDense
}

// NewLinear builds a Linear layer of the given feature/observation
// dimensions, zero-initialized.
func NewLinear(features, observations int) *Linear {
	return &Linear{
		W:    mat.NewDense(observations, features, nil),
		Bias: mat.NewVecDense(observations, nil),
	}
}

// Forward maps a graph feature vector to an unnormalized observation
// score vector, then returns the index of its arg-max as the mapped
// observation class.
func (l *Linear) Forward(feature *mat.VecDense) (*mat.VecDense, int) {
	o, _ := l.W.Dims()
	scores := mat.NewVecDense(o, nil)
	scores.MulVec(l.W, feature)
	scores.AddVec(scores, l.Bias)

	best, bestScore := 0, scores.AtVec(0)
	for i := 1; i < o; i++ {
		if v := scores.AtVec(i); v > bestScore {
			best, bestScore = i, v
		}
	}
	return scores, best
}

// Update is the common operation every updater satisfies: fuse a
// graph feature (and optional action/previous-belief context) into
// the current belief, returning a fresh normalized belief.
type Update interface {
	Update(b *belief.Categorical, feature *mat.VecDense, action *int, previous *belief.Categorical) *belief.Categorical
}

// Bayesian maps the graph feature to an observation class via a
// Linear model, then applies inference.VMP, per spec.md §4.6.
type Bayesian struct {
	Obs    *Linear
	Model  *genmodel.Discrete
	Engine *inference.VMP
}

// NewBayesian returns a Bayesian updater over model using obs as the
// feature-to-observation mapping.
func NewBayesian(model *genmodel.Discrete, obs *Linear) *Bayesian {
	return &Bayesian{Obs: obs, Model: model, Engine: inference.NewVMP()}
}

func (by *Bayesian) Update(b *belief.Categorical, feature *mat.VecDense, _ *int, _ *belief.Categorical) *belief.Categorical {
	_, obsIdx := by.Obs.Forward(feature)
	next, _ := by.Engine.Infer(by.Model, obsIdx, b, inference.Context{})
	return next
}

// Gradient nudges the belief along the gradient of log p(feature|b)
// under a linear-Gaussian likelihood, then projects back onto the
// simplex, per spec.md §4.6.
type Gradient struct {
	Obs *Linear
	Eta float64
}

// NewGradient returns a Gradient updater with learning rate eta.
func NewGradient(obs *Linear, eta float64) *Gradient {
	return &Gradient{Obs: obs, Eta: eta}
}

func (gr *Gradient) Update(b *belief.Categorical, feature *mat.VecDense, _ *int, _ *belief.Categorical) *belief.Categorical {
	scores, _ := gr.Obs.Forward(feature)
	out := b.Clone()
	// ∇_b log p(feature|b) is approximated by the per-state likelihood
	// score itself (a linear-Gaussian model's log-likelihood is linear
	// in the one-hot state encoding it's being scored against).
	for i := 0; i < out.P.Len(); i++ {
		grad := 0.0
		if i < scores.Len() {
			grad = scores.AtVec(i)
		}
		out.P.SetVec(i, out.P.AtVec(i)+gr.Eta*grad)
	}
	projectSimplex(out.P)
	return out
}

func projectSimplex(v *mat.VecDense) {
	n := v.Len()
	for i := 0; i < n; i++ {
		if x := v.AtVec(i); x < 0 {
			v.SetVec(i, 0)
		}
	}
	tensor.NormalizeVec(v)
}

// Hybrid is a convex combination of a Bayesian and Gradient update,
// with optional temporal smoothing against a previous belief, per
// spec.md §4.6.
type Hybrid struct {
	Bayesian *Bayesian
	Gradient *Gradient
	// Alpha weights the Bayesian half of the combination.
	Alpha float64
	// Sigma weights the current combined belief against previous when
	// previous is supplied.
	Sigma float64
}

// NewHybrid returns a Hybrid updater.
func NewHybrid(bayesian *Bayesian, gradient *Gradient, alpha, sigma float64) *Hybrid {
	return &Hybrid{Bayesian: bayesian, Gradient: gradient, Alpha: alpha, Sigma: sigma}
}

func (h *Hybrid) Update(b *belief.Categorical, feature *mat.VecDense, action *int, previous *belief.Categorical) *belief.Categorical {
	bayes := h.Bayesian.Update(b, feature, action, previous)
	grad := h.Gradient.Update(b, feature, action, previous)

	combined := mat.NewVecDense(b.P.Len(), nil)
	for i := 0; i < combined.Len(); i++ {
		combined.SetVec(i, h.Alpha*bayes.P.AtVec(i)+(1-h.Alpha)*grad.P.AtVec(i))
	}
	out := belief.NewCategorical(combined.RawVector().Data)

	if previous != nil {
		smoothed := mat.NewVecDense(out.P.Len(), nil)
		for i := 0; i < smoothed.Len(); i++ {
			smoothed.SetVec(i, h.Sigma*out.P.AtVec(i)+(1-h.Sigma)*previous.P.AtVec(i))
		}
		out = belief.NewCategorical(smoothed.RawVector().Data)
	}
	return out
}
