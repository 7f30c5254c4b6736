package pipeline

import (
	"math"
	"testing"

	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"gonum.org/v1/gonum/mat"
)

func testModel() *genmodel.Discrete {
	return genmodel.NewDiscreteUniform(genmodel.Dims{S: 3, O: 3, U: 2, T: 3})
}

func sumsToOne(c *belief.Categorical) bool {
	sum := 0.0
	for i := 0; i < c.P.Len(); i++ {
		sum += c.P.AtVec(i)
	}
	return math.Abs(sum-1) < 1e-9
}

func TestBayesianUpdateReturnsNormalizedBelief(t *testing.T) {
	m := testModel()
	obs := NewLinear(4, m.Dims.O)
	by := NewBayesian(m, obs)
	b0 := m.InitialBelief()
	feature := mat.NewVecDense(4, []float64{1, 0, 0, 1})

	out := by.Update(b0, feature, nil, nil)
	if !sumsToOne(out) {
		t.Error("Bayesian.Update result not normalized")
	}
}

func TestGradientUpdateProjectsOntoSimplex(t *testing.T) {
	m := testModel()
	obs := NewLinear(4, m.Dims.O)
	gr := NewGradient(obs, 0.5)
	b0 := m.InitialBelief()
	feature := mat.NewVecDense(4, []float64{10, -10, 5, 5})

	out := gr.Update(b0, feature, nil, nil)
	if !sumsToOne(out) {
		t.Error("Gradient.Update result not normalized")
	}
	for i := 0; i < out.P.Len(); i++ {
		if v := out.P.AtVec(i); v < 0 {
			t.Errorf("Gradient.Update left a negative component: %v", v)
		}
	}
}

func TestHybridUpdateCombinesAndSmooths(t *testing.T) {
	m := testModel()
	obs := NewLinear(4, m.Dims.O)
	hybrid := NewHybrid(NewBayesian(m, obs), NewGradient(obs, 0.1), 0.7, 0.5)
	b0 := m.InitialBelief()
	feature := mat.NewVecDense(4, []float64{1, 0, 0, 0})

	out := hybrid.Update(b0, feature, nil, b0)
	if !sumsToOne(out) {
		t.Error("Hybrid.Update result not normalized")
	}
}

func TestAttentionScoreWeightsSumImplicitlyToOne(t *testing.T) {
	att := NewAttention(3, 4, 2, 1)
	b := mat.NewVecDense(3, []float64{1, 0, 0})
	history := []*mat.VecDense{
		mat.NewVecDense(4, []float64{1, 0, 0, 0}),
		mat.NewVecDense(4, []float64{0, 1, 0, 0}),
	}
	out := att.Score(b, history)
	if out.Len() != 4 {
		t.Fatalf("Score returned a %d-dim vector, want 4", out.Len())
	}
	// Each history vector is one-hot, so the weighted feature sums to
	// the sum of the softmax weights.
	sum := 0.0
	for i := 0; i < out.Len(); i++ {
		sum += out.AtVec(i)
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("Score output summed to %v, want 1", sum)
	}
}

func TestAttentionScoreEmptyHistory(t *testing.T) {
	att := NewAttention(3, 4, 2, 1)
	b := mat.NewVecDense(3, []float64{1, 0, 0})
	out := att.Score(b, nil)
	if out.Len() != 0 {
		t.Errorf("Score on empty history returned length %d, want 0", out.Len())
	}
}

func TestHierarchicalTickRenormalizesEveryLevel(t *testing.T) {
	m := testModel()
	obsA := NewLinear(4, m.Dims.O)
	obsB := NewLinear(4, m.Dims.O)
	levelA := &Level{Updater: NewBayesian(m, obsA), Belief: m.InitialBelief()}
	levelB := &Level{Updater: NewBayesian(m, obsB), Belief: m.InitialBelief()}
	h := NewHierarchical([]*Level{levelA, levelB}, 0.3)

	features := []*mat.VecDense{
		mat.NewVecDense(4, []float64{1, 0, 0, 0}),
		mat.NewVecDense(4, []float64{0, 0, 1, 0}),
	}
	out := h.Tick(features)
	for i, b := range out {
		if !sumsToOne(b) {
			t.Errorf("level %d belief not normalized after Tick", i)
		}
	}
}
