package inference

import (
	"math"
	"testing"

	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/tensor"
	"gonum.org/v1/gonum/mat"
)

func testModel() *genmodel.Discrete {
	return genmodel.NewDiscreteUniform(genmodel.Dims{S: 3, O: 3, U: 2, T: 4})
}

func sumsToOne(c *belief.Categorical) bool {
	sum := 0.0
	for i := 0; i < c.P.Len(); i++ {
		sum += c.P.AtVec(i)
	}
	return math.Abs(sum-1) < 1e-9
}

func TestVMPReturnsNormalizedBelief(t *testing.T) {
	m := testModel()
	v := NewVMP()
	prior := m.InitialBelief()
	b, diag := v.Infer(m, 1, prior, Context{})
	if !sumsToOne(b) {
		t.Errorf("VMP result not normalized")
	}
	if diag.Degenerate {
		t.Errorf("VMP marked a valid observation as degenerate")
	}
}

func TestVMPDegenerateObservationFallsBackToUniform(t *testing.T) {
	m := testModel()
	v := NewVMP()
	prior := m.InitialBelief()
	b, diag := v.Infer(m, 99, prior, Context{})
	if !diag.Degenerate {
		t.Errorf("out-of-range observation should be flagged degenerate")
	}
	if !sumsToOne(b) {
		t.Errorf("degenerate fallback belief not normalized")
	}
}

func TestVMPNeverPanicsOnNilPrior(t *testing.T) {
	m := testModel()
	v := NewVMP()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("VMP.Infer panicked on nil prior: %v", r)
		}
	}()
	v.Infer(m, 0, nil, Context{})
}

func TestBeliefPropagationWithoutPreviousFallsBackToVMP(t *testing.T) {
	m := testModel()
	bp := NewBeliefPropagation()
	prior := m.InitialBelief()
	b, _ := bp.Infer(m, 0, prior, Context{})
	if !sumsToOne(b) {
		t.Errorf("BeliefPropagation without previous belief produced an unnormalized result")
	}
}

func TestBeliefPropagationWithPreviousIsNormalized(t *testing.T) {
	m := testModel()
	bp := NewBeliefPropagation()
	prev := m.InitialBelief()
	b, _ := bp.Infer(m, 0, prev, Context{Previous: prev, Action: 0, HasPrev: true})
	if !sumsToOne(b) {
		t.Errorf("BeliefPropagation temporal update produced an unnormalized result")
	}
}

func TestFreeEnergyFinite(t *testing.T) {
	m := testModel()
	b := m.InitialBelief()
	f, err := FreeEnergy(m, b, 0)
	if err != nil {
		t.Fatalf("FreeEnergy returned an error: %v", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		t.Errorf("FreeEnergy = %v, want a finite value", f)
	}
}

func TestFreeEnergyRejectsOutOfRangeObservation(t *testing.T) {
	m := testModel()
	b := m.InitialBelief()
	if _, err := FreeEnergy(m, b, 50); err == nil {
		t.Error("FreeEnergy accepted an out-of-range observation index")
	}
}

func TestParticleFilterResamplesOnLowESS(t *testing.T) {
	m := testModel()
	src := tensor.NewSource(5)
	pf := NewParticleFilter(src)

	ps := &belief.ParticleSet{Particles: make([]belief.Particle, 8)}
	for i := range ps.Particles {
		state := float64(i % 3)
		w := 0.01
		if i == 0 {
			w = 10.0
		}
		ps.Particles[i] = belief.Particle{
			State:  vecFromFloat(state),
			Weight: w,
		}
	}
	ps.Normalize()

	next, diag := pf.InferDiscrete(m, ps, 0, 0)
	if diag.Degenerate {
		t.Fatalf("ParticleFilter marked a valid step as degenerate: %s", diag.Warning)
	}
	sum := 0.0
	for _, p := range next.Particles {
		sum += p.Weight
		// Particle 0 carries almost all the mass, so ESS is about 1 < 8/2
		// and systematic resampling leaves every weight at 1/8.
		if math.Abs(p.Weight-1.0/8) > 1e-12 {
			t.Errorf("post-filter weight = %v, want 1/8 after resampling", p.Weight)
		}
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("post-filter weights summed to %v, want 1", sum)
	}
}

func TestParticleFilterRejectsEmptySet(t *testing.T) {
	m := testModel()
	pf := NewParticleFilter(tensor.NewSource(1))
	_, diag := pf.InferDiscrete(m, &belief.ParticleSet{}, 0, 0)
	if !diag.Degenerate {
		t.Error("ParticleFilter should flag an empty particle set as degenerate")
	}
}

func vecFromFloat(x float64) *mat.VecDense {
	return mat.NewVecDense(1, []float64{x})
}
