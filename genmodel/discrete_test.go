package genmodel

import (
	"testing"

	"github.com/active-inference/aifcore/tensor"
)

func testDims() Dims {
	return Dims{S: 3, O: 2, U: 2, T: 4}
}

func TestNewDiscreteUniformIsColumnStochastic(t *testing.T) {
	m := NewDiscreteUniform(testDims())
	if err := m.Validate(); err != nil {
		t.Fatalf("uniform model failed validation: %v", err)
	}
}

func TestNewDiscreteDirichletIsColumnStochastic(t *testing.T) {
	src := tensor.NewSource(11)
	m := NewDiscreteDirichlet(testDims(), 1.0, src)
	if err := m.Validate(); err != nil {
		t.Fatalf("dirichlet model failed validation: %v", err)
	}
}

func TestPredictObsReturnsNormalizedBelief(t *testing.T) {
	m := NewDiscreteUniform(testDims())
	b := m.InitialBelief()
	obs := m.PredictObs(b)
	sum := 0.0
	for i := 0; i < obs.P.Len(); i++ {
		sum += obs.P.AtVec(i)
	}
	if diff := sum - 1; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("PredictObs not normalized: sum = %v", sum)
	}
}

func TestPredictNextReturnsNormalizedBelief(t *testing.T) {
	m := NewDiscreteUniform(testDims())
	b := m.InitialBelief()
	next := m.PredictNext(b, 0)
	sum := 0.0
	for i := 0; i < next.P.Len(); i++ {
		sum += next.P.AtVec(i)
	}
	if diff := sum - 1; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("PredictNext not normalized: sum = %v", sum)
	}
}

func TestUpdateParamsKeepsColumnStochastic(t *testing.T) {
	m := NewDiscreteUniform(testDims())
	o, s := 1, 2
	if err := m.UpdateParams(Delta{Obs: &o, State: &s}); err != nil {
		t.Fatalf("UpdateParams failed: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("model invalid after UpdateParams: %v", err)
	}
}

func TestUpdateParamsRejectsOutOfRangeIndex(t *testing.T) {
	m := NewDiscreteUniform(testDims())
	bad := 99
	zero := 0
	if err := m.UpdateParams(Delta{Obs: &bad, State: &zero}); err == nil {
		t.Error("UpdateParams accepted an out-of-range observation index")
	}
}

func TestUpdateParamsDoesNotMutateOnFailure(t *testing.T) {
	m := NewDiscreteUniform(testDims())
	before := cloneDense(m.A)
	bad := -1
	zero := 0
	_ = m.UpdateParams(Delta{Obs: &bad, State: &zero})
	if !mattEqual(before, m.A) {
		t.Error("UpdateParams mutated A despite a rejected update")
	}
}

func mattEqual(a, b interface{ At(int, int) float64 }) bool {
	type dimser interface{ Dims() (int, int) }
	ad, bd := a.(dimser), b.(dimser)
	ar, ac := ad.Dims()
	br, bc := bd.Dims()
	if ar != br || ac != bc {
		return false
	}
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			if a.At(i, j) != b.At(i, j) {
				return false
			}
		}
	}
	return true
}
