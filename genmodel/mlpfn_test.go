package genmodel

import (
	"testing"

	G "gorgonia.org/gorgonia"
)

func TestMLPFnPredictObsShapes(t *testing.T) {
	model := NewContinuousMLP(3, 2, 2, 8)

	vm := G.NewTapeMachine(model.ObsFn.Graph())
	defer vm.Close()

	obs, err := model.PredictObs(vm, []float64{0.1, -0.2, 0.3})
	if err != nil {
		t.Fatalf("PredictObs: %v", err)
	}
	if obs.Mean.Len() != 2 {
		t.Fatalf("mean dim = %d, want 2", obs.Mean.Len())
	}
	for i := 0; i < obs.Var.Len(); i++ {
		if v := obs.Var.AtVec(i); v <= 0 {
			t.Errorf("variance[%d] = %v, want > 0", i, v)
		}
	}
}

func TestMLPFnPredictNextShapes(t *testing.T) {
	model := NewContinuousMLP(3, 2, 1, 8)

	vm := G.NewTapeMachine(model.TransFn.Graph())
	defer vm.Close()

	next, err := model.PredictNext(vm, []float64{0.1, -0.2, 0.3, 1.0})
	if err != nil {
		t.Fatalf("PredictNext: %v", err)
	}
	if next.Mean.Len() != 3 {
		t.Fatalf("mean dim = %d, want 3", next.Mean.Len())
	}
}

func TestContinuousInitialBeliefClampsLogVar(t *testing.T) {
	model := NewContinuousMLP(2, 2, 1, 4)
	model.D0LogVar = []float64{50, -50}

	prior := model.InitialBelief()
	if v := prior.Var.AtVec(0); v != 0 {
		// exp(10) after clamping to logVarClampHi, not exp(50).
		if v > 1e6 {
			t.Errorf("variance[0] = %v, expected clamp near exp(10)", v)
		}
	}
}

func TestMLPFnLearnables(t *testing.T) {
	fn := NewMLPFn(4, 6, 2)
	if got := len(fn.Learnables()); got != 4 {
		t.Fatalf("Learnables() len = %d, want 4 (w1,b1,w2,b2)", got)
	}
}
