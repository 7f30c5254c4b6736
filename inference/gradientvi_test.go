package inference

import (
	"testing"

	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/tensor"
	G "gorgonia.org/gorgonia"
)

func testContinuousModel() *genmodel.Continuous {
	return genmodel.NewContinuousMLP(2, 2, 1, 6)
}

func TestGradientVIInferContinuousRespectsMaxIter(t *testing.T) {
	model := testContinuousModel()
	vm := G.NewTapeMachine(model.ObsFn.Graph())
	defer vm.Close()

	prior := model.InitialBelief()
	src := tensor.NewSource(7)
	engine := NewGradientVI()
	engine.MaxIter = 5

	posterior, diag := engine.InferContinuous(model, prior, vm, []float64{0.5, -0.5}, src)
	if posterior == nil {
		t.Fatal("InferContinuous returned nil posterior")
	}
	if diag.Iterations > engine.MaxIter {
		t.Errorf("Iterations = %d, want <= MaxIter %d", diag.Iterations, engine.MaxIter)
	}
	if posterior.Mean.Len() != 2 {
		t.Errorf("posterior dim = %d, want 2", posterior.Mean.Len())
	}
}

func TestNaturalGradientVIInferContinuous(t *testing.T) {
	model := testContinuousModel()
	vm := G.NewTapeMachine(model.ObsFn.Graph())
	defer vm.Close()

	prior := model.InitialBelief()
	src := tensor.NewSource(3)
	engine := NewNaturalGradientVI()
	engine.Inner.MaxIter = 5

	posterior, diag := engine.InferContinuous(model, prior, vm, []float64{0.1, 0.1}, src)
	if posterior == nil {
		t.Fatal("InferContinuous returned nil posterior")
	}
	if diag.Degenerate {
		t.Errorf("unexpected degenerate diagnostics: %s", diag.Warning)
	}
}
