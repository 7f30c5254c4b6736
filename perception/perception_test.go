package perception

import (
	"testing"

	"github.com/active-inference/aifcore/tensor"
	"github.com/active-inference/aifcore/world"
)

func testLayout() Layout {
	return NewLayout([]Modality{
		{Kind: "visual", Dims: 2},
		{Kind: "auditory", Dims: 1},
	})
}

func TestMapToObservationZeroFillsUnusedModalities(t *testing.T) {
	layout := testLayout()
	stimuli := []world.Stimulus{
		{Kind: "visual", Salience: 1, Confidence: 1, Payload: []float64{0.5, 0.25}},
	}
	obs := MapToObservation(stimuli, layout)
	if len(obs) != 3 {
		t.Fatalf("len(obs) = %d, want 3", len(obs))
	}
	if obs[0] != 0.5 || obs[1] != 0.25 {
		t.Errorf("visual slots = %v, want [0.5 0.25]", obs[:2])
	}
	if obs[2] != 0 {
		t.Errorf("auditory slot = %v, want 0 (no stimulus this tick)", obs[2])
	}
}

func TestMapToObservationScalesBySalienceAndConfidence(t *testing.T) {
	layout := testLayout()
	stimuli := []world.Stimulus{
		{Kind: "auditory", Salience: 0.5, Confidence: 0.5, Payload: []float64{1.0}},
	}
	obs := MapToObservation(stimuli, layout)
	if obs[2] != 0.25 {
		t.Errorf("auditory slot = %v, want 0.25 (0.5*0.5*1.0)", obs[2])
	}
}

func TestMapToObservationDropsUnknownModality(t *testing.T) {
	layout := testLayout()
	stimuli := []world.Stimulus{
		{Kind: "proximity", Salience: 1, Confidence: 1, Payload: []float64{9}},
	}
	obs := MapToObservation(stimuli, layout)
	for i, v := range obs {
		if v != 0 {
			t.Errorf("obs[%d] = %v, want 0 (proximity is not in the layout)", i, v)
		}
	}
}

func TestActionMapperRoundTrips(t *testing.T) {
	m := NewActionMapper([]world.ActionKind{world.Wait, world.Move, world.Interact})
	a := m.ToAction(1, [3]float64{1, 2, 3}, "")
	if a.Kind != world.Move || a.TargetPosition != [3]float64{1, 2, 3} {
		t.Errorf("ToAction(1) = %+v, want Move to (1,2,3)", a)
	}
	idx, ok := m.ToIndex(a)
	if !ok || idx != 1 {
		t.Errorf("ToIndex(%+v) = (%d, %v), want (1, true)", a, idx, ok)
	}
}

func TestActionMapperOutOfRangeFallsBackToWait(t *testing.T) {
	m := NewActionMapper([]world.ActionKind{world.Wait, world.Move})
	a := m.ToAction(99, [3]float64{}, "")
	if a.Kind != world.Wait {
		t.Errorf("out-of-range index mapped to %v, want wait", a.Kind)
	}
}

func TestTileCoderEncodeProducesOneHotPerTiling(t *testing.T) {
	src := tensor.NewSource(1)
	tc := NewTileCoder([]float64{0, 0}, []float64{1, 1}, [][]int{{4, 4}, {4, 4}}, src)
	v := tc.Encode([]float64{0.5, 0.5})
	if len(v) != tc.VecLength() {
		t.Fatalf("len(Encode) = %d, want %d", len(v), tc.VecLength())
	}
	nonzero := 0
	for _, x := range v {
		if x != 0 {
			nonzero++
		}
	}
	if nonzero != tc.NumTilings() {
		t.Errorf("nonzero count = %d, want %d (one active tile per tiling)", nonzero, tc.NumTilings())
	}
}

func TestTileCoderIndicesStayInBounds(t *testing.T) {
	src := tensor.NewSource(2)
	tc := NewTileCoder([]float64{-1}, []float64{1}, [][]int{{3}}, src)
	for _, x := range []float64{-10, -1, 0, 1, 10} {
		for _, idx := range tc.EncodeIndices([]float64{x}) {
			if idx < 0 || idx >= tc.VecLength() {
				t.Errorf("EncodeIndices(%v) = %d out of bounds [0,%d)", x, idx, tc.VecLength())
			}
		}
	}
}
