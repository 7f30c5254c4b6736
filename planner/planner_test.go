package planner

import (
	"context"
	"testing"
	"time"

	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/policy"
	"github.com/active-inference/aifcore/tensor"
	"gonum.org/v1/gonum/mat"
)

func testParams() Params {
	m := genmodel.NewDiscreteUniform(genmodel.Dims{S: 2, O: 2, U: 2, T: 3})
	return Params{
		Model:   m,
		Weights: policy.DefaultWeights(),
		C:       mat.NewDense(2, 3, nil),
		Horizon: 3,
		Src:     tensor.NewSource(1),
	}
}

func allPlanners() map[string]Planner {
	return map[string]Planner{
		"mcts":       NewMCTS(),
		"beam":       NewBeam(4),
		"astar":      NewAStar(),
		"trajectory": NewTrajectorySampling(16),
	}
}

func TestEveryPlannerReturnsFullLengthPolicy(t *testing.T) {
	params := testParams()
	b0 := params.Model.InitialBelief()
	budget := Budget{MaxSimulations: 50, MaxNodes: 500, WallTime: 2 * time.Second}

	for name, p := range allPlanners() {
		pol, diag, err := p.Plan(context.Background(), b0, params, budget)
		if err != nil {
			t.Fatalf("%s: Plan returned error: %v", name, err)
		}
		if len(pol) != params.Horizon {
			t.Errorf("%s: policy length = %d, want %d", name, len(pol), params.Horizon)
		}
		if diag.Degenerate {
			t.Errorf("%s: marked a valid belief as degenerate", name)
		}
	}
}

func TestEveryPlannerFallsBackOnDegenerateBelief(t *testing.T) {
	params := testParams()
	empty := &belief.Categorical{P: mat.NewVecDense(0, nil)}
	budget := Budget{MaxSimulations: 10, MaxNodes: 10}

	for name, p := range allPlanners() {
		pol, diag, err := p.Plan(context.Background(), empty, params, budget)
		if err == nil {
			t.Errorf("%s: expected an error on a degenerate belief", name)
		}
		if !diag.Degenerate || diag.Status != "error" {
			t.Errorf("%s: expected Degenerate diagnostics with error status", name)
		}
		for _, a := range pol {
			if a != WaitAction {
				t.Errorf("%s: degenerate fallback policy contains non-wait action %d", name, a)
			}
		}
	}
}

func TestPlannerRespectsWallBudget(t *testing.T) {
	params := testParams()
	b0 := params.Model.InitialBelief()
	budget := Budget{WallTime: 1 * time.Millisecond, MaxSimulations: 1 << 30, MaxNodes: 1 << 30}

	mcts := NewMCTS()
	done := make(chan struct{})
	go func() {
		mcts.Plan(context.Background(), b0, params, budget)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("MCTS did not respect its wall-clock budget")
	}
}

func TestAdaptiveHorizonStaysWithinRange(t *testing.T) {
	params := testParams()
	b0 := params.Model.InitialBelief()
	ah := NewAdaptiveHorizon(NewTrajectorySampling(8), 1, 5)
	budget := Budget{MaxSimulations: 20}

	pol, _, err := ah.Plan(context.Background(), b0, params, budget)
	if err != nil {
		t.Fatalf("AdaptiveHorizon.Plan returned error: %v", err)
	}
	if len(pol) < 1 || len(pol) > 5 {
		t.Errorf("adaptive horizon policy length = %d, want in [1,5]", len(pol))
	}
}
