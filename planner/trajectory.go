package planner

import (
	"context"

	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/policy"
)

// TrajectorySampling draws N full-length policies, each action drawn
// uniformly at random, and returns the best by G. No softmax behavior
// policy is used.
type TrajectorySampling struct {
	NumTrajectories int
	// Beta is stored but not read: drawTrajectory draws uniformly over
	// actions whatever its value.
	Beta float64
}

// NewTrajectorySampling returns a TrajectorySampling planner drawing
// n uniform-random trajectories.
func NewTrajectorySampling(n int) *TrajectorySampling {
	return &TrajectorySampling{NumTrajectories: n}
}

func (ts *TrajectorySampling) Plan(ctx context.Context, b *belief.Categorical, params Params, budget Budget) (policy.Policy, Diagnostics, error) {
	if isDegenerate(b) {
		return degenerateResult(params)
	}
	runCtx, cancel := deadline(ctx, budget)
	defer cancel()

	n := ts.NumTrajectories
	if n <= 0 {
		n = 32
	}

	var best policy.Policy
	bestG := 0.0
	haveBest := false
	evaluated := 0

	for i := 0; i < n; i++ {
		select {
		case <-runCtx.Done():
			goto DONE
		default:
		}
		pol := ts.drawTrajectory(b, params)
		s := policy.EFE(params.Model, b, pol, params.C, params.Weights)
		evaluated++
		if !haveBest || s.G() < bestG {
			best, bestG, haveBest = pol, s.G(), true
		}
	}
DONE:

	if !haveBest {
		return waitPolicy(params.Horizon), Diagnostics{Simulations: evaluated}, nil
	}
	return best, Diagnostics{Simulations: evaluated}, nil
}

func (ts *TrajectorySampling) drawTrajectory(b *belief.Categorical, params Params) policy.Policy {
	pol := make(policy.Policy, params.Horizon)
	for t := 0; t < params.Horizon; t++ {
		numActions := len(params.Model.B)
		action := int(params.Src.Float64() * float64(numActions))
		if action >= numActions {
			action = numActions - 1
		}
		pol[t] = action
	}
	return pol
}
