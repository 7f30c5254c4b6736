package planner

import (
	"context"
	"sort"

	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/policy"
)

// Beam implements beam search: keep the top K partial policies by
// cumulative G, expand each with every action, prune back to K,
// terminate at depth T, per spec.md §4.5.
type Beam struct {
	Width int
}

// NewBeam returns a Beam planner with width k.
func NewBeam(k int) *Beam {
	return &Beam{Width: k}
}

type beamCandidate struct {
	policy policy.Policy
	belief *belief.Categorical
	g      float64
}

func (bm *Beam) Plan(ctx context.Context, b *belief.Categorical, params Params, budget Budget) (policy.Policy, Diagnostics, error) {
	if isDegenerate(b) {
		return degenerateResult(params)
	}
	runCtx, cancel := deadline(ctx, budget)
	defer cancel()

	width := bm.Width
	if width <= 0 {
		width = 4
	}

	beam := []beamCandidate{{policy: policy.Policy{}, belief: b, g: 0}}
	nodes := 1

	for depth := 0; depth < params.Horizon; depth++ {
		select {
		case <-runCtx.Done():
			return bestBeam(beam).policy, Diagnostics{NodesVisited: nodes}, nil
		default:
		}

		var expanded []beamCandidate
		for _, cand := range beam {
			for a := 0; a < len(params.Model.B); a++ {
				next := params.Model.PredictNext(cand.belief, a)
				s := policy.EFE(params.Model, cand.belief, policy.Policy{a}, params.C, params.Weights)
				newPolicy := append(append(policy.Policy{}, cand.policy...), a)
				expanded = append(expanded, beamCandidate{policy: newPolicy, belief: next, g: cand.g + s.G()})
				nodes++
			}
		}
		sort.SliceStable(expanded, func(i, j int) bool { return expanded[i].g < expanded[j].g })
		if len(expanded) > width {
			expanded = expanded[:width]
		}
		beam = expanded
		if budgetExceeded(budget, nodes) {
			break
		}
	}

	best := bestBeam(beam)
	pol := best.policy
	for len(pol) < params.Horizon {
		pol = append(pol, WaitAction)
	}
	return pol, Diagnostics{NodesVisited: nodes}, nil
}

func bestBeam(beam []beamCandidate) beamCandidate {
	best := beam[0]
	for _, c := range beam[1:] {
		if c.g < best.g {
			best = c
		}
	}
	return best
}

func budgetExceeded(budget Budget, nodes int) bool {
	return budget.MaxNodes > 0 && nodes >= budget.MaxNodes
}
