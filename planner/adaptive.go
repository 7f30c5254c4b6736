package planner

import (
	"context"
	"math"

	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/policy"
)

// AdaptiveHorizon wraps another Planner, widening or narrowing the
// planning horizon T based on the current belief's entropy normalized
// to [0,1]: a near-certain belief plans further ahead, a
// high-entropy belief plans fewer steps to keep search tractable, per
// spec.md §4.5.
type AdaptiveHorizon struct {
	Inner            Planner
	MinHorizon       int
	MaxHorizon       int
}

// NewAdaptiveHorizon wraps inner with a [min,max] horizon range.
func NewAdaptiveHorizon(inner Planner, min, max int) *AdaptiveHorizon {
	return &AdaptiveHorizon{Inner: inner, MinHorizon: min, MaxHorizon: max}
}

func (ah *AdaptiveHorizon) Plan(ctx context.Context, b *belief.Categorical, params Params, budget Budget) (policy.Policy, Diagnostics, error) {
	if isDegenerate(b) {
		return degenerateResult(params)
	}

	normEntropy := 0.0
	if n := b.P.Len(); n > 1 {
		maxEntropy := math.Log(float64(n))
		if maxEntropy > 0 {
			normEntropy = b.Entropy() / maxEntropy
		}
	}
	// Certain beliefs (entropy -> 0) widen toward MaxHorizon; uncertain
	// beliefs (entropy -> 1) narrow toward MinHorizon.
	span := ah.MaxHorizon - ah.MinHorizon
	horizon := ah.MaxHorizon - int(math.Round(normEntropy*float64(span)))
	if horizon < ah.MinHorizon {
		horizon = ah.MinHorizon
	}
	if horizon > ah.MaxHorizon {
		horizon = ah.MaxHorizon
	}

	adjusted := params
	adjusted.Horizon = horizon
	return ah.Inner.Plan(ctx, b, adjusted, budget)
}
