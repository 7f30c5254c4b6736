// Package planner selects a policy under a compute budget using one
// of four interchangeable tree-search strategies, all behind the
// Planner interface. Grounded on GoLearn's Type-registry-plus-
// interface-family idiom (agent.Type/agent.Config), since none of the
// teacher's agents plan by search — they act greedily from a learned
// value function — so the family itself is an adaptation of that
// pattern to the Planner interface, one type per strategy, rather than
// a direct port. No strategy enum or registry is kept.
package planner

import (
	"context"
	"time"

	"github.com/active-inference/aifcore/aierrors"
	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/policy"
	"github.com/active-inference/aifcore/tensor"
	"gonum.org/v1/gonum/mat"
)

// WaitAction is the action index every strategy falls back to when
// the belief is degenerate, per spec.md §4.5 "Failure semantics".
const WaitAction = 0

// Budget bounds how much search a Plan call may perform.
type Budget struct {
	MaxSimulations int
	MaxNodes       int
	WallTime       time.Duration
}

// Diagnostics reports how much of the budget a Plan call actually
// used and whether it had to fall back to the degenerate policy.
type Diagnostics struct {
	Degenerate   bool
	Simulations  int
	NodesVisited int
	Status       string // "", or "error" per spec.md §4.5
}

// Params bundles everything a strategy needs besides the belief and
// budget: the generative model, EFE weights, preference matrix, and
// planning horizon.
//
// Beta is the precision controller's current inverse-temperature,
// carried here so a strategy (or its caller) can weigh the policy
// posterior q(pi) ∝ exp(-beta * G(pi)) by the agent's live precision,
// per spec.md §4.10 step 4 / §4.4. The four search strategies below
// still select their returned policy by lowest cumulative G (the
// "argmax" path spec.md line 114 allows as an alternative to
// sampling); Beta is consumed by the scheduler's confidence gate via
// policy.Posterior over the immediate next action.
type Params struct {
	Model   *genmodel.Discrete
	Weights policy.Weights
	C       *mat.Dense
	Horizon int
	Src     *tensor.Source
	Beta    float64
}

// Planner is the common interface every temporal-planning strategy
// satisfies.
type Planner interface {
	Plan(ctx context.Context, b *belief.Categorical, params Params, budget Budget) (policy.Policy, Diagnostics, error)
}

// waitPolicy returns a length-T policy of all WaitAction, the
// fallback spec.md §4.5 mandates for a degenerate belief.
func waitPolicy(t int) policy.Policy {
	p := make(policy.Policy, t)
	for i := range p {
		p[i] = WaitAction
	}
	return p
}

// isDegenerate reports whether b carries no usable support: every
// hidden state equally impossible, or the belief is empty.
func isDegenerate(b *belief.Categorical) bool {
	if b == nil || b.P.Len() == 0 {
		return true
	}
	sum := 0.0
	for i := 0; i < b.P.Len(); i++ {
		sum += b.P.AtVec(i)
	}
	return sum <= tensor.Floor*float64(b.P.Len())
}

func degenerateResult(params Params) (policy.Policy, Diagnostics, error) {
	return waitPolicy(params.Horizon), Diagnostics{Degenerate: true, Status: "error"},
		aierrors.New(aierrors.InvariantViolation, "planner.Plan", errDegenerateBelief)
}

// deadline resolves a Budget's wall-clock bound into a context, or
// returns ctx unchanged with a no-op cancel if no wall time was set.
func deadline(ctx context.Context, budget Budget) (context.Context, context.CancelFunc) {
	if budget.WallTime <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, budget.WallTime)
}

// fingerprint hashes a belief to a comparable key for A*'s closed set:
// a fixed-precision rounding of every component, concatenated.
func fingerprint(b *belief.Categorical) string {
	buf := make([]byte, 0, b.P.Len()*8)
	for i := 0; i < b.P.Len(); i++ {
		v := int64(b.P.AtVec(i) * 1e6)
		buf = appendInt64(buf, v)
	}
	return string(buf)
}

func appendInt64(buf []byte, v int64) []byte {
	if v < 0 {
		buf = append(buf, '-')
		v = -v
	}
	if v == 0 {
		return append(buf, '0', '|')
	}
	start := len(buf)
	for v > 0 {
		buf = append(buf, byte('0'+v%10))
		v /= 10
	}
	reverse(buf[start:])
	return append(buf, '|')
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

type plannerError string

func (e plannerError) Error() string { return string(e) }

const errDegenerateBelief plannerError = "planner: belief is degenerate"
