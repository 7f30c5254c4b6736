package planner

import (
	"container/heap"
	"context"

	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/policy"
)

// AStar implements A* search over policies: the open set is ordered
// by f = g + h, where g is accumulated G and h is heuristic's value,
// which is 0 for every node, so the order is by accumulated G alone;
// the closed set is hashed by belief fingerprint.
type AStar struct{}

// NewAStar returns an AStar planner.
func NewAStar() *AStar {
	return &AStar{}
}

type astarNode struct {
	policy policy.Policy
	belief *belief.Categorical
	g      float64
	depth  int
}

type astarHeap []*astarNode

func (h astarHeap) Len() int { return len(h) }
func (h astarHeap) Less(i, j int) bool {
	fi := h[i].g + heuristic(h[i])
	fj := h[j].g + heuristic(h[j])
	return fi < fj
}
func (h astarHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *astarHeap) Push(x interface{}) { *h = append(*h, x.(*astarNode)) }
func (h *astarHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// heuristic returns 0 for every node, at any depth; no one-step
// expansion is sampled, so ordering the heap needs no model evaluation.
func heuristic(n *astarNode) float64 {
	return 0
}

func (as *AStar) Plan(ctx context.Context, b *belief.Categorical, params Params, budget Budget) (policy.Policy, Diagnostics, error) {
	if isDegenerate(b) {
		return degenerateResult(params)
	}
	runCtx, cancel := deadline(ctx, budget)
	defer cancel()

	open := &astarHeap{{policy: policy.Policy{}, belief: b, g: 0, depth: 0}}
	heap.Init(open)
	closed := make(map[string]bool)

	nodes := 0
	maxNodes := budget.MaxNodes
	if maxNodes <= 0 {
		maxNodes = 5000
	}

	var bestGoal *astarNode
	for open.Len() > 0 && nodes < maxNodes {
		select {
		case <-runCtx.Done():
			goto DONE
		default:
		}

		cur := heap.Pop(open).(*astarNode)
		nodes++

		if cur.depth >= params.Horizon {
			if bestGoal == nil || cur.g < bestGoal.g {
				bestGoal = cur
			}
			continue
		}

		key := fingerprint(cur.belief)
		if closed[key] {
			continue
		}
		closed[key] = true

		for a := 0; a < len(params.Model.B); a++ {
			next := params.Model.PredictNext(cur.belief, a)
			s := policy.EFE(params.Model, cur.belief, policy.Policy{a}, params.C, params.Weights)
			newPolicy := append(append(policy.Policy{}, cur.policy...), a)
			heap.Push(open, &astarNode{policy: newPolicy, belief: next, g: cur.g + s.G(), depth: cur.depth + 1})
		}
	}
DONE:

	if bestGoal == nil {
		// Budget exhausted before any full-length policy completed;
		// return the best partial policy found so far, padded out,
		// per spec.md §4.5 "best policy found so far".
		if open.Len() > 0 {
			cur := heap.Pop(open).(*astarNode)
			pol := cur.policy
			for len(pol) < params.Horizon {
				pol = append(pol, WaitAction)
			}
			return pol, Diagnostics{NodesVisited: nodes}, nil
		}
		return waitPolicy(params.Horizon), Diagnostics{NodesVisited: nodes}, nil
	}
	return bestGoal.policy, Diagnostics{NodesVisited: nodes}, nil
}
