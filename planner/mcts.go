package planner

import (
	"context"
	"math"

	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/policy"
)

// MCTS implements Monte Carlo tree search over policies: each node
// holds a belief, visit count, value sum, and untried actions;
// selection is UCB1, expansion picks one untried action and
// transitions the belief via B, simulation does a random rollout
// scored by the EFE recurrence, and backup accumulates negative-G
// along the path, per spec.md §4.5.
type MCTS struct {
	Exploration float64
}

// NewMCTS returns an MCTS planner with the standard UCB1 exploration
// constant sqrt(2).
func NewMCTS() *MCTS {
	return &MCTS{Exploration: math.Sqrt2}
}

type mctsNode struct {
	belief   *belief.Categorical
	depth    int
	visits   int
	valueSum float64
	action   int // action that led to this node from its parent, -1 at root
	parent   *mctsNode
	children []*mctsNode
	untried  []int
}

func newMCTSNode(b *belief.Categorical, depth, action int, parent *mctsNode, numActions int) *mctsNode {
	untried := make([]int, numActions)
	for i := range untried {
		untried[i] = i
	}
	return &mctsNode{belief: b, depth: depth, action: action, parent: parent, untried: untried}
}

func (n *mctsNode) ucb1(c float64) float64 {
	if n.visits == 0 {
		return math.Inf(1)
	}
	exploit := n.valueSum / float64(n.visits)
	explore := c * math.Sqrt(math.Log(float64(n.parent.visits))/float64(n.visits))
	return exploit + explore
}

func (n *mctsNode) bestChild(c float64) *mctsNode {
	var best *mctsNode
	bestScore := math.Inf(-1)
	for _, child := range n.children {
		if s := child.ucb1(c); s > bestScore {
			best, bestScore = child, s
		}
	}
	return best
}

func (m *MCTS) Plan(ctx context.Context, b *belief.Categorical, params Params, budget Budget) (policy.Policy, Diagnostics, error) {
	if isDegenerate(b) {
		return degenerateResult(params)
	}
	runCtx, cancel := deadline(ctx, budget)
	defer cancel()

	root := newMCTSNode(b, 0, -1, nil, len(params.Model.B))
	sims, nodes := 0, 1
	maxSims := budget.MaxSimulations
	if maxSims <= 0 {
		maxSims = 1000
	}
	maxNodes := budget.MaxNodes
	if maxNodes <= 0 {
		maxNodes = 10000
	}

	for sims < maxSims && nodes < maxNodes {
		select {
		case <-runCtx.Done():
			goto DONE
		default:
		}

		leaf, newNodes := m.selectAndExpand(root, params)
		nodes += newNodes
		g := m.rollout(leaf, params)
		m.backup(leaf, -g)
		sims++
	}
DONE:

	best := root.bestChild(0) // pure exploitation for the final pick
	pol := make(policy.Policy, 0, params.Horizon)
	cur := best
	for cur != nil && cur.action >= 0 {
		pol = append([]int{cur.action}, pol...)
		cur = cur.parent
	}
	for len(pol) < params.Horizon {
		pol = append(pol, WaitAction)
	}
	return pol, Diagnostics{Simulations: sims, NodesVisited: nodes}, nil
}

func (m *MCTS) selectAndExpand(root *mctsNode, params Params) (*mctsNode, int) {
	node := root
	newNodes := 0
	for node.depth < params.Horizon {
		if len(node.untried) > 0 {
			a := node.untried[0]
			node.untried = node.untried[1:]
			next := params.Model.PredictNext(node.belief, a)
			child := newMCTSNode(next, node.depth+1, a, node, len(params.Model.B))
			node.children = append(node.children, child)
			newNodes++
			return child, newNodes
		}
		if len(node.children) == 0 {
			break
		}
		node = node.bestChild(m.Exploration)
	}
	return node, newNodes
}

func (m *MCTS) rollout(node *mctsNode, params Params) float64 {
	b := node.belief
	total := 0.0
	for d := node.depth; d < params.Horizon; d++ {
		a := params.Src.Float64()
		action := int(a * float64(len(params.Model.B)))
		if action >= len(params.Model.B) {
			action = len(params.Model.B) - 1
		}
		next := params.Model.PredictNext(b, action)
		s := policy.EFE(params.Model, b, policy.Policy{action}, params.C, params.Weights)
		total += s.G()
		b = next
	}
	return total
}

func (m *MCTS) backup(node *mctsNode, value float64) {
	for n := node; n != nil; n = n.parent {
		n.visits++
		n.valueSum += value
	}
}
