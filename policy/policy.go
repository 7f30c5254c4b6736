// Package policy scores candidate action sequences by expected free
// energy (EFE): an epistemic (information-seeking) term plus a
// pragmatic (goal-seeking) term, then turns those scores into a
// policy posterior with a deterministic tie-break, per spec.md §4.4.
package policy

import (
	"sort"

	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/tensor"
	"gonum.org/v1/gonum/mat"
)

// Policy is an ordered sequence of action indices of length <= T.
type Policy []int

// Score is the decomposed EFE for a single policy: G = Epistemic +
// Pragmatic (lower is better).
type Score struct {
	Epistemic float64
	Pragmatic float64
}

// G returns the combined expected free energy.
func (s Score) G() float64 {
	return s.Epistemic + s.Pragmatic
}

// Weights holds the epistemic/pragmatic/habit mixing weights of
// spec.md §4.4.
type Weights struct {
	Epistemic float64
	Pragmatic float64
	Habit     float64
}

// DefaultWeights returns w_e = w_p = 1, w_h = 0 (no habit prior).
func DefaultWeights() Weights {
	return Weights{Epistemic: 1, Pragmatic: 1, Habit: 0}
}

// EFE evaluates a single policy's expected free energy against a
// discrete generative model and current belief, per the recurrence in
// spec.md §4.4.
func EFE(model *genmodel.Discrete, b0 *belief.Categorical, pi Policy, c *mat.Dense, w Weights) Score {
	b := b0.Clone()
	var score Score
	for t, u := range pi {
		if u < 0 || u >= len(model.B) {
			continue
		}
		next := model.PredictNext(b, u)
		oPred := model.PredictObs(next)

		epistemic := w.Epistemic * (oPred.Entropy() - expectedLikelihoodEntropy(model, next))
		pragmatic := -w.Pragmatic * dotWithColumn(oPred, c, t)

		score.Epistemic += epistemic
		score.Pragmatic += pragmatic
		b = next
	}
	return score
}

func expectedLikelihoodEntropy(model *genmodel.Discrete, b *belief.Categorical) float64 {
	sum := 0.0
	for s := 0; s < b.P.Len(); s++ {
		col := make([]float64, model.Dims.O)
		for o := 0; o < model.Dims.O; o++ {
			col[o] = model.A.At(o, s)
		}
		sum += b.P.AtVec(s) * tensor.Entropy(col)
	}
	return sum
}

func dotWithColumn(o *belief.Categorical, c *mat.Dense, t int) float64 {
	if c == nil {
		return 0
	}
	_, cols := c.Dims()
	if t >= cols {
		t = cols - 1
	}
	if t < 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < o.P.Len(); i++ {
		sum += o.P.AtVec(i) * c.At(i, t)
	}
	return sum
}

// Candidate pairs a policy with its score and an optional habit-prior
// log-probability, the unit Posterior operates on.
type Candidate struct {
	Policy Policy
	Score  Score
	Habit  float64 // log h(pi); 0 if no habit prior supplied
}

// Posterior computes q(pi) ∝ exp(-beta * (G(pi) - w_h*Habit(pi))),
// drops candidates with q(pi) < tauPrune, and renormalizes, per
// spec.md §4.4 "Pruning".
func Posterior(cands []Candidate, beta, wHabit, tauPrune float64) ([]Candidate, []float64) {
	adjusted := make([]float64, len(cands))
	for i, c := range cands {
		adjusted[i] = -beta * (c.Score.G() - wHabit*c.Habit)
	}
	q := tensor.Softmax(adjusted)

	var keptCands []Candidate
	var keptQ []float64
	for i, p := range q {
		if p >= tauPrune {
			keptCands = append(keptCands, cands[i])
			keptQ = append(keptQ, p)
		}
	}
	if len(keptCands) == 0 {
		return cands, q
	}
	sum := 0.0
	for _, p := range keptQ {
		sum += p
	}
	if sum > 0 {
		for i := range keptQ {
			keptQ[i] /= sum
		}
	}
	return keptCands, keptQ
}

// Best returns the index of the winning candidate: lowest G first,
// ties broken by higher habit prior, then by lexicographic policy
// order, per spec.md §4.4 "Tie-breaking" — fully deterministic given
// the input order.
func Best(cands []Candidate) int {
	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := cands[order[i]], cands[order[j]]
		if a.Score.G() != b.Score.G() {
			return a.Score.G() < b.Score.G()
		}
		if a.Habit != b.Habit {
			return a.Habit > b.Habit
		}
		return lexLess(a.Policy, b.Policy)
	})
	if len(order) == 0 {
		return -1
	}
	return order[0]
}

func lexLess(a, b Policy) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// SamplePolicy draws a policy index from the normalized posterior q.
func SamplePolicy(q []float64, src *tensor.Source) int {
	u := src.Float64()
	cum := 0.0
	for i, p := range q {
		cum += p
		if u <= cum {
			return i
		}
	}
	return len(q) - 1
}

// EnumeratePolicies returns every length-T sequence over U actions,
// in lexicographic order, for small discrete action spaces.
func EnumeratePolicies(u, t int) []Policy {
	if t == 0 {
		return []Policy{{}}
	}
	var out []Policy
	var rec func(prefix Policy)
	rec = func(prefix Policy) {
		if len(prefix) == t {
			cp := make(Policy, t)
			copy(cp, prefix)
			out = append(out, cp)
			return
		}
		for a := 0; a < u; a++ {
			rec(append(prefix, a))
		}
	}
	rec(Policy{})
	return out
}
