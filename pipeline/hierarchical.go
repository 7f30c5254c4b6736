package pipeline

import (
	"github.com/active-inference/aifcore/belief"
	"gonum.org/v1/gonum/mat"
)

// Level is one layer of a Hierarchical pipeline: its own updater plus
// the belief it currently holds.
type Level struct {
	Updater Update
	Belief  *belief.Categorical
}

// Hierarchical composes one updater per level. Each tick, every level
// first updates from its own feature, bottom to top; then, top-down,
// each level's post-update belief is blended toward the belief of the
// level above it and renormalized. No level's belief is predicted from
// the level below it, and the blend does not act on a level's prior.
type Hierarchical struct {
	Levels []*Level
	// TopDownWeight blends the higher level's belief into the lower
	// level's post-update belief.
	TopDownWeight float64
}

// NewHierarchical returns a Hierarchical pipeline over levels, bottom
// (index 0) to top.
func NewHierarchical(levels []*Level, topDownWeight float64) *Hierarchical {
	return &Hierarchical{Levels: levels, TopDownWeight: topDownWeight}
}

// Tick runs one bottom-up then top-down pass given one graph feature
// per level, returning the updated beliefs bottom to top.
func (h *Hierarchical) Tick(features []*mat.VecDense) []*belief.Categorical {
	// Bottom-up: each level updates from its own feature.
	for i, lvl := range h.Levels {
		lvl.Belief = lvl.Updater.Update(lvl.Belief, features[i], nil, nil)
	}

	// Top-down: each level (except the top) is adjusted toward the
	// level above it, renormalizing after the combination.
	for i := len(h.Levels) - 2; i >= 0; i-- {
		lower := h.Levels[i]
		higher := h.Levels[i+1]
		lower.Belief = blendBeliefs(lower.Belief, higher.Belief, h.TopDownWeight)
	}

	out := make([]*belief.Categorical, len(h.Levels))
	for i, lvl := range h.Levels {
		out[i] = lvl.Belief
	}
	return out
}

// blendBeliefs combines two beliefs that may have different
// dimensionality by resampling the higher belief's mass onto the
// lower belief's support index-wise (mod the higher dimension), then
// renormalizing — the simplest dimension-agnostic coupling that
// still satisfies "renormalize after every combination".
func blendBeliefs(lower, higher *belief.Categorical, weight float64) *belief.Categorical {
	n := lower.P.Len()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		h := higher.P.AtVec(i % higher.P.Len())
		out.SetVec(i, (1-weight)*lower.P.AtVec(i)+weight*h)
	}
	return belief.NewCategorical(out.RawVector().Data)
}
