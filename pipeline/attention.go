package pipeline

import (
	"github.com/active-inference/aifcore/tensor"
	"gonum.org/v1/gonum/mat"
)

// Attention scores each historical graph feature against the current
// belief via a learned query, producing a weighted feature used as
// the effective observation. Adapted from GoLearn's
// network.MultiHeadMLP output-splitting idiom. Heads is stored but not
// read: Score computes a single attention head.
type Attention struct {
	// Query projects a belief vector into the same space as the
	// stored keys (Q x S).
	Query *mat.Dense
	// Key projects a historical feature vector into query space
	// (Q x F).
	Key *mat.Dense
	Heads int
}

// NewAttention builds an Attention layer with the given belief/feature/
// query dimensions and number of heads.
func NewAttention(beliefDim, featureDim, queryDim, heads int) *Attention {
	return &Attention{
		Query: mat.NewDense(queryDim, beliefDim, nil),
		Key:   mat.NewDense(queryDim, featureDim, nil),
		Heads: heads,
	}
}

// Score produces a weighted feature vector: softmax(Q*b . K*history_i)
// over history, as a single head.
func (a *Attention) Score(b *mat.VecDense, history []*mat.VecDense) *mat.VecDense {
	if len(history) == 0 {
		return mat.NewVecDense(history0Dim(history), nil)
	}
	q, _ := a.Query.Dims()
	query := mat.NewVecDense(q, nil)
	query.MulVec(a.Query, b)

	logits := make([]float64, len(history))
	for i, h := range history {
		key := mat.NewVecDense(q, nil)
		key.MulVec(a.Key, h)
		logits[i] = mat.Dot(query, key)
	}
	weights := tensor.Softmax(logits)

	featureDim := history[0].Len()
	out := mat.NewVecDense(featureDim, nil)
	for i, h := range history {
		for d := 0; d < featureDim; d++ {
			out.SetVec(d, out.AtVec(d)+weights[i]*h.AtVec(d))
		}
	}
	return out
}

func history0Dim(history []*mat.VecDense) int {
	if len(history) == 0 {
		return 0
	}
	return history[0].Len()
}
