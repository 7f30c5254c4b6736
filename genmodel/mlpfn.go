package genmodel

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MLPFn is a concrete FnNetwork: a single hidden-layer MLP mapping an
// input vector to a (mean, logVar) pair of the same output dimension.
// Grounded on network.fcLayer's weights/bias/activation forward pass
// (x*W + b, broadcast over the batch dimension), rebuilt directly
// against gorgonia rather than through network.NewMultiHeadMLP, whose
// addfcLayers helper is absent from the retrieved package. Weight
// initialization follows initwfn's Glorot wrapping by calling the same
// underlying gorgonia.GlorotU the wrapper would have produced.
type MLPFn struct {
	g      *G.ExprGraph
	input  *G.Node
	w1, b1 *G.Node
	w2, b2 *G.Node
	mean   *G.Node
	logVar *G.Node
}

// NewMLPFn builds an MLPFn with a single hidden layer of hiddenSize
// ReLU units, accepting an inputDim-wide row vector and producing
// outputDim-wide mean and log-variance vectors.
func NewMLPFn(inputDim, hiddenSize, outputDim int) *MLPFn {
	g := G.NewGraph()

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(1, inputDim),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	w1 := G.NewMatrix(g, tensor.Float64, G.WithShape(inputDim, hiddenSize),
		G.WithName("w1"), G.WithInit(G.GlorotU(1.0)))
	b1 := G.NewMatrix(g, tensor.Float64, G.WithShape(1, hiddenSize),
		G.WithName("b1"), G.WithInit(G.Zeroes()))
	hidden := G.Must(G.BroadcastAdd(G.Must(G.Mul(input, w1)), b1, nil, []byte{0}))
	hidden = G.Must(G.Rectify(hidden))

	w2 := G.NewMatrix(g, tensor.Float64, G.WithShape(hiddenSize, 2*outputDim),
		G.WithName("w2"), G.WithInit(G.GlorotU(1.0)))
	b2 := G.NewMatrix(g, tensor.Float64, G.WithShape(1, 2*outputDim),
		G.WithName("b2"), G.WithInit(G.Zeroes()))
	out := G.Must(G.BroadcastAdd(G.Must(G.Mul(hidden, w2)), b2, nil, []byte{0}))

	mean := G.Must(G.Slice(out, nil, G.S(0, outputDim)))
	logVar := G.Must(G.Slice(out, nil, G.S(outputDim, 2*outputDim)))

	return &MLPFn{
		g: g, input: input,
		w1: w1, b1: b1, w2: w2, b2: b2,
		mean: mean, logVar: logVar,
	}
}

func (m *MLPFn) Graph() *G.ExprGraph  { return m.g }
func (m *MLPFn) Input() *G.Node       { return m.input }
func (m *MLPFn) MeanOutput() *G.Node  { return m.mean }
func (m *MLPFn) LogVarOutput() *G.Node { return m.logVar }
func (m *MLPFn) Learnables() G.Nodes  { return G.Nodes{m.w1, m.b1, m.w2, m.b2} }

// NewContinuousMLP builds a Continuous generative model whose obs_fn
// and trans_fn are each a fresh MLPFn, per spec.md §3's continuous
// generative model. obs_fn maps a stateDim state to an obsDim
// observation; trans_fn maps a concatenated (state, action) vector of
// width stateDim+actionDim back to a stateDim state. D0 starts as a
// standard normal prior in every dimension.
func NewContinuousMLP(stateDim, obsDim, actionDim, hiddenSize int) *Continuous {
	d0Mean := make([]float64, stateDim)
	d0LogVar := make([]float64, stateDim)

	return &Continuous{
		StateDim:  stateDim,
		ObsDim:    obsDim,
		ActionDim: actionDim,
		ObsFn:     NewMLPFn(stateDim, hiddenSize, obsDim),
		TransFn:   NewMLPFn(stateDim+actionDim, hiddenSize, stateDim),
		D0Mean:    d0Mean,
		D0LogVar:  d0LogVar,
	}
}
