package perception

import (
	"math"

	"github.com/active-inference/aifcore/tensor"
)

// offsetDiv controls tiling offset jitter, mirroring GoLearn's
// tilecoder.OffsetDiv: each tiling is offset by a draw from
// [-binLength/offsetDiv, binLength/offsetDiv].
const offsetDiv = 1.5

// TileCoder discretizes a bounded continuous vector into a sparse
// tile-coded representation, adapted from GoLearn's
// utils/matutils/tilecoder.TileCoder (dense multi-tiling, no hashing).
// It can discretize a Stimulus's continuous Payload; MapToObservation
// does not use it and writes payloads into the observation
// undiscretized. It generalizes
// the discretization step
// agent/linear/discrete/qlearning.QLearner.indexTileCoding performed
// for a single state vector.
type TileCoder struct {
	minDims, maxDims []float64
	bins             [][]int // bins[tiling][dim]
	offsets          [][]float64
	binLengths       [][]float64
}

// NewTileCoder builds a TileCoder over the given bounds. bins[i] gives
// the tile count per dimension for tiling i; len(bins) is the number
// of tilings. src drives the random offset jitter per tiling.
func NewTileCoder(minDims, maxDims []float64, bins [][]int, src *tensor.Source) *TileCoder {
	numTilings := len(bins)
	offsets := make([][]float64, numTilings)
	binLengths := make([][]float64, numTilings)

	for j := 0; j < numTilings; j++ {
		dims := len(bins[j])
		binLengths[j] = make([]float64, dims)
		offsets[j] = make([]float64, dims)
		for i := 0; i < dims; i++ {
			length := (maxDims[i] - minDims[i]) / float64(bins[j][i])
			binLengths[j][i] = length
			bound := length / offsetDiv
			offsets[j][i] = (src.Float64()*2 - 1) * bound
		}
	}

	return &TileCoder{minDims: minDims, maxDims: maxDims, bins: bins, offsets: offsets, binLengths: binLengths}
}

// NumTilings returns the number of tilings.
func (t *TileCoder) NumTilings() int {
	return len(t.bins)
}

// VecLength returns the width of the sparse tile-coded vector.
func (t *TileCoder) VecLength() int {
	total := 0
	for _, b := range t.bins {
		total += prodInts(b)
	}
	return total
}

func (t *TileCoder) featuresBeforeTiling(i int) int {
	n := 0
	for j := 0; j < i; j++ {
		n += prodInts(t.bins[j])
	}
	return n
}

// EncodeIndices returns the one non-zero index per tiling that v
// falls into, per GoLearn's encodeWithTiling.
func (t *TileCoder) EncodeIndices(v []float64) []int {
	indices := make([]int, t.NumTilings())
	for tiling := range t.bins {
		indexOffset := t.featuresBeforeTiling(tiling)
		index := 0
		dims := len(t.bins[tiling])
		for i := dims - 1; i >= 0; i-- {
			data := v[i] + t.offsets[tiling][i]
			tile := math.Floor((data - t.minDims[i]) / t.binLengths[tiling][i])
			tile = clip(tile, 0, float64(t.bins[tiling][i]-1))
			tileIndex := int(tile)
			if i == dims-1 {
				index += tileIndex
			} else {
				index += tileIndex * t.bins[tiling][i+1]
			}
		}
		indices[tiling] = indexOffset + index
	}
	return indices
}

// Encode returns the full sparse 0/1 tile-coded vector for v.
func (t *TileCoder) Encode(v []float64) []float64 {
	out := make([]float64, t.VecLength())
	for _, idx := range t.EncodeIndices(v) {
		out[idx] = 1.0
	}
	return out
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func prodInts(xs []int) int {
	p := 1
	for _, x := range xs {
		p *= x
	}
	return p
}
