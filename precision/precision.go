// Package precision implements the per-modality precision controller:
// a fixed-capacity ring buffer of squared prediction errors drives a
// volatility estimate, which in turn drives a target precision that
// log-precision is moved toward with optional momentum, per spec.md
// §4.3. The ring buffer's circular-index/isFull bookkeeping is
// adapted from GoLearn's fifoRemove1Cache.
package precision

import (
	"math"

	"github.com/active-inference/aifcore/tensor"
	"gonum.org/v1/gonum/stat"
)

// Bounds clamps a precision value to [Min, Max], per spec.md §8
// "precision bounds".
type Bounds struct {
	Min, Max float64
}

// Clamp restricts pi to b.
func (b Bounds) Clamp(pi float64) float64 {
	return tensor.Clamp(pi, b.Min, b.Max)
}

// Controller tracks precision for a single observation modality.
type Controller struct {
	bounds Bounds

	// K is the tuned constant in π* = clamp(k / (v + ε), πMin, πMax).
	K float64
	// Eta is the log-precision learning rate η_p.
	Eta float64
	// Momentum, when > 0, blends the previous log-precision delta
	// into the current one.
	Momentum float64

	buffer     []float64
	pos        int
	full       bool
	logPi      float64
	lastDelta  float64
}

// NewController returns a Controller with a window of size w and the
// given tuned constant/learning-rate/momentum, initialized at the
// midpoint of bounds.
func NewController(w int, k, eta, momentum float64, bounds Bounds) *Controller {
	init := (bounds.Min + bounds.Max) / 2
	return &Controller{
		bounds:   bounds,
		K:        k,
		Eta:      eta,
		Momentum: momentum,
		buffer:   make([]float64, w),
		logPi:    math.Log(init),
	}
}

// Precision returns the controller's current precision exp(log π).
func (c *Controller) Precision() float64 {
	return math.Exp(c.logPi)
}

// Update appends predictionError^2 into the ring buffer, recomputes
// volatility, moves log π toward the target log π*, and returns the
// new precision, per spec.md §4.3.
func (c *Controller) Update(predictionError, expectedUncertainty float64) float64 {
	sq := predictionError * predictionError
	c.buffer[c.pos] = sq
	c.pos = (c.pos + 1) % len(c.buffer)
	if c.pos == 0 {
		c.full = true
	}

	window := c.buffer
	if !c.full {
		window = c.buffer[:c.pos]
	}
	if len(window) == 0 {
		return c.Precision()
	}

	mean := stat.Mean(window, nil)
	variance := stat.Variance(window, nil)
	volatility := variance / (mean + expectedUncertainty + tensor.Floor)

	target := c.bounds.Clamp(c.K / (volatility + tensor.Floor))
	logTarget := math.Log(target)

	delta := c.Eta * (logTarget - c.logPi)
	if c.Momentum > 0 {
		delta += c.Momentum * c.lastDelta
	}
	c.logPi += delta
	c.lastDelta = delta

	return c.Precision()
}

// Hierarchical composes one Controller per level, coupling a lower
// level's precision with the level above it by weight C. The coupling
// replaces the lower level's precision after its own Update; it does
// not change the target π* that Update moves toward.
type Hierarchical struct {
	Levels []*Controller
	// C is the coupling weight: pi_low = clamp(C*pi_high + (1-C)*pi_self).
	C float64
}

// NewHierarchical returns a Hierarchical controller stack from bottom
// (index 0) to top.
func NewHierarchical(levels []*Controller, c float64) *Hierarchical {
	return &Hierarchical{Levels: levels, C: c}
}

// Update drives every level's own Update from errs (one prediction
// error per level, bottom to top), then re-couples each level's
// precision toward the level above it.
func (h *Hierarchical) Update(errs []float64, expectedUncertainty float64) []float64 {
	out := make([]float64, len(h.Levels))
	for i, lvl := range h.Levels {
		out[i] = lvl.Update(errs[i], expectedUncertainty)
	}
	for i := 0; i < len(h.Levels)-1; i++ {
		piSelf := out[i]
		piHigh := out[i+1]
		coupled := h.C*piHigh + (1-h.C)*piSelf
		h.Levels[i].logPi = math.Log(h.Levels[i].bounds.Clamp(coupled))
		out[i] = h.Levels[i].Precision()
	}
	return out
}
