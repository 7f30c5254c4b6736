package agent

import (
	"fmt"

	"github.com/active-inference/aifcore/agentstate"
	"github.com/active-inference/aifcore/aierrors"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/memory"
	"github.com/active-inference/aifcore/precision"
	"github.com/active-inference/aifcore/tensor"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

func init() {
	Register(Explorer, &ExplorerConfig{})
}

// ExplorerConfig builds an exploration-oriented archetype: a discrete
// generative model with a high Dirichlet concentration prior (fast
// belief sharpening once evidence arrives) and a log-preference
// tensor biased toward novel observations, restoring the "Explorer"
// archetype present in FreeAgentics' original explorer agent module
// that spec.md's distillation dropped.
type ExplorerConfig struct {
	Dims         genmodel.Dims
	Alpha0       float64
	NoveltyBonus float64 // added to C for every non-zero observation index
	WorkingCap   int
	EpisodicCap  int
	LongTermCap  int
	PrecisionBuf int
}

// Type implements Config.
func (c *ExplorerConfig) Type() Type {
	return Explorer
}

// Validate implements Config.
func (c *ExplorerConfig) Validate() error {
	if c.Dims.S <= 0 || c.Dims.O <= 0 || c.Dims.U <= 0 || c.Dims.T <= 0 {
		return aierrors.New(aierrors.InvariantViolation, "agent.ExplorerConfig.Validate",
			fmt.Errorf("dims must be positive, got %+v", c.Dims))
	}
	if c.Alpha0 <= 0 {
		return aierrors.New(aierrors.InvariantViolation, "agent.ExplorerConfig.Validate",
			fmt.Errorf("alpha0 must be positive, got %v", c.Alpha0))
	}
	return nil
}

// NewRecord implements Config.
func (c *ExplorerConfig) NewRecord(id uuid.UUID, src *tensor.Source) (*Record, error) {
	model := genmodel.NewDiscreteDirichlet(c.Dims, c.Alpha0, src)
	applyNoveltyBias(model.C, c.NoveltyBonus)

	return &Record{
		ID:            id,
		Status:        agentstate.NewMachine(),
		Resources:     Resources{Energy: 100, Health: 100, MemoryCapacity: c.WorkingCap + c.EpisodicCap},
		Capabilities:  map[string]bool{"movement": true, "perception": true, "planning": true},
		Relationships: map[uuid.UUID]Relationship{},
		Working:       memory.NewWorking(nonZero(c.WorkingCap, 16)),
		Episodic:      memory.NewEpisodic(nonZero(c.EpisodicCap, 256)),
		LongTerm:      memory.NewLongTerm(nonZero(c.LongTermCap, 4096)),
		Discrete:      model,
		Belief:        model.InitialBelief(),
		Precision:     precision.NewController(nonZero(c.PrecisionBuf, 32), 2.0, 0.1, 0.9, precision.Bounds{Min: 0.1, Max: 10}),
	}, nil
}

// applyNoveltyBias raises the log-preference for every observation
// row past the first (index 0 is reserved for "already seen"),
// biasing policy scoring toward visiting unfamiliar states.
func applyNoveltyBias(c *mat.Dense, bonus float64) {
	rows, cols := c.Dims()
	for o := 1; o < rows; o++ {
		for t := 0; t < cols; t++ {
			c.Set(o, t, c.At(o, t)+bonus)
		}
	}
}

func nonZero(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
