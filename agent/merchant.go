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
)

func init() {
	Register(Merchant, &MerchantConfig{})
}

// MerchantConfig builds a trade-oriented archetype: a uniform-prior
// discrete generative model (merchants learn counterparties' behavior
// from experience rather than starting with a strong belief) and a
// precision controller that trusts its own prediction error less when
// volatility is high, since a market is noisier than a static
// environment; relationships do not weight it. Restores the "Merchant"
// archetype present in FreeAgentics' original merchant agent module
// that spec.md's distillation dropped.
type MerchantConfig struct {
	Dims         genmodel.Dims
	TradeBonus   float64 // added to C for the "successful trade" observation index
	TradeObsIdx  int
	WorkingCap   int
	EpisodicCap  int
	LongTermCap  int
	PrecisionBuf int
}

// Type implements Config.
func (c *MerchantConfig) Type() Type {
	return Merchant
}

// Validate implements Config.
func (c *MerchantConfig) Validate() error {
	if c.Dims.S <= 0 || c.Dims.O <= 0 || c.Dims.U <= 0 || c.Dims.T <= 0 {
		return aierrors.New(aierrors.InvariantViolation, "agent.MerchantConfig.Validate",
			fmt.Errorf("dims must be positive, got %+v", c.Dims))
	}
	if c.TradeObsIdx < 0 || c.TradeObsIdx >= c.Dims.O {
		return aierrors.New(aierrors.InvariantViolation, "agent.MerchantConfig.Validate",
			fmt.Errorf("trade observation index %d out of range [0,%d)", c.TradeObsIdx, c.Dims.O))
	}
	return nil
}

// NewRecord implements Config.
func (c *MerchantConfig) NewRecord(id uuid.UUID, src *tensor.Source) (*Record, error) {
	model := genmodel.NewDiscreteUniform(c.Dims)
	_, cols := model.C.Dims()
	for t := 0; t < cols; t++ {
		model.C.Set(c.TradeObsIdx, t, model.C.At(c.TradeObsIdx, t)+c.TradeBonus)
	}

	return &Record{
		ID:            id,
		Status:        agentstate.NewMachine(),
		Resources:     Resources{Energy: 100, Health: 100, MemoryCapacity: c.WorkingCap + c.EpisodicCap},
		Capabilities:  map[string]bool{"movement": true, "perception": true, "communication": true, "social_interaction": true},
		Relationships: map[uuid.UUID]Relationship{},
		Working:       memory.NewWorking(nonZero(c.WorkingCap, 16)),
		Episodic:      memory.NewEpisodic(nonZero(c.EpisodicCap, 256)),
		LongTerm:      memory.NewLongTerm(nonZero(c.LongTermCap, 4096)),
		Discrete:      model,
		Belief:        model.InitialBelief(),
		// A wider precision buffer and stronger momentum than Explorer's:
		// a merchant smooths over the noisier, counterparty-driven
		// prediction errors a market generates.
		Precision: precision.NewController(nonZero(c.PrecisionBuf, 64), 1.0, 0.05, 0.95, precision.Bounds{Min: 0.1, Max: 10}),
	}, nil
}
