// Package persistence holds the interface the core consumes from an
// external persistence collaborator, per spec.md §6, plus an
// in-memory reference implementation and a schema-versioned
// serialization format for an agent's discrete generative-model
// parameters and categorical belief. Memory records are not
// serialized. The gob round trip is grounded directly on main.go's
// gob.NewEncoder/NewDecoder pair and
// experiment/tracker.LoadFData/LoadIData's decode pattern.
package persistence

import (
	"context"

	"github.com/active-inference/aifcore/agent"
	"github.com/active-inference/aifcore/agentstate"
	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// SchemaVersion tags the on-disk layout of an AgentSnapshot so a
// future format change can detect and migrate older records instead
// of silently misreading them.
type SchemaVersion int

// CurrentSchemaVersion is written by ToSnapshot and checked by each
// Store implementation's LoadAgent once the snapshot is decoded.
const CurrentSchemaVersion SchemaVersion = 1

// AgentSnapshot is the stable, schema-versioned on-disk representation
// of an agent.Record's identity, resources, discrete generative model
// and categorical belief. Memory buffers, precision state and
// non-categorical beliefs are not included. Generative-model tensors are flattened to plain
// [][]float64/[]float64 rather than stored as *mat.Dense/*mat.VecDense
// directly, so the format does not depend on gonum's own (un)marshal
// behavior changing across versions.
type AgentSnapshot struct {
	SchemaVersion SchemaVersion

	ID          string
	Position    [3]float64
	Orientation [4]float64
	Status      string

	Resources    agent.Resources
	Personality  agent.Personality
	Capabilities map[string]bool

	Tick            int64
	LastAction      int
	LastObservation []float64

	// HasDiscreteModel is false for agents running a continuous
	// generative model; the live gorgonia graph behind genmodel.Continuous
	// is not itself persisted (a Non-goal: resuming a gorgonia VM from
	// disk needs its own checkpoint format, out of scope here), only
	// the discrete model's plain tensors are.
	HasDiscreteModel bool
	ModelA           [][]float64
	ModelB           [][][]float64
	ModelC           [][]float64
	ModelD           []float64

	BeliefP []float64 // categorical belief probabilities, if present
}

// Filter narrows ListAgents. A zero Filter matches every agent.
type Filter struct {
	StatusEquals string
}

func (f Filter) matches(s AgentSnapshot) bool {
	if f.StatusEquals != "" && f.StatusEquals != s.Status {
		return false
	}
	return true
}

// Store is the narrow interface the core consumes from an external
// persistence collaborator, per spec.md §6.
type Store interface {
	SaveAgent(ctx context.Context, snap AgentSnapshot) error
	LoadAgent(ctx context.Context, id string) (AgentSnapshot, error)
	ListAgents(ctx context.Context, filter Filter) ([]string, error)
	DeleteAgent(ctx context.Context, id string) error
}

// ToSnapshot converts a live Record into its serializable form.
func ToSnapshot(rec *agent.Record) AgentSnapshot {
	snap := AgentSnapshot{
		SchemaVersion:   CurrentSchemaVersion,
		ID:              rec.ID.String(),
		Position:        rec.Position,
		Orientation:     rec.Orientation,
		Status:          string(rec.Status.Status()),
		Resources:       rec.Resources,
		Personality:     rec.Personality,
		Capabilities:    rec.Capabilities,
		Tick:            rec.Tick,
		LastAction:      rec.LastAction,
		LastObservation: rec.LastObservation,
	}
	if rec.Discrete != nil {
		snap.HasDiscreteModel = true
		snap.ModelA = denseToSlice(rec.Discrete.A)
		snap.ModelB = make([][][]float64, len(rec.Discrete.B))
		for i, b := range rec.Discrete.B {
			snap.ModelB[i] = denseToSlice(b)
		}
		snap.ModelC = denseToSlice(rec.Discrete.C)
		snap.ModelD = vecToSlice(rec.Discrete.D)
	}
	if cat, ok := rec.Belief.(*belief.Categorical); ok {
		snap.BeliefP = vecToSlice(cat.P)
	}
	return snap
}

// FromSnapshot rebuilds a Record's generative model and belief from a
// snapshot. Fields owned exclusively by the scheduler at runtime
// (memory buffers, precision controller, relationships, goals) are not
// part of the snapshot and are left for the caller to re-attach.
func FromSnapshot(snap AgentSnapshot) *agent.Record {
	id, err := uuid.Parse(snap.ID)
	if err != nil {
		id = uuid.New()
	}
	rec := &agent.Record{
		ID:              id,
		Position:        snap.Position,
		Orientation:     snap.Orientation,
		Status:          agentstate.RestoreMachine(agentstate.Status(snap.Status)),
		Resources:       snap.Resources,
		Personality:     snap.Personality,
		Capabilities:    snap.Capabilities,
		Tick:            snap.Tick,
		LastAction:      snap.LastAction,
		LastObservation: snap.LastObservation,
	}
	if snap.HasDiscreteModel {
		dims := genmodel.Dims{
			S: len(snap.ModelA[0]),
			O: len(snap.ModelA),
			U: len(snap.ModelB),
			T: len(snap.ModelC[0]),
		}
		model := genmodel.NewDiscreteUniform(dims)
		sliceToDense(model.A, snap.ModelA)
		for i, b := range snap.ModelB {
			sliceToDense(model.B[i], b)
		}
		sliceToDense(model.C, snap.ModelC)
		sliceToVec(model.D, snap.ModelD)
		rec.Discrete = model
	}
	if len(snap.BeliefP) > 0 {
		rec.Belief = belief.NewCategorical(snap.BeliefP)
	}
	return rec
}

func denseToSlice(m *mat.Dense) [][]float64 {
	rows, cols := m.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

func sliceToDense(m *mat.Dense, data [][]float64) {
	for i, row := range data {
		for j, v := range row {
			m.Set(i, j, v)
		}
	}
}

func vecToSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

func sliceToVec(v *mat.VecDense, data []float64) {
	for i, x := range data {
		v.SetVec(i, x)
	}
}
