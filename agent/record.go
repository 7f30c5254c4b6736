// Package agent defines the per-agent record kept by the scheduler's
// registry, the archetype configuration that builds one, and the
// factory that issues new instances, per spec.md §3 and §6.
//
// The Config/Type/Register machinery is adapted from GoLearn's
// agent.Config/agent.Type/agent.Register (Config.go,
// RegisteredTypes.go), generalized from "RL algorithm hyperparameter
// configuration" to "active-inference agent archetype configuration".
package agent

import (
	"time"

	"github.com/active-inference/aifcore/agentstate"
	"github.com/active-inference/aifcore/belief"
	"github.com/active-inference/aifcore/genmodel"
	"github.com/active-inference/aifcore/memory"
	"github.com/active-inference/aifcore/precision"
	"github.com/google/uuid"
)

// Resources tracks an agent's consumable and bounded quantities, per
// spec.md §3.
type Resources struct {
	Energy         float64
	Health         float64
	MemoryUsed     int
	MemoryCapacity int
}

// HasEnergy reports whether the agent holds at least required energy,
// used for spec.md §4.10's action-selection energy gating.
func (r Resources) HasEnergy(required float64) bool {
	return r.Energy >= required
}

// Personality is the Big Five trait vector in [0,1], per spec.md §3.
type Personality [5]float64

// RelationshipKind names the nature of a relationship between two
// agents.
type RelationshipKind string

// Relationship is one entry of an agent's relationship map, per
// spec.md §3.
type Relationship struct {
	Kind     RelationshipKind
	Trust    float64 // in [0, 1]
	Count    int
	LastTick int64
}

// Goal is one entry of an agent's sorted-by-priority goal list, per
// spec.md §3.
type Goal struct {
	ID             string
	Description    string
	Priority       float64
	TargetPosition *[3]float64
	Deadline       *time.Time
	Completed      bool
	Progress       float64
}

// Record is the full per-agent cognitive and physical state, per
// spec.md §3 "Agent record". The scheduler owns the registry of
// Records exclusively; no other package mutates one concurrently with
// a tick in flight.
type Record struct {
	ID uuid.UUID

	Position    [3]float64
	Orientation [4]float64 // quaternion (w, x, y, z)

	Status *agentstate.Machine

	Resources    Resources
	Personality  Personality
	Capabilities map[string]bool

	Relationships map[uuid.UUID]Relationship
	Goals         []Goal // sorted by Priority, descending

	Working  *memory.Working
	Episodic *memory.Episodic
	LongTerm *memory.LongTerm

	// Exactly one of Discrete or Continuous is non-nil, matching
	// spec.md §4.1's two generative-model families.
	Discrete   *genmodel.Discrete
	Continuous *genmodel.Continuous

	Belief    belief.Belief
	Precision *precision.Controller

	LastObservation []float64
	LastAction      int
	Tick            int64
}

// SortGoalsByPriority reorders Goals descending by Priority, breaking
// ties by the order goals were appended (stable sort), per spec.md
// §3's "goal list (sorted by priority desc)".
func (r *Record) SortGoalsByPriority() {
	for i := 1; i < len(r.Goals); i++ {
		for j := i; j > 0 && r.Goals[j].Priority > r.Goals[j-1].Priority; j-- {
			r.Goals[j], r.Goals[j-1] = r.Goals[j-1], r.Goals[j]
		}
	}
}
