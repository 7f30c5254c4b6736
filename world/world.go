package world

import "context"

// Stimulus is one percept the world reports for a querying agent, per
// spec.md §6 "stimuli_for".
type Stimulus struct {
	Kind       string
	Salience   float64
	Confidence float64
	Payload    []float64
}

// Entity is one inhabitant of the world visible in a WorldView.
type Entity struct {
	ID       string
	Position [3]float64
	Kind     string
}

// WorldView is the immutable snapshot of entities and terrain handed
// to every agent within one tick, per spec.md §5 "every agent observes
// the same world snapshot".
type WorldView struct {
	Tick     int64
	Entities []Entity
}

// World is the narrow interface the core consumes from an external
// world collaborator, per spec.md §6. Implementations must treat
// Snapshot/StimuliFor as read-only during a tick and ApplyAction as
// write-only, invoked only between ticks.
type World interface {
	// Snapshot returns the immutable view of the world valid for the
	// current tick.
	Snapshot(ctx context.Context) (WorldView, error)

	// StimuliFor returns the stimuli an agent at position with the
	// given capabilities perceives this tick.
	StimuliFor(ctx context.Context, agentID string, position [3]float64, capabilities []string) ([]Stimulus, error)

	// ApplyAction applies a single agent's chosen action, returning
	// its outcome. Called only between ticks, never concurrently with
	// Snapshot/StimuliFor for the same tick.
	ApplyAction(ctx context.Context, agentID string, action Action) (ActionOutcome, error)
}
