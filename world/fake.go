package world

import (
	"context"
	"sync"
)

var _ World = (*Fake)(nil)

// Fake is an in-memory World used by tests and by single-process
// deployments that have no external world backend. Agent positions
// and stimuli are supplied directly by the caller rather than
// simulated.
type Fake struct {
	mu       sync.Mutex
	tick     int64
	entities []Entity
	stimuli  map[string][]Stimulus
	outcomes map[string]ActionOutcome
}

// NewFake returns an empty Fake world at tick 0.
func NewFake() *Fake {
	return &Fake{stimuli: map[string][]Stimulus{}, outcomes: map[string]ActionOutcome{}}
}

// SetEntities replaces the entity list the next Snapshot reports.
func (f *Fake) SetEntities(entities []Entity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entities = entities
}

// SetStimuli fixes the stimuli StimuliFor reports for agentID.
func (f *Fake) SetStimuli(agentID string, stimuli []Stimulus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stimuli[agentID] = stimuli
}

// SetOutcome fixes the ActionOutcome ApplyAction reports for agentID,
// regardless of the action applied.
func (f *Fake) SetOutcome(agentID string, outcome ActionOutcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[agentID] = outcome
}

// AdvanceTick increments the tick counter Snapshot reports.
func (f *Fake) AdvanceTick() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tick++
}

// Snapshot implements World.
func (f *Fake) Snapshot(ctx context.Context) (WorldView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return WorldView{Tick: f.tick, Entities: append([]Entity(nil), f.entities...)}, nil
}

// StimuliFor implements World.
func (f *Fake) StimuliFor(ctx context.Context, agentID string, position [3]float64, capabilities []string) ([]Stimulus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Stimulus(nil), f.stimuli[agentID]...), nil
}

// ApplyAction implements World.
func (f *Fake) ApplyAction(ctx context.Context, agentID string, action Action) (ActionOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if outcome, ok := f.outcomes[agentID]; ok {
		return outcome, nil
	}
	return ActionOutcome{Success: true}, nil
}
