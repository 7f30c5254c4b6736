// Package agentstate implements the agent status enum and the
// transition table that validates every status change, per spec.md
// §4.8. Grounded on environment.SpecType/Cardinality's small
// enum-plus-validator idiom (environment/Spec.go), generalized from
// tagging a value to validating a transition between values.
package agentstate

import (
	"fmt"

	"github.com/active-inference/aifcore/aierrors"
)

// Status is one of the seven agent lifecycle states named in
// spec.md §4.8.
type Status string

const (
	Idle        Status = "idle"
	Moving      Status = "moving"
	Planning    Status = "planning"
	Interacting Status = "interacting"
	Learning    Status = "learning"
	Offline     Status = "offline"
	Error       Status = "error"
)

// edges lists every valid (from, to) pair, idle->offline included,
// that isn't covered by the any->learning, any->error, or
// learning->previous special cases below.
var edges = map[Status]map[Status]bool{
	Idle:        {Moving: true, Planning: true, Offline: true},
	Moving:      {Idle: true, Interacting: true},
	Interacting: {Moving: true},
	Planning:    {Moving: true, Interacting: true, Idle: true},
}

// Machine validates an agent's status transitions centrally, per
// spec.md §4.8. The zero value is not usable; construct with
// NewMachine.
type Machine struct {
	current  Status
	previous Status // status held immediately before entering Learning
}

// NewMachine returns a Machine starting in Idle.
func NewMachine() *Machine {
	return &Machine{current: Idle}
}

// RestoreMachine returns a Machine starting in the given status,
// bypassing the edge table. Used only to rehydrate a Machine from a
// persisted snapshot, where the stored status was already validated
// the tick it was written; ordinary code must reach a status through
// Transition.
func RestoreMachine(status Status) *Machine {
	return &Machine{current: status}
}

// Status returns the current status.
func (m *Machine) Status() Status {
	return m.current
}

// Transition attempts to move to the given status. An invalid
// transition does not panic: it forces the machine into Error and
// returns an *aierrors.Error of kind InvalidTransition, matching
// spec.md §4.8's "reported but does not abort the tick" semantics.
func (m *Machine) Transition(to Status) error {
	from := m.current
	if !m.valid(from, to) {
		m.current = Error
		return aierrors.New(aierrors.InvalidTransition, "agentstate.Machine.Transition",
			fmt.Errorf("%s -> %s", from, to))
	}
	if to == Learning && from != Learning {
		m.previous = from
	}
	m.current = to
	return nil
}

func (m *Machine) valid(from, to Status) bool {
	switch {
	case from == Error:
		return false // terminal until Reset
	case from == Offline:
		return false // terminal until Restart
	case to == Error:
		return true // any -> error
	case from == Learning:
		return to == m.previous // learning -> previous exclusively
	case to == Learning:
		return true // any -> learning
	default:
		return edges[from][to]
	}
}

// Reset clears an Error status back to Idle. It is the only way out
// of Error, matching spec.md §4.8's "terminal until reset".
func (m *Machine) Reset() {
	m.current = Idle
	m.previous = ""
}

// Restart clears an Offline status back to Idle. It is the only way
// out of Offline, matching spec.md §4.8's "terminal until restart".
func (m *Machine) Restart() {
	m.current = Idle
}
