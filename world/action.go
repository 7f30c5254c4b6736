// Package world holds the interfaces and wire types the core consumes
// from an external world collaborator, per spec.md §6.
package world

// ActionKind names the discrete family an Action belongs to.
type ActionKind string

const (
	Wait        ActionKind = "wait"
	Move        ActionKind = "move"
	Interact    ActionKind = "interact"
	Observe     ActionKind = "observe"
	Communicate ActionKind = "communicate"
)

// Action is the core's output to the world interface: the first
// action of a chosen policy, mapped from its discrete index by a
// perception.ActionMapper.
type Action struct {
	Kind ActionKind
	// TargetPosition is used by Move.
	TargetPosition [3]float64
	// TargetID is used by Interact and Communicate.
	TargetID string
}

// ActionOutcome is the world's report of an applied Action, per
// spec.md §6.
type ActionOutcome struct {
	Success        bool
	NewPosition    *[3]float64
	DeltaResources map[string]float64
	Observed       []string
	FailureReason  string
}
