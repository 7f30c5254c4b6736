package perception

import "github.com/active-inference/aifcore/world"

// ActionMapper maps a chosen policy's discrete action index to a
// world.Action and back, per spec.md §4.10 step 6 and §6.
type ActionMapper struct {
	kinds []world.ActionKind // index -> kind
}

// NewActionMapper builds a mapper over the U action kinds a discrete
// generative model's B tensor enumerates, in index order.
func NewActionMapper(kinds []world.ActionKind) *ActionMapper {
	return &ActionMapper{kinds: kinds}
}

// ToAction maps an action index to a world.Action. target is used for
// Move (position) and Interact/Communicate (entity id) kinds; it may
// be left unset for Wait/Observe. An out-of-range index maps to Wait,
// matching spec.md §4.10's gating fallback rather than panicking.
func (m *ActionMapper) ToAction(index int, targetPosition [3]float64, targetID string) world.Action {
	if index < 0 || index >= len(m.kinds) {
		return world.Action{Kind: world.Wait}
	}
	kind := m.kinds[index]
	a := world.Action{Kind: kind}
	switch kind {
	case world.Move:
		a.TargetPosition = targetPosition
	case world.Interact, world.Communicate:
		a.TargetID = targetID
	}
	return a
}

// ToIndex returns the action index for a's kind, and whether the
// mapper defines that kind.
func (m *ActionMapper) ToIndex(a world.Action) (int, bool) {
	for i, k := range m.kinds {
		if k == a.Kind {
			return i, true
		}
	}
	return 0, false
}

// NumActions returns U, the number of distinct action kinds the
// mapper enumerates.
func (m *ActionMapper) NumActions() int {
	return len(m.kinds)
}
