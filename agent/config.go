package agent

import (
	"fmt"
	"reflect"

	"github.com/active-inference/aifcore/tensor"
	"github.com/google/uuid"
)

// Type names an agent archetype a Config can build, per spec.md §6
// "agent factory / registry". Adapted from GoLearn's agent.Type.
type Type string

const (
	Explorer Type = "explorer"
	Merchant Type = "merchant"
)

// registeredTypes maps a Type to the concrete Config type that builds
// it, so a serialized archetype name can be round-tripped to its
// concrete configuration without the caller declaring the type ahead
// of time. Adapted from GoLearn's agent.RegisteredTypes, generalized
// from "RL algorithm Config" to "agent archetype Config".
var registeredTypes = map[Type]reflect.Type{}

// Register associates a Type with the concrete Config that builds it.
// Each archetype package registers its own Type in an init function,
// mirroring GoLearn's per-package agent.Register calls, to avoid
// import cycles between this package and its archetypes.
func Register(t Type, zero Config) {
	registeredTypes[t] = reflect.TypeOf(zero)
}

// Config builds a Record for one agent archetype, per spec.md §3 and
// §6. Adapted from GoLearn's agent.Config, generalized from
// "construct an RL Agent" to "construct an active-inference Record".
type Config interface {
	Type() Type
	Validate() error
	NewRecord(id uuid.UUID, src *tensor.Source) (*Record, error)
}

// Factory issues new Records from a Config, assigning each a fresh
// identity, per spec.md §6 "create(spec) -> id".
type Factory struct{}

// Create builds a Record from cfg, validating it first.
func (Factory) Create(cfg Config, src *tensor.Source) (*Record, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("agent.Factory.Create: %w", err)
	}
	id := uuid.New()
	return cfg.NewRecord(id, src)
}

// Lookup returns the zero Config registered for a Type, or false if
// no archetype package registered that Type.
func Lookup(t Type) (Config, bool) {
	ty, ok := registeredTypes[t]
	if !ok {
		return nil, false
	}
	return reflect.New(ty.Elem()).Interface().(Config), true
}
