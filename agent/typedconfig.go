package agent

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// TypedConfig carries a Config's archetype Type alongside the Config
// itself so that a serialized archetype can be round-tripped back to
// its concrete Go type, without the reader declaring that type ahead
// of time. Adapted from GoLearn's TypedConfigList (TypedConfigList.go),
// generalized from "a list of RL hyperparameter configs" to "a single
// agent archetype config".
type TypedConfig struct {
	Type   Type
	Config Config
}

// NewTypedConfig wraps cfg together with its Type.
func NewTypedConfig(cfg Config) TypedConfig {
	return TypedConfig{Type: cfg.Type(), Config: cfg}
}

// MarshalJSON implements json.Marshaler.
func (t TypedConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   Type
		Config Config
	}{t.Type, t.Config})
}

// UnmarshalJSON implements json.Unmarshaler, looking up the concrete
// Config type registered for the encoded Type.
func (t *TypedConfig) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Type   Type
		Config json.RawMessage
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("agent.TypedConfig.UnmarshalJSON: %w", err)
	}

	ty, ok := registeredTypes[envelope.Type]
	if !ok {
		return fmt.Errorf("agent.TypedConfig.UnmarshalJSON: unregistered archetype %q", envelope.Type)
	}
	value := reflect.New(ty.Elem()).Interface()
	if err := json.Unmarshal(envelope.Config, value); err != nil {
		return fmt.Errorf("agent.TypedConfig.UnmarshalJSON: %w", err)
	}

	t.Type = envelope.Type
	t.Config = value.(Config)
	return nil
}
