package ir

import (
	"encoding/json"
	"fmt"
)

// ClassDecl is the declaration table of one class body, in declaration
// order. It holds data only; validator and handler behaviour is named by
// specs and bound by the model package.
type ClassDecl struct {
	Name       string         `json:"name"`
	Bases      []string       `json:"bases,omitempty"`
	Properties []PropertyDecl `json:"properties"`
	Events     []EventDecl    `json:"events"`
	Handlers   []HandlerDecl  `json:"handlers"`
}

// PropertyDecl declares a reactive slot in one scope of a class body.
type PropertyDecl struct {
	Name      string        `json:"name"`
	Scope     Scope         `json:"scope"`
	Default   IRValue       `json:"default"`
	Validator ValidatorSpec `json:"validator"`
}

// UnmarshalJSON decodes the default with UnmarshalIRValue, so declarations
// written by `duet compile -o` read back unchanged.
func (p *PropertyDecl) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name      string          `json:"name"`
		Scope     Scope           `json:"scope"`
		Default   json.RawMessage `json:"default"`
		Validator ValidatorSpec   `json:"validator"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PropertyDecl{Name: raw.Name, Scope: raw.Scope, Validator: raw.Validator}
	if len(raw.Default) == 0 {
		return nil
	}
	def, err := UnmarshalIRValue(raw.Default)
	if err != nil {
		return fmt.Errorf("property %s default: %w", raw.Name, err)
	}
	p.Default = def
	return nil
}

// ValidatorSpec names a validator kind and its arguments,
// e.g. {Kind: "add", Args: {"by": 2}}.
type ValidatorSpec struct {
	Kind string   `json:"kind"`
	Args IRObject `json:"args,omitempty"`
}

// EventDecl declares a named event channel in one scope of a class body.
type EventDecl struct {
	Name  string `json:"name"`
	Scope Scope  `json:"scope"`
}

// HandlerDecl subscribes a named handler to an event. The handler body runs
// in every realm its scope is visible in.
type HandlerDecl struct {
	Name   string      `json:"name"`
	Event  string      `json:"event"`
	Scope  Scope       `json:"scope"`
	Action HandlerSpec `json:"action"`
}

// HandlerSpec names a handler kind and its arguments,
// e.g. {Kind: "record", Args: {"target": "res1"}}.
type HandlerSpec struct {
	Kind string   `json:"kind"`
	Args IRObject `json:"args,omitempty"`
}

// ChangedEvent returns the name of the local change-notification event for
// a property.
func ChangedEvent(property string) string {
	return property + ChangedSuffix
}

// ChangedSuffix marks change-notification events.
const ChangedSuffix = ":changed"
