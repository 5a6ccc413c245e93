package model

import (
	"context"

	"github.com/roach88/duet/internal/ir"
)

// Validator computes the value to store from the current stored value (or
// the zero value of the default's type on first write) and the proposed
// value. It runs on every write, including writes of the current value.
type Validator func(current, proposed ir.IRValue) (ir.IRValue, error)

// Handler receives every payload queued for an event since the previous
// flush, in emit order.
type Handler func(ctx context.Context, obj Object, payloads []ir.IRValue) error

// Object is a handler's view of the instance it runs on.
type Object interface {
	ID() string
	Realm() ir.Realm
	Get(name string) (ir.IRValue, bool)
	Set(ctx context.Context, name string, value ir.IRValue) error
	Emit(name string, payload ir.IRValue) error
}

// ClassDef is a class body as written by its author.
type ClassDef struct {
	Name       string
	Bases      []string
	Properties []PropertyDef
	Events     []EventDef
	Handlers   []HandlerDef
}

// PropertyDef declares a property. A nil Validator stores proposed values
// unchanged. Spec, when set, names the validator for generated listings.
type PropertyDef struct {
	Name      string
	Scope     ir.Scope
	Default   ir.IRValue
	Validator Validator
	Spec      ir.ValidatorSpec
}

// EventDef declares an event.
type EventDef struct {
	Name  string
	Scope ir.Scope
}

// HandlerDef subscribes a handler to an event. An empty Scope takes the
// event's scope.
type HandlerDef struct {
	Name  string
	Event string
	Scope ir.Scope
	Fn    Handler
	Spec  ir.HandlerSpec
}

// PropertyDescriptor is the resolved, immutable form of a property.
type PropertyDescriptor struct {
	Name      string
	Owner     string
	Scope     ir.Scope
	Default   ir.IRValue
	Validator Validator
	Spec      ir.ValidatorSpec
}

// EventDescriptor is the resolved form of an event. Change notifications
// have Property set; they are local to the realm whose storage changed and
// never cross realms.
type EventDescriptor struct {
	Name     string
	Owner    string
	Scope    ir.Scope
	Property string
}

// Shared reports whether emits cross to the peer realm.
func (e *EventDescriptor) Shared() bool {
	return e.Scope == ir.ScopeShared && e.Property == ""
}

// HandlerDescriptor is the resolved form of a handler.
type HandlerDescriptor struct {
	Name  string
	Event string
	Owner string
	Scope ir.Scope
	Fn    Handler
	Spec  ir.HandlerSpec
}

// Key identifies a handler across an inheritance chain: a subclass handler
// with the same key replaces the inherited one.
func (h *HandlerDescriptor) Key() string {
	return string(h.Scope) + "/" + h.Event + "/" + h.Name
}
