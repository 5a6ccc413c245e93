package model

import (
	"strings"

	"github.com/roach88/duet/internal/ir"
)

// member is one entry of the merged name table: a property or an event.
type member struct {
	prop  *PropertyDescriptor
	event *EventDescriptor
}

func (m member) kind() string {
	if m.prop != nil {
		return "property"
	}
	return "event"
}

func (m member) owner() string {
	if m.prop != nil {
		return m.prop.Owner
	}
	return m.event.Owner
}

func (m member) scope() ir.Scope {
	if m.prop != nil {
		return m.prop.Scope
	}
	return m.event.Scope
}

// resolution is the merge resolver's working table for one declaration.
// Classes are folded most-base first; a later fold of a name replaces the
// earlier entry.
type resolution struct {
	class    string
	members  map[string]member
	handlers []*HandlerDescriptor
	index    map[string]int
}

func newResolution(class string) *resolution {
	return &resolution{
		class:   class,
		members: make(map[string]member),
		index:   make(map[string]int),
	}
}

// fold applies one class's own body.
func (r *resolution) fold(k *Class) error {
	if err := r.foldMembers(k); err != nil {
		return err
	}
	r.foldHandlers(k)
	return nil
}

func (r *resolution) foldMembers(k *Class) error {
	for _, p := range k.props {
		if err := r.put(p.Name, member{prop: p}); err != nil {
			return err
		}
	}
	for _, e := range k.events {
		if err := r.put(e.Name, member{event: e}); err != nil {
			return err
		}
	}
	return nil
}

// foldHandlers overrides handlers with a known key in place, so an override
// keeps its ancestor's position, and appends the rest.
func (r *resolution) foldHandlers(k *Class) {
	for _, h := range k.handlers {
		if i, ok := r.index[h.Key()]; ok {
			r.handlers[i] = h
			continue
		}
		r.index[h.Key()] = len(r.handlers)
		r.handlers = append(r.handlers, h)
	}
}

func (r *resolution) put(name string, m member) error {
	if prev, ok := r.members[name]; ok && prev != m {
		if prev.kind() != m.kind() {
			return declErr(CodeRealmConflict, r.class, name,
				"%s of %s redeclared as %s by %s", prev.kind(), prev.owner(), m.kind(), m.owner())
		}
		if prev.scope() != m.scope() {
			return declErr(CodeRealmConflict, r.class, name,
				"declared %s by %s, redeclared %s by %s", prev.scope(), prev.owner(), m.scope(), m.owner())
		}
	}
	r.members[name] = m
	return nil
}

// eventScope returns the scope of a declared event or of the implicit change
// event of a property.
func (r *resolution) eventScope(name string) (ir.Scope, bool) {
	if m, ok := r.members[name]; ok && m.event != nil {
		return m.event.Scope, true
	}
	if prop, ok := strings.CutSuffix(name, ir.ChangedSuffix); ok {
		if m, ok := r.members[prop]; ok && m.prop != nil {
			return m.prop.Scope, true
		}
	}
	return "", false
}

// checkHandlers requires every handler's event to exist in each realm the
// handler runs in.
func (r *resolution) checkHandlers() error {
	for _, h := range r.handlers {
		scope, ok := r.eventScope(h.Event)
		if !ok {
			return declErr(CodeUnknownEvent, r.class, h.Key(), "event %q is not declared", h.Event)
		}
		if scope != ir.ScopeShared && scope != h.Scope {
			return declErr(CodeUnknownEvent, r.class, h.Key(),
				"event %q is declared %s, handler runs in %s", h.Event, scope, h.Scope)
		}
	}
	return nil
}
