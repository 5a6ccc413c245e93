package model

import "github.com/roach88/duet/internal/ir"

// Manifest is the per-realm view of a class: every property, event and
// handler that exists in one realm.
type Manifest struct {
	class string
	realm ir.Realm

	props    map[string]*PropertyDescriptor
	events   map[string]*EventDescriptor
	handlers map[string][]*HandlerDescriptor

	properties []string
	local      []string
	eventNames []string
}

func newManifest(class string, realm ir.Realm, res *resolution) *Manifest {
	m := &Manifest{
		class:    class,
		realm:    realm,
		props:    make(map[string]*PropertyDescriptor),
		events:   make(map[string]*EventDescriptor),
		handlers: make(map[string][]*HandlerDescriptor),
	}

	local := make(map[string]bool)
	declared := make(map[string]bool)
	for name, mem := range res.members {
		if !mem.scope().Visible(realm) {
			continue
		}
		if mem.prop != nil {
			m.props[name] = mem.prop
			if mem.prop.Scope.LocalTo(realm) {
				local[name] = true
			}
			changed := ir.ChangedEvent(name)
			m.events[changed] = &EventDescriptor{
				Name:     changed,
				Owner:    mem.prop.Owner,
				Scope:    ir.LocalScope(realm),
				Property: name,
			}
			continue
		}
		m.events[name] = mem.event
		declared[name] = true
	}

	for _, h := range res.handlers {
		if h.Scope.Visible(realm) {
			m.handlers[h.Event] = append(m.handlers[h.Event], h)
		}
	}

	m.properties = sortedNames(m.props)
	m.local = sortedNames(local)
	m.eventNames = sortedNames(declared)
	return m
}

// Class returns the class name.
func (m *Manifest) Class() string { return m.class }

// Realm returns the realm this manifest describes.
func (m *Manifest) Realm() ir.Realm { return m.realm }

// Properties returns the sorted names of all visible properties.
func (m *Manifest) Properties() []string {
	return append([]string(nil), m.properties...)
}

// LocalProperties returns the sorted names of the properties declared for
// exactly this realm.
func (m *Manifest) LocalProperties() []string {
	return append([]string(nil), m.local...)
}

// Events returns the sorted names of declared events. Change events are
// not listed.
func (m *Manifest) Events() []string {
	return append([]string(nil), m.eventNames...)
}

// Property looks up a visible property.
func (m *Manifest) Property(name string) (*PropertyDescriptor, bool) {
	p, ok := m.props[name]
	return p, ok
}

// Event looks up a visible event, including change events.
func (m *Manifest) Event(name string) (*EventDescriptor, bool) {
	e, ok := m.events[name]
	return e, ok
}

// Handlers returns the handlers for an event in ancestry order: inherited
// handlers first, overrides in the position of the handler they replace.
func (m *Manifest) Handlers(event string) []*HandlerDescriptor {
	return append([]*HandlerDescriptor(nil), m.handlers[event]...)
}
