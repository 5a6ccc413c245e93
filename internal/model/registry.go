package model

import (
	"sort"
	"strings"
	"sync"

	"github.com/roach88/duet/internal/ir"
)

// Class is a resolved class. It is immutable once Declare returns it.
type Class struct {
	name  string
	bases []*Class
	mro   []*Class // self first

	// Own body, in declaration order.
	props    []*PropertyDescriptor
	events   []*EventDescriptor
	handlers []*HandlerDescriptor

	manifests map[ir.Realm]*Manifest
	units     map[ir.Realm]*Unit
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Bases returns the direct base names in declaration order.
func (c *Class) Bases() []string {
	names := make([]string, len(c.bases))
	for i, b := range c.bases {
		names[i] = b.name
	}
	return names
}

// MRO returns the method-resolution order, most derived first.
func (c *Class) MRO() []string {
	names := make([]string, len(c.mro))
	for i, k := range c.mro {
		names[i] = k.name
	}
	return names
}

// IsSubclassOf reports whether name appears in the class's MRO.
func (c *Class) IsSubclassOf(name string) bool {
	for _, k := range c.mro {
		if k.name == name {
			return true
		}
	}
	return false
}

// Manifest returns the class's manifest for a realm.
func (c *Class) Manifest(r ir.Realm) *Manifest { return c.manifests[r] }

// Unit returns the class's generated implementation for a realm.
func (c *Class) Unit(r ir.Realm) *Unit { return c.units[r] }

// Properties returns the sorted names of the properties visible in realm r
// (__properties__).
func (c *Class) Properties(r ir.Realm) []string {
	return c.manifests[r].Properties()
}

// LocalProperties returns the sorted names of the properties declared for
// exactly realm r (__local_properties__).
func (c *Class) LocalProperties(r ir.Realm) []string {
	return c.manifests[r].LocalProperties()
}

// Events returns the sorted names of the declared events visible in realm r.
func (c *Class) Events(r ir.Realm) []string {
	return c.manifests[r].Events()
}

// Registry is a class table. Classes are registered by Declare and never
// change afterwards. A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
	order   []*Class
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class)}
}

// Lookup returns a declared class by name.
func (r *Registry) Lookup(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// Classes returns every declared class in declaration order.
func (r *Registry) Classes() []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Class(nil), r.order...)
}

// Declare resolves a class body against its bases and registers the result.
// Bases must already be declared. Any *DeclarationError leaves the registry
// unchanged.
func (r *Registry) Declare(def ClassDef) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !validName(def.Name) {
		return nil, declErr(CodeInvalidName, def.Name, "", "invalid class name %q", def.Name)
	}
	if _, ok := r.classes[def.Name]; ok {
		return nil, declErr(CodeAlreadyDeclared, def.Name, "", "class already declared")
	}

	bases := make([]*Class, 0, len(def.Bases))
	for _, name := range def.Bases {
		b, ok := r.classes[name]
		if !ok {
			return nil, declErr(CodeUnknownBase, def.Name, name, "base class is not declared")
		}
		bases = append(bases, b)
	}
	ancestors, err := linearize(def.Name, bases)
	if err != nil {
		return nil, err
	}

	c := &Class{name: def.Name, bases: bases}
	c.mro = append([]*Class{c}, ancestors...)

	res := newResolution(def.Name)
	for i := len(ancestors) - 1; i >= 0; i-- {
		if err := res.fold(ancestors[i]); err != nil {
			return nil, err
		}
	}
	if err := c.buildBody(def, res); err != nil {
		return nil, err
	}
	res.foldHandlers(c)
	if err := res.checkHandlers(); err != nil {
		return nil, err
	}

	c.manifests = make(map[ir.Realm]*Manifest, len(ir.Realms))
	c.units = make(map[ir.Realm]*Unit, len(ir.Realms))
	for _, realm := range ir.Realms {
		c.manifests[realm] = newManifest(c.name, realm, res)
		c.units[realm] = newUnit(c, realm, c.manifests[realm])
	}

	r.classes[c.name] = c
	r.order = append(r.order, c)
	return c, nil
}

// buildBody checks the class's own declarations and creates their
// descriptors. Handler scopes left empty take the scope of their event as
// resolved so far, which includes this body's own properties and events.
func (c *Class) buildBody(def ClassDef, res *resolution) error {
	seen := make(map[string]string)
	claim := func(name, what string, scope ir.Scope) error {
		label := what + " in scope " + string(scope)
		if prev, ok := seen[name]; ok {
			return declErr(CodeDuplicateDeclaration, c.name, name, "declared as %s and as %s", prev, label)
		}
		seen[name] = label
		return nil
	}

	for _, p := range def.Properties {
		if !validName(p.Name) {
			return declErr(CodeInvalidName, c.name, p.Name, "invalid property name")
		}
		if !p.Scope.Valid() {
			return declErr(CodeInvalidDeclaration, c.name, p.Name, "invalid scope %q", p.Scope)
		}
		if err := claim(p.Name, "property", p.Scope); err != nil {
			return err
		}
		if p.Default == nil || ir.Kind(p.Default) == "null" {
			return declErr(CodeInvalidDeclaration, c.name, p.Name, "default is required and may not be null")
		}
		v := p.Validator
		if v == nil {
			v = identityValidator
		}
		c.props = append(c.props, &PropertyDescriptor{
			Name:      p.Name,
			Owner:     c.name,
			Scope:     p.Scope,
			Default:   p.Default,
			Validator: v,
			Spec:      p.Spec,
		})
	}

	for _, e := range def.Events {
		if !validName(e.Name) {
			return declErr(CodeInvalidName, c.name, e.Name, "invalid event name")
		}
		if !e.Scope.Valid() {
			return declErr(CodeInvalidDeclaration, c.name, e.Name, "invalid scope %q", e.Scope)
		}
		if err := claim(e.Name, "event", e.Scope); err != nil {
			return err
		}
		c.events = append(c.events, &EventDescriptor{Name: e.Name, Owner: c.name, Scope: e.Scope})
	}

	// Handler defaults need this body's members in the table.
	if err := res.foldMembers(c); err != nil {
		return err
	}

	keys := make(map[string]bool)
	for _, h := range def.Handlers {
		if !validName(h.Name) {
			return declErr(CodeInvalidName, c.name, h.Name, "invalid handler name")
		}
		if h.Fn == nil {
			return declErr(CodeInvalidDeclaration, c.name, h.Name, "handler has no body")
		}
		scope := h.Scope
		if scope == "" {
			s, ok := res.eventScope(h.Event)
			if !ok {
				return declErr(CodeUnknownEvent, c.name, h.Name, "event %q is not declared", h.Event)
			}
			scope = s
		}
		if !scope.Valid() {
			return declErr(CodeInvalidDeclaration, c.name, h.Name, "invalid scope %q", scope)
		}
		d := &HandlerDescriptor{
			Name:  h.Name,
			Event: h.Event,
			Owner: c.name,
			Scope: scope,
			Fn:    h.Fn,
			Spec:  h.Spec,
		}
		if keys[d.Key()] {
			return declErr(CodeDuplicateDeclaration, c.name, d.Key(), "handler declared twice")
		}
		keys[d.Key()] = true
		c.handlers = append(c.handlers, d)
	}
	return nil
}

func identityValidator(_, proposed ir.IRValue) (ir.IRValue, error) {
	return proposed, nil
}

// validName rejects empty names and names using the separators reserved for
// change events and handler keys.
func validName(s string) bool {
	return s != "" && !strings.ContainsAny(s, ":/ \t\n")
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
