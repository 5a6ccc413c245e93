package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/duet/internal/ir"
)

// ImplKind is the kind of member a unit entry implements.
type ImplKind string

const (
	ImplProperty ImplKind = "property"
	ImplEvent    ImplKind = "event"
	ImplHandler  ImplKind = "handler"
)

// Implementation is a member body emitted by its owning class.
type Implementation struct {
	Kind  ImplKind
	Name  string // handlers use their Key
	Scope ir.Scope
	Body  string

	validator Validator
	handler   Handler
}

// Reference points an inherited member at the unit of the class that owns
// its implementation.
type Reference struct {
	Kind  ImplKind
	Name  string
	Owner string

	unit *Unit
}

// Unit is the generated realm-side implementation of one class. It carries a
// body only for the members the class owns; everything inherited unchanged
// is a reference, so each body appears exactly once across a hierarchy.
type Unit struct {
	class string
	realm ir.Realm
	mro   []string

	impls []*Implementation
	refs  []*Reference

	implIndex map[string]*Implementation
	refIndex  map[string]*Reference
}

func unitKey(kind ImplKind, name string) string {
	return string(kind) + " " + name
}

func newUnit(c *Class, realm ir.Realm, m *Manifest) *Unit {
	u := &Unit{
		class:     c.name,
		realm:     realm,
		mro:       c.MRO(),
		implIndex: make(map[string]*Implementation),
		refIndex:  make(map[string]*Reference),
	}
	owners := make(map[string]*Class, len(c.mro))
	for _, k := range c.mro {
		owners[k.name] = k
	}

	add := func(kind ImplKind, name, owner string, scope ir.Scope, impl func() *Implementation) {
		key := unitKey(kind, name)
		if owner == c.name {
			im := impl()
			im.Kind, im.Name, im.Scope = kind, name, scope
			u.impls = append(u.impls, im)
			u.implIndex[key] = im
			return
		}
		ref := &Reference{Kind: kind, Name: name, Owner: owner, unit: owners[owner].units[realm]}
		u.refs = append(u.refs, ref)
		u.refIndex[key] = ref
	}

	for _, name := range m.properties {
		p := m.props[name]
		add(ImplProperty, name, p.Owner, p.Scope, func() *Implementation {
			return &Implementation{Body: renderSpec(p.Spec.Kind, p.Spec.Args), validator: p.Validator}
		})
	}
	for _, name := range m.eventNames {
		e := m.events[name]
		add(ImplEvent, name, e.Owner, e.Scope, func() *Implementation {
			return &Implementation{}
		})
	}
	for _, hs := range m.handlers {
		for _, h := range hs {
			add(ImplHandler, h.Key(), h.Owner, h.Scope, func() *Implementation {
				return &Implementation{Body: renderSpec(h.Spec.Kind, h.Spec.Args), handler: h.Fn}
			})
		}
	}

	sort.Slice(u.impls, func(i, j int) bool {
		return unitKey(u.impls[i].Kind, u.impls[i].Name) < unitKey(u.impls[j].Kind, u.impls[j].Name)
	})
	sort.Slice(u.refs, func(i, j int) bool {
		return unitKey(u.refs[i].Kind, u.refs[i].Name) < unitKey(u.refs[j].Kind, u.refs[j].Name)
	})
	return u
}

// renderSpec prints a validator or handler spec as `kind {args}`. Bodies
// supplied as Go closures without a spec print as "func".
func renderSpec(kind string, args ir.IRObject) string {
	if kind == "" {
		return "func"
	}
	if len(args) == 0 {
		return kind
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return kind + " <invalid args>"
	}
	return kind + " " + string(data)
}

// Class returns the class name.
func (u *Unit) Class() string { return u.class }

// Realm returns the realm the unit targets.
func (u *Unit) Realm() ir.Realm { return u.realm }

// Implementations returns the owned bodies, sorted by kind and name.
func (u *Unit) Implementations() []Implementation {
	out := make([]Implementation, len(u.impls))
	for i, im := range u.impls {
		out[i] = *im
	}
	return out
}

// References returns the inherited members, sorted by kind and name.
func (u *Unit) References() []Reference {
	out := make([]Reference, len(u.refs))
	for i, r := range u.refs {
		out[i] = *r
	}
	return out
}

// Owner returns the class whose unit implements a member.
func (u *Unit) Owner(kind ImplKind, name string) (string, bool) {
	key := unitKey(kind, name)
	if _, ok := u.implIndex[key]; ok {
		return u.class, true
	}
	if ref, ok := u.refIndex[key]; ok {
		return ref.Owner, true
	}
	return "", false
}

// Validator resolves a property's validator through the owning unit.
func (u *Unit) Validator(name string) (Validator, bool) {
	im, ok := u.resolve(ImplProperty, name)
	if !ok {
		return nil, false
	}
	return im.validator, true
}

// Handler resolves a handler body through the owning unit.
func (u *Unit) Handler(h *HandlerDescriptor) (Handler, bool) {
	im, ok := u.resolve(ImplHandler, h.Key())
	if !ok {
		return nil, false
	}
	return im.handler, true
}

func (u *Unit) resolve(kind ImplKind, name string) (*Implementation, bool) {
	key := unitKey(kind, name)
	if im, ok := u.implIndex[key]; ok {
		return im, true
	}
	if ref, ok := u.refIndex[key]; ok {
		return ref.unit.resolve(kind, name)
	}
	return nil, false
}

// Render prints the unit as a listing: a header, one impl line per owned
// member and one ref line per inherited member.
func (u *Unit) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unit %s realm=%s\n", u.class, u.realm)
	fmt.Fprintf(&b, "mro %s\n", strings.Join(u.mro, " "))
	for _, im := range u.impls {
		line := fmt.Sprintf("impl %s %s %s", im.Kind, im.Name, im.Scope)
		if im.Body != "" {
			line += " " + im.Body
		}
		b.WriteString(line + "\n")
	}
	for _, ref := range u.refs {
		fmt.Fprintf(&b, "ref %s %s %s\n", ref.Kind, ref.Name, ref.Owner)
	}
	return b.String()
}
