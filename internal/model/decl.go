package model

import (
	"context"
	"fmt"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/validators"
)

// FromDecl binds a compiled class declaration to validator and handler
// bodies from lib.
func FromDecl(decl ir.ClassDecl, lib *validators.Library) (ClassDef, error) {
	def := ClassDef{
		Name:  decl.Name,
		Bases: append([]string(nil), decl.Bases...),
	}

	for _, p := range decl.Properties {
		v, err := lib.Validator(p.Validator)
		if err != nil {
			return ClassDef{}, fmt.Errorf("class %s: property %s: %w", decl.Name, p.Name, err)
		}
		def.Properties = append(def.Properties, PropertyDef{
			Name:      p.Name,
			Scope:     p.Scope,
			Default:   p.Default,
			Validator: Validator(v),
			Spec:      p.Validator,
		})
	}

	for _, e := range decl.Events {
		def.Events = append(def.Events, EventDef(e))
	}

	for _, h := range decl.Handlers {
		action, err := lib.Action(h.Action)
		if err != nil {
			return ClassDef{}, fmt.Errorf("class %s: handler %s: %w", decl.Name, h.Name, err)
		}
		def.Handlers = append(def.Handlers, HandlerDef{
			Name:  h.Name,
			Event: h.Event,
			Scope: h.Scope,
			Fn: func(ctx context.Context, obj Object, payloads []ir.IRValue) error {
				return action(ctx, obj, payloads)
			},
			Spec: h.Action,
		})
	}
	return def, nil
}

// DeclareAll binds and declares compiled classes. A class is declared once
// all of its bases are; otherwise input order is kept.
func DeclareAll(reg *Registry, decls []ir.ClassDecl, lib *validators.Library) ([]*Class, error) {
	pending := append([]ir.ClassDecl(nil), decls...)
	out := make([]*Class, 0, len(decls))
	for len(pending) > 0 {
		next := 0
		for i, d := range pending {
			if basesDeclared(reg, d) {
				next = i
				break
			}
		}
		// With no ready class, declaring the first one reports its missing
		// base.
		d := pending[next]
		pending = append(pending[:next], pending[next+1:]...)

		def, err := FromDecl(d, lib)
		if err != nil {
			return nil, err
		}
		c, err := reg.Declare(def)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func basesDeclared(reg *Registry, d ir.ClassDecl) bool {
	for _, b := range d.Bases {
		if _, ok := reg.Lookup(b); !ok {
			return false
		}
	}
	return true
}
