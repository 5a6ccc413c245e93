package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"

	"github.com/roach88/duet/internal/ir"
)

// CompileClasses parses every class under the top-level `class` field, in
// field order.
//
//	class: ModelA: { shared: { foo1: { default: 0, validator: { kind: "add", by: 1 } } } }
//	class: ModelB: { bases: ["ModelA"], ... }
func CompileClasses(v cue.Value) ([]ir.ClassDecl, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	classes := v.LookupPath(cue.ParsePath("class"))
	if !classes.Exists() {
		return []ir.ClassDecl{}, nil
	}

	iter, err := classes.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	decls := []ir.ClassDecl{}
	for iter.Next() {
		decl, err := compileClass(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		decls = append(decls, *decl)
	}
	return decls, nil
}

// CompileClass parses a CUE value into a ClassDecl.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the class struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`class: ModelA: { ... }`)
//	decl, err := CompileClass(v.LookupPath(cue.ParsePath("class.ModelA")))
func CompileClass(v cue.Value) (*ir.ClassDecl, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	var name string
	if labels := v.Path().Selectors(); len(labels) > 0 {
		name = labels[len(labels)-1].String()
	}
	return compileClass(name, v)
}

func compileClass(name string, v cue.Value) (*ir.ClassDecl, error) {
	decl := &ir.ClassDecl{
		Name:       name,
		Properties: []ir.PropertyDecl{},
		Events:     []ir.EventDecl{},
		Handlers:   []ir.HandlerDecl{},
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		label, fv := iter.Label(), iter.Value()
		switch label {
		case "bases":
			decl.Bases, err = parseBases(fv)
		case string(ir.ScopeShared), string(ir.ScopeA), string(ir.ScopeB):
			var props []ir.PropertyDecl
			props, err = parseProperties(ir.Scope(label), fv)
			decl.Properties = append(decl.Properties, props...)
		case "events":
			decl.Events, err = parseEvents(fv)
		case "handlers":
			decl.Handlers, err = parseHandlers(fv)
		default:
			err = &CompileError{
				Field:   fmt.Sprintf("class.%s.%s", name, label),
				Message: "unknown field (want bases, shared, a, b, events or handlers)",
				Pos:     fv.Pos(),
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return decl, nil
}

func parseBases(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var bases []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		bases = append(bases, s)
	}
	return bases, nil
}

// parseProperties reads one scope block: name -> {default, validator}.
func parseProperties(scope ir.Scope, v cue.Value) ([]ir.PropertyDecl, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var props []ir.PropertyDecl
	for iter.Next() {
		name, pv := iter.Label(), iter.Value()
		field := fmt.Sprintf("%s.%s", scope, name)
		prop := ir.PropertyDecl{Name: name, Scope: scope}

		fields, err := pv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for fields.Next() {
			switch fields.Label() {
			case "default":
				prop.Default, err = toIR(fields.Value(), field+".default")
			case "validator":
				prop.Validator, err = parseValidator(fields.Value(), field+".validator")
			default:
				err = &CompileError{
					Field:   field + "." + fields.Label(),
					Message: "unknown field (want default or validator)",
					Pos:     fields.Value().Pos(),
				}
			}
			if err != nil {
				return nil, err
			}
		}
		if prop.Default == nil {
			return nil, &CompileError{Field: field, Message: "default is required", Pos: pv.Pos()}
		}
		props = append(props, prop)
	}
	return props, nil
}

// parseValidator accepts a kind name or a struct {kind, ...args}.
func parseValidator(v cue.Value, field string) (ir.ValidatorSpec, error) {
	if s, err := v.String(); err == nil {
		return ir.ValidatorSpec{Kind: s}, nil
	}
	kind, args, err := parseSpec(v, field)
	if err != nil {
		return ir.ValidatorSpec{}, err
	}
	return ir.ValidatorSpec{Kind: kind, Args: args}, nil
}

// parseSpec splits a struct into its kind and the remaining fields as
// arguments. reserved names fields that are neither kind nor arguments.
func parseSpec(v cue.Value, field string, reserved ...string) (string, ir.IRObject, error) {
	obj, err := toIR(v, field)
	if err != nil {
		return "", nil, err
	}
	fields, ok := obj.(ir.IRObject)
	if !ok {
		return "", nil, &CompileError{Field: field, Message: "must be a string or struct", Pos: v.Pos()}
	}
	kind, ok := fields["kind"].(ir.IRString)
	if !ok {
		return "", nil, &CompileError{Field: field + ".kind", Message: "kind is required and must be a string", Pos: v.Pos()}
	}
	args := ir.IRObject{}
	for k, val := range fields {
		if k == "kind" || slices.Contains(reserved, k) {
			continue
		}
		args[k] = val
	}
	if len(args) == 0 {
		args = nil
	}
	return string(kind), args, nil
}

func parseEvents(v cue.Value) ([]ir.EventDecl, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	events := []ir.EventDecl{}
	for iter.Next() {
		scope, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "events." + iter.Label(),
				Message: "scope must be a string (shared, a or b)",
				Pos:     iter.Value().Pos(),
			}
		}
		events = append(events, ir.EventDecl{Name: iter.Label(), Scope: ir.Scope(scope)})
	}
	return events, nil
}

// parseHandlers reads scope -> name -> {event, kind, ...args}.
func parseHandlers(v cue.Value) ([]ir.HandlerDecl, error) {
	scopes, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	handlers := []ir.HandlerDecl{}
	for scopes.Next() {
		scope := ir.Scope(scopes.Label())
		iter, err := scopes.Value().Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			name, hv := iter.Label(), iter.Value()
			field := fmt.Sprintf("handlers.%s.%s", scope, name)

			event, err := hv.LookupPath(cue.ParsePath("event")).String()
			if err != nil {
				return nil, &CompileError{Field: field + ".event", Message: "event is required and must be a string", Pos: hv.Pos()}
			}
			kind, args, err := parseSpec(hv, field, "event")
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, ir.HandlerDecl{
				Name:   name,
				Event:  event,
				Scope:  scope,
				Action: ir.HandlerSpec{Kind: kind, Args: args},
			})
		}
	}
	return handlers, nil
}

// toIR converts a concrete CUE value to an IRValue.
// Floats are forbidden: IR numbers are int64.
func toIR(v cue.Value, field string) (ir.IRValue, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for i := 0; iter.Next(); i++ {
			elem, err := toIR(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			val, err := toIR(iter.Value(), field+"."+iter.Label())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = val
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("value must be concrete, have %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}
