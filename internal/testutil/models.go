package testutil

import (
	"context"
	"fmt"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/model"
	"github.com/roach88/duet/internal/validators"
)

var lib = validators.NewLibrary()

// Prop builds a property definition bound to a library validator kind.
func Prop(name string, scope ir.Scope, def ir.IRValue, kind string, args ir.IRObject) model.PropertyDef {
	spec := ir.ValidatorSpec{Kind: kind, Args: args}
	v, err := lib.Validator(spec)
	if err != nil {
		panic(fmt.Sprintf("testutil: property %s: %v", name, err))
	}
	return model.PropertyDef{Name: name, Scope: scope, Default: def, Validator: model.Validator(v), Spec: spec}
}

// AddBy is a property whose validator stores proposed+by.
func AddBy(name string, scope ir.Scope, by int64) model.PropertyDef {
	return Prop(name, scope, ir.IRInt(0), "add", ir.IRObject{"by": ir.IRInt(by)})
}

// Record is a handler appending the batch size to an array property.
func Record(name, event string, scope ir.Scope, target string) model.HandlerDef {
	spec := ir.HandlerSpec{Kind: "record", Args: ir.IRObject{"target": ir.IRString(target)}}
	action, err := lib.Action(spec)
	if err != nil {
		panic(fmt.Sprintf("testutil: handler %s: %v", name, err))
	}
	return model.HandlerDef{
		Name:  name,
		Event: event,
		Scope: scope,
		Fn: func(ctx context.Context, obj model.Object, payloads []ir.IRValue) error {
			return action(ctx, obj, payloads)
		},
		Spec: spec,
	}
}

// LiveModels returns the ModelA..ModelE hierarchy in declaration order:
//
//	ModelA
//	  ModelB    overrides foo2, spam2, bar2 with +2
//	    ModelC  adds nothing
//	    ModelD  makes foo2 and foo3 converge across realms
//	  ModelE    counts batched foo/bar events in both realms
func LiveModels() []model.ClassDef {
	return []model.ClassDef{
		{
			Name: "ModelA",
			Properties: []model.PropertyDef{
				Prop("result", ir.ScopeShared, ir.IRString(""), "identity", nil),
				AddBy("foo1", ir.ScopeShared, 1),
				AddBy("foo2", ir.ScopeShared, 1),
				AddBy("spam1", ir.ScopeA, 1),
				AddBy("spam2", ir.ScopeA, 1),
				AddBy("bar1", ir.ScopeB, 1),
				AddBy("bar2", ir.ScopeB, 1),
			},
		},
		{
			Name:  "ModelB",
			Bases: []string{"ModelA"},
			Properties: []model.PropertyDef{
				AddBy("foo2", ir.ScopeShared, 2),
				AddBy("foo3", ir.ScopeShared, 2),
				AddBy("spam2", ir.ScopeA, 2),
				AddBy("spam3", ir.ScopeA, 2),
				AddBy("bar2", ir.ScopeB, 2),
				AddBy("bar3", ir.ScopeB, 2),
			},
		},
		{
			Name:  "ModelC",
			Bases: []string{"ModelB"},
		},
		{
			Name:  "ModelD",
			Bases: []string{"ModelB"},
			Properties: []model.PropertyDef{
				Prop("foo2", ir.ScopeShared, ir.IRInt(0), "add_below", ir.IRObject{"by": ir.IRInt(2), "limit": ir.IRInt(16)}),
				Prop("foo3", ir.ScopeShared, ir.IRInt(0), "add_below", ir.IRObject{"by": ir.IRInt(2), "limit": ir.IRInt(14)}),
			},
		},
		{
			Name:  "ModelE",
			Bases: []string{"ModelA"},
			Properties: []model.PropertyDef{
				Prop("res1", ir.ScopeA, ir.IRArray{}, "identity", nil),
				Prop("res2", ir.ScopeA, ir.IRArray{}, "identity", nil),
				Prop("res3", ir.ScopeB, ir.IRArray{}, "identity", nil),
				Prop("res4", ir.ScopeB, ir.IRArray{}, "identity", nil),
			},
			Events: []model.EventDef{
				{Name: "foo", Scope: ir.ScopeShared},
				{Name: "bar", Scope: ir.ScopeShared},
			},
			Handlers: []model.HandlerDef{
				Record("foo_handler", "foo", ir.ScopeA, "res1"),
				Record("bar_handler", "bar", ir.ScopeA, "res2"),
				Record("foo_handler", "foo", ir.ScopeB, "res3"),
				Record("bar_handler", "bar", ir.ScopeB, "res4"),
			},
		},
	}
}

// DeclareLiveModels declares LiveModels into a fresh registry.
func DeclareLiveModels() (*model.Registry, error) {
	reg := model.NewRegistry()
	for _, def := range LiveModels() {
		if _, err := reg.Declare(def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
