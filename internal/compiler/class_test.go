package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/model"
	"github.com/roach88/duet/internal/testutil"
	"github.com/roach88/duet/internal/validators"
)

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func TestCompileClassBasic(t *testing.T) {
	v := compileString(t, `
		class: Counter: {
			shared: {
				total: {default: 0, validator: {kind: "add", by: 2}}
				label: {default: "", validator: "string"}
			}
			a: draft: {default: [], validator: "identity"}
			b: seen: {default: false}
			events: tick: "shared"
			handlers: a: log: {event: "tick", kind: "record", target: "draft"}
		}
	`)

	decl, err := CompileClass(v.LookupPath(cue.ParsePath("class.Counter")))
	require.NoError(t, err)

	assert.Equal(t, "Counter", decl.Name)
	assert.Empty(t, decl.Bases)
	require.Len(t, decl.Properties, 4)

	total := decl.Properties[0]
	assert.Equal(t, "total", total.Name)
	assert.Equal(t, ir.ScopeShared, total.Scope)
	assert.Equal(t, ir.IRInt(0), total.Default)
	assert.Equal(t, ir.ValidatorSpec{Kind: "add", Args: ir.IRObject{"by": ir.IRInt(2)}}, total.Validator)

	assert.Equal(t, ir.ValidatorSpec{Kind: "string"}, decl.Properties[1].Validator)
	assert.Equal(t, ir.ScopeA, decl.Properties[2].Scope)
	assert.Equal(t, ir.IRArray{}, decl.Properties[2].Default)

	seen := decl.Properties[3]
	assert.Equal(t, ir.ScopeB, seen.Scope)
	assert.Equal(t, ir.IRBool(false), seen.Default)
	assert.Empty(t, seen.Validator.Kind, "no validator means identity")

	assert.Equal(t, []ir.EventDecl{{Name: "tick", Scope: ir.ScopeShared}}, decl.Events)
	require.Len(t, decl.Handlers, 1)
	assert.Equal(t, ir.HandlerDecl{
		Name:   "log",
		Event:  "tick",
		Scope:  ir.ScopeA,
		Action: ir.HandlerSpec{Kind: "record", Args: ir.IRObject{"target": ir.IRString("draft")}},
	}, decl.Handlers[0])
}

func TestCompileClassesKeepsOrder(t *testing.T) {
	v := compileString(t, `
		class: Zed: {}
		class: Alpha: bases: ["Zed"]
	`)

	decls, err := CompileClasses(v)
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, "Zed", decls[0].Name)
	assert.Equal(t, "Alpha", decls[1].Name)
	assert.Equal(t, []string{"Zed"}, decls[1].Bases)
}

func TestCompileClassesNoClassField(t *testing.T) {
	v := compileString(t, `other: 1`)

	decls, err := CompileClasses(v)
	require.NoError(t, err)
	assert.NotNil(t, decls)
	assert.Empty(t, decls)
}

func TestCompileClassErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr []string
	}{
		{
			name:    "missing default",
			src:     `class: X: shared: p: {validator: "identity"}`,
			wantErr: []string{"shared.p", "default is required"},
		},
		{
			name:    "float default",
			src:     `class: X: shared: p: {default: 1.5}`,
			wantErr: []string{"shared.p.default", "float"},
		},
		{
			name:    "non-concrete default",
			src:     `class: X: shared: p: {default: int}`,
			wantErr: []string{"shared.p.default", "concrete"},
		},
		{
			name:    "unknown property field",
			src:     `class: X: a: p: {default: 0, doc: "x"}`,
			wantErr: []string{"a.p.doc", "unknown field"},
		},
		{
			name:    "unknown class field",
			src:     `class: X: purpose: "nope"`,
			wantErr: []string{"class.X.purpose", "unknown field"},
		},
		{
			name:    "validator without kind",
			src:     `class: X: a: p: {default: 0, validator: {by: 1}}`,
			wantErr: []string{"a.p.validator.kind", "required"},
		},
		{
			name:    "event scope not a string",
			src:     `class: X: events: tick: 1`,
			wantErr: []string{"events.tick", "scope"},
		},
		{
			name:    "handler without event",
			src:     `class: X: handlers: a: h: {kind: "count", target: "n"}`,
			wantErr: []string{"handlers.a.h.event", "required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileClasses(compileString(t, tt.src))
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestCompileErrorHasPosition(t *testing.T) {
	v := cuecontext.New().CompileString(`class: X: shared: p: {default: 1.5}`, cue.Filename("models.cue"))
	require.NoError(t, v.Err())

	_, err := CompileClasses(v)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "models.cue:1:")
}

// The CUE fixture and the Go-declared hierarchy describe the same classes.
func TestCompileLiveModelsMatchesGoDeclarations(t *testing.T) {
	decls, err := CompileClasses(compileString(t, testutil.LiveModelsCUE))
	require.NoError(t, err)

	defs := testutil.LiveModels()
	require.Len(t, decls, len(defs))
	for i, def := range defs {
		assert.Equal(t, declOf(def), decls[i], def.Name)
	}

	lib := validators.NewLibrary()
	for i := range decls {
		assert.Empty(t, Validate(&decls[i], lib), decls[i].Name)
	}

	reg := model.NewRegistry()
	classes, err := model.DeclareAll(reg, decls, lib)
	require.NoError(t, err)
	assert.Len(t, classes, 5)

	d, ok := reg.Lookup("ModelD")
	require.True(t, ok)
	assert.Equal(t, []string{"ModelD", "ModelB", "ModelA"}, d.MRO())
}

func declOf(def model.ClassDef) ir.ClassDecl {
	decl := ir.ClassDecl{
		Name:       def.Name,
		Bases:      def.Bases,
		Properties: []ir.PropertyDecl{},
		Events:     []ir.EventDecl{},
		Handlers:   []ir.HandlerDecl{},
	}
	for _, p := range def.Properties {
		decl.Properties = append(decl.Properties, ir.PropertyDecl{
			Name: p.Name, Scope: p.Scope, Default: p.Default, Validator: p.Spec,
		})
	}
	for _, e := range def.Events {
		decl.Events = append(decl.Events, ir.EventDecl(e))
	}
	for _, h := range def.Handlers {
		decl.Handlers = append(decl.Handlers, ir.HandlerDecl{
			Name: h.Name, Event: h.Event, Scope: h.Scope, Action: h.Spec,
		})
	}
	return decl
}
