package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/duet/internal/ir"
)

// writeScenario writes body next to an empty classes.cue and returns the
// scenario path.
func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "classes.cue"), []byte("package models\n"), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "model_d_converges.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "model_d_converges", s.Name)
	assert.Equal(t, "ModelD", s.Class)
	assert.Equal(t, "d-1", s.Instance)
	assert.Equal(t, filepath.Join("testdata", "scenarios"), s.Dir)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, StepSet, s.Steps[0].Kind())
	assert.Equal(t, ir.RealmA, s.Steps[0].Realm)
	assert.Equal(t, 10, s.Steps[0].Value)
	assert.Equal(t, StepSettle, s.Steps[1].Kind())
	assert.NotEmpty(t, s.Assertions)
}

func TestLoadScenario_AllTestdata(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			assert.NoError(t, err)
		})
	}
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
classes: [classes.cue]
class: ModelA
steps:
  - {settle: true}
assertion:
  - {type: disposed, realm: a}
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "missing name",
			body: `
classes: [classes.cue]
class: ModelA
steps: [{settle: true}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing classes",
			body: `
name: x
class: ModelA
steps: [{settle: true}]
`,
			wantErr: "classes list is required",
		},
		{
			name: "classes file not found",
			body: `
name: x
classes: [other.cue]
class: ModelA
steps: [{settle: true}]
`,
			wantErr: "classes[0]: file not found",
		},
		{
			name: "missing class",
			body: `
name: x
classes: [classes.cue]
steps: [{settle: true}]
`,
			wantErr: "class is required",
		},
		{
			name: "no steps",
			body: `
name: x
classes: [classes.cue]
class: ModelA
`,
			wantErr: "steps list is required",
		},
		{
			name: "negative max_rounds",
			body: `
name: x
classes: [classes.cue]
class: ModelA
max_rounds: -1
steps: [{settle: true}]
`,
			wantErr: "max_rounds must be non-negative",
		},
		{
			name: "step with two actions",
			body: `
name: x
classes: [classes.cue]
class: ModelA
steps: [{realm: a, set: foo1, value: 1, flush: true}]
`,
			wantErr: "steps[0]: exactly one of",
		},
		{
			name: "settle with realm",
			body: `
name: x
classes: [classes.cue]
class: ModelA
steps: [{realm: a, settle: true}]
`,
			wantErr: "settle runs both realms",
		},
		{
			name: "bad realm",
			body: `
name: x
classes: [classes.cue]
class: ModelA
steps: [{realm: c, flush: true}]
`,
			wantErr: `realm must be "a" or "b"`,
		},
		{
			name: "set without value",
			body: `
name: x
classes: [classes.cue]
class: ModelA
steps: [{realm: a, set: foo1}]
`,
			wantErr: "value is required for set",
		},
		{
			name: "negative count",
			body: `
name: x
classes: [classes.cue]
class: ModelA
steps: [{realm: a, emit: foo, count: -2}]
`,
			wantErr: "count must be non-negative",
		},
		{
			name: "assertion without type",
			body: `
name: x
classes: [classes.cue]
class: ModelA
steps: [{settle: true}]
assertions: [{realm: a}]
`,
			wantErr: "assertions[0]: type is required",
		},
		{
			name: "unknown assertion type",
			body: `
name: x
classes: [classes.cue]
class: ModelA
steps: [{settle: true}]
assertions: [{type: trace_contains}]
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "property without equals",
			body: `
name: x
classes: [classes.cue]
class: ModelA
steps: [{settle: true}]
assertions: [{type: property, realm: a, property: foo1}]
`,
			wantErr: "property and equals are required",
		},
		{
			name: "properties without names",
			body: `
name: x
classes: [classes.cue]
class: ModelA
steps: [{settle: true}]
assertions: [{type: properties, realm: a}]
`,
			wantErr: "names is required for properties",
		},
		{
			name: "outcome_count without outcome",
			body: `
name: x
classes: [classes.cue]
class: ModelA
steps: [{settle: true}]
assertions: [{type: outcome_count, count: 1}]
`,
			wantErr: "outcome is required",
		},
		{
			name: "disposed without realm",
			body: `
name: x
classes: [classes.cue]
class: ModelA
steps: [{settle: true}]
assertions: [{type: disposed}]
`,
			wantErr: `assertions[0]: realm must be "a" or "b"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStepKind(t *testing.T) {
	tests := []struct {
		step Step
		want string
	}{
		{Step{Set: "x"}, StepSet},
		{Step{Emit: "x"}, StepEmit},
		{Step{Dispose: true}, StepDispose},
		{Step{Flush: true}, StepFlush},
		{Step{Settle: true}, StepSettle},
		{Step{}, ""},
		{Step{Set: "x", Emit: "y"}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.step.Kind(), "%+v", tt.step)
	}
}
