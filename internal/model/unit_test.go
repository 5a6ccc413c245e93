package model_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/model"
)

func TestUnitRender(t *testing.T) {
	b := class(t, liveModels(t), "ModelB")

	want := `unit ModelB realm=a
mro ModelB ModelA
impl property foo2 shared add {"by":2}
impl property foo3 shared add {"by":2}
impl property spam2 a add {"by":2}
impl property spam3 a add {"by":2}
ref property foo1 ModelA
ref property result ModelA
ref property spam1 ModelA
`
	assert.Equal(t, want, b.Unit(ir.RealmA).Render())
}

func TestUnitEmptySubclassOnlyReferences(t *testing.T) {
	c := class(t, liveModels(t), "ModelC")

	for _, r := range ir.Realms {
		u := c.Unit(r)
		assert.Empty(t, u.Implementations(), "ModelC owns nothing in realm %s", r)
		assert.NotContains(t, u.Render(), "impl ")
		refs := u.References()
		assert.Len(t, refs, 7)
		for _, ref := range refs {
			assert.NotEqual(t, "ModelC", ref.Owner)
		}

		owner, ok := u.Owner(model.ImplProperty, "foo2")
		require.True(t, ok)
		assert.Equal(t, "ModelB", owner)
	}
}

// Within any class's ancestry each member body appears exactly once,
// attributed to the class that introduced or last overrode it.
func TestUnitNoDuplicateImplementations(t *testing.T) {
	reg := liveModels(t)

	for _, r := range ir.Realms {
		for _, c := range reg.Classes() {
			impls := make(map[string][]string)
			for _, name := range c.MRO() {
				anc := class(t, reg, name)
				for _, line := range strings.Split(anc.Unit(r).Render(), "\n") {
					if fields := strings.Fields(line); len(fields) > 2 && fields[0] == "impl" && fields[1] == "property" {
						impls[fields[2]] = append(impls[fields[2]], name)
					}
				}
			}

			for _, prop := range c.Properties(r) {
				d, _ := c.Manifest(r).Property(prop)
				owner, ok := c.Unit(r).Owner(model.ImplProperty, prop)
				require.True(t, ok)
				assert.Equal(t, d.Owner, owner)
				assert.Contains(t, impls[prop], owner, "%s/%s: %s not implemented by its owner", c.Name(), r, prop)

				// Shadowed bodies belong to classes after the owner in the MRO;
				// no class from c up to the owner emits one.
				for _, name := range c.MRO() {
					if name == owner {
						break
					}
					assert.NotContains(t, impls[prop], name, "%s/%s: %s re-emitted by %s", c.Name(), r, prop, name)
				}
			}
		}
	}
}

func TestUnitValidatorResolvesThroughOwner(t *testing.T) {
	reg := liveModels(t)

	tests := []struct {
		class string
		prop  string
		want  ir.IRValue
	}{
		{"ModelA", "foo2", ir.IRInt(11)},
		{"ModelB", "foo2", ir.IRInt(12)},
		{"ModelC", "foo2", ir.IRInt(12)},
		{"ModelC", "foo1", ir.IRInt(11)},
		{"ModelD", "foo2", ir.IRInt(12)},
	}
	for _, tt := range tests {
		t.Run(tt.class+"."+tt.prop, func(t *testing.T) {
			v, ok := class(t, reg, tt.class).Unit(ir.RealmB).Validator(tt.prop)
			require.True(t, ok)
			got, err := v(ir.IRInt(0), ir.IRInt(10))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := class(t, reg, "ModelC").Unit(ir.RealmB).Validator("spam1")
	assert.False(t, ok, "a-only property has no b implementation")
}

func TestUnitRendersHandlers(t *testing.T) {
	e := class(t, liveModels(t), "ModelE")

	out := e.Unit(ir.RealmB).Render()
	assert.Contains(t, out, `impl handler b/foo/foo_handler b record {"target":"res3"}`)
	assert.Contains(t, out, "impl event foo shared\n")
	assert.NotContains(t, out, "a/foo/foo_handler")
}
