package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/duet/internal/ir"
)

func TestIntrospectText(t *testing.T) {
	out, err := execute(t, NewIntrospectCommand(&RootOptions{Format: "text"}), writeLiveClasses(t), "ModelC")
	require.NoError(t, err)

	assert.Contains(t, out, "class ModelC\n")
	assert.Contains(t, out, "mro: ModelC -> ModelB -> ModelA\n")
	assert.Contains(t, out, "  __properties__:       foo1 foo2 foo3 result spam1 spam2 spam3\n")
	assert.Contains(t, out, "  __local_properties__: spam1 spam2 spam3\n")
	assert.Contains(t, out, "  __properties__:       bar1 bar2 bar3 foo1 foo2 foo3 result\n")
	assert.Contains(t, out, "  __local_properties__: bar1 bar2 bar3\n")
}

func TestIntrospectJSON(t *testing.T) {
	out, err := execute(t, NewIntrospectCommand(&RootOptions{Format: "json"}), writeLiveClasses(t), "ModelE")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)

	var result IntrospectResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, "ModelE", result.Class)
	assert.Equal(t, []string{"ModelE", "ModelA"}, result.MRO)
	require.Len(t, result.Realms, 2)

	a := result.Realms[0]
	assert.Equal(t, ir.RealmA, a.Realm)
	assert.Equal(t, []string{"bar", "foo"}, a.Events)
	assert.Equal(t, []string{"res1", "res2", "spam1", "spam2"}, a.LocalProperties)
	assert.Equal(t, []string{
		"bar_handler on bar from ModelE",
		"foo_handler on foo from ModelE",
	}, a.Handlers)

	b := result.Realms[1]
	assert.Equal(t, ir.RealmB, b.Realm)
	assert.Equal(t, []string{"bar1", "bar2", "res3", "res4"}, b.LocalProperties)
}

func TestIntrospectMembers(t *testing.T) {
	loaded, errs := LoadClasses(writeLiveClasses(t), LoadModeFailFast)
	require.Empty(t, errs)
	class, ok := loaded.Registry.Lookup("ModelD")
	require.True(t, ok)

	result := Introspect(class)
	members := map[string]MemberView{}
	for _, m := range result.Realms[0].Members {
		members[m.Name] = m
	}
	assert.Equal(t, MemberView{Name: "foo2", Owner: "ModelD", Scope: "shared", Validator: "add_below"}, members["foo2"])
	assert.Equal(t, MemberView{Name: "foo1", Owner: "ModelA", Scope: "shared", Validator: "add"}, members["foo1"])
	assert.Equal(t, MemberView{Name: "result", Owner: "ModelA", Scope: "shared", Validator: "identity"}, members["result"])
	assert.Equal(t, ir.IRInt(0), result.Realms[0].Defaults["foo2"])
}

func TestIntrospectUnknownClass(t *testing.T) {
	out, err := execute(t, NewIntrospectCommand(&RootOptions{Format: "text"}), writeLiveClasses(t), "ModelZ")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `Error [E008]: class "ModelZ" not declared`)
}
