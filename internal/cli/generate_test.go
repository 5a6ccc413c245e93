package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/duet/internal/ir"
)

func TestGenerateOneClass(t *testing.T) {
	out, err := execute(t, NewGenerateCommand(&RootOptions{Format: "text"}), writeLiveClasses(t), "ModelD")
	require.NoError(t, err)

	parts := strings.Split(out, "\n\n")
	require.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[0], "unit ModelD realm=a\nmro ModelD ModelB ModelA\n"), parts[0])
	assert.True(t, strings.HasPrefix(parts[1], "unit ModelD realm=b\n"), parts[1])
	assert.Contains(t, parts[0], "impl property foo2 shared")
	assert.Contains(t, parts[0], "ref property foo1 ModelA")
	assert.NotContains(t, parts[0], "bar1")
}

func TestGenerateAllClassesJSON(t *testing.T) {
	out, err := execute(t, NewGenerateCommand(&RootOptions{Format: "json"}), writeLiveClasses(t))
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	var units []GeneratedUnit
	require.NoError(t, json.Unmarshal(resp.Data, &units))
	require.Len(t, units, 10)
	assert.Equal(t, "ModelA", units[0].Class)
	assert.Equal(t, ir.RealmA, units[0].Realm)
	assert.Equal(t, ir.RealmB, units[1].Realm)
	assert.Equal(t, "ModelE", units[9].Class)
}

func TestGenerateUnknownClass(t *testing.T) {
	_, err := execute(t, NewGenerateCommand(&RootOptions{Format: "text"}), writeLiveClasses(t), "ModelZ")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
