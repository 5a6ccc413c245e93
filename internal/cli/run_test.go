package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const convergeScenario = `
name: converge
class: ModelD
instance: d-1
classes: [live.cue]
steps:
  - {realm: a, set: foo2, value: 10}
  - {settle: true}
assertions:
  - {type: property, realm: b, property: foo2, equals: 16}
  - {type: outcome_count, outcome: echoed, count: 2}
`

const wrongScenario = `
name: wrong
class: ModelD
instance: d-2
classes: [live.cue]
steps:
  - {realm: b, set: foo3, value: 10}
  - {settle: true}
assertions:
  - {type: property, realm: a, property: foo3, equals: 99}
`

// writeScenarios writes the live classes and each scenario body into one
// directory and returns the scenario paths.
func writeScenarios(t *testing.T, bodies ...string) []string {
	t.Helper()
	dir := writeLiveClasses(t)
	var paths []string
	for i, body := range bodies {
		path := filepath.Join(dir, "scenario"+string(rune('0'+i))+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func TestRunPassingScenario(t *testing.T) {
	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), writeScenarios(t, convergeScenario)...)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS converge (6 journal entries)")
	assert.Contains(t, out, "1 passed, 0 failed")
}

func TestRunFailingScenario(t *testing.T) {
	paths := writeScenarios(t, convergeScenario, wrongScenario)
	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), paths...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "PASS converge")
	assert.Contains(t, out, "FAIL wrong")
	assert.Contains(t, out, "Expected: a.foo3 = 99")
	assert.Contains(t, out, "1 passed, 1 failed")
}

func TestRunJSON(t *testing.T) {
	out, err := execute(t, NewRunCommand(&RootOptions{Format: "json"}), writeScenarios(t, convergeScenario)...)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)
	var summary struct {
		Results []struct {
			Name   string                    `json:"name"`
			Pass   bool                      `json:"pass"`
			Values map[string]map[string]any `json:"values"`
		} `json:"results"`
		Passed int `json:"passed"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &summary))
	assert.Equal(t, 1, summary.Passed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, float64(16), summary.Results[0].Values["a"]["foo2"])
}

func TestRunMetrics(t *testing.T) {
	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), append([]string{"--metrics"}, writeScenarios(t, convergeScenario)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, `duet_sync_messages_total{direction="out",kind="property_set",realm="a"} 2`)
}

func TestRunBadScenarioFile(t *testing.T) {
	paths := writeScenarios(t, "name: broken\n")
	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), paths...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E010]")
}

func TestRunMissingClass(t *testing.T) {
	paths := writeScenarios(t, `
name: missing
class: ModelZ
classes: [live.cue]
steps: [{settle: true}]
`)
	_, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), paths...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `class "ModelZ" not declared`)
}
