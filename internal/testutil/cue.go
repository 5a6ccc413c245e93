package testutil

import _ "embed"

// LiveModelsCUE is the CUE source of the LiveModels hierarchy.
//
//go:embed testdata/live.cue
var LiveModelsCUE string
