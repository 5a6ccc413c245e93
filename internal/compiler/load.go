package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/duet/internal/ir"
)

// Load builds one CUE instance from args (.cue files or package paths,
// relative to dir) and compiles its classes. With no args the package in
// dir is loaded.
func Load(dir string, args ...string) ([]ir.ClassDecl, error) {
	v, err := BuildValue(dir, args...)
	if err != nil {
		return nil, err
	}
	return CompileClasses(v)
}

// BuildValue loads and builds the CUE instance without compiling it.
func BuildValue(dir string, args ...string) (cue.Value, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, &CompileError{Field: "load", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", formatCUEError(inst.Err))
	}

	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("building CUE value: %w", formatCUEError(err))
	}
	return v, nil
}
