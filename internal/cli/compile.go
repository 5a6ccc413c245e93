package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/duet/internal/compiler"
	"github.com/roach88/duet/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled classes, their content hashes and
// cycle warnings.
type CompilationResult struct {
	Classes  []ir.ClassDecl          `json:"classes"`
	Hashes   map[string]string       `json:"hashes"`
	Warnings []compiler.CycleWarning `json:"warnings"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <classes-dir>",
		Short: "Compile and check CUE class declarations",
		Long: `Compile the CUE class declarations in a directory, validate them and
resolve every class against its bases in both realms.

Handler loops and non-convergent shared validators are reported as
warnings. With -o the declarations are written as JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, errs := LoadClasses(dir, LoadModeCollectAll)
	if len(errs) > 0 {
		return formatter.Errors("Compilation failed", errs)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	result := &CompilationResult{
		Classes:  loaded.Decls,
		Hashes:   make(map[string]string, len(loaded.Decls)),
		Warnings: loaded.Warnings,
	}
	for _, decl := range loaded.Decls {
		h, err := ir.ClassHash(decl)
		if err != nil {
			return formatter.fail(ErrCodeGeneric, fmt.Sprintf("hashing class %s: %v", decl.Name, err))
		}
		result.Hashes[decl.Name] = h
		formatter.VerboseLog("  %s %s", decl.Name, h)
	}
	if result.Warnings == nil {
		result.Warnings = []compiler.CycleWarning{}
	}

	if opts.Output != "" {
		if err := writeDecls(result.Classes, opts.Output); err != nil {
			return formatter.fail(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "OK Compiled %d class(es)\n\n", len(result.Classes))
	for _, c := range loaded.Registry.Classes() {
		line := fmt.Sprintf("  %s", c.Name())
		if bases := c.Bases(); len(bases) > 0 {
			line += fmt.Sprintf("(%s)", strings.Join(bases, ", "))
		}
		fmt.Fprintf(w, "%s: properties a=%d b=%d, events a=%d b=%d\n", line,
			len(c.Properties(ir.RealmA)), len(c.Properties(ir.RealmB)),
			len(c.Events(ir.RealmA)), len(c.Events(ir.RealmB)))
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "  %s\n", warn.Message)
		}
	}
	if opts.Output != "" {
		fmt.Fprintf(w, "\nWrote declarations to %s\n", opts.Output)
	}
	return nil
}

// writeDecls writes class declarations as indented JSON.
func writeDecls(decls []ir.ClassDecl, filename string) error {
	data, err := json.MarshalIndent(decls, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling declarations: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
