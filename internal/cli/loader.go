package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/duet/internal/compiler"
	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/model"
	"github.com/roach88/duet/internal/validators"
)

// LoadMode controls how errors are handled during class loading.
type LoadMode int

const (
	// LoadModeFailFast stops at the first failing stage.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll reports every validation error before giving up.
	LoadModeCollectAll
)

// LoadResult holds the classes loaded from a directory.
type LoadResult struct {
	Decls     []ir.ClassDecl
	Registry  *model.Registry
	Warnings  []compiler.CycleWarning
	FileCount int
}

// LoadError is one loading failure with its CLI error code.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadClasses compiles, validates and declares the CUE classes in dir.
// Classes are only declared once every validation error is cleared; cycle
// warnings never block loading but inheritance cycles do.
func LoadClasses(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("classes directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing classes directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	decls, err := compiler.Load(dir)
	if err != nil {
		return nil, []error{convertCompileError(err)}
	}
	if len(decls) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoClasses, Message: "no classes found"}}
	}

	lib := validators.NewLibrary()
	result := &LoadResult{Decls: decls, FileCount: len(files)}

	var errs []error
	for i := range decls {
		for _, verr := range compiler.Validate(&decls[i], lib) {
			errs = append(errs, &LoadError{
				Code:    verr.Code,
				Message: fmt.Sprintf("class %s: %s: %s", decls[i].Name, verr.Field, verr.Message),
			})
			if mode == LoadModeFailFast {
				return result, errs
			}
		}
	}

	for _, w := range compiler.AnalyzeCycles(decls) {
		if w.Level == "error" {
			errs = append(errs, &LoadError{Code: ErrCodeInheritanceCycle, Message: w.Message})
			continue
		}
		result.Warnings = append(result.Warnings, w)
	}
	if len(errs) > 0 {
		return result, errs
	}

	reg := model.NewRegistry()
	if _, err := model.DeclareAll(reg, decls, lib); err != nil {
		return result, []error{convertDeclarationError(err)}
	}
	result.Registry = reg
	return result, nil
}

// FindCUEFiles returns the .cue files directly in dir. Subdirectories are
// other CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

func convertDeclarationError(err error) *LoadError {
	var de *model.DeclarationError
	if errors.As(err, &de) {
		return &LoadError{Code: ErrCodeDeclaration, Message: de.Error()}
	}
	return &LoadError{Code: ErrCodeDeclaration, Message: err.Error()}
}

// Error code constants - unified across all CLI commands. Class validation
// uses the compiler's E1xx codes.
const (
	ErrCodeGeneric          = "E001" // Generic/unknown error
	ErrCodeScanError        = "E002" // Directory scan error
	ErrCodeNoFiles          = "E003" // No CUE files found
	ErrCodeLoadFailed       = "E004" // CUE load or build failed
	ErrCodeNotFound         = "E005" // Path not found
	ErrCodeNoClasses        = "E006" // CUE built but declares no classes
	ErrCodeWriteFailed      = "E007" // File write error
	ErrCodeUnknownClass     = "E008" // Class not declared
	ErrCodeStoreFailed      = "E009" // Journal open or read error
	ErrCodeScenario         = "E010" // Scenario file error
	ErrCodeBadDefault       = "E020" // Default missing, null or float
	ErrCodeBadMember        = "E021" // Malformed property, event or handler body
	ErrCodeDeclaration      = "E030" // Registry rejected a class
	ErrCodeInheritanceCycle = "E031" // Class inherits from itself
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue" || field == "load":
		return ErrCodeLoadFailed
	case strings.HasSuffix(field, ".default"):
		return ErrCodeBadDefault
	case field != "":
		return ErrCodeBadMember
	default:
		return ErrCodeGeneric
	}
}
