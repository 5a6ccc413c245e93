package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/validators"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrInvalidName = "E100" // empty or malformed class/member name

	// Class body errors (E101-E109)
	ErrDuplicateDeclaration = "E101" // name declared twice in one class body
	ErrInvalidScope         = "E102" // scope is not shared, a or b
	ErrMissingDefault       = "E103" // property default missing or null
	ErrDuplicateBase        = "E104" // base listed twice or class is its own base

	// Behaviour errors (E110-E119)
	ErrUnknownValidator = "E110" // validator kind not in the library
	ErrUnknownAction    = "E111" // handler kind not in the library
	ErrInvalidHandler   = "E112" // handler without event
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled class declaration.
// Returns all errors found (does not fail-fast).
//
// Validator and handler kinds are checked against lib; a nil lib skips
// those checks. Checks that need the base classes (overrides, realm
// conflicts, handler events declared by an ancestor) happen when the class
// is declared in a model.Registry.
func Validate(decl *ir.ClassDecl, lib *validators.Library) []ValidationError {
	var errs []ValidationError

	// E100: class name
	if !validName(decl.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("invalid class name %q", decl.Name),
			Code:    ErrInvalidName,
		})
	}

	// E104: bases
	seenBase := make(map[string]bool)
	for i, b := range decl.Bases {
		if seenBase[b] || b == decl.Name {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("bases[%d]", i),
				Message: fmt.Sprintf("base %q listed twice or names the class itself", b),
				Code:    ErrDuplicateBase,
			})
		}
		seenBase[b] = true
	}

	// One namespace per class body: a property and an event cannot share a
	// name, nor can two scopes declare the same name.
	declared := make(map[string]string)
	checkMember := func(field, name string, scope ir.Scope) {
		if !validName(name) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid name %q", name),
				Code:    ErrInvalidName,
			})
		}
		if !scope.Valid() {
			errs = append(errs, ValidationError{
				Field:   field + ".scope",
				Message: fmt.Sprintf("invalid scope %q, must be \"shared\", \"a\" or \"b\"", scope),
				Code:    ErrInvalidScope,
			})
		}
		// E101: duplicate within one class body
		if prev, ok := declared[name]; ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%q already declared as %s", name, prev),
				Code:    ErrDuplicateDeclaration,
			})
			return
		}
		declared[name] = field
	}

	for i, p := range decl.Properties {
		field := fmt.Sprintf("properties[%d]", i)
		checkMember(field, p.Name, p.Scope)

		// E103: default required, never null
		if _, isNull := p.Default.(ir.IRNull); p.Default == nil || isNull {
			errs = append(errs, ValidationError{
				Field:   field + ".default",
				Message: fmt.Sprintf("property %q needs a non-null default", p.Name),
				Code:    ErrMissingDefault,
			})
		}

		// E110: validator kind
		if lib != nil && p.Validator.Kind != "" && !lib.HasValidator(p.Validator.Kind) {
			errs = append(errs, ValidationError{
				Field:   field + ".validator.kind",
				Message: fmt.Sprintf("unknown validator kind %q", p.Validator.Kind),
				Code:    ErrUnknownValidator,
			})
		}
	}

	for i, e := range decl.Events {
		checkMember(fmt.Sprintf("events[%d]", i), e.Name, e.Scope)
	}

	handlerKeys := make(map[string]bool)
	for i, h := range decl.Handlers {
		field := fmt.Sprintf("handlers[%d]", i)
		if !validName(h.Name) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid handler name %q", h.Name),
				Code:    ErrInvalidName,
			})
		}
		if h.Scope != "" && !h.Scope.Valid() {
			errs = append(errs, ValidationError{
				Field:   field + ".scope",
				Message: fmt.Sprintf("invalid scope %q, must be \"shared\", \"a\" or \"b\"", h.Scope),
				Code:    ErrInvalidScope,
			})
		}

		// E112: event required
		if strings.TrimSpace(h.Event) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".event",
				Message: fmt.Sprintf("handler %q needs an event", h.Name),
				Code:    ErrInvalidHandler,
			})
		}

		// E101: same scope, event and name twice
		key := string(h.Scope) + "/" + h.Event + "/" + h.Name
		if handlerKeys[key] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("handler %q for %q declared twice in scope %q", h.Name, h.Event, h.Scope),
				Code:    ErrDuplicateDeclaration,
			})
		}
		handlerKeys[key] = true

		// E111: action kind
		if lib != nil && !lib.HasAction(h.Action.Kind) {
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("unknown handler kind %q", h.Action.Kind),
				Code:    ErrUnknownAction,
			})
		}
	}

	return errs
}

// validName rejects names that cannot be used as property, event or class
// identifiers. ':' is excluded so no declared name collides with a change
// event.
func validName(s string) bool {
	return s != "" && !strings.ContainsAny(s, " \t\n\r:/")
}
