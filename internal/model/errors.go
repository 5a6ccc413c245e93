package model

import (
	"errors"
	"fmt"
)

// DeclarationErrorCode categorizes declaration-time failures.
type DeclarationErrorCode string

const (
	// CodeDuplicateDeclaration: a name declared twice in one class body.
	CodeDuplicateDeclaration DeclarationErrorCode = "DUPLICATE_DECLARATION"

	// CodeRealmConflict: an inherited name redeclared in another scope or as
	// another kind of member.
	CodeRealmConflict DeclarationErrorCode = "REALM_CONFLICT"

	// CodeUnknownBase: a base class that has not been declared.
	CodeUnknownBase DeclarationErrorCode = "UNKNOWN_BASE"

	// CodeInconsistentMRO: the bases admit no C3 linearisation.
	CodeInconsistentMRO DeclarationErrorCode = "INCONSISTENT_MRO"

	// CodeUnknownEvent: a handler for an event not visible in its scope.
	CodeUnknownEvent DeclarationErrorCode = "UNKNOWN_EVENT"

	// CodeInvalidName: an empty or reserved member or class name.
	CodeInvalidName DeclarationErrorCode = "INVALID_NAME"

	// CodeInvalidDeclaration: a malformed member (bad scope, missing default).
	CodeInvalidDeclaration DeclarationErrorCode = "INVALID_DECLARATION"

	// CodeAlreadyDeclared: the registry already holds a class of that name.
	CodeAlreadyDeclared DeclarationErrorCode = "ALREADY_DECLARED"
)

// DeclarationError is a fatal class-declaration failure. The class is not
// registered.
type DeclarationError struct {
	Code DeclarationErrorCode

	// Class is the class being declared.
	Class string

	// Name is the offending member, base or class name.
	Name string

	Message string
}

// Error implements the error interface.
func (e *DeclarationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: class %s: %s: %s", e.Code, e.Class, e.Name, e.Message)
	}
	return fmt.Sprintf("%s: class %s: %s", e.Code, e.Class, e.Message)
}

// Is matches sentinel errors by code, so errors.Is(err, ErrRealmConflict)
// works on any realm conflict.
func (e *DeclarationError) Is(target error) bool {
	t, ok := target.(*DeclarationError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Class == "" && t.Name == ""
}

// Sentinels for errors.Is.
var (
	ErrDuplicateDeclaration = &DeclarationError{Code: CodeDuplicateDeclaration}
	ErrRealmConflict        = &DeclarationError{Code: CodeRealmConflict}
)

// IsDuplicateDeclaration reports whether err is a duplicate declaration.
func IsDuplicateDeclaration(err error) bool {
	return hasCode(err, CodeDuplicateDeclaration)
}

// IsRealmConflict reports whether err is a realm conflict.
func IsRealmConflict(err error) bool {
	return hasCode(err, CodeRealmConflict)
}

func hasCode(err error, code DeclarationErrorCode) bool {
	var de *DeclarationError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

func declErr(code DeclarationErrorCode, class, name, format string, args ...any) *DeclarationError {
	return &DeclarationError{
		Code:    code,
		Class:   class,
		Name:    name,
		Message: fmt.Sprintf(format, args...),
	}
}
