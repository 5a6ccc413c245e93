// Package validators provides the named validator and handler kinds that
// class declarations written in CUE refer to.
//
// A validator receives the current stored value (or the zero value of the
// property's type on first write) and the proposed value, and returns the
// value to store. Go callers can declare closures directly; this library
// exists so that declarations stay plain data.
package validators

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/roach88/duet/internal/ir"
)

// Validator computes the value to store from the current and proposed values.
type Validator func(current, proposed ir.IRValue) (ir.IRValue, error)

// Target is the part of an object a handler kind may touch.
type Target interface {
	Get(name string) (ir.IRValue, bool)
	Set(ctx context.Context, name string, value ir.IRValue) error
	Emit(name string, payload ir.IRValue) error
}

// Action is a handler body bound from a handler spec.
type Action func(ctx context.Context, obj Target, payloads []ir.IRValue) error

// ValidatorFactory builds a validator from its arguments.
type ValidatorFactory func(args ir.IRObject) (Validator, error)

// ActionFactory builds a handler action from its arguments.
type ActionFactory func(args ir.IRObject) (Action, error)

// UnknownKindError is returned when a spec names a kind the library does not
// know.
type UnknownKindError struct {
	Category string // "validator" or "handler"
	Kind     string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown %s kind %q", e.Category, e.Kind)
}

// Library maps kind names to factories.
type Library struct {
	validators map[string]ValidatorFactory
	actions    map[string]ActionFactory
}

// NewLibrary returns a library holding the builtin kinds.
func NewLibrary() *Library {
	lib := &Library{
		validators: make(map[string]ValidatorFactory),
		actions:    make(map[string]ActionFactory),
	}
	lib.RegisterValidator("identity", identity)
	lib.RegisterValidator("add", add)
	lib.RegisterValidator("counter", counter)
	lib.RegisterValidator("clamp", clamp)
	lib.RegisterValidator("add_below", addBelow)
	lib.RegisterValidator("int", toInt)
	lib.RegisterValidator("string", toString)
	lib.RegisterValidator("bool", toBool)
	lib.RegisterValidator("append", appendValues)

	lib.RegisterAction("record", record)
	lib.RegisterAction("count", count)
	lib.RegisterAction("forward", forward)
	return lib
}

// RegisterValidator adds or replaces a validator kind.
func (l *Library) RegisterValidator(kind string, f ValidatorFactory) {
	l.validators[kind] = f
}

// RegisterAction adds or replaces a handler kind.
func (l *Library) RegisterAction(kind string, f ActionFactory) {
	l.actions[kind] = f
}

// HasValidator reports whether kind is registered.
func (l *Library) HasValidator(kind string) bool {
	_, ok := l.validators[kind]
	return ok
}

// HasAction reports whether kind is registered.
func (l *Library) HasAction(kind string) bool {
	_, ok := l.actions[kind]
	return ok
}

// ValidatorKinds lists registered validator kinds, sorted.
func (l *Library) ValidatorKinds() []string {
	return sortedKeys(l.validators)
}

// ActionKinds lists registered handler kinds, sorted.
func (l *Library) ActionKinds() []string {
	return sortedKeys(l.actions)
}

// Validator binds a validator spec. An empty kind means identity.
func (l *Library) Validator(spec ir.ValidatorSpec) (Validator, error) {
	kind := spec.Kind
	if kind == "" {
		kind = "identity"
	}
	f, ok := l.validators[kind]
	if !ok {
		return nil, &UnknownKindError{Category: "validator", Kind: kind}
	}
	v, err := f(spec.Args)
	if err != nil {
		return nil, fmt.Errorf("validator %s: %w", kind, err)
	}
	return v, nil
}

// Action binds a handler spec.
func (l *Library) Action(spec ir.HandlerSpec) (Action, error) {
	f, ok := l.actions[spec.Kind]
	if !ok {
		return nil, &UnknownKindError{Category: "handler", Kind: spec.Kind}
	}
	a, err := f(spec.Args)
	if err != nil {
		return nil, fmt.Errorf("handler %s: %w", spec.Kind, err)
	}
	return a, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// intArg reads an integer argument, falling back to def when absent.
func intArg(args ir.IRObject, name string, def int64) (int64, error) {
	v, ok := args[name]
	if !ok {
		return def, nil
	}
	n, ok := v.(ir.IRInt)
	if !ok {
		return 0, fmt.Errorf("argument %q must be int, got %s", name, ir.Kind(v))
	}
	return int64(n), nil
}

// stringArg reads a required string argument.
func stringArg(args ir.IRObject, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("argument %q is required", name)
	}
	s, ok := v.(ir.IRString)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", name)
	}
	return string(s), nil
}

// ErrOverflow is returned when an integer step leaves the int64 range.
var ErrOverflow = errors.New("integer overflow")

// addInt returns n+by, or ErrOverflow instead of wrapping.
func addInt(n, by int64) (int64, error) {
	if (by > 0 && n > math.MaxInt64-by) || (by < 0 && n < math.MinInt64-by) {
		return 0, fmt.Errorf("%d + %d: %w", n, by, ErrOverflow)
	}
	return n + by, nil
}

// asInt coerces a value the way a numeric property would: ints pass through,
// numeric strings are parsed, bools become 0/1.
func asInt(v ir.IRValue) (int64, error) {
	switch val := v.(type) {
	case ir.IRInt:
		return int64(val), nil
	case ir.IRString:
		n, err := strconv.ParseInt(string(val), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int", string(val))
		}
		return n, nil
	case ir.IRBool:
		if val {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %s to int", ir.Kind(v))
	}
}
