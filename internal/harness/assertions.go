package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/realm"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. All assertions are evaluated; none short-circuits.
func EvaluateAssertions(ctx context.Context, h *Harness, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := h.evaluate(ctx, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func (h *Harness) evaluate(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertProperty:
		return h.assertProperty(a)
	case AssertProperties:
		return assertNames(a, h.class.Properties(a.Realm))
	case AssertLocalProperties:
		return assertNames(a, h.class.LocalProperties(a.Realm))
	case AssertOutcomeCount:
		return h.assertOutcomeCount(ctx, a)
	case AssertDisposed:
		return h.assertDisposed(a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertProperty compares a realm's stored value with ir.Equal.
func (h *Harness) assertProperty(a Assertion) error {
	want, err := convertToIRValue(a.Equals)
	if err != nil {
		return fmt.Errorf("equals: %w", err)
	}
	inst, ok := h.live(a.Realm)
	if !ok {
		return &AssertionError{
			Type:     AssertProperty,
			Expected: fmt.Sprintf("%s.%s = %s", a.Realm, a.Property, render(want)),
			Actual:   "instance disposed",
		}
	}
	got, ok := inst.Get(a.Property)
	if !ok {
		return &AssertionError{
			Type:     AssertProperty,
			Expected: fmt.Sprintf("%s.%s = %s", a.Realm, a.Property, render(want)),
			Actual:   fmt.Sprintf("no property %q in realm %s", a.Property, a.Realm),
		}
	}
	if !ir.Equal(got, want) {
		return &AssertionError{
			Type:     AssertProperty,
			Expected: fmt.Sprintf("%s.%s = %s", a.Realm, a.Property, render(want)),
			Actual:   render(got),
		}
	}
	return nil
}

// assertNames compares an introspection list, order included.
func assertNames(a Assertion, got []string) error {
	if slices.Equal(got, a.Names) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("realm %s: %s", a.Realm, strings.Join(a.Names, " ")),
		Actual:   strings.Join(got, " "),
	}
}

func (h *Harness) assertOutcomeCount(ctx context.Context, a Assertion) error {
	n, err := h.store.Count(ctx, realm.Outcome(a.Outcome))
	if err != nil {
		return err
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertOutcomeCount,
			Expected: fmt.Sprintf("%d %s entries", a.Count, a.Outcome),
			Actual:   fmt.Sprintf("%d entries", n),
		}
	}
	return nil
}

func (h *Harness) assertDisposed(a Assertion) error {
	if _, ok := h.live(a.Realm); ok {
		return &AssertionError{
			Type:     AssertDisposed,
			Expected: fmt.Sprintf("instance gone from realm %s", a.Realm),
			Actual:   "instance live",
		}
	}
	return nil
}

// live returns the realm's copy of the scenario instance unless disposed.
func (h *Harness) live(r ir.Realm) (*realm.Instance, bool) {
	s := h.sides[r]
	if s.inst == nil || s.inst.Disposed() {
		return nil, false
	}
	return s.inst, true
}

func render(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
