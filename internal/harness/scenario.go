package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/duet/internal/ir"
)

// DefaultInstance is the instance id used when a scenario names none.
const DefaultInstance = "obj-1"

// DefaultMaxRounds bounds a settle step.
const DefaultMaxRounds = 100

// Scenario drives one instance of a class in both realms.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Classes lists CUE files holding the class declarations.
	// Paths are relative to Dir.
	Classes []string `yaml:"classes"`

	// Class is the class to instantiate in both realms.
	Class string `yaml:"class"`

	// Instance is the shared instance id. Defaults to DefaultInstance.
	Instance string `yaml:"instance,omitempty"`

	// MaxRounds bounds each settle step. Defaults to DefaultMaxRounds.
	MaxRounds int `yaml:"max_rounds,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`

	// Dir is the directory class paths are resolved against. Set by
	// LoadScenario to the scenario file's directory.
	Dir string `yaml:"-"`
}

// Step is one scenario action. Exactly one of Set, Emit, Dispose, Flush or
// Settle is given.
//
//	{realm: a, set: foo2, value: 10}       write a property
//	{realm: a, emit: foo, count: 2}        emit count times in one task
//	{realm: b, dispose: true}              dispose the realm's copy
//	{realm: b, flush: true}                run the realm's queued work
//	{settle: true}                         run both realms until quiescent
type Step struct {
	Realm ir.Realm `yaml:"realm,omitempty"`

	Set   string `yaml:"set,omitempty"`
	Value any    `yaml:"value,omitempty"`

	Emit    string `yaml:"emit,omitempty"`
	Payload any    `yaml:"payload,omitempty"`
	Count   int    `yaml:"count,omitempty"`

	Dispose bool `yaml:"dispose,omitempty"`
	Flush   bool `yaml:"flush,omitempty"`
	Settle  bool `yaml:"settle,omitempty"`

	// Error, when set, expects the step to fail with a message containing
	// it.
	Error string `yaml:"error,omitempty"`
}

// Step kinds.
const (
	StepSet     = "set"
	StepEmit    = "emit"
	StepDispose = "dispose"
	StepFlush   = "flush"
	StepSettle  = "settle"
)

// Kind returns which action the step performs, or "" if none or several
// are given.
func (s Step) Kind() string {
	var kinds []string
	if s.Set != "" {
		kinds = append(kinds, StepSet)
	}
	if s.Emit != "" {
		kinds = append(kinds, StepEmit)
	}
	if s.Dispose {
		kinds = append(kinds, StepDispose)
	}
	if s.Flush {
		kinds = append(kinds, StepFlush)
	}
	if s.Settle {
		kinds = append(kinds, StepSettle)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Assertion validates the final state or the journal.
type Assertion struct {
	// Type specifies the assertion type:
	// - "property": Realm's value of Property equals Equals
	// - "properties": Realm's __properties__ list equals Names
	// - "local_properties": Realm's __local_properties__ list equals Names
	// - "outcome_count": journal entries with Outcome number Count
	// - "disposed": Realm no longer holds the instance
	Type string `yaml:"type"`

	Realm    ir.Realm `yaml:"realm,omitempty"`
	Property string   `yaml:"property,omitempty"`
	Equals   any      `yaml:"equals,omitempty"`
	Names    []string `yaml:"names,omitempty"`
	Outcome  string   `yaml:"outcome,omitempty"`
	Count    int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertProperty        = "property"
	AssertProperties      = "properties"
	AssertLocalProperties = "local_properties"
	AssertOutcomeCount    = "outcome_count"
	AssertDisposed        = "disposed"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Class paths are resolved against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.Dir = filepath.Dir(path)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Classes) == 0 {
		return fmt.Errorf("classes list is required and must be non-empty")
	}
	if s.Class == "" {
		return fmt.Errorf("class is required")
	}
	if s.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, path := range s.Classes {
		full := path
		if !filepath.IsAbs(full) {
			full = filepath.Join(s.Dir, path)
		}
		if _, err := os.Stat(full); os.IsNotExist(err) {
			return fmt.Errorf("classes[%d]: file not found: %s", i, full)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s Step) error {
	kind := s.Kind()
	if kind == "" {
		return fmt.Errorf("steps[%d]: exactly one of set, emit, dispose, flush or settle is required", index)
	}
	if kind == StepSettle {
		if s.Realm != "" {
			return fmt.Errorf("steps[%d]: settle runs both realms and takes no realm", index)
		}
		return nil
	}
	if !s.Realm.Valid() {
		return fmt.Errorf("steps[%d]: realm must be \"a\" or \"b\", have %q", index, s.Realm)
	}
	if kind == StepSet && s.Value == nil {
		return fmt.Errorf("steps[%d]: value is required for set", index)
	}
	if s.Count < 0 {
		return fmt.Errorf("steps[%d]: count must be non-negative", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertProperty:
		if a.Property == "" || a.Equals == nil {
			return fmt.Errorf("assertions[%d]: property and equals are required for property", index)
		}
	case AssertProperties, AssertLocalProperties:
		if a.Names == nil {
			return fmt.Errorf("assertions[%d]: names is required for %s", index, a.Type)
		}
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for outcome_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for outcome_count", index)
		}
		return nil
	case AssertDisposed:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if !a.Realm.Valid() {
		return fmt.Errorf("assertions[%d]: realm must be \"a\" or \"b\", have %q", index, a.Realm)
	}
	return nil
}
