package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/duet/internal/compiler"
	"github.com/roach88/duet/internal/engine"
	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/metrics"
	"github.com/roach88/duet/internal/model"
	"github.com/roach88/duet/internal/realm"
	"github.com/roach88/duet/internal/session"
	"github.com/roach88/duet/internal/store"
	"github.com/roach88/duet/internal/validators"
)

// Option configures a harness run.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	journal realm.Journal
	lib     *validators.Library
}

// WithLogger sets the logger for realms, loops and the session.
// Default: logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithJournal records the scenario's sync traffic in j as well.
func WithJournal(j realm.Journal) Option {
	return func(c *config) {
		c.journal = j
	}
}

// WithLibrary binds validator and handler kinds from lib instead of the
// builtin library.
func WithLibrary(lib *validators.Library) Option {
	return func(c *config) {
		c.lib = lib
	}
}

// side is one realm with its loop and the scenario's instance.
type side struct {
	realm *realm.Realm
	loop  *engine.Loop
	inst  *realm.Instance
}

// Harness executes one scenario.
//
// Both realms run in the calling goroutine: a step submits a task to its
// realm's loop and drains that loop; messages for the peer stay queued
// until a settle or flush step runs the peer. Traces are therefore
// deterministic.
type Harness struct {
	scenario *Scenario
	class    *model.Class
	store    *store.Store
	tracker  *engine.Tracker
	sides    map[ir.Realm]*side
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory journal for isolation.
//
// Execution flow:
//  1. Load, validate and declare the scenario's classes
//  2. Link two realms through a session pair, sharing one logical clock
//  3. Instantiate the class in both realms
//  4. Execute steps
//  5. Evaluate assertions and read the trace back from the journal
//
// Broken classes or scenario files return an error; failed steps and
// assertions are reported in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		lib:    validators.NewLibrary(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	result := NewResult(scenario.Name)
	class, warnings, err := declare(scenario, cfg.lib)
	if err != nil {
		return nil, err
	}
	result.Warnings = warnings

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	var journal realm.Journal = st
	if cfg.journal != nil {
		journal = teeJournal{st, cfg.journal}
	}

	h := &Harness{
		scenario: scenario,
		class:    class,
		store:    st,
		tracker:  engine.NewTracker(),
		sides:    make(map[ir.Realm]*side),
		logger:   cfg.logger,
	}
	result.Metrics = metrics.NewCollector("")
	if err := h.link(journal, result.Metrics); err != nil {
		return nil, err
	}

	id := scenario.Instance
	if id == "" {
		id = DefaultInstance
	}
	for _, r := range ir.Realms {
		s := h.sides[r]
		if s.inst, err = s.realm.Instantiate(class, id); err != nil {
			return nil, fmt.Errorf("instantiate %s in realm %s: %w", class.Name(), r, err)
		}
	}

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			result.AddError(fmt.Sprintf("steps[%d] (%s): %v", i, step.Kind(), err))
			break
		}
	}

	for _, msg := range EvaluateAssertions(ctx, h, scenario.Assertions) {
		result.AddError(msg)
	}

	entries, err := st.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	for _, e := range entries {
		result.Trace = append(result.Trace, traceEvent(e))
	}
	for r, s := range h.sides {
		if inst, ok := s.realm.Instance(id); ok {
			result.Values[r] = inst.Values()
		}
	}
	return result, nil
}

// RunAll executes scenarios concurrently, at most limit at a time (no limit
// if limit <= 0). Results are returned in input order. The first scenario
// that cannot run cancels the rest.
func RunAll(ctx context.Context, scenarios []*Scenario, limit int, opts ...Option) ([]*Result, error) {
	results := make([]*Result, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, s := range scenarios {
		g.Go(func() error {
			res, err := Run(ctx, s, opts...)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", s.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// declare loads the scenario's classes and looks up the one to run.
func declare(s *Scenario, lib *validators.Library) (*model.Class, []string, error) {
	decls, err := compiler.Load(s.Dir, s.Classes...)
	if err != nil {
		return nil, nil, fmt.Errorf("load classes: %w", err)
	}

	var problems []string
	for i := range decls {
		for _, verr := range compiler.Validate(&decls[i], lib) {
			problems = append(problems, fmt.Sprintf("class %s: %s", decls[i].Name, verr.Error()))
		}
	}
	var warnings []string
	for _, w := range compiler.AnalyzeCycles(decls) {
		if w.Level == "error" {
			problems = append(problems, w.Message)
			continue
		}
		warnings = append(warnings, w.Message)
	}
	if len(problems) > 0 {
		return nil, nil, fmt.Errorf("invalid classes:\n  %s", strings.Join(problems, "\n  "))
	}

	reg := model.NewRegistry()
	if _, err := model.DeclareAll(reg, decls, lib); err != nil {
		return nil, nil, fmt.Errorf("declare classes: %w", err)
	}
	class, ok := reg.Lookup(s.Class)
	if !ok {
		return nil, nil, fmt.Errorf("class %q not declared", s.Class)
	}
	return class, warnings, nil
}

// link builds both realms over one session pair.
func (h *Harness) link(journal realm.Journal, m *metrics.Collector) error {
	endA, endB := session.Pair(session.WithLogger(h.logger))
	clock := engine.NewClock()

	for _, r := range ir.Realms {
		end := endA
		if r == ir.RealmB {
			end = endB
		}
		loop := engine.NewLoop(
			engine.WithName(string(r)),
			engine.WithLogger(h.logger),
			engine.WithTracker(h.tracker),
		)
		rl, err := realm.New(r, end, loop,
			realm.WithLogger(h.logger),
			realm.WithJournal(journal),
			realm.WithMetrics(m),
			realm.WithClock(clock),
		)
		if err != nil {
			return err
		}
		end.Bind(loop, rl)
		h.sides[r] = &side{realm: rl, loop: loop}
	}
	return nil
}

// execute runs one step.
func (h *Harness) execute(ctx context.Context, step Step) error {
	if step.Settle {
		return h.settle(ctx)
	}

	s := h.sides[step.Realm]
	var stepErr error
	task := func(fn func(context.Context) error) {
		s.loop.Submit("harness."+step.Kind(), func(ctx context.Context) error {
			stepErr = fn(ctx)
			return stepErr
		})
	}

	switch step.Kind() {
	case StepSet:
		value, err := convertToIRValue(step.Value)
		if err != nil {
			return fmt.Errorf("value: %w", err)
		}
		task(func(ctx context.Context) error {
			return s.inst.Set(ctx, step.Set, value)
		})
	case StepEmit:
		var payload ir.IRValue
		if step.Payload != nil {
			p, err := convertToIRValue(step.Payload)
			if err != nil {
				return fmt.Errorf("payload: %w", err)
			}
			payload = p
		}
		n := max(step.Count, 1)
		task(func(context.Context) error {
			for range n {
				if err := s.inst.Emit(step.Emit, payload); err != nil {
					return err
				}
			}
			return nil
		})
	case StepDispose:
		task(func(context.Context) error {
			s.inst.Dispose()
			return nil
		})
	case StepFlush:
	}
	s.loop.Drain(ctx)

	switch {
	case step.Error == "" && stepErr != nil:
		return stepErr
	case step.Error != "" && stepErr == nil:
		return fmt.Errorf("expected error containing %q, step succeeded", step.Error)
	case step.Error != "" && !strings.Contains(stepErr.Error(), step.Error):
		return fmt.Errorf("expected error containing %q, have: %v", step.Error, stepErr)
	}
	return nil
}

// settle alternates the two loops until no work is outstanding on either.
func (h *Harness) settle(ctx context.Context) error {
	rounds := h.scenario.MaxRounds
	if rounds == 0 {
		rounds = DefaultMaxRounds
	}
	for i := 0; i < rounds; i++ {
		if h.tracker.Outstanding() == 0 {
			return nil
		}
		for _, r := range ir.Realms {
			h.sides[r].loop.Drain(ctx)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if n := h.tracker.Outstanding(); n > 0 {
		return fmt.Errorf("realms did not settle after %d rounds (%d tasks outstanding)", rounds, n)
	}
	return nil
}

// teeJournal records each entry in every journal and returns the first
// error.
type teeJournal []realm.Journal

func (t teeJournal) Record(ctx context.Context, e realm.JournalEntry) error {
	var first error
	for _, j := range t {
		if err := j.Record(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// convertToIRValue converts a YAML-parsed value to an IRValue.
// Null is rejected: no property may hold it.
func convertToIRValue(val any) (ir.IRValue, error) {
	if val == nil {
		return nil, fmt.Errorf("null values are forbidden")
	}

	switch v := val.(type) {
	case float64:
		// Whole floats come from JSON-style sources; fractions are forbidden.
		if v == float64(int64(v)) {
			return ir.IRInt(int64(v)), nil
		}
		return nil, fmt.Errorf("floats are forbidden: %v", v)
	case []any:
		arr := make(ir.IRArray, len(v))
		for i, elem := range v {
			irElem, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(ir.IRObject, len(v))
		for key, elem := range v {
			irElem, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			obj[key] = irElem
		}
		return obj, nil
	default:
		return ir.FromGo(val)
	}
}
