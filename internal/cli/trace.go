package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Instance string // optional - filter to one instance
	Outcome  string // optional - filter to one outcome
}

// TraceEntry is one journal entry in the trace timeline.
type TraceEntry struct {
	Seq       int64          `json:"seq"`
	Realm     ir.Realm       `json:"realm"`
	Direction string         `json:"direction"`
	Outcome   string         `json:"outcome"`
	Kind      ir.MessageKind `json:"kind"`
	Instance  string         `json:"instance"`
	Name      string         `json:"name"`
	Value     ir.IRValue     `json:"value,omitempty"`
	Payloads  ir.IRArray     `json:"payloads,omitempty"`
	Origin    ir.Realm       `json:"origin"`
	Hops      int64          `json:"hops"`
}

// UnmarshalJSON decodes the value with ir.UnmarshalIRValue so `--format
// json` output reads back into a TraceEntry.
func (e *TraceEntry) UnmarshalJSON(data []byte) error {
	type plain TraceEntry
	var raw struct {
		*plain
		Value json.RawMessage `json:"value,omitempty"`
	}
	raw.plain = (*plain)(e)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Value = nil
	if len(raw.Value) == 0 {
		return nil
	}
	v, err := ir.UnmarshalIRValue(raw.Value)
	if err != nil {
		return fmt.Errorf("trace entry %d value: %w", e.Seq, err)
	}
	e.Value = v
	return nil
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Instance string         `json:"instance,omitempty"`
	Timeline []TraceEntry   `json:"timeline"`
	Outcomes map[string]int `json:"outcomes"`
	MaxHops  int64          `json:"max_hops"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the sync journal",
		Long: `Show the messages recorded in a journal database, in journal order:
by logical clock, each send before its receipt.

Every entry shows which realm observed the message and what it did with
it: sent, applied, echoed (re-validated to a new value and sent back),
rejected, dropped or queued.

Examples:
  duet trace --db ./journal.db
  duet trace --db ./journal.db --instance d-1
  duet trace --db ./journal.db --outcome echoed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Instance, "instance", "", "filter to one instance id")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "filter to one outcome")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.fail(ErrCodeNotFound, fmt.Sprintf("journal not found: %s", opts.Database))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ErrCodeStoreFailed, fmt.Sprintf("opening journal: %v", err))
	}
	defer st.Close()

	result, err := buildTrace(ctx, st, opts.Instance, opts.Outcome)
	if err != nil {
		return formatter.fail(ErrCodeStoreFailed, err.Error())
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	writeTraceText(formatter, result)
	return nil
}

func buildTrace(ctx context.Context, st *store.Store, instance, outcome string) (TraceResult, error) {
	var (
		entries []store.Entry
		err     error
	)
	if instance != "" {
		entries, err = st.ReadInstance(ctx, instance)
	} else {
		entries, err = st.ReadAll(ctx)
	}
	if err != nil {
		return TraceResult{}, fmt.Errorf("reading journal: %w", err)
	}

	result := TraceResult{
		Instance: instance,
		Timeline: []TraceEntry{},
		Outcomes: map[string]int{},
	}
	for _, e := range entries {
		if outcome != "" && string(e.Outcome) != outcome {
			continue
		}
		m := e.Message
		result.Timeline = append(result.Timeline, TraceEntry{
			Seq:       m.Seq,
			Realm:     e.Realm,
			Direction: string(e.Direction),
			Outcome:   string(e.Outcome),
			Kind:      m.Kind,
			Instance:  m.InstanceID,
			Name:      m.Name,
			Value:     m.Value,
			Payloads:  m.Payloads,
			Origin:    m.Origin,
			Hops:      m.Hops,
		})
		result.Outcomes[string(e.Outcome)]++
		result.MaxHops = max(result.MaxHops, m.Hops)
	}
	return result, nil
}

func writeTraceText(formatter *OutputFormatter, result TraceResult) {
	w := formatter.Writer
	if len(result.Timeline) == 0 {
		if result.Instance != "" {
			fmt.Fprintf(w, "No journal entries for instance: %s\n", result.Instance)
		} else {
			fmt.Fprintln(w, "No journal entries")
		}
		return
	}

	for _, e := range result.Timeline {
		fmt.Fprintf(w, "%4d %s %-3s %-7s %s.%s %s hops=%d\n",
			e.Seq, e.Realm, e.Direction, e.Outcome, e.Instance, e.Name, entryBody(e), e.Hops)
	}

	outcomes := make([]string, 0, len(result.Outcomes))
	for o := range result.Outcomes {
		outcomes = append(outcomes, o)
	}
	slices.Sort(outcomes)
	fmt.Fprintf(w, "\n%d entries, max hops %d\n", len(result.Timeline), result.MaxHops)
	for _, o := range outcomes {
		fmt.Fprintf(w, "  %-8s %d\n", o, result.Outcomes[o])
	}
}

// entryBody renders a write's value or a batch's payloads.
func entryBody(e TraceEntry) string {
	var v ir.IRValue = e.Value
	if e.Kind == ir.KindEventBatch {
		v = e.Payloads
		if e.Payloads == nil {
			v = ir.IRArray{}
		}
	}
	if v == nil {
		return "-"
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
