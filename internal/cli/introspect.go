package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/model"
)

// RealmView is one realm's introspection of a class.
type RealmView struct {
	Realm           ir.Realm     `json:"realm"`
	Properties      []string     `json:"properties"`
	LocalProperties []string     `json:"local_properties"`
	Events          []string     `json:"events"`
	Members         []MemberView `json:"members"`
	Handlers        []string     `json:"handlers"`
	Defaults        ir.IRObject  `json:"defaults"`
}

// MemberView describes where a visible property comes from.
type MemberView struct {
	Name      string `json:"name"`
	Owner     string `json:"owner"`
	Scope     string `json:"scope"`
	Validator string `json:"validator"`
}

// IntrospectResult is the output of the introspect command.
type IntrospectResult struct {
	Class  string      `json:"class"`
	MRO    []string    `json:"mro"`
	Realms []RealmView `json:"realms"`
}

// NewIntrospectCommand creates the introspect command.
func NewIntrospectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "introspect <classes-dir> <class>",
		Short: "Show what a class looks like in each realm",
		Long: `Show a class's resolution order and, per realm, its visible
properties (__properties__), the properties declared for exactly that
realm (__local_properties__), its events and handlers.

Example:
  duet introspect ./classes ModelC`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntrospect(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runIntrospect(opts *RootOptions, dir, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	class, err := lookupClass(formatter, dir, name)
	if err != nil {
		return err
	}
	result := Introspect(class)

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "class %s\n", result.Class)
	fmt.Fprintf(w, "mro: %s\n", strings.Join(result.MRO, " -> "))
	for _, v := range result.Realms {
		fmt.Fprintf(w, "\nrealm %s\n", v.Realm)
		fmt.Fprintf(w, "  __properties__:       %s\n", strings.Join(v.Properties, " "))
		fmt.Fprintf(w, "  __local_properties__: %s\n", strings.Join(v.LocalProperties, " "))
		fmt.Fprintf(w, "  events:               %s\n", strings.Join(v.Events, " "))
		for _, m := range v.Members {
			fmt.Fprintf(w, "    %-12s %-7s from %-10s %s\n", m.Name, m.Scope, m.Owner, m.Validator)
		}
		for _, h := range v.Handlers {
			fmt.Fprintf(w, "    handler %s\n", h)
		}
	}
	return nil
}

// Introspect collects both realms' view of a class.
func Introspect(class *model.Class) IntrospectResult {
	result := IntrospectResult{Class: class.Name(), MRO: class.MRO()}
	for _, r := range ir.Realms {
		m := class.Manifest(r)
		view := RealmView{
			Realm:           r,
			Properties:      class.Properties(r),
			LocalProperties: class.LocalProperties(r),
			Events:          class.Events(r),
			Members:         []MemberView{},
			Handlers:        []string{},
			Defaults:        ir.IRObject{},
		}
		for _, name := range view.Properties {
			p, _ := m.Property(name)
			view.Members = append(view.Members, MemberView{
				Name:      name,
				Owner:     p.Owner,
				Scope:     string(p.Scope),
				Validator: validatorLabel(p.Spec),
			})
			view.Defaults[name] = p.Default
		}
		for _, event := range view.Events {
			for _, h := range m.Handlers(event) {
				view.Handlers = append(view.Handlers, fmt.Sprintf("%s on %s from %s", h.Name, h.Event, h.Owner))
			}
		}
		result.Realms = append(result.Realms, view)
	}
	return result
}

func validatorLabel(spec ir.ValidatorSpec) string {
	if spec.Kind == "" {
		return "identity"
	}
	return spec.Kind
}

// lookupClass loads dir and returns the named class, reporting failures
// through the formatter.
func lookupClass(formatter *OutputFormatter, dir, name string) (*model.Class, error) {
	loaded, errs := LoadClasses(dir, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, formatter.Errors("Loading classes failed", errs)
	}
	class, ok := loaded.Registry.Lookup(name)
	if !ok {
		return nil, formatter.fail(ErrCodeUnknownClass, fmt.Sprintf("class %q not declared in %s", name, dir))
	}
	return class, nil
}
