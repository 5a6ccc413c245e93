package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/model"
)

// GeneratedUnit is one rendered per-realm listing.
type GeneratedUnit struct {
	Class   string   `json:"class"`
	Realm   ir.Realm `json:"realm"`
	Listing string   `json:"listing"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <classes-dir> [class]",
		Short: "Render the per-realm units of classes",
		Long: `Render what each realm implements for a class: one impl line per
member the class owns and one ref line per member it inherits.

Without a class name every declared class is rendered.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			return runGenerate(rootOpts, args[0], name, cmd)
		},
	}
	return cmd
}

func runGenerate(opts *RootOptions, dir, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var classes []*model.Class
	if name != "" {
		class, err := lookupClass(formatter, dir, name)
		if err != nil {
			return err
		}
		classes = []*model.Class{class}
	} else {
		loaded, errs := LoadClasses(dir, LoadModeFailFast)
		if len(errs) > 0 {
			return formatter.Errors("Loading classes failed", errs)
		}
		classes = loaded.Registry.Classes()
	}

	units := Generate(classes)
	if formatter.JSON() {
		return formatter.Success(units)
	}
	return writeUnits(formatter.Writer, units)
}

// Generate renders both realms' units for each class, realm A first.
func Generate(classes []*model.Class) []GeneratedUnit {
	units := []GeneratedUnit{}
	for _, c := range classes {
		for _, r := range ir.Realms {
			units = append(units, GeneratedUnit{
				Class:   c.Name(),
				Realm:   r,
				Listing: c.Unit(r).Render(),
			})
		}
	}
	return units
}

func writeUnits(w io.Writer, units []GeneratedUnit) error {
	for i, u := range units {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, u.Listing); err != nil {
			return err
		}
	}
	return nil
}
