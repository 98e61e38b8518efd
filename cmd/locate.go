// cmd/locate.go
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/formwalk/internal/locator"
)

type locateOptions struct {
	index       int
	placeholder string
	inputKind   string
	noConfirm   bool
}

func newLocateCmd() *cobra.Command {
	var opts locateOptions
	locateCmd := &cobra.Command{
		Use:   "locate <kind> <label> [value]",
		Short: "Print the XPath queries a fill step would use",
		Long: `Locate prints the queries the walker evaluates for a field, in the order
it evaluates them. Choice, card and dropdown kinds need the option value.
For single-choice fields whose options advance the form themselves, pass
--no-confirm.

Kinds: text, textarea, phone, date, file, single-choice, multi-choice,
dropdown, card.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := locator.ParseKind(args[0])
			if err != nil {
				return err
			}
			value := ""
			if len(args) == 3 {
				value = args[2]
			}

			f := locator.DefaultField(kind)
			f.Index = opts.index
			if cmd.Flags().Changed("placeholder") {
				f.Placeholder = opts.placeholder
			}
			if opts.inputKind != "" {
				f.InputKind = opts.inputKind
			}

			if opts.noConfirm && kind != locator.KindSingleChoice {
				return fmt.Errorf("--no-confirm applies to %s fields only", locator.KindSingleChoice)
			}

			queries, err := fieldQueries(f, args[1], value, opts.noConfirm)
			if err != nil {
				return err
			}
			return printQueries(cmd.OutOrStdout(), queries)
		},
	}
	locateCmd.Flags().IntVar(&opts.index, "index", 0, "position of the field on the page")
	locateCmd.Flags().StringVar(&opts.placeholder, "placeholder", "", "placeholder substring of the input (empty disables the check)")
	locateCmd.Flags().StringVar(&opts.inputKind, "input-kind", "", "container id tag, e.g. number-input")
	locateCmd.Flags().BoolVar(&opts.noConfirm, "no-confirm", false, "single-choice options are buttons that advance on click")
	return locateCmd
}

// fieldQueries lists the queries of a fill step for f, the label first.
// noConfirm selects the single-choice form without a confirm control, where
// the option button itself advances.
func fieldQueries(f locator.Field, label, value string, noConfirm bool) ([]locator.Query, error) {
	queries := []locator.Query{locator.Label(label)}
	switch f.Kind {
	case locator.KindSingleChoice, locator.KindMultiChoice, locator.KindCard, locator.KindDropdown:
		if value == "" {
			return nil, fmt.Errorf("%s field needs an option value", f.Kind)
		}
	}

	if noConfirm && f.Kind == locator.KindSingleChoice {
		return append(queries, locator.ChoiceButton(value)), nil
	}

	switch f.Kind {
	case locator.KindSingleChoice, locator.KindMultiChoice, locator.KindCard:
		q, err := locator.Option(f, value)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	case locator.KindDropdown:
		toggle, err := locator.DropdownToggle(f)
		if err != nil {
			return nil, err
		}
		queries = append(queries, toggle, locator.DropdownOption(value))
	default:
		q, err := locator.Input(f)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return append(queries, locator.NextButton()), nil
}

func printQueries(out io.Writer, queries []locator.Query) error {
	for _, q := range queries {
		if _, err := fmt.Fprintf(out, "%s [%s]\n  %s\n", q.Description, q.Condition, q.XPath); err != nil {
			return err
		}
	}
	return nil
}
