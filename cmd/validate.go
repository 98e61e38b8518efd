// cmd/validate.go
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/formwalk/internal/scenario"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [paths...]",
		Short: "Check suite files without opening a browser",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suites, err := scenario.LoadPaths(args...)
			if err != nil {
				return err
			}
			return printSuites(cmd.OutOrStdout(), suites)
		},
	}
}

// printSuites lists every scenario with its step count and whether the walk
// ends on a confirmation check.
func printSuites(out io.Writer, suites []*scenario.Suite) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	total := 0
	for _, s := range suites {
		fmt.Fprintf(tw, "%s\t\t\t\n", s.File)
		for _, sc := range s.Scenarios {
			total++
			end := "terminal"
			if !sc.Terminal() {
				end = "open-ended"
			}
			fmt.Fprintf(tw, "  %s\t%d steps\t%s\t\n", sc.Name, len(sc.Steps), end)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d suites, %d scenarios ok\n", len(suites), total)
	return err
}
