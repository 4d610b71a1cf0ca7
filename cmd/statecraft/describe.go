package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/internal/presentation/tui"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newDescribeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <workflow> [state]",
		Short: "Describe a workflow or one of its states",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			plain, _ := cmd.Flags().GetBool("plain")

			// Describing needs definitions only, never the configured stores.
			eng := statecraft.New(statecraft.WithLogger(a.logger))
			if err := eng.LoadFromConfig(a.cfg.Workflows); err != nil {
				return err
			}

			def, ok := eng.Definition(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, args[0])
			}

			var md string
			if len(args) == 2 {
				if _, ok := def.States[args[1]]; !ok {
					return fmt.Errorf("state %q is not defined in workflow %s", args[1], args[0])
				}
				md = tui.DescribeState(args[0], eng.StateInfo(args[0], args[1]))
			} else {
				md = tui.DescribeWorkflow(args[0], def)
			}

			if plain || !isTerminal(cmd.OutOrStdout()) {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}
			out, err := tui.NewRenderer()(md)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().Bool("plain", false, "Print raw markdown")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
