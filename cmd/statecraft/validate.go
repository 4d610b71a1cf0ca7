package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/statecraft/pkg/config"
	"github.com/aretw0/statecraft/pkg/validate"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check workflow definitions for consistency",
		Long:  `Reports dangling transition targets, unknown initial or final states, malformed conditions and unreachable states.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Workflows
			if len(args) > 0 {
				path = args[0]
			}

			doc, err := config.Load(path)
			if err != nil {
				return err
			}

			res := validate.All(doc.Workflows)
			out := cmd.OutOrStdout()
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			for _, e := range res.Errors {
				fmt.Fprintf(out, "error: %s\n", e)
			}

			if res.HasErrors() {
				return errors.New("validation failed")
			}
			fmt.Fprintf(out, "%d workflow(s) valid ✅\n", len(doc.Workflows))
			return nil
		},
	}
}
