package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/statecraft"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of statecraft",
		// Skip config loading.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "statecraft version %s\n", strings.TrimSpace(statecraft.Version))
		},
	}
}
