package main

import (
	"fmt"

	"github.com/aretw0/statecraft/internal/presentation/graph"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/spf13/cobra"
)

func newGraphCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <workflow>",
		Short: "Export a workflow as a Mermaid diagram",
		Long: `Outputs a Mermaid flowchart (graph TD) of the workflow.
With --entity-id, the states the entity visited are highlighted using the configured history store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityID, _ := cmd.Flags().GetString("entity-id")

			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			def, ok := rt.Engine.Definition(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, args[0])
			}

			var overlay *graph.GraphOverlay
			if entityID != "" {
				events, err := rt.Engine.History(cmd.Context(), domain.HistoryFilter{EntityType: args[0], EntityID: entityID})
				if err != nil {
					return err
				}
				overlay = graph.OverlayFromHistory(events)
			}

			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, overlay))
			return nil
		},
	}
	cmd.Flags().String("entity-id", "", "Highlight the path of this entity")
	return cmd
}
