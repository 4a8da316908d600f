package main

import (
	"fmt"

	"github.com/aretw0/flowfsm/internal/presentation/graph"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph FILE",
		Short: "Export the flow graph visualization",
		Long:  `Outputs a Mermaid diagram (graph TD) of the assembled transitions.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, f, err := loadFlow(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(f.Collection(), f.StartState(), nil))
			return nil
		},
	}
}
