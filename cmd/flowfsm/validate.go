package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a flow document for consistency",
		Long:  `Assembles the flow and checks the transition graph: no empty graph, no edges out of final states, no ambiguous edges, no dangling or self-looping states.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, f, err := loadFlow(cmd, args[0])
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			c := f.Collection()
			fmt.Fprintf(cmd.OutOrStdout(), "Flow %q is valid! ✅ (%d states, %d transitions)\n", doc.Name, len(c.States()), c.Len())
			return nil
		},
	}
}
