package main

import (
	"fmt"

	"github.com/aretw0/flowfsm/internal/presentation/tui"
	"github.com/spf13/cobra"
)

func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe FILE",
		Short: "Render a markdown summary of a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, f, err := loadFlow(cmd, args[0])
			if err != nil {
				return err
			}
			md := tui.Describe(doc.Name, doc.Description, f.StartState(), f.Collection())

			if raw, _ := cmd.Flags().GetBool("raw"); raw {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}
			style, _ := cmd.Flags().GetString("style")
			render, err := tui.NewRenderer(style)
			if err != nil {
				return err
			}
			out, err := render(md)
			if err != nil {
				return fmt.Errorf("failed to render: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().Bool("raw", false, "Print the markdown source")
	cmd.Flags().String("style", "", "glamour style (dark, light, notty); detected by default")
	return cmd
}
