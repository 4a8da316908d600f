package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowfsm"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of flowfsm",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flowfsm version %s\n", strings.TrimSpace(flowfsm.Version))
		},
	}
}
