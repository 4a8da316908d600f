package main

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/flowfsm"
	"github.com/aretw0/flowfsm/internal/logging"
	"github.com/aretw0/flowfsm/pkg/loader"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flowfsm",
		Short:         "flowfsm runs finite state machines described in YAML or JSON",
		Long:          `flowfsm validates flow documents, renders them as Mermaid or markdown, replays events against them and serves them over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides FLOWFSM_LOG_LEVEL")
	root.PersistentFlags().String("log-format", "", "Log format (text, json); overrides FLOWFSM_LOG_FORMAT")
	root.PersistentFlags().Bool("skip-validation", false, "Skip the structural checks of the transition graph")

	root.AddCommand(
		newValidateCmd(),
		newGraphCmd(),
		newDescribeCmd(),
		newRunCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

// loadFlow reads the document at path and builds a flow from it.
func loadFlow(cmd *cobra.Command, path string, opts ...flowfsm.Option) (*loader.Document, *flowfsm.Flow, error) {
	doc, err := loader.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	def, err := doc.Definition()
	if err != nil {
		return nil, nil, err
	}

	if skip, _ := cmd.Flags().GetBool("skip-validation"); skip {
		opts = append(opts, flowfsm.WithSkipValidation())
	}
	f, err := flowfsm.New(def, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("flow %q: %w", doc.Name, err)
	}
	return doc, f, nil
}

// newLogger builds the logger from flags falling back to the given defaults.
func newLogger(cmd *cobra.Command, level, format string) (*slog.Logger, error) {
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		format = v
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(cmd.ErrOrStderr(), lvl, format), nil
}
