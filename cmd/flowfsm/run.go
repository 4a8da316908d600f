package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/flowfsm"
	"github.com/aretw0/flowfsm/internal/presentation/tui"
	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/aretw0/flowfsm/pkg/executor"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Replay events against a flow",
		Long: `Starts one context and fires the given events in order on a synchronous executor,
printing every lifecycle step. Rejected events fail the run unless --lenient is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, _ := cmd.Flags().GetStringSlice("event")
			lenient, _ := cmd.Flags().GetBool("lenient")
			logger, err := newLogger(cmd, "warn", "text")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			styler := tui.NewStyler(out)
			_, f, err := loadFlow(cmd, args[0],
				flowfsm.WithExecutor(executor.NewInline(executor.WithLogger(logger))),
				flowfsm.WithLogger(logger),
				flowfsm.WithLifecycleHooks(tui.TraceHooks(out, styler)),
			)
			if err != nil {
				return err
			}

			c := domain.NewContext(domain.WithID("run"))
			if err := f.Start(c); err != nil {
				return err
			}
			for _, e := range events {
				ok, err := f.Trigger(domain.Event(e), c)
				var lv *domain.LogicViolationError
				switch {
				case errors.As(err, &lv) && lenient:
					fmt.Fprintf(out, "%s %s\n", styler.Faint("skip   "), styler.Event(domain.Event(e)))
				case err != nil:
					return err
				case !ok:
					fmt.Fprintf(out, "%s %s: context terminated\n", styler.Faint("skip   "), styler.Event(domain.Event(e)))
				}
			}

			status := "running"
			if c.IsTerminated() {
				status = "terminated"
			}
			fmt.Fprintf(out, "state: %s (%s)\n", styler.State(c.State()), status)
			return nil
		},
	}
	cmd.Flags().StringSliceP("event", "e", nil, "Event to fire; repeat or comma separate for several")
	cmd.Flags().Bool("lenient", false, "Skip events the current state does not handle")
	return cmd
}
