package main

import (
	"errors"
	"fmt"
	"io"

	"fixforge-client/pkg/models"
	"fixforge-client/pkg/queue"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newEventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Follow submitted-report events on the message queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.AMQP.Enabled() {
				return errors.New("FIXFORGE_AMQP_URL is not set")
			}
			conn, ch, err := queue.ConnectRabbitMQ(a.cfg.AMQP.URL, "fixforge-cli events")
			if err != nil {
				return err
			}
			defer conn.Close()
			defer ch.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Waiting for reports on %q. Press CTRL+C to exit.\n", a.cfg.AMQP.Queue)
			return queue.ConsumeSubmitted(cmd.Context(), ch, a.cfg.AMQP.Queue, a.log, func(e models.SubmittedEvent) {
				printEvent(out, e)
			})
		},
	}
}

func printEvent(out io.Writer, e models.SubmittedEvent) {
	label := color.New(color.FgCyan)
	if e.IsDuplicate {
		label = color.New(color.FgYellow)
	}
	label.Fprintf(out, "[%s] %s", e.Severity, e.Title)
	fmt.Fprintf(out, " -> %s", e.Route)
	if e.UserID != "" {
		fmt.Fprintf(out, " (by %s)", e.UserID)
	}
	fmt.Fprintln(out)
}
