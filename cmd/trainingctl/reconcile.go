package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"compliance-training/config"
	"compliance-training/internal/app"
	"compliance-training/internal/provisioning"

	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "reconcile [session-id]",
		Short: "Apply a paid checkout session that the webhook never delivered",
		Long: `Fetch a checkout session from Stripe and run it through the purchase
processor. Grants already applied for the session are reported as
already_existed and left untouched, so the command is safe to repeat.

Examples:
  trainingctl reconcile cs_live_a1b2c3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoad()
			log := app.SetupLogger(cfg.Env)

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.Gateway.GetSession(ctx, args[0])
			if err != nil {
				return err
			}
			sum, err := a.Processor.ProcessSession(ctx, sess)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			if sum.Succeeded() == 0 && sum.Failed() > 0 {
				return fmt.Errorf("no line item applied: %w", sum.Err())
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	return cmd
}

func printSummary(out io.Writer, sum provisioning.Summary) {
	fmt.Fprintf(out, "session %s: %d applied, %d failed\n", sum.SessionID, sum.Succeeded(), sum.Failed())

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRICE\tCOURSE\tQTY\tOUTCOME\tACCOUNT")
	for _, it := range sum.Items {
		outcome, account := "", ""
		if it.Err != nil {
			outcome = "error: " + it.Err.Error()
		} else {
			outcome = string(it.Result.Outcome)
			account = it.Result.AccountID.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", it.PriceID, it.Course, it.Quantity, outcome, account)
	}
	w.Flush()
}
