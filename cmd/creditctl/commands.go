package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"credit-coupling-api/internal/app"
	"credit-coupling-api/internal/models"
	"credit-coupling-api/internal/spend"
)

func newOffersCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "offers",
		Short: "List the credit catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return printJSON(cmd.OutOrStdout(), a.Service.Offers())
			})
		},
	}
}

func newScoreCommand(opts *options) *cobra.Command {
	var spendFile string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score spend against the catalog",
		Long: `Score the configured spend source, or a JSON snapshot given with --spend-file
({"AWS Lambda": 25.10, ...}).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				var snapshot models.ServiceSpend
				if spendFile != "" {
					s, err := spend.NewFileSource(spendFile).CurrentSpend(ctx)
					if err != nil {
						return err
					}
					snapshot = s
				}

				resp, err := a.Service.Recommendations(ctx, snapshot)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().StringVar(&spendFile, "spend-file", "", "JSON spend snapshot to score")
	return cmd
}

func newRemindersCommand(opts *options) *cobra.Command {
	var now string

	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Generate attestation reminders for actionable credits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now().UTC()
			if now != "" {
				parsed, err := parseTime(now)
				if err != nil {
					return err
				}
				at = parsed
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				resp, err := a.Service.ScheduleReminders(ctx, at)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().StringVar(&now, "now", "", "Evaluate reminders as of this date (2006-01-02 or RFC3339)")
	return cmd
}

func newExtractCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Read the commitment figure from a text document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				out, err := a.Service.ExtractCommitment(ctx, string(data))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want 2006-01-02 or RFC3339", s)
	}
	return t, nil
}
