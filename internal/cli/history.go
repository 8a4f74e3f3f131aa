package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stockwatch/internal/models"
)

// addHistoryCommands adds alert history commands.
func addHistoryCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"alerts"},
		Short:   "Inspect the alert history",
	}

	cmd.AddCommand(newHistoryRecentCmd(app))
	cmd.AddCommand(newHistorySummaryCmd(app))
	cmd.AddCommand(newHistoryClearCmd(app))

	rootCmd.AddCommand(cmd)
}

func requireHistory(app *App) error {
	if app.History == nil {
		return fmt.Errorf("data store unavailable")
	}
	return nil
}

func newHistoryRecentCmd(app *App) *cobra.Command {
	var limit int
	var symbol string

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recent alerts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireHistory(app); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := cmd.Context()

			var recs []models.AlertRecord
			var err error
			if symbol != "" {
				recs, err = app.History.BySymbol(ctx, symbol, limit)
			} else {
				recs, err = app.History.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(recs)
			}
			if len(recs) == 0 {
				output.Dim("No alerts recorded.")
				return nil
			}

			table := NewTable(output, "ID", "TIME", "SYMBOL", "TYPE", "CHANGE", "THRESHOLD", "DELIVERED")
			for _, r := range recs {
				delivered := output.Green("yes")
				if !r.DeliverySucceeded {
					delivered = output.Red("no")
				}
				table.AddRow(
					strconv.FormatInt(r.ID, 10),
					r.Timestamp.Local().Format("2006-01-02 15:04"),
					r.Symbol,
					strings.ToLower(string(r.AlertType)),
					output.FormatPercent(r.ChangePercent),
					fmt.Sprintf("%.2f%%", r.ThresholdUsed),
					delivered,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of alerts to show")
	cmd.Flags().StringVar(&symbol, "symbol", "", "only alerts for this symbol")
	return cmd
}

func newHistorySummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show aggregate alert statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireHistory(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			summary, err := app.History.Summary(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(summary)
			}

			output.Bold("Alert History Summary")
			output.Printf("  Total Alerts:   %d\n", summary.TotalAlerts)
			output.Printf("  Alerts Today:   %d\n", summary.AlertsToday)
			if summary.MostActiveSymbol != "" {
				output.Printf("  Most Active:    %s\n", summary.MostActiveSymbol)
			}
			if summary.TotalAlerts > 0 {
				output.Printf("  Avg |Change|:   %.2f%%\n", summary.AverageAbsChangePercent)
			}
			if summary.LastAlertTime != nil {
				output.Printf("  Last Alert:     %s\n", summary.LastAlertTime.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

func newHistoryClearCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the entire alert history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireHistory(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			if !yes {
				output.Warning("This deletes all recorded alerts. Re-run with --yes to confirm.")
				return nil
			}

			cleared, err := app.History.Clear(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"cleared": cleared})
			}
			if cleared {
				output.Success("✓ Alert history cleared")
			} else {
				output.Dim("History was already empty.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}
