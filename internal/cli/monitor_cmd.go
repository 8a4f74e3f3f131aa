package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stockwatch/internal/monitor"
	"stockwatch/pkg/utils"
)

// addMonitorCommands adds the monitoring commands.
func addMonitorCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newCheckCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newQuoteCmd(app))
}

func requireMonitor(app *App) error {
	if app.Monitor == nil {
		return fmt.Errorf("data store unavailable")
	}
	return nil
}

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one monitoring cycle now",
		Long:  "Fetch quotes for the active watchlist, evaluate thresholds and dispatch any alerts, then exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireMonitor(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			res, err := app.Monitor.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(res)
			}
			if res.Skipped {
				output.Warning("Cycle skipped (alerting disabled or another cycle is running)")
				return nil
			}
			output.Printf("Checked %d symbols in %s\n", res.SymbolsChecked, res.Duration.Round(time.Millisecond))
			if res.AlertsFired > 0 {
				output.Success("%d alert(s) fired", res.AlertsFired)
			} else {
				output.Dim("No alerts fired.")
			}
			if res.FetchErrors > 0 {
				output.Warning("%d symbol(s) failed to fetch", res.FetchErrors)
			}
			return nil
		},
	}
}

func newRunCmd(app *App) *cobra.Command {
	var immediate bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitor as a foreground daemon",
		Long: `Run monitoring cycles on the configured schedule until interrupted.
With the market-hours schedule enabled, checks run at fixed times during
US trading hours; otherwise they run at a flat interval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireMonitor(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			sched, err := monitor.NewScheduler(app.Logger)
			if err != nil {
				return err
			}
			job := monitor.NewCycleJob(app.Monitor, 0)
			if !app.Config.Monitor.MarketHoursSchedule {
				// Interval mode fires around the clock; limit the work to
				// the trading session.
				job.SetMarketHoursOnly(true)
			}
			if err := sched.AddCheckJob(app.Config.Monitor, job); err != nil {
				return err
			}

			if immediate {
				if err := sched.RunNow(job); err != nil {
					app.Logger.Error().Err(err).Msg("initial cycle failed")
				}
			}

			sched.Start()
			output.Info("Monitoring started. Press Ctrl+C to stop.")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			output.Println()
			output.Info("Shutting down...")
			sched.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&immediate, "now", false, "run a cycle immediately on startup")
	return cmd
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL...",
		Short: "Fetch current quotes",
		Long:  "Fetch quotes for one or more symbols through the cache, without evaluating alerts.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			table := NewTable(output, "SYMBOL", "PRICE", "PREV CLOSE", "CHANGE", "VOLUME")
			var fetched []interface{}
			for _, sym := range args {
				q, err := app.Cache.Get(ctx, sym)
				if err != nil {
					output.Error("%s: %v", sym, err)
					continue
				}
				if output.IsJSON() {
					fetched = append(fetched, q)
					continue
				}
				table.AddRow(
					q.Symbol,
					utils.FormatUSD(q.Price),
					utils.FormatUSD(q.PreviousClose),
					output.FormatPercent(q.ChangePercent()),
					utils.FormatVolume(q.Volume),
				)
			}
			if output.IsJSON() {
				return output.JSON(fetched)
			}
			table.Render()
			return nil
		},
	}
}
