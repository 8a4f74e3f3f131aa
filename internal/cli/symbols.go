package cli

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"stockwatch/internal/errors"
	"stockwatch/internal/registry"
)

// addSymbolCommands adds watchlist management commands.
func addSymbolCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "symbols",
		Aliases: []string{"symbol", "sym"},
		Short:   "Manage the watchlist",
		Long:    "Add, remove, update and inspect tracked symbols.",
	}

	cmd.AddCommand(newSymbolsAddCmd(app))
	cmd.AddCommand(newSymbolsRemoveCmd(app))
	cmd.AddCommand(newSymbolsUpdateCmd(app))
	cmd.AddCommand(newSymbolsListCmd(app))
	cmd.AddCommand(newSymbolsSummaryCmd(app))
	cmd.AddCommand(newSymbolsSeedCmd(app))

	rootCmd.AddCommand(cmd)
}

func requireRegistry(app *App) error {
	if app.Registry == nil {
		return fmt.Errorf("data store unavailable")
	}
	return nil
}

func newSymbolsAddCmd(app *App) *cobra.Command {
	var name, notes string
	var threshold float64

	cmd := &cobra.Command{
		Use:   "add SYMBOL",
		Short: "Add a symbol to the watchlist",
		Long: `Add a symbol to the watchlist. The symbol is validated against the quote
provider before it is stored; unknown tickers are rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRegistry(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			ts, err := app.Registry.Add(cmd.Context(), registry.AddRequest{
				Symbol:         args[0],
				Name:           name,
				AlertThreshold: threshold,
				Notes:          notes,
			})
			if err != nil {
				if stderrors.Is(err, errors.ErrDuplicateSymbol) {
					output.Warning("%s is already tracked", args[0])
					return err
				}
				if stderrors.Is(err, errors.ErrInvalidSymbol) {
					output.Error("%s does not look like a valid ticker", args[0])
					return err
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(ts)
			}
			output.Success("✓ Added %s (id %d)", ts.Symbol, ts.ID)
			if ts.HasOverride() {
				output.Dim("Alert threshold override: %.2f%%", ts.AlertThreshold)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the provider's)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "per-symbol alert threshold override in percent")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	return cmd
}

func newSymbolsRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove SYMBOL",
		Aliases: []string{"rm"},
		Short:   "Remove a symbol from the watchlist",
		Long:    "Remove a symbol. Removing an untracked symbol is not an error.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRegistry(app); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := cmd.Context()

			ts, err := app.Registry.Lookup(ctx, args[0])
			if err != nil {
				if stderrors.Is(err, errors.ErrSymbolNotFound) {
					if output.IsJSON() {
						return output.JSON(map[string]bool{"removed": false})
					}
					output.Warning("%s was not tracked", args[0])
					return nil
				}
				return err
			}

			removed, err := app.Registry.Remove(ctx, ts.ID)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"removed": removed})
			}
			if removed {
				output.Success("✓ Removed %s", ts.Symbol)
			} else {
				output.Warning("%s was not tracked", args[0])
			}
			return nil
		},
	}
}

func newSymbolsUpdateCmd(app *App) *cobra.Command {
	var name, notes string
	var threshold float64
	var active bool

	cmd := &cobra.Command{
		Use:   "update SYMBOL",
		Short: "Update a tracked symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRegistry(app); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := cmd.Context()

			ts, err := app.Registry.Lookup(ctx, args[0])
			if err != nil {
				return err
			}

			var req registry.UpdateRequest
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("notes") {
				req.Notes = &notes
			}
			if cmd.Flags().Changed("threshold") {
				req.AlertThreshold = &threshold
			}
			if cmd.Flags().Changed("active") {
				req.IsActive = &active
			}

			updated, err := app.Registry.Update(ctx, ts.ID, req)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(updated)
			}
			output.Success("✓ Updated %s", updated.Symbol)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "alert threshold override in percent (0 clears the override)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().BoolVar(&active, "active", true, "whether the symbol is monitored")
	return cmd
}

func newSymbolsListCmd(app *App) *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tracked symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRegistry(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			symbols, err := app.Registry.List(cmd.Context())
			if err != nil {
				return err
			}
			if activeOnly {
				filtered := symbols[:0]
				for _, s := range symbols {
					if s.IsActive {
						filtered = append(filtered, s)
					}
				}
				symbols = filtered
			}

			if output.IsJSON() {
				return output.JSON(symbols)
			}
			if len(symbols) == 0 {
				output.Dim("No symbols tracked. Use 'stockwatch symbols add' to start.")
				return nil
			}

			table := NewTable(output, "ID", "SYMBOL", "NAME", "ACTIVE", "THRESHOLD", "ADDED")
			for _, s := range symbols {
				threshold := output.DimText("global")
				if s.HasOverride() {
					threshold = fmt.Sprintf("%.2f%%", s.AlertThreshold)
				}
				active := output.Green("yes")
				if !s.IsActive {
					active = output.Red("no")
				}
				table.AddRow(
					strconv.FormatInt(s.ID, 10),
					s.Symbol,
					s.Name,
					active,
					threshold,
					s.AddedDate.Format("2006-01-02"),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "show only active symbols")
	return cmd
}

func newSymbolsSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show watchlist summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRegistry(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			summary, err := app.Registry.Summary(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(summary)
			}

			output.Bold("Watchlist Summary")
			output.Printf("  Tracked:   %d\n", summary.Total)
			output.Printf("  Active:    %d\n", summary.Active)
			output.Printf("  Inactive:  %d\n", summary.Inactive)
			if summary.AverageThreshold > 0 {
				output.Printf("  Avg Override Threshold: %.2f%%\n", summary.AverageThreshold)
			}
			if summary.MostRecentAddition != nil {
				output.Printf("  Last Added: %s\n", summary.MostRecentAddition.Format(time.RFC1123))
			}
			return nil
		},
	}
}

func newSymbolsSeedCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the watchlist with the default ETF set",
		Long:  "Populate an empty watchlist with the built-in default ETF symbols. Does nothing when symbols already exist.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRegistry(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			if err := app.Registry.SeedDefaults(cmd.Context()); err != nil {
				return err
			}
			output.Success("✓ Watchlist seeded")
			return nil
		},
	}
}
