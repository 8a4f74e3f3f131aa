package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stockwatch/internal/models"
	"stockwatch/internal/prefs"
)

// addPrefsCommands adds alert preference commands.
func addPrefsCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "prefs",
		Aliases: []string{"preferences"},
		Short:   "Manage alert preferences",
		Long:    "View and change the global alerting preferences.",
	}

	cmd.AddCommand(newPrefsShowCmd(app))
	cmd.AddCommand(newPrefsSetCmd(app))
	cmd.AddCommand(newPrefsResetCmd(app))

	rootCmd.AddCommand(cmd)
}

func requirePrefs(app *App) error {
	if app.Prefs == nil {
		return fmt.Errorf("data store unavailable")
	}
	return nil
}

func newPrefsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePrefs(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			p, err := app.Prefs.Get(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(p)
			}
			printPreferences(output, p)
			return nil
		},
	}
}

func newPrefsSetCmd(app *App) *cobra.Command {
	var (
		threshold     float64
		cooldown      int
		maxPerDay     int
		active        bool
		email         bool
		includeAI     bool
		keyFactors    bool
		enforceLimits bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or more preferences",
		Long: `Change preferences. Only flags you pass are changed; everything else
keeps its current value.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePrefs(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			var req prefs.UpdateRequest
			if cmd.Flags().Changed("threshold") {
				req.GlobalAlertThreshold = &threshold
			}
			if cmd.Flags().Changed("cooldown") {
				req.CooldownMinutes = &cooldown
			}
			if cmd.Flags().Changed("max-per-day") {
				req.MaxAlertsPerDay = &maxPerDay
			}
			if cmd.Flags().Changed("active") {
				req.IsActive = &active
			}
			if cmd.Flags().Changed("email") {
				req.EmailAlertsEnabled = &email
			}
			if cmd.Flags().Changed("analysis") {
				req.IncludeAnalysis = &includeAI
			}
			if cmd.Flags().Changed("key-factors") {
				req.IncludeKeyFactors = &keyFactors
			}
			if cmd.Flags().Changed("enforce-rate-limits") {
				req.EnforceRateLimits = &enforceLimits
			}

			p, err := app.Prefs.Update(cmd.Context(), req)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(p)
			}
			output.Success("✓ Preferences updated")
			printPreferences(output, p)
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "global alert threshold in percent")
	cmd.Flags().IntVar(&cooldown, "cooldown", 0, "per-symbol cooldown between alerts in minutes")
	cmd.Flags().IntVar(&maxPerDay, "max-per-day", 0, "maximum alerts per UTC day")
	cmd.Flags().BoolVar(&active, "active", true, "master switch for alerting")
	cmd.Flags().BoolVar(&email, "email", true, "enable the email channel")
	cmd.Flags().BoolVar(&includeAI, "analysis", true, "include an analysis in alerts")
	cmd.Flags().BoolVar(&keyFactors, "key-factors", true, "include key factors in alerts")
	cmd.Flags().BoolVar(&enforceLimits, "enforce-rate-limits", true, "enforce cooldown and daily cap")
	return cmd
}

func newPrefsResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset preferences to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePrefs(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			p, err := app.Prefs.ResetToDefaults(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(p)
			}
			output.Success("✓ Preferences reset to defaults")
			printPreferences(output, p)
			return nil
		},
	}
}

func printPreferences(output *Output, p models.Preferences) {
	onOff := func(b bool) string {
		if b {
			return output.Green("on")
		}
		return output.Red("off")
	}

	output.Bold("Alert Preferences")
	output.Printf("  Global Threshold:    %.2f%%\n", p.GlobalAlertThreshold)
	output.Printf("  Cooldown:            %d min\n", p.CooldownMinutes)
	output.Printf("  Max Alerts/Day:      %d\n", p.MaxAlertsPerDay)
	output.Printf("  Alerting:            %s\n", onOff(p.IsActive))
	output.Printf("  Email Channel:       %s\n", onOff(p.EmailAlertsEnabled))
	output.Printf("  Include Analysis:    %s\n", onOff(p.IncludeAnalysis))
	output.Printf("  Include Key Factors: %s\n", onOff(p.IncludeKeyFactors))
	output.Printf("  Enforce Rate Limits: %s\n", onOff(p.EnforceRateLimits))
	if !p.UpdatedDate.IsZero() {
		output.Dim("Last updated: %s", p.UpdatedDate.Format(time.RFC1123))
	}
}
