// Package cli provides the command-line interface for the stock monitor.
package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stockwatch/internal/analysis"
	"stockwatch/internal/config"
	"stockwatch/internal/engine"
	"stockwatch/internal/history"
	"stockwatch/internal/logging"
	"stockwatch/internal/monitor"
	"stockwatch/internal/notify"
	"stockwatch/internal/prefs"
	"stockwatch/internal/quote"
	"stockwatch/internal/registry"
	"stockwatch/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-01-15"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.Store
	Registry *registry.Registry
	Prefs    *prefs.Store
	History  *history.Store
	Cache    *quote.Cache
	Monitor  *monitor.Monitor
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dataStore, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Storage.DBPath).Msg("SQLite store initialized")
	}

	yahoo := quote.NewYahooClient(
		cfg.Quotes.BaseURL,
		time.Duration(cfg.Quotes.TimeoutSeconds)*time.Second,
		logger,
	)
	// The breaker keeps a provider outage from turning every cycle into a
	// full watchlist of slow failures.
	provider := quote.NewBreaker(yahoo, quote.DefaultBreakerConfig())
	app.Cache = quote.NewCache(provider, time.Duration(cfg.Quotes.CacheTTLSecs)*time.Second, logger)

	if app.Store != nil {
		app.Registry = registry.New(app.Store, provider, logger)
		app.Prefs = prefs.New(app.Store, logger)
		app.History = history.New(app.Store, logger)

		// A fresh database starts with the default watchlist.
		if err := app.Registry.SeedDefaults(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Failed to seed default watchlist")
		}

		var analyzer analysis.Analyzer = analysis.NewStaticAnalyzer()
		if cfg.Credentials.OpenAI.APIKey != "" {
			analyzer = analysis.NewOpenAIAnalyzer(cfg.Credentials.OpenAI.APIKey, cfg.Analysis.Model)
			logger.Debug().Str("model", cfg.Analysis.Model).Msg("OpenAI analyzer initialized")
		}

		resolver := engine.NewResolver(app.Registry, app.Prefs)
		eng := engine.NewEngine(app.History, logger)
		notifier := notify.NewMultiNotifier(cfg.Notifications)

		app.Monitor = monitor.New(
			app.Cache, app.Registry, resolver, eng, app.History,
			notifier, analyzer, cfg.Monitor.FetchConcurrency, logger,
		)
	}

	rootCmd := &cobra.Command{
		Use:   "stockwatch",
		Short: "Stockwatch - stock price monitoring and alerting CLI",
		Long: `Stockwatch watches a list of stock symbols, checks their prices during
market hours, and sends an alert when a day's move crosses a configured
threshold. Alerts carry a short analysis of the move and are recorded in
a local history.

Use 'stockwatch help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/stockwatch)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addSymbolCommands(rootCmd, app)
	addPrefsCommands(rootCmd, app)
	addHistoryCommands(rootCmd, app)
	addMonitorCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Stockwatch v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Monitoring")
	output.Printf("  Market-Hours Schedule: %v\n", cfg.Monitor.MarketHoursSchedule)
	output.Printf("  Check Interval:        %d min\n", cfg.Monitor.CheckIntervalMinutes)
	output.Printf("  Fetch Concurrency:     %d\n", cfg.Monitor.FetchConcurrency)
	output.Println()

	output.Bold("Quotes")
	output.Printf("  Provider URL: %s\n", cfg.Quotes.BaseURL)
	output.Printf("  Timeout:      %ds\n", cfg.Quotes.TimeoutSeconds)
	output.Printf("  Cache TTL:    %ds\n", cfg.Quotes.CacheTTLSecs)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Database: %s\n", cfg.Storage.DBPath)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Terminal: %v\n", cfg.Notifications.Terminal)
	output.Printf("  Email:    %v\n", cfg.Notifications.Email.Enabled)
	output.Println()

	output.Bold("Analysis")
	output.Printf("  Model:          %s\n", cfg.Analysis.Model)
	output.Printf("  OpenAI API Key: %s\n", maskKey(cfg.Credentials.OpenAI.APIKey))

	return nil
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
