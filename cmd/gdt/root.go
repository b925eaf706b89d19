package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/gatling-dashboard-tui/internal/app"
	"github.com/j-veylop/gatling-dashboard-tui/internal/config"
	"github.com/j-veylop/gatling-dashboard-tui/internal/logger"
	"github.com/j-veylop/gatling-dashboard-tui/internal/services"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/tabs/compare"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/tabs/info"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/tabs/runs"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/tabs/trends"
	"github.com/j-veylop/gatling-dashboard-tui/internal/version"
)

// errChecksFailed makes the process exit with status 1 without printing
// anything more.
var errChecksFailed = errors.New("checks failed")

var (
	cfg       *config.Config
	logCloser io.Closer

	resultsFlag  string
	databaseFlag string
	logLevelFlag string
)

// rootCmd runs the dashboard.
var rootCmd = &cobra.Command{
	Use:   "gdt",
	Short: "Gatling Dashboard TUI - browse, compare and check Gatling runs",
	Long: `Gatling Dashboard TUI - browse, compare and check Gatling runs

  Reads the js/stats.js snapshot of every run in a Gatling results folder,
  keeps them in a local SQLite database and shows them in the terminal.

  Quick start:
    gdt                                  run the dashboard
    gdt import target/gatling            store new runs
    gdt report target/gatling/mysim-20241109073731010
    gdt check  target/gatling/mysim-20241109073731010 --assertions perf.yaml

Keyboard Shortcuts:
  1-4             Switch between tabs (Runs, Trends, Compare, Info)
  Tab/Shift+Tab   Navigate between tabs
  j/k, Up/Down    Navigate lists
  r               Rescan results
  ?               Toggle help
  q, Ctrl+C       Quit

Environment Variables:
  RESULTS_PATH            Gatling results folder (default: ./results)
  DATABASE_PATH           SQLite database path
  ASSERTIONS_PATH         Assertions YAML file
  GATLING_CONF            gatling.conf with the charting indicators
  SCAN_INTERVAL           Rescan interval (default: 30s)
  REGRESSION_THRESHOLD    Regression threshold in percent (default: 10)
  NOTIFY                  Desktop notifications (default: false)
  LOG_PATH, LOG_LEVEL     Log file and level

Configuration:
  The first .env file found is loaded from the current directory, its
  parents, ~/.config/gatling-dashboard/.env or ~/.gatling-dashboard/.env.`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if resultsFlag != "" {
			cfg.ResultsPath = resultsFlag
		}
		if databaseFlag != "" {
			cfg.DatabasePath = databaseFlag
		}
		if logLevelFlag != "" {
			cfg.LogLevel = logLevelFlag
		}

		// stderr belongs to the dashboard, so logs go to a file
		logCloser, err = logger.Init(cfg.LogPath, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd.Context())
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := executeRoot(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errChecksFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// executeRoot runs the root command and closes the log file, also when
// the command failed.
func executeRoot(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if logCloser != nil {
		if closeErr := logCloser.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		logCloser = nil
	}
	return err
}

func init() {
	rootCmd.SetVersionTemplate(version.Info() + "\n")

	rootCmd.PersistentFlags().StringVar(&resultsFlag, "results", "", "Gatling results folder (overrides RESULTS_PATH)")
	rootCmd.PersistentFlags().StringVar(&databaseFlag, "db", "", "database path (overrides DATABASE_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)
}

// openManager creates the service manager from the loaded configuration.
func openManager() (*services.Manager, error) {
	mgr, err := services.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	return mgr, nil
}

func closeManager(mgr *services.Manager) {
	if err := mgr.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", err)
	}
}

// runDashboard contains the dashboard logic, separated for cleaner error
// handling.
func runDashboard(ctx context.Context) error {
	svcManager, err := openManager()
	if err != nil {
		return err
	}
	defer closeManager(svcManager)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Watches the results folder and imports new runs in the background
	if err := svcManager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start services: %w", err)
	}

	model := app.NewModel(svcManager)

	// Each tab receives the shared application state for consistent data access
	state := model.GetState()
	tabs := []app.Tab{
		runs.New(state, svcManager),                   // Tab 0: Runs - run list and stats
		trends.New(state, svcManager),                 // Tab 1: Trends - metric across runs
		compare.New(state, svcManager),                // Tab 2: Compare - deltas and assertions
		info.New(state, cfg, svcManager.Indicators()), // Tab 3: Info - configuration and app info
	}
	model.SetTabs(tabs)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// SIGINT/SIGTERM cancel ctx
	go func() {
		<-ctx.Done()
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
