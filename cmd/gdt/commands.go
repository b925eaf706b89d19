package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/j-veylop/gatling-dashboard-tui/internal/config"
	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/report"
	"github.com/j-veylop/gatling-dashboard-tui/internal/services/assertions"
	"github.com/j-veylop/gatling-dashboard-tui/internal/statsjs"
	"github.com/j-veylop/gatling-dashboard-tui/internal/version"
)

var importCmd = &cobra.Command{
	Use:   "import [results-dir]",
	Short: "Store the runs of a Gatling results folder that are not stored yet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			cfg.ResultsPath = args[0]
		}

		mgr, err := openManager()
		if err != nil {
			return err
		}
		defer closeManager(mgr)

		summary, err := mgr.Import(cmd.Context())
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, run := range summary.Imported {
			fmt.Fprintf(out, "imported  %s  (%s requests, %s KO)\n",
				run.ID, humanize.Comma(run.TotalRequests), humanize.Comma(run.KORequests))
		}

		failed := make([]string, 0, len(summary.Failed))
		for dir := range summary.Failed {
			failed = append(failed, dir)
		}
		sort.Strings(failed)
		for _, dir := range failed {
			fmt.Fprintf(out, "failed    %s: %v\n", dir, summary.Failed[dir])
		}

		fmt.Fprintf(out, "%d imported, %d failed, %d regressed, %d failed assertions\n",
			len(summary.Imported), len(summary.Failed), summary.Regressions, summary.FailedAssertions)
		return nil
	},
}

var (
	reportJSON    bool
	reportRequest string
)

var reportCmd = &cobra.Command{
	Use:   "report <run-dir|stats.js>",
	Short: "Print the statistics of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(args[0])
		if err != nil {
			return err
		}
		if reportRequest != "" {
			if snap, err = report.Subtree(snap, reportRequest); err != nil {
				return err
			}
		}

		if reportJSON {
			return report.WriteJSON(cmd.OutOrStdout(), snap)
		}

		ind, err := config.LoadIndicators(cfg.GatlingConfPath)
		if err != nil {
			return err
		}
		return report.WriteText(cmd.OutOrStdout(), snap, ind)
	},
}

var checkAssertions string

var checkCmd = &cobra.Command{
	Use:   "check <run-dir|stats.js>",
	Short: "Evaluate assertions against one run, exiting 1 when any fails",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := checkAssertions
		if path == "" {
			path = cfg.AssertionsPath
		}
		if path == "" {
			return fmt.Errorf("no assertions file: pass --assertions or set ASSERTIONS_PATH")
		}

		evaluator, err := assertions.LoadFile(path)
		if err != nil {
			return err
		}
		snap, err := loadSnapshot(args[0])
		if err != nil {
			return err
		}

		results := evaluator.Evaluate(cmd.Context(), snap)
		passed, err := report.WriteAssertions(cmd.OutOrStdout(), assertions.Outcomes(results))
		if err != nil {
			return err
		}
		if !passed {
			return errChecksFailed
		}
		return nil
	},
}

var (
	compareThreshold float64
	compareFail      bool
)

var compareCmd = &cobra.Command{
	Use:   "compare <baseline-run-id> <candidate-run-id>",
	Short: "Compare two stored runs request by request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		defer closeManager(mgr)

		if cmd.Flags().Changed("threshold") {
			mgr.Comparer().SetThreshold(compareThreshold)
		}

		cmp, err := mgr.Compare(args[0], args[1])
		if err != nil {
			return err
		}
		if err := report.WriteComparison(cmd.OutOrStdout(), cmp, mgr.Indicators()); err != nil {
			return err
		}
		if compareFail && cmp.HasRegression() {
			return errChecksFailed
		}
		return nil
	},
}

var (
	runsSimulation string
	runsLimit      int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		defer closeManager(mgr)

		runs, err := mgr.ListRuns(runsSimulation, runsLimit)
		if err != nil {
			return err
		}
		return report.WriteRuns(cmd.OutOrStdout(), runs)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Info())
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print JSON with the display slots keyed by ID")
	reportCmd.Flags().StringVar(&reportRequest, "request", "", "only print the request with this path")

	checkCmd.Flags().StringVar(&checkAssertions, "assertions", "", "assertions YAML file (overrides ASSERTIONS_PATH)")

	compareCmd.Flags().Float64Var(&compareThreshold, "threshold", config.DefaultRegressionThreshold, "regression threshold in percent")
	compareCmd.Flags().BoolVar(&compareFail, "fail-on-regression", false, "exit 1 when a request regressed")

	runsCmd.Flags().StringVar(&runsSimulation, "simulation", "", "only list runs of this simulation")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 50, "maximum number of runs")
}

// loadSnapshot parses a run directory, or a stats.js file inside one.
func loadSnapshot(path string) (*models.Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return statsjs.ParseRunDir(path)
	}

	root, err := statsjs.ParseFile(path)
	if err != nil {
		return nil, err
	}
	// <run-dir>/js/stats.js
	runDir := filepath.Dir(filepath.Dir(path))
	run := models.ParseRunID(filepath.Base(runDir))
	run.Path = runDir
	return &models.Snapshot{Run: run, Root: *root, ImportedAt: info.ModTime()}, nil
}
