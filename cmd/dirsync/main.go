package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dirsync/internal/app"
	"dirsync/internal/config"
	"dirsync/internal/dirsync"
	"dirsync/internal/progress"
	"dirsync/internal/ui"
)

// exitCanceled follows the shell convention for termination by SIGINT.
const exitCanceled = 130

var exitCode int

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// loadConfig reads the config file, falling back to defaults when it does not exist.
func loadConfig() (*config.Config, *app.Defaults, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.LoadOrDefault(defaults.ConfigPath, defaults.BaseDir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults, nil
}

// newApp reads the config and creates a SyncApp. The caller must defer app.Close().
func newApp(verbose bool) (*app.SyncApp, *config.Config, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.NewSyncApp(cfg, app.Options{Verbose: verbose})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, cfg, nil
}

var rootCmd = &cobra.Command{
	Use:          "dirsync",
	Short:        "Two-way directory synchronization",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync [LEFT RIGHT]",
	Short: "Synchronize two directories in both directions",
	Long: `Synchronize two directories in both directions.

Files present on one side only are copied to the other. Files present on
both sides are compared by modification time (the newer one wins) or, with
--hash, by content. Every overwritten file is moved into a .backup directory
next to it first.

Without arguments on a terminal, both directories are asked for.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")
		conflict, _ := cmd.Flags().GetString("conflict")

		left, right, err := app.NewResolver(args, os.Stdin, os.Stdout).Resolve()
		if err != nil {
			return err
		}

		a, cfg, err := newApp(verbose)
		if err != nil {
			return err
		}
		defer a.Close()

		hash := cfg.Sync.Hash
		if cmd.Flags().Changed("hash") {
			hash, _ = cmd.Flags().GetBool("hash")
		}
		opts, err := a.PlanOptions(hash, conflict)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if dryRun {
			plan, err := a.Plan(ctx, left, right, opts)
			if err != nil {
				return canceledOr(err)
			}
			ui.PrintPlan(os.Stdout, plan)
			return nil
		}

		var confirm dirsync.ConfirmFunc
		switch {
		case yes:
			confirm = app.AutoConfirm(os.Stdout)
		case app.IsInteractive(os.Stdin):
			confirm = app.PromptConfirm(os.Stdin, os.Stdout)
		default:
			confirm = func(plan *dirsync.Plan) bool {
				ui.PrintPlan(os.Stdout, plan)
				fmt.Fprintln(os.Stdout, ui.StatusWarning("stdin is not a terminal; rerun with --yes to apply"))
				return false
			}
		}

		var bar *progress.Bar
		onProgress := func(fraction float64) {
			if bar != nil {
				bar.Update(fraction)
			}
		}
		wrapped := func(plan *dirsync.Plan) bool {
			if !confirm(plan) {
				return false
			}
			bar = progress.New(progress.Options{Total: len(plan.Actions), Description: "Syncing"})
			return true
		}

		summary, err := a.Sync(ctx, left, right, opts, wrapped, onProgress)
		if err != nil {
			return canceledOr(err)
		}
		if bar != nil {
			bar.Finish()
		}
		if summary.Status == dirsync.StatusNothingToDo {
			ui.PrintPlan(os.Stdout, summary.Plan)
		}
		ui.PrintSummary(os.Stdout, summary)

		if summary.Status == dirsync.StatusCanceled {
			exitCode = exitCanceled
		}
		return nil
	},
}

// canceledOr turns an interrupt during planning into the canceled exit code.
// Any other error is returned unchanged.
func canceledOr(err error) error {
	if !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintln(os.Stdout, ui.StatusWarning("Synchronization canceled before any change was applied."))
	exitCode = exitCanceled
	return nil
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View sync run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, _, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No sync runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if !r.FinishedAt.IsZero() {
				duration = r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %s  %-9s  %-23s  %d/%d applied, %d failed  %s\n",
				r.ID,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Mode,
				r.Status,
				r.Applied,
				r.Planned,
				r.Failed,
				duration,
			)
			fmt.Printf("    %s %s %s\n", r.LeftRoot, ui.Dim("<->"), r.RightRoot)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show the actions of one sync run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.RunActions(args[0])
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Printf("No actions recorded for run %s.\n", args[0])
			return nil
		}

		for _, r := range results {
			line := fmt.Sprintf("%s %s %s %s", ui.ActionLabel(r.Action.Kind), r.Action.Source, ui.Dim("->"), r.Action.Destination)
			if r.Err != nil {
				fmt.Println(ui.StatusError(fmt.Sprintf("%s: %v", line, r.Err)))
				continue
			}
			fmt.Println(ui.StatusSuccess(line))
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ClearHistory(); err != nil {
			return err
		}
		fmt.Println("Sync history cleared.")
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:        %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:         %s\n", cfg.LogDir)
		fmt.Printf("Hash Mode:       %t\n", cfg.Sync.Hash)
		fmt.Printf("Conflict Policy: %s\n", cfg.Sync.ConflictPolicy)
		fmt.Printf("Journal File:    %s\n", valueOr(cfg.Sync.JournalFile, "(disabled)"))
		fmt.Printf("Database:        %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Ignore:          %s\n", valueOr(strings.Join(cfg.Filesystem.Ignore, ", "), "(none)"))
		return nil
	},
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func init() {
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable coloured output")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("hash", false, "Compare files by content hash instead of modification time")
	syncCmd.Flags().Bool("dry-run", false, "Print the plan without applying it")
	syncCmd.Flags().BoolP("yes", "y", false, "Apply without asking for confirmation")
	syncCmd.Flags().String("conflict", "", "Hash-mode conflict policy: both, newer or skip")
	syncCmd.Flags().BoolP("verbose", "v", false, "Log debug output to stderr")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(configCmd)
}
