package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/livedeck/internal/platform/tui"
	"github.com/vovakirdan/livedeck/internal/storage"
)

var (
	flagHistoryLimit       int
	flagHistoryAll         bool
	flagHistoryInteractive bool
	flagHistoryClear       bool
)

var historyCmd = &cobra.Command{
	Use:   "history [dir]",
	Short: "Show the reload journal",
	Long: `Display the most recent reload cascades recorded for a project.

Only cascades that changed something, or whose outcome differs from the
previous one, are journaled; idle polls are not.

Examples:
  deck history
  deck history mygame --limit 50
  deck history --all
  deck history mygame -i
  deck history mygame --clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Number of reloads to show")
	historyCmd.Flags().BoolVar(&flagHistoryAll, "all", false, "Show reloads of every project")
	historyCmd.Flags().BoolVarP(&flagHistoryInteractive, "interactive", "i", false, "Browse the journal in a table")
	historyCmd.Flags().BoolVar(&flagHistoryClear, "clear", false, "Delete the project's journal")
}

func runHistory(_ *cobra.Command, args []string) error {
	project := ""
	if !flagHistoryAll {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		project = abs
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("cannot open reload journal: %w", err)
	}
	defer store.Close()

	if flagHistoryClear {
		if project == "" {
			return fmt.Errorf("--clear needs a project, not --all")
		}
		if err := store.ClearReloads(project); err != nil {
			return err
		}
		fmt.Printf("Cleared reload journal of %s\n", project)
		return nil
	}

	if flagHistoryInteractive {
		width, height := 100, 30 // Defaults
		if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
			width, height = w, h
		}
		return tui.RunHistory(store, project, width, height)
	}

	entries, err := store.RecentReloads(project, flagHistoryLimit)
	if err != nil {
		return err
	}

	title := "all projects"
	if project != "" {
		title = project
	}
	fmt.Printf("Reload History - %s\n", title)
	fmt.Println()

	if len(entries) == 0 {
		fmt.Println("No reloads recorded yet.")
		fmt.Println()
		fmt.Println("Run 'deck run' and edit a file to record one.")
		return nil
	}

	// Print header
	fmt.Printf("  %-19s  %-9s  %8s  %-8s  %-5s  %s\n", "When", "Outcome", "ms", "Assets", "Flags", "Error")
	fmt.Printf("  %-19s  %-9s  %8s  %-8s  %-5s  %s\n", "----", "-------", "--", "------", "-----", "-----")

	for _, e := range entries {
		fmt.Printf("  %-19s  %-9s  %8.2f  %-8s  %-5s  %s\n",
			e.StartedAt.Format("2006-01-02 15:04:05"),
			e.Outcome,
			float64(e.Duration.Microseconds())/1000,
			fmt.Sprintf("%d/%d", e.Loaded, e.Assets),
			e.Flags(),
			e.Error,
		)
	}

	if project != "" {
		stats, err := store.Stats(project)
		if err == nil && stats.Total > 0 {
			fmt.Println()
			fmt.Printf("%d cascades, %d failed, %d full resets, average %v\n",
				stats.Total, stats.Failures, stats.FullResets, stats.AvgDuration)
		}
		if last, err := store.LastSuccess(project); err == nil && last != nil {
			fmt.Printf("Last good reload: %s\n", last.StartedAt.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}
