// deck runs a terminal game project and reloads its content while you edit.
//
// Usage:
//
//	deck init [dir]      - Scaffold a starter project
//	deck run [dir]       - Run a project with live reload
//	deck check [dir]     - Run one reload cascade and report the result
//	deck history [dir]   - Show the reload journal
//	deck serve [dir]     - Serve a project over SSH
//
// Global flags:
//
//	--config <path>     - Tool config (default: ~/.deck/config.yaml, then ./deck.yaml)
//	--db <path>         - Reload journal (default: ~/.deck/reloads.db)
//	--log-level <level> - debug, info, warn or error
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/livedeck/internal/config"
	"github.com/vovakirdan/livedeck/internal/storage"
)

var (
	// Global flags
	flagConfig   string
	flagDBPath   string
	flagLogLevel string

	// cfg is the loaded tool config with global flag overrides applied.
	cfg config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "deck",
	Short: "livedeck - live-reloading terminal game runner",
	Long: `livedeck runs a terminal game project and reloads its settings,
manifest, scripts, textures, fonts and sounds while you edit them.

Available commands:
  init     - Scaffold a starter project
  run      - Run a project with live reload
  check    - Run one reload cascade and report the result
  history  - Show the reload journal
  serve    - Serve a project over SSH

Examples:
  deck init mygame
  deck run mygame
  deck check mygame --json
  deck history mygame -i
  deck serve mygame --ssh :2222`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to tool config YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to reload journal (default from config: ~/.deck/reloads.db)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, _, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	cfg = loaded

	if cmd.Flags().Changed("db") {
		cfg.DBPath = flagDBPath
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	return nil
}

// newLogger creates a logger at the configured level.
func newLogger(w io.Writer, prefix string) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
		Level:           level,
	})
}

// openLogFile opens the log file in append mode, creating its directory.
func openLogFile(path string) (*os.File, error) {
	path = config.ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// openJournal opens the reload journal. A failure is reported and the
// command continues without one.
func openJournal(logger *log.Logger) *storage.Store {
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Warn("could not open reload journal", "path", cfg.DBPath, "error", err)
		return nil
	}
	return store
}

// projectDir resolves the optional directory argument.
func projectDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project %s is not a directory", dir)
	}
	return abs, nil
}
