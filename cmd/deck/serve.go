package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/livedeck/internal/deck"
	"github.com/vovakirdan/livedeck/internal/platform/tui"
	"github.com/vovakirdan/livedeck/internal/telemetry"
)

var (
	flagSSHAddr     string
	flagHostKey     string
	flagIdleTimeout time.Duration
	flagMetricsAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Serve a project over SSH",
	Long: `Start an SSH server that runs the project for every connection.

Each SSH session gets its own deck on the shared project directory and picks
up edits by polling, so a whole team can watch the game change while one
person edits it. All sessions write to the same reload journal.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.deck/host_key

Examples:
  deck serve mygame                     # Listen on :23234 with auto-generated key
  deck serve mygame --ssh :2222         # Listen on port 2222
  deck serve mygame --metrics :7331     # Also expose Prometheus metrics

Users can connect with:
  ssh localhost -p 23234`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH server address (default from config: :23234)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().DurationVar(&flagIdleTimeout, "idle-timeout", 0, "Idle timeout before disconnecting (default from config: 30m)")
	serveCmd.Flags().StringVar(&flagMetricsAddr, "metrics", "", "Serve /metrics on this address")
	serveCmd.Flags().DurationVar(&flagPoll, "poll", 0, "Reload poll interval per session (default from config: 500ms)")
	serveCmd.Flags().BoolVar(&flagNoJournal, "no-journal", false, "Do not record reloads")
	serveCmd.Flags().StringVar(&flagSettings, "settings", "", "Settings file inside the project")
}

func runServe(_ *cobra.Command, args []string) error {
	root, err := projectDir(args)
	if err != nil {
		return err
	}

	if flagSSHAddr != "" {
		cfg.SSH.Addr = flagSSHAddr
	}
	if flagHostKey != "" {
		cfg.SSH.HostKey = flagHostKey
	}
	if flagIdleTimeout > 0 {
		cfg.SSH.IdleTimeout = flagIdleTimeout
	}
	if flagPoll > 0 {
		cfg.Run.Poll = flagPoll
	}

	logger := newLogger(os.Stderr, "deck-ssh")

	sshCfg := tui.DefaultSSHServerConfig()
	sshCfg.Address = cfg.SSH.Addr
	sshCfg.HostKeyPath = cfg.SSH.HostKey
	sshCfg.IdleTimeout = cfg.SSH.IdleTimeout
	sshCfg.Root = root
	sshCfg.SettingsFile = flagSettings
	sshCfg.FPS = cfg.Run.FPS
	sshCfg.Poll = cfg.Run.Poll
	sshCfg.Logger = logger

	if !flagNoJournal {
		if journal := openJournal(logger); journal != nil {
			defer journal.Close()
			sshCfg.Journal = journal
		}
	}

	if flagMetricsAddr != "" {
		collector := telemetry.NewCollector(cfg.HTTP.Namespace, nil)
		metrics := telemetry.NewServer(flagMetricsAddr, collector, nil, logger.WithPrefix("http"))
		if err := metrics.Start(); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			//nolint:errcheck // Best-effort shutdown on exit
			metrics.Stop(ctx)
		}()
		sshCfg.Observers = []deck.Observer{collector}
	}

	server, err := tui.NewSSHServer(sshCfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	fmt.Printf("Serving %s over SSH on %s\n", root, server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	return server.ListenAndServe()
}
