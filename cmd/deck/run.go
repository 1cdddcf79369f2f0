package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/livedeck/internal/deck"
	"github.com/vovakirdan/livedeck/internal/platform/tui"
	"github.com/vovakirdan/livedeck/internal/settings"
	"github.com/vovakirdan/livedeck/internal/storage"
	"github.com/vovakirdan/livedeck/internal/telemetry"
	"github.com/vovakirdan/livedeck/internal/watch"
)

var (
	flagFPS       int
	flagPoll      time.Duration
	flagNoWatch   bool
	flagNoJournal bool
	flagHTTPAddr  string
	flagLogFile   string
	flagSettings  string
)

var runCmd = &cobra.Command{
	Use:   "run [dir]",
	Short: "Run a project with live reload",
	Long: `Run the project in the given directory (default: current directory).

Every change to the settings file, the manifest or a listed asset is picked
up without restarting: a file watcher triggers a reload cascade, and a poll
timer catches anything the watcher misses. A broken edit keeps the last
good frame on screen together with the error until the next good save.

While the settings file sets "webserver: true", a status server exposes
/metrics, /status, /healthz and a /events websocket.

Controls:
  R          - Reload now
  G          - Simulate a display context reset
  P/Space    - Pause frame updates
  H/Tab      - Reload history
  Ctrl+S     - Save a screenshot
  ?          - More keys
  Q/Ctrl+C   - Quit

Examples:
  deck run
  deck run mygame --fps 60
  deck run mygame --no-watch --poll 250ms
  deck run mygame --http 0.0.0.0:7331`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&flagFPS, "fps", 0, "Frame rate (default from config: 30)")
	runCmd.Flags().DurationVar(&flagPoll, "poll", 0, "Reload poll interval, 0 keeps the config value (default 500ms)")
	runCmd.Flags().BoolVar(&flagNoWatch, "no-watch", false, "Disable the file watcher and rely on polling")
	runCmd.Flags().BoolVar(&flagNoJournal, "no-journal", false, "Do not record reloads")
	runCmd.Flags().StringVar(&flagHTTPAddr, "http", "", "Status server address (default from config: 127.0.0.1:7331)")
	runCmd.Flags().StringVar(&flagLogFile, "log", "", "Log file (default from config: ~/.deck/deck.log)")
	runCmd.Flags().StringVar(&flagSettings, "settings", "", "Settings file inside the project (default: "+settings.SettingsFile+")")
}

func runRun(_ *cobra.Command, args []string) error {
	root, err := projectDir(args)
	if err != nil {
		return err
	}

	if flagFPS > 0 {
		cfg.Run.FPS = flagFPS
	}
	if flagPoll > 0 {
		cfg.Run.Poll = flagPoll
	}
	if flagHTTPAddr != "" {
		cfg.HTTP.Addr = flagHTTPAddr
	}
	if flagLogFile != "" {
		cfg.LogFile = flagLogFile
	}

	warnSmallTerminal(root)

	// The terminal belongs to the UI, so logs go to a file
	logFile, err := openLogFile(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("cannot open log file: %w", err)
	}
	defer logFile.Close()
	logger := newLogger(logFile, "deck")

	var journal *storage.Store
	if !flagNoJournal {
		journal = openJournal(logger)
		if journal != nil {
			defer journal.Close()
		}
	}

	var d *deck.Deck
	collector := telemetry.NewCollector(cfg.HTTP.Namespace, nil)
	server := telemetry.NewServer(cfg.HTTP.Addr, collector, func() deck.Status {
		return d.Status()
	}, logger.WithPrefix("http"))

	opts := deck.Options{
		Root:         root,
		SettingsFile: flagSettings,
		Logger:       logger,
		Observers:    []deck.Observer{collector, server},
	}
	if journal != nil {
		opts.Journal = journal
	}
	d, err = deck.New(opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes chan []string
	if cfg.Watch.Enabled && !flagNoWatch {
		changes, err = startWatcher(ctx, root, logger)
		if err != nil {
			logger.Warn("file watcher unavailable, polling only", "error", err)
		}
	}

	runErr := tui.Run(d, tui.Options{
		FPS:     cfg.Run.FPS,
		Poll:    cfg.Run.Poll,
		Changes: changes,
		Journal: journal,
		AfterReload: func(d *deck.Deck) {
			if err := server.Sync(d.Settings().Webserver); err != nil {
				logger.Warn("status server", "error", err)
			}
		},
		Logger: logger,
	})

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	//nolint:errcheck // Best-effort shutdown on exit
	server.Stop(stopCtx)

	return runErr
}

// startWatcher watches root and forwards change batches. A batch arriving
// while the previous one is still queued is dropped: the cascade it would
// trigger compares modification times and sees every change anyway.
func startWatcher(ctx context.Context, root string, logger *log.Logger) (chan []string, error) {
	wcfg := watch.DefaultConfig(root)
	if cfg.Watch.Debounce > 0 {
		wcfg.Debounce = cfg.Watch.Debounce
	}
	wcfg.Extensions = cfg.Watch.Extensions
	wcfg.Ignore = append(wcfg.Ignore, cfg.Watch.Ignore...)

	w, err := watch.New(wcfg, logger.WithPrefix("watch"))
	if err != nil {
		return nil, err
	}

	// Never closed: the debounce timer may still fire after Watch returns
	changes := make(chan []string, 1)
	go func() {
		err := w.Watch(ctx, func(paths []string) {
			select {
			case changes <- paths:
			default:
			}
		})
		if err != nil {
			logger.Warn("file watcher stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		//nolint:errcheck // Stop after the UI exits
		w.Stop()
	}()
	return changes, nil
}

// warnSmallTerminal compares the project's display size with the terminal
// before the UI takes over the screen.
func warnSmallTerminal(root string) {
	file := flagSettings
	if file == "" {
		file = settings.SettingsFile
	}
	st, _, err := settings.Load(filepath.Join(root, file), settings.Default())
	if err != nil {
		return
	}

	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return
	}
	// Border and status lines
	needW, needH := st.DisplayWidth+2, st.DisplayHeight+4
	if w < needW || h < needH {
		fmt.Fprintf(os.Stderr, "Warning: terminal is %dx%d, %s wants %dx%d\n", w, h, file, needW, needH)
		time.Sleep(time.Second)
	}
}
