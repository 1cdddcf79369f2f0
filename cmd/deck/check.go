package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/livedeck/internal/deck"
	"github.com/vovakirdan/livedeck/internal/storage"
)

var (
	flagCheckJSON    bool
	flagCheckJournal bool
)

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Run one reload cascade and report the result",
	Long: `Load the project once, without a terminal UI, and print its settings,
every tracked asset and the outcome of the cascade. Exits non-zero when the
cascade fails, which makes it usable in CI and editor hooks.

Examples:
  deck check
  deck check mygame --json
  deck check mygame --journal`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&flagCheckJSON, "json", false, "Print the deck status as JSON")
	checkCmd.Flags().BoolVar(&flagCheckJournal, "journal", false, "Record the cascade in the reload journal")
	checkCmd.Flags().StringVar(&flagSettings, "settings", "", "Settings file inside the project")
}

func runCheck(_ *cobra.Command, args []string) error {
	root, err := projectDir(args)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, "deck")
	opts := deck.Options{
		Root:         root,
		SettingsFile: flagSettings,
		Logger:       logger,
	}
	var journal *storage.Store
	if flagCheckJournal {
		journal = openJournal(logger)
		if journal != nil {
			defer journal.Close()
			opts.Journal = journal
		}
	}

	d, err := deck.New(opts)
	if err != nil {
		return err
	}
	reloadErr := d.ForceReload()

	if flagCheckJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d.Status()); err != nil {
			return err
		}
	} else {
		printCheck(d)
	}

	if reloadErr != nil {
		return errors.New("reload failed")
	}
	return nil
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(10)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func printCheck(d *deck.Deck) {
	st := d.Settings()

	webserver := "off"
	if st.Webserver {
		webserver = "on"
	}
	fmt.Println(labelStyle.Render("Project") + d.Root())
	fmt.Println(labelStyle.Render("Name") + st.Name)
	fmt.Println(labelStyle.Render("Canvas") + fmt.Sprintf("%dx%d (display %dx%d, %s)",
		st.Width, st.Height, st.DisplayWidth, st.DisplayHeight, st.Orientation))
	fmt.Println(labelStyle.Render("Manifest") + st.ManifestPath)
	fmt.Println(labelStyle.Render("Main") + st.MainScript + dimStyle.Render(" on "+st.OnUpdate))
	fmt.Println(labelStyle.Render("Webserver") + webserver)
	fmt.Println()

	store := d.Store()
	rows := make([][]string, 0, store.Len())
	for _, a := range store.Assets() {
		policy, _ := store.Policy(a.Category)
		loaded := okStyle.Render("yes")
		if !a.Loaded() {
			loaded = failStyle.Render("no")
		}
		path, err := filepath.Rel(d.Root(), a.Path)
		if err != nil {
			path = a.Path
		}
		modified := "-"
		if !a.ModTime().IsZero() {
			modified = a.ModTime().Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{string(a.Category), a.Name, policy.String(), loaded, modified, path})
	}

	if len(rows) == 0 {
		fmt.Println(dimStyle.Render("No assets tracked."))
	} else {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
			Headers("Category", "Name", "Policy", "Loaded", "Modified", "Path").
			Rows(rows...)
		fmt.Println(t)
	}
	fmt.Println()

	c, ok := d.LastCascade()
	if !ok {
		return
	}
	outcome := okStyle.Render(c.Outcome())
	if c.Failed() {
		outcome = failStyle.Render(c.Outcome())
	}
	fmt.Printf("%s %s in %v, %d reloaded, %d/%d loaded\n",
		labelStyle.Render("Cascade"), outcome, c.Duration.Round(10*time.Microsecond), c.Reloaded, c.Loaded, c.Assets)
	fmt.Println(dimStyle.Render(c.TraceString()))
	if c.Failed() {
		fmt.Println()
		fmt.Println(failStyle.Render(c.ErrorText()))
	}
}
