package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/livedeck/internal/settings"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Scaffold a starter project",
	Long: `Write a small starter project into dir (default: current directory):
a settings file, a manifest, two scene scripts, textures, a font and sounds.
Existing files are never overwritten.

Examples:
  deck init mygame
  deck run mygame`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(_ *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	files, err := settings.Scaffold(dir)
	if err != nil {
		return err
	}

	fmt.Printf("Created %d files in %s:\n", len(files), dir)
	for _, f := range files {
		fmt.Printf("  %s\n", f)
	}
	fmt.Println()
	fmt.Printf("Run 'deck run %s' and edit any file to see it reload.\n", dir)
	return nil
}
