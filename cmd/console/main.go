package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/internal/config"
	"github.com/jwebster45206/choice-engine/internal/logger"
	"github.com/jwebster45206/choice-engine/internal/storage"
	"github.com/jwebster45206/choice-engine/pkg/content"
	pkgstorage "github.com/jwebster45206/choice-engine/pkg/storage"
	"github.com/spf13/cobra"
)

type ConsoleConfig struct {
	GameVersion string
	BundleFile  string    // Play this file directly, skipping bundle selection
	LoadID      uuid.UUID // Resume this save once content is loaded
	Timeout     time.Duration
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var loadID string
	var listSaves bool

	cmd := &cobra.Command{
		Use:          "console [bundle-file]",
		Short:        "Play choice-engine content in the terminal",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, closeLog, err := logger.SetupFile(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			store, err := storage.New(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer store.Close()

			if listSaves {
				return printSaves(ctx, cmd.OutOrStdout(), store)
			}

			ccfg := &ConsoleConfig{
				GameVersion: cfg.GameVersion,
				Timeout:     10 * time.Second,
			}
			if len(args) == 1 {
				ccfg.BundleFile = args[0]
			} else if info, err := os.Stat(cfg.ContentPath); err == nil && !info.IsDir() {
				ccfg.BundleFile = cfg.ContentPath
			}
			if loadID != "" {
				id, err := uuid.Parse(loadID)
				if err != nil {
					return fmt.Errorf("invalid save ID %q: %w", loadID, err)
				}
				ccfg.LoadID = id
			}

			p := tea.NewProgram(NewConsoleUI(ccfg, store, log),
				tea.WithAltScreen(),
				tea.WithMouseCellMotion())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running program: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&loadID, "load", "", "resume the save with this ID")
	cmd.Flags().BoolVar(&listSaves, "list-saves", false, "list saved games and exit")
	return cmd
}

func printSaves(ctx context.Context, w io.Writer, store pkgstorage.SaveStore) error {
	saves, err := store.ListGames(ctx)
	if err != nil {
		return err
	}
	if len(saves) == 0 {
		fmt.Fprintln(w, "No saved games.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tSAVED AT")
	for _, s := range saves {
		savedAt := "unknown"
		if !s.SavedAt.IsZero() {
			savedAt = s.SavedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Version, savedAt)
	}
	return tw.Flush()
}

// sortedTitles orders bundle titles for the selection menu
func sortedTitles(bundles map[string]string) []string {
	titles := make([]string, 0, len(bundles))
	for title := range bundles {
		titles = append(titles, title)
	}
	slices.Sort(titles)
	return titles
}

// loadBundleFile is used when a single content file is named
func loadBundleFile(path string) (*content.Bundle, error) {
	b, err := content.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if report := content.Validate(b); report.HasErrors() {
		return nil, fmt.Errorf("%s has %d content errors; run validate for details", path, len(report.Errors()))
	}
	return b, nil
}
