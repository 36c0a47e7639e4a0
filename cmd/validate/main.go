package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"

	"github.com/jwebster45206/choice-engine/internal/config"
	"github.com/jwebster45206/choice-engine/internal/logger"
	"github.com/jwebster45206/choice-engine/pkg/content"
	"github.com/spf13/cobra"
)

var errValidationFailed = errors.New("validation found errors")

var filenamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var watch, strict bool

	cmd := &cobra.Command{
		Use:   "validate [path...]",
		Short: "Check content bundles for authoring errors",
		Long: "Validates JSON and YAML content bundles. Paths may be files or directories;\n" +
			"with no paths, CONTENT_PATH is used.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.SetupWriter(cfg, cmd.ErrOrStderr())

			if len(args) == 0 {
				args = []string{cfg.ContentPath}
			}

			failed := false
			for _, path := range args {
				ok, err := validatePath(cmd.OutOrStdout(), path, strict)
				if err != nil {
					return err
				}
				failed = failed || !ok
			}

			if watch {
				return watchPaths(cmd.Context(), cmd.OutOrStdout(), args, strict)
			}
			if failed {
				return errValidationFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and re-validate files as they change")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	return cmd
}

// validatePath validates every content file under path. It reports false
// when any file has errors, or warnings in strict mode.
func validatePath(w io.Writer, path string, strict bool) (bool, error) {
	files, err := contentFiles(path)
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		fmt.Fprintf(w, "No content files found in %s\n", path)
		return true, nil
	}

	allOK := true
	for _, file := range files {
		b, err := content.LoadFile(file)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", file, err)
			allOK = false
			continue
		}
		report := content.Validate(b)
		if !checkFilename(file) {
			report.Issues = append(report.Issues, content.Issue{
				Severity: content.SeverityWarn,
				Code:     "invalid_filename",
				Entity:   filepath.Base(file),
				Message:  "content filenames should be lowercase snake_case",
			})
		}
		if !printReport(w, file, report, strict) {
			allOK = false
		}
	}
	return allOK, nil
}

func contentFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && content.IsContentFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", path, err)
	}
	return files, nil
}

func checkFilename(path string) bool {
	base := filepath.Base(path)
	return filenamePattern.MatchString(strings.TrimSuffix(base, filepath.Ext(base)))
}

func printReport(w io.Writer, file string, report *content.Report, strict bool) bool {
	errs := report.Errors()
	warns := report.Warnings()

	if len(errs) == 0 && len(warns) == 0 {
		fmt.Fprintf(w, "%s: no issues found\n", file)
		return true
	}

	fmt.Fprintf(w, "%s:\n", file)
	if len(errs) > 0 {
		fmt.Fprintf(w, "  Errors (%d):\n", len(errs))
		printIssues(w, errs)
	}
	if len(warns) > 0 {
		fmt.Fprintf(w, "  Warnings (%d):\n", len(warns))
		printIssues(w, warns)
	}
	return len(errs) == 0 && !(strict && len(warns) > 0)
}

func printIssues(w io.Writer, issues []content.Issue) {
	for _, issue := range issues {
		if issue.Entity != "" {
			fmt.Fprintf(w, "  - [%s] %s: %s\n", issue.Code, issue.Entity, issue.Message)
		} else {
			fmt.Fprintf(w, "  - [%s] %s\n", issue.Code, issue.Message)
		}
	}
}

// watchPaths re-validates files as they change until interrupted.
func watchPaths(ctx context.Context, w io.Writer, paths []string, strict bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, path := range paths {
		watcher, err := content.NewWatcher(path, func(res content.Result) {
			if res.Err != nil {
				fmt.Fprintf(w, "%s: %v\n", res.Path, res.Err)
				return
			}
			printReport(w, res.Path, res.Report, strict)
		}, nil)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	fmt.Fprintln(w, "Watching for changes. Press Ctrl+C to stop.")
	<-ctx.Done()
	return nil
}
