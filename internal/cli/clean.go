package cli

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"stackhouse/internal/tui"
)

var (
	cleanDryRun bool
	cleanLogs   bool
)

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove download scratch space",
		Long: "clean removes the cache directory's contents: partially downloaded\n" +
			"assets, extraction scratch, and stale install locks. Installed binaries,\n" +
			"projects and configuration are never touched.",
		Args: cobra.NoArgs,
		RunE: runClean,
	}

	cmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Report what would be removed without removing it")
	cmd.Flags().BoolVar(&cleanLogs, "logs", false, "Also remove accumulated log files")

	return cmd
}

type cleanResult struct {
	Removed    []string `json:"removed"`
	FreedBytes int64    `json:"freed_bytes"`
	DryRun     bool     `json:"dry_run"`
}

func runClean(cmd *cobra.Command, _ []string) error {
	w, err := resolveWorkdir()
	if err != nil {
		return err
	}

	result := cleanResult{Removed: []string{}, DryRun: cleanDryRun}

	dirs := []string{w.CacheDir}
	if cleanLogs {
		dirs = append(dirs, w.LogsDir)
	}
	for _, dir := range dirs {
		if err := cleanDir(dir, &result); err != nil {
			return err
		}
	}

	if outputJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(result.Removed) == 0 {
		cmd.Println("Nothing to clean.")
		return nil
	}
	verb := "Removed"
	if result.DryRun {
		verb = "Would remove"
	}
	for _, path := range result.Removed {
		cmd.Printf("%s %s\n", verb, path)
	}
	cmd.Printf("%s %s total\n", verb, tui.FormatBytes(result.FreedBytes))
	return nil
}

// cleanDir removes the immediate children of dir, accumulating their
// recursive sizes. The directory itself stays in place.
func cleanDir(dir string, result *cleanResult) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		size, err := treeSize(path)
		if err != nil {
			return err
		}
		if !cleanDryRun {
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("remove %s: %w", path, err)
			}
		}
		result.Removed = append(result.Removed, path)
		result.FreedBytes += size
	}
	return nil
}

func treeSize(path string) (int64, error) {
	var total int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measure %s: %w", path, err)
	}
	return total, nil
}
