package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stackhouse/internal/binaries"
	"stackhouse/internal/config"
	"stackhouse/internal/paths"
	"stackhouse/internal/platform"
	"stackhouse/internal/tui"
)

// Seams for tests: commands resolve the platform and build installers
// through these variables so tests can pin a platform and substitute
// fake runners or HTTP clients.
var (
	resolvePlatform = platform.Resolve

	newInstaller = func(w paths.Workdir, cfg config.Config, plat platform.Platform) *binaries.Installer {
		return &binaries.Installer{
			BinDir:   w.BinDir,
			CacheDir: w.CacheDir,
			Platform: plat,
			Retries:  cfg.Download.Retries,
		}
	}
)

func resolveWorkdir() (paths.Workdir, error) {
	return paths.Resolve(workdirFlag)
}

func loadSetup() (paths.Workdir, config.Config, error) {
	w, err := resolveWorkdir()
	if err != nil {
		return paths.Workdir{}, config.Config{}, err
	}
	cfg, err := config.Load(w.ConfigFile)
	if err != nil {
		return paths.Workdir{}, config.Config{}, err
	}
	return w, cfg, nil
}

func printRecordsTable(cmd *cobra.Command, records []binaries.InstallationRecord) {
	rows := make([]binaries.InstallationRecord, len(records))
	copy(rows, records)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Binary < rows[j].Binary })

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "BINARY\tSTATUS\tSIZE\tVERSION\tPATH")
	for _, rec := range rows {
		status := "missing"
		switch {
		case rec.NewlyInstalled:
			status = "installed"
		case rec.Ready():
			status = "present"
		case rec.Exists:
			status = "not executable"
		}
		size := "-"
		if rec.Exists {
			size = tui.FormatBytes(rec.SizeBytes)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			rec.Binary, status, size, tui.NonEmptyOrDash(rec.Version), rec.Path)
	}
}
