package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stackhouse/internal/binaries"
	"stackhouse/internal/paths"
	"stackhouse/internal/platform"
)

func newSystemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Inspect the stackhouse installation",
	}

	cmd.AddCommand(newSystemStatusCmd())

	return cmd
}

func newSystemStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show workdir layout, host details, and binary state",
		Args:  cobra.NoArgs,
		RunE:  runSystemStatus,
	}
}

type systemStatusReport struct {
	Workdir     string                        `json:"workdir"`
	Initialized bool                          `json:"initialized"`
	Platform    string                        `json:"platform,omitempty"`
	Host        platform.HostInfo             `json:"host"`
	Entries     []workdirEntry                `json:"entries"`
	Binaries    []binaries.InstallationRecord `json:"binaries"`
}

type workdirEntry struct {
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
}

func runSystemStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	w, cfg, err := loadSetup()
	if err != nil {
		return err
	}

	report := systemStatusReport{Workdir: w.Root}

	report.Initialized, err = paths.DirExists(w.Root)
	if err != nil {
		return fmt.Errorf("check workdir: %w", err)
	}

	for _, dir := range []string{w.BinDir, w.CacheDir, w.ProjectsDir, w.LogsDir} {
		exists, err := paths.DirExists(dir)
		if err != nil {
			return fmt.Errorf("check %s: %w", dir, err)
		}
		report.Entries = append(report.Entries, workdirEntry{Name: filepath.Base(dir), Exists: exists})
	}
	configExists, err := paths.FileExists(w.ConfigFile)
	if err != nil {
		return fmt.Errorf("check config: %w", err)
	}
	report.Entries = append(report.Entries, workdirEntry{Name: filepath.Base(w.ConfigFile), Exists: configExists})

	plat, platErr := resolvePlatform()
	if platErr == nil {
		report.Platform = plat.String()

		installer := newInstaller(w, cfg, plat)
		for _, name := range binaries.Known() {
			rec, err := installer.Inspect(ctx, name)
			if err != nil {
				return err
			}
			report.Binaries = append(report.Binaries, rec)
		}
	}

	report.Host, err = platform.Describe(ctx)
	if err != nil {
		return err
	}

	if outputJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return platErr
	}

	cmd.Printf("Workdir: %s\n", report.Workdir)
	if !report.Initialized {
		cmd.Println("  not initialized (run `stackhouse init`)")
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, entry := range report.Entries {
		state := "missing"
		if entry.Exists {
			state = "ok"
		}
		fmt.Fprintf(tw, "  %s\t%s\n", entry.Name, state)
	}
	tw.Flush()

	if report.Platform != "" {
		cmd.Printf("\nPlatform: %s\n", report.Platform)
	}
	if report.Host.Platform != "" {
		cmd.Printf("Host: %s %s (%s)\n", report.Host.Platform, report.Host.Version, report.Host.Family)
	}

	if len(report.Binaries) > 0 {
		cmd.Println()
		printRecordsTable(cmd, report.Binaries)
	}

	return platErr
}
