package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"stackhouse/internal/binaries"
	"stackhouse/internal/tui"
)

var (
	installForce      bool
	installNoProgress bool
)

func newBinariesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "binaries",
		Short: "Manage the provisioned executables",
	}

	cmd.AddCommand(newBinariesListCmd())
	cmd.AddCommand(newBinariesInstallCmd())

	return cmd
}

func newBinariesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the installation state of every managed binary",
		Args:  cobra.NoArgs,
		RunE:  runBinariesList,
	}
}

func runBinariesList(cmd *cobra.Command, _ []string) error {
	w, cfg, err := loadSetup()
	if err != nil {
		return err
	}
	plat, err := resolvePlatform()
	if err != nil {
		return err
	}
	installer := newInstaller(w, cfg, plat)

	records := make([]binaries.InstallationRecord, 0, len(binaries.Known()))
	for _, name := range binaries.Known() {
		rec, err := installer.Inspect(cmd.Context(), name)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	if outputJSON {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printRecordsTable(cmd, records)
	return nil
}

func newBinariesInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [binary|all]",
		Short: "Provision managed binaries",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBinariesInstall,
	}

	cmd.Flags().BoolVar(&installForce, "force", false, "Reinstall even when a working copy is present")
	cmd.Flags().BoolVar(&installNoProgress, "no-progress", false, "Disable the interactive progress display")

	return cmd
}

func runBinariesInstall(cmd *cobra.Command, args []string) error {
	target := "all"
	if len(args) == 1 {
		target = strings.ToLower(args[0])
	}

	var names []string
	if target == "all" {
		names = binaries.Known()
	} else {
		if _, err := binaries.Lookup(target); err != nil {
			return err
		}
		names = []string{target}
	}

	w, cfg, err := loadSetup()
	if err != nil {
		return err
	}
	if err := w.EnsureLayout(); err != nil {
		return err
	}
	plat, err := resolvePlatform()
	if err != nil {
		return err
	}
	installer := newInstaller(w, cfg, plat)

	if installForce {
		for _, name := range names {
			path, err := installer.InstalledPath(name)
			if err != nil {
				return err
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove %s for reinstall: %w", path, err)
			}
		}
	}

	return installAndReport(cmd, installer, names)
}

// installAndReport runs EnsureAll with the display appropriate for the
// terminal: a live table when interactive, a static table or JSON
// otherwise. Per-binary failures are reported and joined into the return
// error; one binary failing does not hide the others' outcomes.
func installAndReport(cmd *cobra.Command, installer *binaries.Installer, names []string) error {
	ctx := cmd.Context()
	mode := tui.DetectMode(cmd.OutOrStdout(), installNoProgress, outputJSON)

	var summary binaries.Summary
	if mode == tui.ModeTUI {
		columns := []tui.Column{
			{Header: "BINARY", Width: 12},
			{Header: "STATUS", Width: 12},
			{Header: "SIZE", Width: 20},
			{Header: "VERSION", Width: 32},
		}
		model := tui.NewProgressModel("binaries", columns)
		for _, name := range names {
			model.AddRow(name, []string{name, "pending", "-", "-"})
		}

		err := tui.RunWithWork(cmd.OutOrStdout(), model, func(send func(tea.Msg)) {
			reporter := tui.NewInstallReporter(send)
			installer.Progress = reporter.Progress
			installer.OnStage = reporter.Stage
			summary = installer.EnsureAll(ctx, names)
			for _, o := range summary.Outcomes {
				if o.Err == nil {
					reporter.Record(o.Record)
				}
			}
		})
		if err != nil {
			return err
		}
	} else {
		summary = installer.EnsureAll(ctx, names)
	}

	if outputJSON {
		data, err := json.MarshalIndent(summaryJSON(summary), "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return summary.Err()
	}

	if mode != tui.ModeTUI {
		records := make([]binaries.InstallationRecord, 0, len(summary.Outcomes))
		for _, o := range summary.Outcomes {
			if o.Err == nil {
				records = append(records, o.Record)
			}
		}
		if len(records) > 0 {
			printRecordsTable(cmd, records)
		}
	}

	cmd.Printf("\n%d newly installed, %d already present, %d failed\n",
		summary.NewlyInstalled, summary.AlreadyPresent, summary.Failed)
	for _, o := range summary.Outcomes {
		if o.Err != nil {
			cmd.Printf("  %s: %v\n", o.Name, o.Err)
		}
	}
	return summary.Err()
}

type installOutcomeJSON struct {
	Binary string                      `json:"binary"`
	Record binaries.InstallationRecord `json:"record"`
	Error  string                      `json:"error,omitempty"`
}

func summaryJSON(summary binaries.Summary) []installOutcomeJSON {
	out := make([]installOutcomeJSON, 0, len(summary.Outcomes))
	for _, o := range summary.Outcomes {
		entry := installOutcomeJSON{Binary: o.Name, Record: o.Record}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		}
		out = append(out, entry)
	}
	return out
}
