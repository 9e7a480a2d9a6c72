package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"stackhouse/internal/binaries"
)

// InstallReporter translates provisioning callbacks into row updates for
// the progress table. Safe for use from the installer's per-binary
// goroutines; tea.Program.Send is concurrency-safe.
type InstallReporter struct {
	send func(tea.Msg)
}

// NewInstallReporter wraps a send function, typically the one handed to
// RunWithWork's work callback.
func NewInstallReporter(send func(tea.Msg)) *InstallReporter {
	return &InstallReporter{send: send}
}

// Progress implements binaries.ProgressFunc.
func (r *InstallReporter) Progress(p binaries.Progress) {
	size := FormatBytes(p.Received)
	if p.Total > 0 {
		size = fmt.Sprintf("%s / %s", FormatBytes(p.Received), FormatBytes(p.Total))
	}
	r.send(RowUpdateMsg{
		Key: p.Binary,
		Fields: map[string]string{
			"STATUS": "downloading",
			"SIZE":   size,
		},
	})
}

// Stage reports a provisioning stage transition for one binary.
func (r *InstallReporter) Stage(binary string, stage binaries.Stage) {
	r.send(RowUpdateMsg{
		Key:    binary,
		Fields: map[string]string{"STATUS": string(stage)},
	})
}

// Record fills the final columns once a binary's outcome is known.
func (r *InstallReporter) Record(rec binaries.InstallationRecord) {
	status := "present"
	if rec.NewlyInstalled {
		status = "installed"
	}
	r.send(RowUpdateMsg{
		Key: rec.Binary,
		Fields: map[string]string{
			"STATUS":  status,
			"SIZE":    FormatBytes(rec.SizeBytes),
			"VERSION": NonEmptyOrDash(rec.Version),
		},
	})
}

// FormatBytes renders a byte count in a compact human form.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
