package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackhouse/internal/binaries"
	"stackhouse/internal/config"
	"stackhouse/internal/logx"
	"stackhouse/internal/paths"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the working directory and provision all managed binaries",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}

	cmd.Flags().BoolVar(&installNoProgress, "no-progress", false, "Disable the interactive progress display")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	w, err := resolveWorkdir()
	if err != nil {
		return err
	}
	if err := w.EnsureLayout(); err != nil {
		return err
	}

	created := make([]string, 0, 2)
	exists, err := paths.FileExists(w.ConfigFile)
	if err != nil {
		return fmt.Errorf("check config: %w", err)
	}
	if !exists {
		if err := config.Default().Save(w.ConfigFile); err != nil {
			return err
		}
		created = append(created, "stackhouse.yaml")
	}

	cfg, err := config.Load(w.ConfigFile)
	if err != nil {
		return err
	}

	logger, closer, err := logx.New(w)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Printf("init: workdir=%s", w.Root)

	plat, err := resolvePlatform()
	if err != nil {
		return err
	}
	logger.Printf("init: platform=%s", plat)

	installer := newInstaller(w, cfg, plat)
	installer.Logf = logger.Printf

	if !outputJSON {
		if len(created) > 0 {
			cmd.Printf("Initialized workdir at %s\n", w.Root)
			for _, entry := range created {
				cmd.Printf("  created %s\n", entry)
			}
		} else {
			cmd.Printf("Workdir already initialized at %s\n", w.Root)
		}
	}

	return installAndReport(cmd, installer, binaries.Known())
}
