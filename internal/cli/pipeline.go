package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"stackhouse/internal/binaries"
	"stackhouse/internal/config"
	"stackhouse/internal/logx"
	"stackhouse/internal/pipeline"
	"stackhouse/internal/project"
	"stackhouse/internal/supervise"
	"stackhouse/internal/tui"
)

// Additional seams for tests: the spawner normally wraps a real
// supervisor, and the poll interval is shortened in tests.
var (
	newSpawner = func(logf func(format string, v ...any)) pipeline.Spawner {
		return pipeline.SupervisorSpawner{Sup: &supervise.Supervisor{Logf: logf}}
	}

	pipelinePollInterval = 500 * time.Millisecond
)

var pipelineShowUsage bool

func newPipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run and inspect project pipelines",
	}

	cmd.AddCommand(newPipelineSpawnCmd())
	cmd.AddCommand(newPipelineInfoCmd())

	return cmd
}

func newPipelineSpawnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spawn <project>",
		Short: "Provision binaries and run the project's pipeline in the foreground",
		Long: "spawn brings the pipeline up in dependency order: the s3fs storage\n" +
			"server first, then clickhouse attached to it. The command stays in the\n" +
			"foreground until interrupted or until a member process dies, then tears\n" +
			"the pipeline down database-first.",
		Args: cobra.ExactArgs(1),
		RunE: runPipelineSpawn,
	}

	cmd.Flags().BoolVar(&pipelineShowUsage, "usage", false, "Periodically print member resource usage")

	return cmd
}

// pipelinePlan resolves the workdir config and project metadata into a
// concrete pipeline plan.
func pipelinePlan(cfg config.Config, meta project.Metadata) pipeline.Config {
	storage, database := binaries.PipelineBinaries()[0], binaries.PipelineBinaries()[1]
	return pipeline.Config{
		Name:       meta.Name,
		DataDir:    meta.DataDir,
		ListenAddr: cfg.Storage.Listen,
		Bucket:     meta.Name,
		Storage: pipeline.ProcessConfig{
			Binary:       storage,
			Args:         cfg.Storage.Args,
			ReadyMarker:  cfg.Storage.ReadyMarker,
			ReadyTimeout: cfg.Storage.ReadyTimeoutDuration(),
			Grace:        cfg.Storage.GraceDuration(),
		},
		Database: pipeline.ProcessConfig{
			Binary:       database,
			Args:         cfg.Database.Args,
			ReadyMarker:  cfg.Database.ReadyMarker,
			ReadyTimeout: cfg.Database.ReadyTimeoutDuration(),
			Grace:        cfg.Database.GraceDuration(),
		},
		Extras: []string{"agt"},
	}
}

func runPipelineSpawn(cmd *cobra.Command, args []string) error {
	w, cfg, err := loadSetup()
	if err != nil {
		return err
	}
	if err := w.EnsureLayout(); err != nil {
		return err
	}

	meta, err := project.Load(w, args[0])
	if err != nil {
		return err
	}

	logger, closer, err := logx.New(w)
	if err != nil {
		return err
	}
	defer closer.Close()

	plat, err := resolvePlatform()
	if err != nil {
		return err
	}

	installer := newInstaller(w, cfg, plat)
	installer.Logf = logger.Printf

	// On a real terminal a status spinner tracks the startup phases; the
	// orchestrator's log lines double as its messages.
	logf := logger.Printf
	var status *tui.StatusWriter
	if tui.DetectMode(cmd.OutOrStdout(), false, outputJSON) == tui.ModeTUI {
		status = tui.NewStatusWriter(cmd.OutOrStdout())
		status.Update("spawning pipeline " + meta.Name)
		logf = func(format string, v ...any) {
			logger.Printf(format, v...)
			status.Update(fmt.Sprintf(format, v...))
		}
	}

	orch := &pipeline.Orchestrator{
		Provisioner: installer,
		Spawner:     newSpawner(logf),
		Logf:        logf,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !outputJSON {
		cmd.Printf("Spawning pipeline for project %s\n", meta.Name)
	}

	p, err := orch.Spawn(ctx, pipelinePlan(cfg, meta))
	if status != nil {
		status.Stop()
	}
	if err != nil {
		return err
	}

	printPipelineStatus(cmd, p.Status())
	if !outputJSON {
		cmd.Println("Press Ctrl-C to stop.")
	}

	err = waitForPipeline(ctx, cmd, p)

	st := p.Status()
	printPipelineStatus(cmd, st)
	return err
}

// waitForPipeline blocks until the pipeline reaches a terminal phase or
// the context is cancelled, in which case it runs the orderly stop itself
// rather than racing the monitor goroutine's.
func waitForPipeline(ctx context.Context, cmd *cobra.Command, p *pipeline.Pipeline) error {
	ticker := time.NewTicker(pipelinePollInterval)
	defer ticker.Stop()

	var usageTicker *time.Ticker
	var usageC <-chan time.Time
	if pipelineShowUsage && !outputJSON {
		usageTicker = time.NewTicker(10 * time.Second)
		usageC = usageTicker.C
		defer usageTicker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return p.Stop(stopCtx)

		case <-usageC:
			printPipelineUsage(cmd, p.Usage(ctx))

		case <-ticker.C:
			st := p.Status()
			if !st.Phase.Terminal() {
				continue
			}
			if st.Phase == pipeline.PhaseFailed {
				return fmt.Errorf("pipeline %s failed: %s", st.Name, st.Err)
			}
			return nil
		}
	}
}

func printPipelineStatus(cmd *cobra.Command, st pipeline.Status) {
	if outputJSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return
		}
		cmd.Println(string(data))
		return
	}

	cmd.Printf("Pipeline %s: %s\n", st.Name, st.Phase)
	if st.Storage != nil {
		cmd.Printf("  storage   pid %-7d %s\n", st.Storage.PID, st.Storage.State)
	}
	if st.Database != nil {
		cmd.Printf("  database  pid %-7d %s\n", st.Database.PID, st.Database.State)
	}
	if st.Err != "" {
		cmd.Printf("  error: %s\n", st.Err)
	}
}

func printPipelineUsage(cmd *cobra.Command, usage map[string]supervise.ResourceUsage) {
	for _, role := range []string{"storage", "database"} {
		u, ok := usage[role]
		if !ok {
			continue
		}
		cmd.Printf("  %s: rss %s, cpu %.1f%%, threads %d\n",
			role, tui.FormatBytes(int64(u.RSSBytes)), u.CPUPercent, u.NumThreads)
	}
}

func newPipelineInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <project>",
		Short: "Show the resolved pipeline plan and binary state for a project",
		Args:  cobra.ExactArgs(1),
		RunE:  runPipelineInfo,
	}
}

type pipelineInfoReport struct {
	Project  project.Metadata              `json:"project"`
	Listen   string                        `json:"listen"`
	Endpoint string                        `json:"endpoint"`
	Members  []pipelineMemberInfo          `json:"members"`
	Binaries []binaries.InstallationRecord `json:"binaries"`
}

type pipelineMemberInfo struct {
	Role         string   `json:"role"`
	Binary       string   `json:"binary"`
	Command      []string `json:"command"`
	ReadyMarker  string   `json:"ready_marker"`
	ReadyTimeout string   `json:"ready_timeout"`
	Grace        string   `json:"grace"`
}

func runPipelineInfo(cmd *cobra.Command, args []string) error {
	w, cfg, err := loadSetup()
	if err != nil {
		return err
	}

	meta, err := project.Load(w, args[0])
	if err != nil {
		return err
	}

	plan := pipelinePlan(cfg, meta)
	report := pipelineInfoReport{
		Project:  meta,
		Listen:   plan.ListenAddr,
		Endpoint: "http://" + plan.ListenAddr,
	}
	for _, member := range []struct {
		role string
		cfg  pipeline.ProcessConfig
	}{{"storage", plan.Storage}, {"database", plan.Database}} {
		report.Members = append(report.Members, pipelineMemberInfo{
			Role:         member.role,
			Binary:       member.cfg.Binary,
			Command:      append([]string{member.cfg.Binary}, plan.ExpandArgs(member.cfg.Args)...),
			ReadyMarker:  member.cfg.ReadyMarker,
			ReadyTimeout: member.cfg.ReadyTimeout.String(),
			Grace:        member.cfg.Grace.String(),
		})
	}

	plat, err := resolvePlatform()
	if err == nil {
		installer := newInstaller(w, cfg, plat)
		for _, name := range binaries.Known() {
			rec, inspectErr := installer.Inspect(cmd.Context(), name)
			if inspectErr != nil {
				return inspectErr
			}
			report.Binaries = append(report.Binaries, rec)
		}
	}

	if outputJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Project %s\n", meta.Name)
	cmd.Printf("  data dir: %s\n", meta.DataDir)
	cmd.Printf("  endpoint: %s\n", report.Endpoint)
	cmd.Println()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tCOMMAND\tREADY MARKER\tTIMEOUT\tGRACE")
	for _, m := range report.Members {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			m.Role, strings.Join(m.Command, " "), m.ReadyMarker, m.ReadyTimeout, m.Grace)
	}
	tw.Flush()

	if len(report.Binaries) > 0 {
		cmd.Println()
		printRecordsTable(cmd, report.Binaries)
	}
	return nil
}
