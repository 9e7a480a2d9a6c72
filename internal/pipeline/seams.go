package pipeline

import (
	"context"
	"time"

	"stackhouse/internal/binaries"
	"stackhouse/internal/supervise"
)

// Provisioner guarantees managed binaries exist before any process spawns.
// Satisfied by *binaries.Installer.
type Provisioner interface {
	EnsureAll(ctx context.Context, names []string) binaries.Summary
	InstalledPath(name string) (string, error)
}

// ProcessHandle is the slice of supervise.Process the orchestrator needs.
// The handle stays owned by its supervisor; the pipeline only calls
// methods, never signals or reaps directly.
type ProcessHandle interface {
	Name() string
	PID() int
	Poll() supervise.Snapshot
	Done() <-chan struct{}
	RecentOutput(n int) []string
	WaitReady(ctx context.Context, ready func(line string) bool, timeout time.Duration) error
	Terminate(ctx context.Context, grace time.Duration) error
	Usage(ctx context.Context) (supervise.ResourceUsage, error)
}

// Spawner starts one supervised process.
type Spawner interface {
	Spawn(spec supervise.Spec) (ProcessHandle, error)
}

// SupervisorSpawner adapts a supervise.Supervisor to the Spawner seam.
type SupervisorSpawner struct {
	Sup *supervise.Supervisor
}

func (s SupervisorSpawner) Spawn(spec supervise.Spec) (ProcessHandle, error) {
	p, err := s.Sup.Spawn(spec)
	if err != nil {
		return nil, err
	}
	return p, nil
}
