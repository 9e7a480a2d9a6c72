package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"stackhouse/internal/supervise"
)

// Orchestrator spawns pipelines. Provisioner and Spawner are required;
// Logf is optional.
type Orchestrator struct {
	Provisioner Provisioner
	Spawner     Spawner
	Logf        func(format string, v ...any)
}

func (o *Orchestrator) logf(format string, v ...any) {
	if o.Logf != nil {
		o.Logf(format, v...)
	}
}

// Spawn provisions the pipeline's binaries and brings its processes up in
// dependency order: storage spawns and must signal readiness before the
// database spawns at all. On any failure everything already started is
// torn down and an error is returned; no partial pipeline survives. On
// success the returned pipeline is Running and monitored until Stop or
// ctx cancellation.
func (o *Orchestrator) Spawn(ctx context.Context, cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		logf:      o.logf,
		phase:     PhaseProvisioning,
		startedAt: time.Now(),
		stopCh:    make(chan struct{}),
	}
	o.logf("pipeline %s: provisioning %v", cfg.Name, cfg.binaryNames())

	summary := o.Provisioner.EnsureAll(ctx, cfg.binaryNames())
	if err := summary.Err(); err != nil {
		p.fail(err)
		return nil, fmt.Errorf("provision pipeline binaries: %w", err)
	}

	storage, err := o.startMember(ctx, p, "storage", cfg.Storage, PhaseStartingStorage, PhaseWaitingStorageReady)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.storageReadyAt = time.Now()
	p.mu.Unlock()

	database, err := o.startMember(ctx, p, "database", cfg.Database, PhaseStartingDatabase, PhaseWaitingDatabaseReady)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.databaseReadyAt = time.Now()
	p.setPhaseLocked(PhaseRunning)
	p.mu.Unlock()

	o.logf("pipeline %s: running (storage pid %d, database pid %d)", cfg.Name, storage.PID(), database.PID())
	go p.monitor(ctx)
	return p, nil
}

// startMember spawns one member process and waits for its readiness
// marker. On failure the member and everything started before it are
// torn down.
func (o *Orchestrator) startMember(ctx context.Context, p *Pipeline, role string, cfg ProcessConfig, starting, waiting Phase) (ProcessHandle, error) {
	// Marker syntax was checked by validate; compile cannot fail here.
	marker := regexp.MustCompile(cfg.ReadyMarker)

	command, err := o.Provisioner.InstalledPath(cfg.Binary)
	if err != nil {
		p.fail(err)
		return nil, fmt.Errorf("start %s: %w", role, err)
	}

	p.setPhase(starting)
	handle, err := o.Spawner.Spawn(supervise.Spec{
		Name:    role,
		Command: command,
		Args:    p.cfg.ExpandArgs(cfg.Args),
	})
	if err != nil {
		p.fail(err, p.memberHandles()...)
		return nil, fmt.Errorf("start %s: %w", role, err)
	}

	p.mu.Lock()
	switch role {
	case "storage":
		p.storage = handle
	case "database":
		p.database = handle
		p.databaseStartedAt = time.Now()
	}
	p.mu.Unlock()

	p.setPhase(waiting)
	err = handle.WaitReady(ctx, func(line string) bool {
		return marker.MatchString(line)
	}, cfg.ReadyTimeout)
	if err != nil {
		p.fail(err, p.memberHandles()...)
		return nil, fmt.Errorf("%s readiness: %w", role, err)
	}
	return handle, nil
}

// memberHandles returns the started members in teardown order, database
// first.
func (p *Pipeline) memberHandles() []ProcessHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return []ProcessHandle{p.database, p.storage}
}
