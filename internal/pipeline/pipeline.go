// Package pipeline sequences supervised processes with readiness
// dependencies: the storage server comes up first, the database attaches
// to it, and the pair is torn down as a unit on stop or on any failure.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stackhouse/internal/supervise"
)

// Phase is a pipeline lifecycle state.
type Phase string

const (
	PhaseProvisioning         Phase = "provisioning"
	PhaseStartingStorage      Phase = "starting-storage"
	PhaseWaitingStorageReady  Phase = "waiting-storage-ready"
	PhaseStartingDatabase     Phase = "starting-database"
	PhaseWaitingDatabaseReady Phase = "waiting-database-ready"
	PhaseRunning              Phase = "running"
	PhaseStopping             Phase = "stopping"
	PhaseStopped              Phase = "stopped"
	PhaseFailed               Phase = "failed"
)

// Terminal reports whether the pipeline has finished, one way or another.
func (p Phase) Terminal() bool { return p == PhaseStopped || p == PhaseFailed }

// Pipeline is one spawned storage+database pair. Obtained from
// Orchestrator.Spawn; the zero value is not usable.
type Pipeline struct {
	cfg  Config
	logf func(format string, v ...any)

	mu                sync.Mutex
	phase             Phase
	err               error
	storage           ProcessHandle
	database          ProcessHandle
	startedAt         time.Time
	storageReadyAt    time.Time
	databaseStartedAt time.Time
	databaseReadyAt   time.Time

	stopOnce sync.Once
	// stopCh tells the monitor an orderly stop owns the teardown.
	stopCh chan struct{}
}

// Status is a point-in-time view of a pipeline.
type Status struct {
	Name            string              `json:"name"`
	Phase           Phase               `json:"phase"`
	Err             string              `json:"error,omitempty"`
	StartedAt       time.Time           `json:"started_at"`
	StorageReadyAt  time.Time           `json:"storage_ready_at,omitzero"`
	DatabaseReadyAt time.Time           `json:"database_ready_at,omitzero"`
	Storage         *supervise.Snapshot `json:"storage,omitempty"`
	Database        *supervise.Snapshot `json:"database,omitempty"`
}

// Status reports the current phase and per-process snapshots.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{
		Name:            p.cfg.Name,
		Phase:           p.phase,
		StartedAt:       p.startedAt,
		StorageReadyAt:  p.storageReadyAt,
		DatabaseReadyAt: p.databaseReadyAt,
	}
	if p.err != nil {
		st.Err = p.err.Error()
	}
	if p.storage != nil {
		snap := p.storage.Poll()
		st.Storage = &snap
	}
	if p.database != nil {
		snap := p.database.Poll()
		st.Database = &snap
	}
	return st
}

// Usage samples resource consumption of the live member processes, keyed
// by role. Dead processes are omitted.
func (p *Pipeline) Usage(ctx context.Context) map[string]supervise.ResourceUsage {
	p.mu.Lock()
	storage, database := p.storage, p.database
	p.mu.Unlock()

	usage := make(map[string]supervise.ResourceUsage)
	if storage != nil {
		if u, err := storage.Usage(ctx); err == nil {
			usage["storage"] = u
		}
	}
	if database != nil {
		if u, err := database.Usage(ctx); err == nil {
			usage["database"] = u
		}
	}
	return usage
}

func (p *Pipeline) setPhase(phase Phase) {
	p.mu.Lock()
	p.setPhaseLocked(phase)
	p.mu.Unlock()
}

func (p *Pipeline) setPhaseLocked(phase Phase) {
	if p.phase == phase {
		return
	}
	p.logf("pipeline %s: %s -> %s", p.cfg.Name, p.phase, phase)
	p.phase = phase
}

// Stop shuts the pipeline down: database first, then storage, each
// gracefully within its configured grace period. Safe to call more than
// once and after a failure.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		if p.phase.Terminal() {
			p.mu.Unlock()
			return
		}
		p.setPhaseLocked(PhaseStopping)
		database, storage := p.database, p.storage
		p.mu.Unlock()

		close(p.stopCh)
		p.teardown(ctx, database, storage)
		p.setPhase(PhaseStopped)
	})
	return nil
}

// teardown terminates members in dependency order: dependents before
// their dependencies. A nil handle is skipped.
func (p *Pipeline) teardown(ctx context.Context, ordered ...ProcessHandle) {
	for _, h := range ordered {
		if h == nil {
			continue
		}
		grace := p.graceFor(h)
		if err := h.Terminate(ctx, grace); err != nil {
			p.logf("pipeline %s: terminate %s: %v", p.cfg.Name, h.Name(), err)
		}
	}
}

func (p *Pipeline) graceFor(h ProcessHandle) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h == p.database {
		return p.cfg.Database.Grace
	}
	return p.cfg.Storage.Grace
}

// fail records err, moves to Failed and tears down the listed survivors.
// A pipeline already stopping or finished is left alone.
func (p *Pipeline) fail(err error, survivors ...ProcessHandle) {
	p.mu.Lock()
	if p.phase == PhaseStopping || p.phase.Terminal() {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.setPhaseLocked(PhaseFailed)
	p.mu.Unlock()

	p.logf("pipeline %s: failed: %v", p.cfg.Name, err)

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	p.teardown(ctx, survivors...)
}

const teardownTimeout = 30 * time.Second

// monitor watches a Running pipeline. Either member exiting on its own
// fails the whole pipeline; caller cancellation runs the orderly stop.
func (p *Pipeline) monitor(ctx context.Context) {
	p.mu.Lock()
	storage, database := p.storage, p.database
	p.mu.Unlock()

	select {
	case <-p.stopCh:
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		_ = p.Stop(stopCtx)
	case <-storage.Done():
		snap := storage.Poll()
		p.fail(fmt.Errorf("storage process exited unexpectedly (state %s, code %d)", snap.State, snap.ExitCode), database, storage)
	case <-database.Done():
		snap := database.Poll()
		p.fail(fmt.Errorf("database process exited unexpectedly (state %s, code %d)", snap.State, snap.ExitCode), database, storage)
	}
}
