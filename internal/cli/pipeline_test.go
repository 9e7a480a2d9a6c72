package cli

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"stackhouse/internal/paths"
	"stackhouse/internal/pipeline"
	"stackhouse/internal/project"
	"stackhouse/internal/supervise"
)

// recordedSpawner tracks spawn and terminate order across fake handles.
type recordedSpawner struct {
	mu     sync.Mutex
	events []string
}

func (s *recordedSpawner) log(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordedSpawner) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *recordedSpawner) index(event string) int {
	for i, e := range s.list() {
		if e == event {
			return i
		}
	}
	return -1
}

func (s *recordedSpawner) Spawn(spec supervise.Spec) (pipeline.ProcessHandle, error) {
	s.log("spawn:" + spec.Name)
	return &recordedHandle{spawner: s, name: spec.Name, done: make(chan struct{})}, nil
}

type recordedHandle struct {
	spawner *recordedSpawner
	name    string
	done    chan struct{}
	once    sync.Once
}

func (h *recordedHandle) Name() string                { return h.name }
func (h *recordedHandle) PID() int                    { return 4242 }
func (h *recordedHandle) Done() <-chan struct{}       { return h.done }
func (h *recordedHandle) RecentOutput(n int) []string { return nil }

func (h *recordedHandle) Poll() supervise.Snapshot {
	select {
	case <-h.done:
		return supervise.Snapshot{Name: h.name, PID: 4242, State: supervise.StateKilled, ExitCode: -1}
	default:
		return supervise.Snapshot{Name: h.name, PID: 4242, State: supervise.StateRunning, ExitCode: -1}
	}
}

func (h *recordedHandle) WaitReady(context.Context, func(string) bool, time.Duration) error {
	h.spawner.log("ready:" + h.name)
	return nil
}

func (h *recordedHandle) Terminate(context.Context, time.Duration) error {
	h.spawner.log("terminate:" + h.name)
	h.once.Do(func() { close(h.done) })
	return nil
}

func (h *recordedHandle) Usage(context.Context) (supervise.ResourceUsage, error) {
	return supervise.ResourceUsage{}, nil
}

func stubSpawner(t *testing.T) *recordedSpawner {
	t.Helper()
	spawner := &recordedSpawner{}
	prevSpawner := newSpawner
	newSpawner = func(func(string, ...any)) pipeline.Spawner { return spawner }
	prevPoll := pipelinePollInterval
	pipelinePollInterval = 10 * time.Millisecond
	t.Cleanup(func() {
		newSpawner = prevSpawner
		pipelinePollInterval = prevPoll
	})
	return spawner
}

func createTestProject(t *testing.T, w paths.Workdir, name string) project.Metadata {
	t.Helper()
	if err := w.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	meta, err := project.Create(w, name)
	if err != nil {
		t.Fatal(err)
	}
	return meta
}

func TestPipelineSpawnRunsUntilCancelled(t *testing.T) {
	pinPlatform(t)
	stubInstallers(t)
	spawner := stubSpawner(t)
	w := newTestWorkdir(t)
	createTestProject(t, w, "demo")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	out, err := runCLI(t, ctx, w.Root, "pipeline", "spawn", "demo")
	if err != nil {
		t.Fatalf("spawn returned error: %v\n%s", err, out)
	}

	if !strings.Contains(out, "Pipeline demo: running") {
		t.Fatalf("expected running status, got %q", out)
	}
	if !strings.Contains(out, "Pipeline demo: stopped") {
		t.Fatalf("expected stopped status, got %q", out)
	}

	events := spawner.list()
	if spawner.index("spawn:storage") == -1 || spawner.index("spawn:database") == -1 {
		t.Fatalf("expected both members spawned, got %v", events)
	}
	if spawner.index("ready:storage") > spawner.index("spawn:database") {
		t.Fatalf("database spawned before storage was ready: %v", events)
	}
	termDB, termStorage := spawner.index("terminate:database"), spawner.index("terminate:storage")
	if termDB == -1 || termStorage == -1 || termDB > termStorage {
		t.Fatalf("expected database torn down before storage, got %v", events)
	}
}

func TestPipelineSpawnMissingProject(t *testing.T) {
	pinPlatform(t)
	w := newTestWorkdir(t)

	_, err := runCLI(t, context.Background(), w.Root, "pipeline", "spawn", "nope")
	if err == nil {
		t.Fatal("expected error for missing project")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestPipelineInfo(t *testing.T) {
	pinPlatform(t)
	w := newTestWorkdir(t)
	meta := createTestProject(t, w, "demo")

	out, err := runCLI(t, context.Background(), w.Root, "pipeline", "info", "demo")
	if err != nil {
		t.Fatalf("info returned error: %v", err)
	}

	if !strings.Contains(out, "Project demo") {
		t.Fatalf("expected project header, got %q", out)
	}
	if !strings.Contains(out, meta.DataDir) {
		t.Fatalf("expected data dir, got %q", out)
	}
	if !strings.Contains(out, "endpoint: http://127.0.0.1:9044") {
		t.Fatalf("expected resolved endpoint, got %q", out)
	}
	// The storage bucket placeholder resolves to <project>=<data dir>.
	if !strings.Contains(out, "demo="+meta.DataDir) {
		t.Fatalf("expected expanded bucket arg, got %q", out)
	}
	if !strings.Contains(out, "Ready for connections") {
		t.Fatalf("expected database ready marker, got %q", out)
	}
}

func TestPipelineInfoJSON(t *testing.T) {
	pinPlatform(t)
	w := newTestWorkdir(t)
	createTestProject(t, w, "demo")

	out, err := runCLI(t, context.Background(), w.Root, "--json", "pipeline", "info", "demo")
	if err != nil {
		t.Fatalf("info returned error: %v", err)
	}

	var report pipelineInfoReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("unmarshal report: %v\n%s", err, out)
	}
	if report.Listen != "127.0.0.1:9044" {
		t.Errorf("listen = %q, want 127.0.0.1:9044", report.Listen)
	}
	if len(report.Members) != 2 {
		t.Fatalf("got %d members, want 2", len(report.Members))
	}
	if report.Members[0].Role != "storage" || report.Members[0].Binary != "s3fs" {
		t.Errorf("unexpected storage member: %+v", report.Members[0])
	}
	if report.Members[1].Role != "database" || report.Members[1].Binary != "clickhouse" {
		t.Errorf("unexpected database member: %+v", report.Members[1])
	}
	if len(report.Binaries) != 3 {
		t.Errorf("got %d binary records, want 3", len(report.Binaries))
	}
}
