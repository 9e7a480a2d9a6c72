package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestSystemStatusUninitialized(t *testing.T) {
	pinPlatform(t)
	w := newTestWorkdir(t)

	out, err := runCLI(t, context.Background(), w.Root, "system", "status")
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	if !strings.Contains(out, "Workdir: "+w.Root) {
		t.Fatalf("expected workdir path, got %q", out)
	}
	if !strings.Contains(out, "bin") || !strings.Contains(out, "missing") {
		t.Fatalf("expected missing layout entries, got %q", out)
	}
	if !strings.Contains(out, "Platform: linux/amd64") {
		t.Fatalf("expected platform line, got %q", out)
	}
}

func TestSystemStatusInitialized(t *testing.T) {
	pinPlatform(t)
	stubInstallers(t)
	w := newTestWorkdir(t)

	if _, err := runCLI(t, context.Background(), w.Root, "init", "--no-progress"); err != nil {
		t.Fatalf("init: %v", err)
	}

	out, err := runCLI(t, context.Background(), w.Root, "system", "status")
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	if strings.Contains(out, "not initialized") {
		t.Fatalf("expected initialized workdir, got %q", out)
	}
	for _, name := range []string{"clickhouse", "s3fs", "agt"} {
		if !strings.Contains(out, name) {
			t.Errorf("expected %s in binary table, got %q", name, out)
		}
	}
	if !strings.Contains(out, "present") {
		t.Fatalf("expected present binaries, got %q", out)
	}
}

func TestSystemStatusJSON(t *testing.T) {
	pinPlatform(t)
	w := newTestWorkdir(t)

	out, err := runCLI(t, context.Background(), w.Root, "--json", "system", "status")
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}

	var report systemStatusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("unmarshal report: %v\n%s", err, out)
	}
	if report.Workdir != w.Root {
		t.Errorf("workdir = %q, want %q", report.Workdir, w.Root)
	}
	if report.Platform != "linux/amd64" {
		t.Errorf("platform = %q, want linux/amd64", report.Platform)
	}
	if len(report.Binaries) != 3 {
		t.Errorf("got %d binary records, want 3", len(report.Binaries))
	}
	if len(report.Entries) != 5 {
		t.Errorf("got %d layout entries, want 5", len(report.Entries))
	}
}
