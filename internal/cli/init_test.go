package cli

import (
	"context"
	"os"
	"strings"
	"testing"

	"stackhouse/internal/paths"
)

func TestInitCreatesLayoutAndProvisions(t *testing.T) {
	pinPlatform(t)
	stubInstallers(t)
	w := newTestWorkdir(t)

	out, err := runCLI(t, context.Background(), w.Root, "init", "--no-progress")
	if err != nil {
		t.Fatalf("init returned error: %v", err)
	}

	if !strings.Contains(out, "Initialized workdir at "+w.Root) {
		t.Fatalf("expected init banner, got %q", out)
	}
	if !strings.Contains(out, "created stackhouse.yaml") {
		t.Fatalf("expected config creation note, got %q", out)
	}
	if !strings.Contains(out, "3 newly installed, 0 already present, 0 failed") {
		t.Fatalf("expected install summary, got %q", out)
	}

	for _, dir := range []string{w.BinDir, w.CacheDir, w.ProjectsDir, w.LogsDir} {
		if exists, _ := paths.DirExists(dir); !exists {
			t.Errorf("expected %s to exist", dir)
		}
	}
	if exists, _ := paths.FileExists(w.ConfigFile); !exists {
		t.Error("expected config file to be written")
	}
	for _, name := range []string{"clickhouse", "s3fs", "agt"} {
		info, err := os.Stat(w.BinDir + "/" + name)
		if err != nil {
			t.Fatalf("expected %s installed: %v", name, err)
		}
		if info.Mode().Perm()&0o111 == 0 {
			t.Errorf("expected %s to be executable", name)
		}
	}
}

func TestInitSecondRunFindsBinariesPresent(t *testing.T) {
	pinPlatform(t)
	stubInstallers(t)
	w := newTestWorkdir(t)

	if _, err := runCLI(t, context.Background(), w.Root, "init", "--no-progress"); err != nil {
		t.Fatalf("first init: %v", err)
	}

	out, err := runCLI(t, context.Background(), w.Root, "init", "--no-progress")
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if !strings.Contains(out, "Workdir already initialized") {
		t.Fatalf("expected already-initialized banner, got %q", out)
	}
	if !strings.Contains(out, "0 newly installed, 3 already present, 0 failed") {
		t.Fatalf("expected all binaries present, got %q", out)
	}
}
