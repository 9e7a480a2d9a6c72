package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveFlagWins(t *testing.T) {
	t.Setenv(EnvHome, "/env/stackhouse")

	root := t.TempDir()
	w, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if w.Root != root {
		t.Fatalf("Root = %s, want %s", w.Root, root)
	}
	if w.BinDir != filepath.Join(root, "bin") {
		t.Errorf("BinDir = %s", w.BinDir)
	}
	if w.ConfigFile != filepath.Join(root, "stackhouse.yaml") {
		t.Errorf("ConfigFile = %s", w.ConfigFile)
	}
}

func TestResolveEnvOverride(t *testing.T) {
	root := t.TempDir()
	t.Setenv(EnvHome, root)

	w, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if w.Root != root {
		t.Fatalf("Root = %s, want %s", w.Root, root)
	}
}

func TestResolveDefaultsToHome(t *testing.T) {
	t.Setenv(EnvHome, "")

	w, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory in test environment")
	}
	if w.Root != filepath.Join(home, ".stackhouse") {
		t.Errorf("Root = %s", w.Root)
	}
}

func TestEnsureLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "deep", "stackhouse")
	w, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := w.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}

	for _, dir := range []string{w.BinDir, w.CacheDir, w.ProjectsDir, w.LogsDir} {
		ok, err := DirExists(dir)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Errorf("directory %s not created", dir)
		}
	}
}

func TestProjectDir(t *testing.T) {
	w := Workdir{ProjectsDir: "/w/projects"}
	if got := w.ProjectDir("demo"); got != "/w/projects/demo" {
		t.Errorf("ProjectDir = %s", got)
	}
}
