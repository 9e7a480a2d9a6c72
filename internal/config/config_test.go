package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "stackhouse.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Version = %d", cfg.Version)
	}
	if cfg.Storage.Listen == "" {
		t.Error("default storage listen empty")
	}
	if cfg.Database.ReadyMarker != "Ready for connections" {
		t.Errorf("database ready marker = %q", cfg.Database.ReadyMarker)
	}
	if cfg.Download.Retries != 0 {
		t.Errorf("default retries = %d, want 0", cfg.Download.Retries)
	}
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stackhouse.yaml")
	contents := strings.Join([]string{
		"download:",
		"  retries: 3",
		"storage:",
		"  listen: 127.0.0.1:9100",
	}, "\n")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Download.Retries != 3 {
		t.Errorf("retries = %d, want 3", cfg.Download.Retries)
	}
	if cfg.Storage.Listen != "127.0.0.1:9100" {
		t.Errorf("listen = %q", cfg.Storage.Listen)
	}
	if cfg.Storage.ReadyMarker == "" || cfg.Storage.ReadyTimeout == 0 {
		t.Errorf("omitted storage fields not defaulted: %+v", cfg.Storage)
	}
	if len(cfg.Database.Args) == 0 {
		t.Error("omitted database args not defaulted")
	}
}

func TestLoadRejectsBadMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stackhouse.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  ready_marker: '(unclosed'\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("invalid ready marker accepted")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stackhouse.yaml")

	cfg := Default()
	cfg.Download.Retries = 2
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Download.Retries != 2 {
		t.Errorf("retries = %d, want 2", loaded.Download.Retries)
	}
	if loaded.Storage.Listen != cfg.Storage.Listen {
		t.Errorf("listen = %q, want %q", loaded.Storage.Listen, cfg.Storage.Listen)
	}
}

func TestDurationHelpers(t *testing.T) {
	pc := ProcessConfig{ReadyTimeout: 30, GraceSeconds: 5}
	if pc.ReadyTimeoutDuration().Seconds() != 30 {
		t.Errorf("ReadyTimeoutDuration = %s", pc.ReadyTimeoutDuration())
	}
	if pc.GraceDuration().Seconds() != 5 {
		t.Errorf("GraceDuration = %s", pc.GraceDuration())
	}
}
