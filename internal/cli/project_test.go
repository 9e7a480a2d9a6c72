package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"stackhouse/internal/project"
)

func TestProjectCreateAndList(t *testing.T) {
	w := newTestWorkdir(t)

	out, err := runCLI(t, context.Background(), w.Root, "project", "create", "demo")
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	if !strings.Contains(out, "Created project demo") {
		t.Fatalf("expected creation banner, got %q", out)
	}

	out, err = runCLI(t, context.Background(), w.Root, "project", "list")
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "demo") {
		t.Fatalf("expected demo in listing, got %q", out)
	}
}

func TestProjectCreateRejectsBadName(t *testing.T) {
	w := newTestWorkdir(t)

	if _, err := runCLI(t, context.Background(), w.Root, "project", "create", "Bad Name"); err == nil {
		t.Fatal("expected error for invalid name")
	}
}

func TestProjectCreateDuplicate(t *testing.T) {
	w := newTestWorkdir(t)

	if _, err := runCLI(t, context.Background(), w.Root, "project", "create", "demo"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := runCLI(t, context.Background(), w.Root, "project", "create", "demo")
	if err == nil {
		t.Fatal("expected error for duplicate project")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestProjectListJSON(t *testing.T) {
	w := newTestWorkdir(t)

	out, err := runCLI(t, context.Background(), w.Root, "--json", "project", "list")
	if err != nil {
		t.Fatalf("empty list: %v", err)
	}
	var metas []project.Metadata
	if err := json.Unmarshal([]byte(out), &metas); err != nil {
		t.Fatalf("unmarshal empty listing: %v\n%s", err, out)
	}
	if len(metas) != 0 {
		t.Fatalf("expected empty listing, got %v", metas)
	}

	if _, err := runCLI(t, context.Background(), w.Root, "project", "create", "alpha"); err != nil {
		t.Fatalf("create: %v", err)
	}
	out, err = runCLI(t, context.Background(), w.Root, "--json", "project", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &metas); err != nil {
		t.Fatalf("unmarshal listing: %v\n%s", err, out)
	}
	if len(metas) != 1 || metas[0].Name != "alpha" {
		t.Fatalf("expected alpha in listing, got %v", metas)
	}
}
