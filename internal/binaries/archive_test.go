package binaries

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "release.zip")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTarGz(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "release.tar.gz")
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, data := range entries {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o755, Size: int64(len(data)), Typeflag: tar.TypeReg}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractZipEntryByBaseName(t *testing.T) {
	archive := writeZip(t, map[string][]byte{
		"tool-v1.2.3/README.md": []byte("docs"),
		"tool-v1.2.3/tool":      []byte("#!/bin/sh\necho tool\n"),
	})

	dest := filepath.Join(t.TempDir(), "tool")
	if err := extractEntry("tool", ArchiveZip, archive, "tool", dest); err != nil {
		t.Fatalf("extractEntry: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("echo tool")) {
		t.Errorf("wrong entry extracted: %q", data)
	}
}

func TestExtractZipEntryByFullPath(t *testing.T) {
	archive := writeZip(t, map[string][]byte{
		"a/tool": []byte("first"),
		"b/tool": []byte("second"),
	})

	dest := filepath.Join(t.TempDir(), "tool")
	if err := extractEntry("tool", ArchiveZip, archive, "b/tool", dest); err != nil {
		t.Fatalf("extractEntry: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("extracted %q, want the b/tool entry", data)
	}
}

func TestExtractTarGzEntry(t *testing.T) {
	archive := writeTarGz(t, map[string][]byte{
		"pkg-1.0/bin/tool": []byte("binary bytes"),
	})

	dest := filepath.Join(t.TempDir(), "tool")
	if err := extractEntry("tool", ArchiveTarGz, archive, "tool", dest); err != nil {
		t.Fatalf("extractEntry: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "binary bytes" {
		t.Errorf("extracted %q", data)
	}
}

func TestExtractMissingEntry(t *testing.T) {
	zipPath := writeZip(t, map[string][]byte{"other": []byte("x")})
	tarPath := writeTarGz(t, map[string][]byte{"other": []byte("x")})

	for _, tc := range []struct {
		format  ArchiveFormat
		archive string
	}{
		{ArchiveZip, zipPath},
		{ArchiveTarGz, tarPath},
	} {
		dest := filepath.Join(t.TempDir(), "tool")
		err := extractEntry("tool", tc.format, tc.archive, "tool", dest)
		var exErr *ExtractionError
		if !errors.As(err, &exErr) {
			t.Fatalf("%s: error = %v, want ExtractionError", tc.format, err)
		}
		if exErr.Entry != "tool" {
			t.Errorf("%s: exErr.Entry = %q", tc.format, exErr.Entry)
		}
		if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
			t.Errorf("%s: destination written despite missing entry", tc.format)
		}
	}
}
