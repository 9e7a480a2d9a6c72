package binaries

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// extractEntry pulls the named executable entry out of an archive into
// dest. Entries match on their full slash-separated path or, when entry
// has no directory component, on base name; GitHub release archives wrap
// contents in a versioned root folder, so base-name matching covers them.
func extractEntry(binary string, format ArchiveFormat, archivePath, entry, dest string) error {
	switch format {
	case ArchiveZip:
		return extractZipEntry(binary, archivePath, entry, dest)
	case ArchiveTarGz:
		return extractTarGzEntry(binary, archivePath, entry, dest)
	default:
		return fmt.Errorf("unsupported archive format %q", format)
	}
}

func entryMatches(name, entry string) bool {
	if name == entry {
		return true
	}
	return path.Dir(entry) == "." && path.Base(name) == entry
}

func extractZipEntry(binary, archivePath, entry, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.FileInfo().IsDir() || !entryMatches(file.Name, entry) {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %s: %w", file.Name, err)
		}
		err = writeEntry(dest, rc)
		rc.Close()
		return err
	}
	return &ExtractionError{Binary: binary, Archive: filepath.Base(archivePath), Entry: entry}
}

func extractTarGzEntry(binary, archivePath, entry, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		if header.Typeflag != tar.TypeReg || !entryMatches(header.Name, entry) {
			continue
		}
		return writeEntry(dest, tr)
	}
	return &ExtractionError{Binary: binary, Archive: filepath.Base(archivePath), Entry: entry}
}

func writeEntry(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &IOError{Path: filepath.Dir(dest), Err: err}
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &IOError{Path: dest, Err: err}
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(dest)
		return &IOError{Path: dest, Err: err}
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return &IOError{Path: dest, Err: err}
	}
	return nil
}
