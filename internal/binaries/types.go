package binaries

import (
	"stackhouse/internal/platform"
)

type ArchiveFormat string

const (
	ArchiveNone  ArchiveFormat = ""
	ArchiveZip   ArchiveFormat = "zip"
	ArchiveTarGz ArchiveFormat = "tar.gz"
)

// Asset locates the release artifact for one binary on one platform.
type Asset struct {
	URL     string
	Archive ArchiveFormat
	// Entry is the path of the executable inside the archive. Empty for
	// bare-binary assets.
	Entry string
}

// DownloadSpec is the resolved download plan for a binary on the current
// platform.
type DownloadSpec struct {
	URL      string        `json:"url"`
	Filename string        `json:"filename"`
	Archive  ArchiveFormat `json:"archive,omitempty"`
	Entry    string        `json:"entry,omitempty"`
}

// ManagedBinary is the static registry entry for one external executable.
// Entries are configuration data: loaded once, never mutated.
type ManagedBinary struct {
	// Name is the logical lookup key, e.g. "clickhouse".
	Name string
	// Source labels where releases come from, for diagnostics.
	Source string
	// Executable is the installed file name inside bin/.
	Executable string
	// ProbeArgs invoke the binary's version probe.
	ProbeArgs []string
	// ParseProbe extracts a version string from probe output. A false
	// return means the output does not look like this binary at all.
	ParseProbe func(output string) (string, bool)
	// Assets maps each supported platform to its release artifact.
	Assets map[platform.Platform]Asset
}

// Asset resolves the download spec for the given platform.
func (b ManagedBinary) Asset(p platform.Platform) (DownloadSpec, error) {
	asset, ok := b.Assets[p]
	if !ok {
		return DownloadSpec{}, &platform.UnsupportedPlatformError{OS: p.OS, Arch: p.Arch, Binary: b.Name}
	}
	return DownloadSpec{
		URL:      asset.URL,
		Filename: b.Executable,
		Archive:  asset.Archive,
		Entry:    asset.Entry,
	}, nil
}

// InstallationRecord is the on-disk state of one managed binary, recomputed
// from the filesystem on every inspection. The filesystem is the single
// source of truth; records are never persisted.
type InstallationRecord struct {
	Binary         string `json:"binary"`
	Path           string `json:"path"`
	Exists         bool   `json:"exists"`
	Executable     bool   `json:"executable"`
	SizeBytes      int64  `json:"size_bytes,omitempty"`
	Version        string `json:"version,omitempty"`
	NewlyInstalled bool   `json:"newly_installed,omitempty"`
}

// Ready reports whether the binary is present and runnable.
func (r InstallationRecord) Ready() bool {
	return r.Exists && r.Executable
}

// Progress is a transient snapshot of one in-flight download. Total is -1
// when the server did not report a length.
type Progress struct {
	Binary   string
	Received int64
	Total    int64
}

// ProgressFunc receives cumulative download progress, at most once per chunk.
type ProgressFunc func(Progress)
