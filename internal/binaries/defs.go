package binaries

import (
	"sort"
	"strings"

	"stackhouse/internal/platform"
)

var (
	darwinArm64 = platform.Platform{OS: "darwin", Arch: "arm64"}
	darwinAmd64 = platform.Platform{OS: "darwin", Arch: "amd64"}
	linuxAmd64  = platform.Platform{OS: "linux", Arch: "amd64"}
)

var definitions = map[string]ManagedBinary{
	"clickhouse": {
		Name:       "clickhouse",
		Source:     "builds.clickhouse.com",
		Executable: "clickhouse",
		ProbeArgs:  []string{"--version"},
		ParseProbe: parseClickhouseProbe,
		Assets: map[platform.Platform]Asset{
			darwinArm64: {URL: "https://builds.clickhouse.com/master/macos-aarch64/clickhouse"},
			darwinAmd64: {URL: "https://builds.clickhouse.com/master/macos/clickhouse"},
			linuxAmd64:  {URL: "https://builds.clickhouse.com/master/amd64/clickhouse"},
		},
	},
	"s3fs": {
		Name:       "s3fs",
		Source:     "agnosticeng/s3fs",
		Executable: "s3fs",
		// s3fs has no --version switch; probing --help confirms the
		// binary executes and its release version is pinned below.
		ProbeArgs:  []string{"--help"},
		ParseProbe: parseS3fsProbe,
		Assets: map[platform.Platform]Asset{
			darwinArm64: {URL: "https://github.com/agnosticeng/s3fs/releases/download/v0.0.1/s3fs_aarch64-apple-darwin"},
			darwinAmd64: {URL: "https://github.com/agnosticeng/s3fs/releases/download/v0.0.1/s3fs_x86_64-apple-darwin"},
			linuxAmd64:  {URL: "https://github.com/agnosticeng/s3fs/releases/download/v0.0.1/s3fs_x86_64-unknown-linux-gnu"},
		},
	},
	"agt": {
		Name:       "agt",
		Source:     "agnosticeng/agt",
		Executable: "agt",
		ProbeArgs:  []string{"--version"},
		ParseProbe: parseFirstLineProbe,
		Assets: map[platform.Platform]Asset{
			darwinArm64: {URL: "https://github.com/agnosticeng/agt/releases/download/v0.0.22/agt_0.0.22_darwin_arm64"},
			darwinAmd64: {URL: "https://github.com/agnosticeng/agt/releases/download/v0.0.22/agt_0.0.22_darwin_amd64_v1"},
			linuxAmd64:  {URL: "https://github.com/agnosticeng/agt/releases/download/v0.0.22/agt_0.0.22_linux_amd64_v1"},
		},
	},
}

// Known returns the registered binary names, sorted.
func Known() []string {
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the registry entry for name.
func Lookup(name string) (ManagedBinary, error) {
	def, ok := definitions[name]
	if !ok {
		return ManagedBinary{}, &UnknownBinaryError{Name: name}
	}
	return def, nil
}

// PipelineBinaries are the names every pipeline requires, in dependency
// order: the storage server first, then the database that attaches to it.
func PipelineBinaries() []string {
	return []string{"s3fs", "clickhouse"}
}

func parseClickhouseProbe(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "ClickHouse") {
			return strings.TrimSpace(line), true
		}
	}
	return "", false
}

func parseS3fsProbe(output string) (string, bool) {
	if strings.TrimSpace(output) == "" {
		return "", false
	}
	return "v0.0.1 (from agnosticeng/s3fs)", true
}

func parseFirstLineProbe(output string) (string, bool) {
	line := strings.TrimSpace(output)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	return line, true
}
