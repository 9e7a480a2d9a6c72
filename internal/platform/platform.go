package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// Platform identifies a supported operating-system / architecture pair used
// to select release assets.
type Platform struct {
	OS   string
	Arch string
}

func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// UnsupportedPlatformError reports an OS/arch pair with no release asset.
// Binary is set when a specific registry entry lacks an asset for an
// otherwise supported platform.
type UnsupportedPlatformError struct {
	OS     string
	Arch   string
	Binary string
}

func (e *UnsupportedPlatformError) Error() string {
	if e.Binary != "" {
		return fmt.Sprintf("no %s asset for platform %s/%s", e.Binary, e.OS, e.Arch)
	}
	return fmt.Sprintf("unsupported platform %s/%s", e.OS, e.Arch)
}

var supported = map[Platform]bool{
	{OS: "darwin", Arch: "arm64"}: true,
	{OS: "darwin", Arch: "amd64"}: true,
	{OS: "linux", Arch: "amd64"}:  true,
}

// Resolve maps the running OS and architecture to a Platform. It is pure:
// callers resolve once at startup and pass the value down explicitly.
func Resolve() (Platform, error) {
	return resolve(runtime.GOOS, runtime.GOARCH)
}

func resolve(goos, goarch string) (Platform, error) {
	p := Platform{OS: goos, Arch: goarch}
	if !supported[p] {
		return Platform{}, &UnsupportedPlatformError{OS: goos, Arch: goarch}
	}
	return p, nil
}

// HostInfo carries human-oriented host details for status output.
type HostInfo struct {
	Platform string `json:"platform,omitempty"`
	Family   string `json:"family,omitempty"`
	Version  string `json:"version,omitempty"`
}

// Describe returns distribution-level host details. Detection failures are
// not fatal: status output degrades to OS/arch only.
func Describe(ctx context.Context) (HostInfo, error) {
	name, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return HostInfo{}, fmt.Errorf("describe host: %w", ctx.Err())
		}
		return HostInfo{}, nil
	}
	return HostInfo{Platform: name, Family: family, Version: version}, nil
}
