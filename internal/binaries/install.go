package binaries

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stackhouse/internal/platform"
)

// Stage labels one step of provisioning, for progress reporting.
type Stage string

const (
	StageDownloading Stage = "downloading"
	StageExtracting  Stage = "extracting"
	StageVerifying   Stage = "verifying"
	StageInstalled   Stage = "installed"
	StagePresent     Stage = "present"
	StageFailed      Stage = "failed"
)

// Installer provisions managed binaries into BinDir, using CacheDir for
// download and extraction scratch space. Zero-value optional fields fall
// back to real implementations; tests substitute Client and Runner.
type Installer struct {
	BinDir   string
	CacheDir string
	Platform platform.Platform

	// Retries is the number of additional download attempts after a
	// NetworkError. The downloader itself never retries.
	Retries int

	Client   *http.Client
	Runner   Runner
	Progress ProgressFunc
	// OnStage, when set, receives provisioning stage transitions.
	OnStage func(binary string, stage Stage)
	Logf    func(format string, v ...any)
}

func (in *Installer) runner() Runner {
	if in.Runner != nil {
		return in.Runner
	}
	return CmdRunner{}
}

func (in *Installer) logf(format string, v ...any) {
	if in.Logf != nil {
		in.Logf(format, v...)
	}
}

func (in *Installer) stage(binary string, s Stage) {
	if in.OnStage != nil {
		in.OnStage(binary, s)
	}
}

// InstalledPath returns where the named binary lives once installed.
func (in *Installer) InstalledPath(name string) (string, error) {
	def, err := Lookup(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(in.BinDir, def.Executable), nil
}

// Inspect recomputes the installation record for name from the filesystem,
// probing the version when the binary is runnable. It never installs.
func (in *Installer) Inspect(ctx context.Context, name string) (InstallationRecord, error) {
	def, err := Lookup(name)
	if err != nil {
		return InstallationRecord{}, err
	}

	rec := in.inspect(def)
	if rec.Ready() {
		if version, err := in.probeVersion(ctx, def, rec.Path); err == nil {
			rec.Version = version
		}
	}
	return rec, nil
}

func (in *Installer) inspect(def ManagedBinary) InstallationRecord {
	path := filepath.Join(in.BinDir, def.Executable)
	rec := InstallationRecord{Binary: def.Name, Path: path}

	info, err := os.Stat(path)
	if err != nil {
		return rec
	}
	rec.Exists = true
	rec.SizeBytes = info.Size()
	rec.Executable = info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
	return rec
}

// EnsureInstalled guarantees name is present, executable and responding to
// its version probe, downloading and installing it when necessary. Already
// healthy binaries take the fast path: a single probe and no writes.
func (in *Installer) EnsureInstalled(ctx context.Context, name string) (InstallationRecord, error) {
	def, err := Lookup(name)
	if err != nil {
		return InstallationRecord{}, err
	}

	if rec, ok := in.fastPath(ctx, def); ok {
		in.stage(def.Name, StagePresent)
		return rec, nil
	}

	spec, err := def.Asset(in.Platform)
	if err != nil {
		in.stage(def.Name, StageFailed)
		return InstallationRecord{}, err
	}

	unlock, err := in.acquireInstallLock(ctx, def.Name)
	if err != nil {
		in.stage(def.Name, StageFailed)
		return InstallationRecord{}, err
	}
	defer unlock()

	// A concurrent invocation may have finished the install while we
	// waited on the lock.
	if rec, ok := in.fastPath(ctx, def); ok {
		in.stage(def.Name, StagePresent)
		return rec, nil
	}

	rec, err := in.install(ctx, def, spec)
	if err != nil {
		in.stage(def.Name, StageFailed)
		return rec, err
	}
	in.stage(def.Name, StageInstalled)
	return rec, nil
}

// fastPath probes an existing installation. A binary that is present but
// fails its probe is treated as broken and falls through to re-provisioning.
func (in *Installer) fastPath(ctx context.Context, def ManagedBinary) (InstallationRecord, bool) {
	rec := in.inspect(def)
	if !rec.Ready() {
		return rec, false
	}
	version, err := in.probeVersion(ctx, def, rec.Path)
	if err != nil {
		in.logf("%s present at %s but probe failed, re-provisioning: %v", def.Name, rec.Path, err)
		return rec, false
	}
	rec.Version = version
	return rec, true
}

func (in *Installer) install(ctx context.Context, def ManagedBinary, spec DownloadSpec) (InstallationRecord, error) {
	if err := os.MkdirAll(in.CacheDir, 0o755); err != nil {
		return InstallationRecord{}, &IOError{Path: in.CacheDir, Err: err}
	}

	in.stage(def.Name, StageDownloading)
	in.logf("%s: downloading %s for %s", def.Name, spec.URL, in.Platform)

	scratch := filepath.Join(in.CacheDir, def.Executable+".download")
	written, err := in.downloadWithRetry(ctx, def.Name, spec.URL, scratch)
	if err != nil {
		return InstallationRecord{}, err
	}
	in.logf("%s: downloaded %d bytes", def.Name, written)

	execScratch := scratch
	if spec.Archive != ArchiveNone {
		in.stage(def.Name, StageExtracting)
		entry := spec.Entry
		if entry == "" {
			entry = def.Executable
		}
		execScratch = filepath.Join(in.CacheDir, def.Executable+".extracted")
		if err := extractEntry(def.Name, spec.Archive, scratch, entry, execScratch); err != nil {
			_ = os.Remove(scratch)
			return InstallationRecord{}, err
		}
		_ = os.Remove(scratch)
	}

	if err := os.Chmod(execScratch, 0o755); err != nil {
		_ = os.Remove(execScratch)
		return InstallationRecord{}, &IOError{Path: execScratch, Err: err}
	}

	finalPath := filepath.Join(in.BinDir, def.Executable)
	if err := os.MkdirAll(in.BinDir, 0o755); err != nil {
		_ = os.Remove(execScratch)
		return InstallationRecord{}, &IOError{Path: in.BinDir, Err: err}
	}
	// Atomic replace: a prior broken file is swapped out in one step, so
	// concurrent readers never observe a partial executable.
	if err := os.Rename(execScratch, finalPath); err != nil {
		_ = os.Remove(execScratch)
		return InstallationRecord{}, &IOError{Path: finalPath, Err: err}
	}

	in.stage(def.Name, StageVerifying)
	version, err := in.probeVersion(ctx, def, finalPath)
	if err != nil {
		return InstallationRecord{}, err
	}

	rec := in.inspect(def)
	rec.Version = version
	rec.NewlyInstalled = true
	in.logf("%s: installed at %s (%s)", def.Name, finalPath, version)
	return rec, nil
}

func (in *Installer) downloadWithRetry(ctx context.Context, binary, url, dest string) (int64, error) {
	var lastErr error
	for attempt := 0; attempt <= in.Retries; attempt++ {
		if attempt > 0 {
			in.logf("%s: retrying download (attempt %d of %d)", binary, attempt+1, in.Retries+1)
			select {
			case <-ctx.Done():
				return 0, &NetworkError{URL: url, Err: ctx.Err()}
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		written, err := Download(ctx, in.Client, binary, url, dest, in.Progress)
		if err == nil {
			return written, nil
		}
		lastErr = err
		var netErr *NetworkError
		if !errors.As(err, &netErr) || ctx.Err() != nil {
			return 0, err
		}
	}
	return 0, lastErr
}

// Outcome is the per-binary result of EnsureAll.
type Outcome struct {
	Name   string
	Record InstallationRecord
	Err    error
}

// Summary aggregates EnsureAll outcomes so callers can decide whether a
// partial set is sufficient.
type Summary struct {
	Outcomes       []Outcome
	NewlyInstalled int
	AlreadyPresent int
	Failed         int
}

// Err joins the per-binary failures, or returns nil when all succeeded.
func (s Summary) Err() error {
	var errs []error
	for _, o := range s.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Name, o.Err))
		}
	}
	return errors.Join(errs...)
}

// EnsureAll provisions every named binary, downloading missing ones
// concurrently. One binary's failure does not abort the others.
func (in *Installer) EnsureAll(ctx context.Context, names []string) Summary {
	outcomes := make([]Outcome, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			rec, err := in.EnsureInstalled(ctx, name)
			outcomes[i] = Outcome{Name: name, Record: rec, Err: err}
		}(i, name)
	}
	wg.Wait()

	summary := Summary{Outcomes: outcomes}
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			summary.Failed++
		case o.Record.NewlyInstalled:
			summary.NewlyInstalled++
		default:
			summary.AlreadyPresent++
		}
	}
	return summary
}

func (in *Installer) acquireInstallLock(ctx context.Context, name string) (func(), error) {
	if err := os.MkdirAll(in.CacheDir, 0o755); err != nil {
		return nil, &IOError{Path: in.CacheDir, Err: err}
	}

	lockPath := filepath.Join(in.CacheDir, name+".lock")
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("acquire %s install lock: %w", name, err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire %s install lock: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}
