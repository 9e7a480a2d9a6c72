package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"stackhouse/internal/binaries"
	"stackhouse/internal/config"
	"stackhouse/internal/paths"
	"stackhouse/internal/platform"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// fakeDownloadClient serves the same body for every URL, so installs run
// without touching the network.
func fakeDownloadClient(body string) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			Status:        "200 OK",
			StatusCode:    http.StatusOK,
			Body:          io.NopCloser(strings.NewReader(body)),
			ContentLength: int64(len(body)),
			Header:        make(http.Header),
			Request:       r,
		}, nil
	})}
}

type stubRunner struct {
	out string
}

func (r stubRunner) Run(context.Context, string, []string, binaries.RunOptions) (binaries.RunResult, error) {
	return binaries.RunResult{Stdout: []byte(r.out)}, nil
}

// newTestWorkdir resolves a temp dir through the normal workdir machinery.
func newTestWorkdir(t *testing.T) paths.Workdir {
	t.Helper()
	w, err := paths.Resolve(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func pinPlatform(t *testing.T) {
	t.Helper()
	prev := resolvePlatform
	resolvePlatform = func() (platform.Platform, error) {
		return platform.Platform{OS: "linux", Arch: "amd64"}, nil
	}
	t.Cleanup(func() { resolvePlatform = prev })
}

// stubInstallers makes every installer the commands build work offline:
// downloads come from a canned HTTP client and version probes from a stub
// runner whose output satisfies all three registry parsers.
func stubInstallers(t *testing.T) {
	t.Helper()
	prev := newInstaller
	newInstaller = func(w paths.Workdir, cfg config.Config, plat platform.Platform) *binaries.Installer {
		return &binaries.Installer{
			BinDir:   w.BinDir,
			CacheDir: w.CacheDir,
			Platform: plat,
			Retries:  cfg.Download.Retries,
			Client:   fakeDownloadClient("#!/bin/sh\nexit 0\n"),
			Runner:   stubRunner{out: "ClickHouse v25.1.1"},
		}
	}
	t.Cleanup(func() { newInstaller = prev })
}

// runCLI executes the root command against the given workdir, capturing
// combined output. Package-level flag state is restored afterwards.
func runCLI(t *testing.T, ctx context.Context, workdir string, args ...string) (string, error) {
	t.Helper()

	prevWorkdir, prevJSON := workdirFlag, outputJSON
	prevNoProgress, prevForce := installNoProgress, installForce
	prevDryRun, prevLogs := cleanDryRun, cleanLogs
	prevUsage := pipelineShowUsage
	t.Cleanup(func() {
		workdirFlag, outputJSON = prevWorkdir, prevJSON
		installNoProgress, installForce = prevNoProgress, prevForce
		cleanDryRun, cleanLogs = prevDryRun, prevLogs
		pipelineShowUsage = prevUsage
	})

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"--workdir", workdir}, args...))

	err := root.ExecuteContext(ctx)
	return buf.String(), err
}
