package binaries

import (
	"context"
	"strings"
	"time"
)

const probeTimeout = 15 * time.Second

// probeVersion runs the binary's version probe and parses its output. Both
// output streams are considered: some binaries print version or help text
// to stderr.
func (in *Installer) probeVersion(ctx context.Context, def ManagedBinary, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	result, err := in.runner().Run(ctx, path, def.ProbeArgs, RunOptions{})
	output := strings.TrimSpace(string(result.Stdout))
	if output == "" {
		output = strings.TrimSpace(string(result.Stderr))
	}
	if err != nil {
		return "", &VerificationError{Binary: def.Name, Path: path, Output: output, Err: err}
	}

	version, ok := def.ParseProbe(output)
	if !ok {
		return "", &VerificationError{Binary: def.Name, Path: path, Output: output}
	}
	return version, nil
}
