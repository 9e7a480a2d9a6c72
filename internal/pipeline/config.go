package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ProcessConfig describes one member process of a pipeline.
type ProcessConfig struct {
	// Binary is the managed binary's registry name.
	Binary string
	// Args may contain the placeholders {listen}, {endpoint}, {data} and
	// {bucket}, expanded at spawn time.
	Args []string
	// ReadyMarker is a regular expression matched against output lines.
	ReadyMarker  string
	ReadyTimeout time.Duration
	// Grace bounds how long a graceful terminate waits before escalating.
	Grace time.Duration
}

// Config is the full plan for one pipeline: an s3fs storage server fronting
// DataDir, and a clickhouse database attached to it.
type Config struct {
	// Name identifies the pipeline, typically the project name.
	Name string
	// DataDir is the directory the storage server serves.
	DataDir string
	// ListenAddr is the storage server's host:port.
	ListenAddr string
	// Bucket is the logical bucket name mapped onto DataDir.
	Bucket string

	Storage  ProcessConfig
	Database ProcessConfig

	// Extras are additional binaries to provision alongside the pipeline's
	// own, e.g. the toolkit binary.
	Extras []string
}

func (c *Config) validate() error {
	if c.Name == "" {
		return fmt.Errorf("pipeline config: name is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("pipeline config: data dir is required")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("pipeline config: listen address is required")
	}
	for _, pc := range []struct {
		role string
		cfg  ProcessConfig
	}{{"storage", c.Storage}, {"database", c.Database}} {
		if pc.cfg.Binary == "" {
			return fmt.Errorf("pipeline config: %s binary is required", pc.role)
		}
		if pc.cfg.ReadyMarker == "" {
			return fmt.Errorf("pipeline config: %s ready marker is required", pc.role)
		}
		if _, err := regexp.Compile(pc.cfg.ReadyMarker); err != nil {
			return fmt.Errorf("pipeline config: %s ready marker: %w", pc.role, err)
		}
		if pc.cfg.ReadyTimeout <= 0 {
			return fmt.Errorf("pipeline config: %s ready timeout must be positive", pc.role)
		}
	}
	return nil
}

// ExpandArgs substitutes spawn-time placeholders into an argument list.
func (c *Config) ExpandArgs(args []string) []string {
	replacer := strings.NewReplacer(
		"{listen}", c.ListenAddr,
		"{endpoint}", "http://"+c.ListenAddr,
		"{data}", c.DataDir,
		"{bucket}", c.Bucket,
	)
	expanded := make([]string, len(args))
	for i, arg := range args {
		expanded[i] = replacer.Replace(arg)
	}
	return expanded
}

// binaryNames lists every registry name this pipeline needs provisioned.
func (c *Config) binaryNames() []string {
	names := []string{c.Storage.Binary, c.Database.Binary}
	for _, extra := range c.Extras {
		if extra != c.Storage.Binary && extra != c.Database.Binary {
			names = append(names, extra)
		}
	}
	return names
}
