package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the provisioning and pipeline policy for a workdir.
type Config struct {
	Version  int            `yaml:"version"`
	Download DownloadConfig `yaml:"download"`
	Storage  ProcessConfig  `yaml:"storage"`
	Database ProcessConfig  `yaml:"database"`
}

// DownloadConfig holds provisioning policy.
type DownloadConfig struct {
	// Retries is the number of additional attempts after a network
	// failure. Zero means a single attempt.
	Retries int `yaml:"retries"`
}

// ProcessConfig holds the spawn contract for one pipeline member. Args may
// use the placeholders {listen}, {endpoint}, {data} and {bucket}.
type ProcessConfig struct {
	Listen       string   `yaml:"listen,omitempty"`
	Args         []string `yaml:"args"`
	ReadyMarker  string   `yaml:"ready_marker"`
	ReadyTimeout int      `yaml:"ready_timeout_s"`
	GraceSeconds int      `yaml:"grace_s"`
}

// ReadyTimeoutDuration returns the readiness timeout as a duration.
func (p ProcessConfig) ReadyTimeoutDuration() time.Duration {
	return time.Duration(p.ReadyTimeout) * time.Second
}

// GraceDuration returns the termination grace period as a duration.
func (p ProcessConfig) GraceDuration() time.Duration {
	return time.Duration(p.GraceSeconds) * time.Second
}

// Default returns the baseline configuration. Ready markers match the real
// startup lines of the managed binaries.
func Default() Config {
	return Config{
		Version: 1,
		Download: DownloadConfig{
			Retries: 0,
		},
		Storage: ProcessConfig{
			Listen:       "127.0.0.1:9044",
			Args:         []string{"serve", "--listen", "{listen}", "--bucket", "{bucket}={data}"},
			ReadyMarker:  "(?i)listening",
			ReadyTimeout: 30,
			GraceSeconds: 5,
		},
		Database: ProcessConfig{
			Args:         []string{"server", "--", "--s3_endpoint={endpoint}"},
			ReadyMarker:  "Ready for connections",
			ReadyTimeout: 60,
			GraceSeconds: 10,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise
// returns the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when
// the YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.Storage.Listen == "" {
		c.Storage.Listen = defaults.Storage.Listen
	}
	if len(c.Storage.Args) == 0 {
		c.Storage.Args = defaults.Storage.Args
	}
	if c.Storage.ReadyMarker == "" {
		c.Storage.ReadyMarker = defaults.Storage.ReadyMarker
	}
	if c.Storage.ReadyTimeout == 0 {
		c.Storage.ReadyTimeout = defaults.Storage.ReadyTimeout
	}
	if c.Storage.GraceSeconds == 0 {
		c.Storage.GraceSeconds = defaults.Storage.GraceSeconds
	}
	if len(c.Database.Args) == 0 {
		c.Database.Args = defaults.Database.Args
	}
	if c.Database.ReadyMarker == "" {
		c.Database.ReadyMarker = defaults.Database.ReadyMarker
	}
	if c.Database.ReadyTimeout == 0 {
		c.Database.ReadyTimeout = defaults.Database.ReadyTimeout
	}
	if c.Database.GraceSeconds == 0 {
		c.Database.GraceSeconds = defaults.Database.GraceSeconds
	}
}

// Validate rejects values the pipeline cannot act on.
func (c Config) Validate() error {
	if c.Download.Retries < 0 {
		return fmt.Errorf("config: download.retries must not be negative")
	}
	for _, pc := range []struct {
		name string
		cfg  ProcessConfig
	}{{"storage", c.Storage}, {"database", c.Database}} {
		if _, err := regexp.Compile(pc.cfg.ReadyMarker); err != nil {
			return fmt.Errorf("config: %s.ready_marker: %w", pc.name, err)
		}
		if pc.cfg.ReadyTimeout < 0 {
			return fmt.Errorf("config: %s.ready_timeout_s must not be negative", pc.name)
		}
	}
	return nil
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

// Save writes the configuration to path.
func (c Config) Save(path string) error {
	buf, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
