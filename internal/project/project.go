// Package project manages the minimal per-project metadata stored under
// the workdir's projects directory. Plain I/O; no provisioning or
// supervision concerns.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"stackhouse/internal/paths"
)

const metadataFile = "project.yaml"

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Metadata describes one project.
type Metadata struct {
	Name      string    `yaml:"name"`
	CreatedAt time.Time `yaml:"created_at"`
	// DataDir is the directory the pipeline's storage server serves.
	DataDir string `yaml:"data_dir"`
}

// Create initializes a new project directory with its data dir and
// metadata file. An existing project of the same name is an error.
func Create(w paths.Workdir, name string) (Metadata, error) {
	if !nameRe.MatchString(name) {
		return Metadata{}, fmt.Errorf("invalid project name %q: lowercase letters, digits, dot, dash and underscore only", name)
	}

	dir := w.ProjectDir(name)
	if _, err := os.Stat(filepath.Join(dir, metadataFile)); err == nil {
		return Metadata{}, fmt.Errorf("project %q already exists", name)
	}

	meta := Metadata{
		Name:      name,
		CreatedAt: time.Now().UTC(),
		DataDir:   filepath.Join(dir, "data"),
	}
	if err := os.MkdirAll(meta.DataDir, 0o755); err != nil {
		return Metadata{}, fmt.Errorf("create project data dir: %w", err)
	}

	buf, err := yaml.Marshal(&meta)
	if err != nil {
		return Metadata{}, fmt.Errorf("marshal project metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), buf, 0o644); err != nil {
		return Metadata{}, fmt.Errorf("write project metadata: %w", err)
	}
	return meta, nil
}

// Load reads one project's metadata.
func Load(w paths.Workdir, name string) (Metadata, error) {
	contents, err := os.ReadFile(filepath.Join(w.ProjectDir(name), metadataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Metadata{}, fmt.Errorf("project %q not found", name)
		}
		return Metadata{}, fmt.Errorf("read project metadata: %w", err)
	}

	var meta Metadata
	if err := yaml.Unmarshal(contents, &meta); err != nil {
		return Metadata{}, fmt.Errorf("unmarshal project metadata: %w", err)
	}
	if meta.DataDir == "" {
		meta.DataDir = filepath.Join(w.ProjectDir(name), "data")
	}
	return meta, nil
}

// List returns the metadata of every project, sorted by name. Directories
// without a readable metadata file are skipped.
func List(w paths.Workdir) ([]Metadata, error) {
	entries, err := os.ReadDir(w.ProjectsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read projects directory: %w", err)
	}

	var projects []Metadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := Load(w, entry.Name())
		if err != nil {
			continue
		}
		projects = append(projects, meta)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}
