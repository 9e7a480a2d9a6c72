package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvHome overrides the default workdir location when set.
const EnvHome = "STACKHOUSE_HOME"

// Workdir captures the canonical locations inside the stackhouse working
// directory. bin/ and cache/ belong to provisioning; projects/ and logs/
// belong to the surrounding tooling.
type Workdir struct {
	Root        string
	BinDir      string
	CacheDir    string
	ProjectsDir string
	LogsDir     string
	ConfigFile  string
}

// Resolve determines the workdir root: the --workdir flag when given, then
// $STACKHOUSE_HOME, then ~/.stackhouse.
func Resolve(workdirFlag string) (Workdir, error) {
	root := workdirFlag
	if root == "" {
		root = os.Getenv(EnvHome)
	}
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Workdir{}, fmt.Errorf("detect user home: %w", err)
		}
		root = filepath.Join(home, ".stackhouse")
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return Workdir{}, fmt.Errorf("resolve workdir root: %w", err)
	}
	return newWorkdir(root), nil
}

func newWorkdir(root string) Workdir {
	return Workdir{
		Root:        root,
		BinDir:      filepath.Join(root, "bin"),
		CacheDir:    filepath.Join(root, "cache"),
		ProjectsDir: filepath.Join(root, "projects"),
		LogsDir:     filepath.Join(root, "logs"),
		ConfigFile:  filepath.Join(root, "stackhouse.yaml"),
	}
}

// EnsureLayout creates the workdir hierarchy.
func (w Workdir) EnsureLayout() error {
	dirs := []string{w.Root, w.BinDir, w.CacheDir, w.ProjectsDir, w.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ProjectDir returns the directory for one named project.
func (w Workdir) ProjectDir(name string) string {
	return filepath.Join(w.ProjectsDir, name)
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
