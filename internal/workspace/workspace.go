// Package workspace implements Mussels' workspace manager (spec §4.9): the
// data-directory layout, and the clean_* operations.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mussels-build/mussels/internal/config"
)

// Workspace owns the layout under the data directory:
//
//	<data>/
//	  config/cookbooks.json
//	  cookbooks/<name>/           # git checkouts
//	  cache/downloads/            # fetched archives, keyed by filename
//	  cache/work/<target>/<stem>/ # per-recipe build trees
//	  install/<target>/<dest>/... # staged outputs
//	  logs/recipes/<nvc>.<ts>.log
//	  logs/tools/<nv>.<ts>.log
//	  logs/mussels.log
type Workspace struct {
	DataDir string

	ConfigDir       string
	RegistryFile    string
	CookbooksDir    string
	CacheDir        string
	DownloadCache   string
	WorkDir         string
	InstallDir      string
	LogsDir         string
	RecipeLogsDir   string
	ToolLogsDir     string
	MainLogFile     string
}

// New builds a Workspace rooted at the resolved Mussels home directory
// (config.Resolve), precomputing every subdirectory's absolute path.
func New() (*Workspace, error) {
	dataDir, err := config.Resolve()
	if err != nil {
		return nil, err
	}
	return NewAt(dataDir), nil
}

// NewAt builds a Workspace rooted at an explicit directory (used by tests
// and by callers that already resolved $MUSSELS_HOME).
func NewAt(dataDir string) *Workspace {
	return &Workspace{
		DataDir:       dataDir,
		ConfigDir:     filepath.Join(dataDir, "config"),
		RegistryFile:  filepath.Join(dataDir, "config", "cookbooks.json"),
		CookbooksDir:  filepath.Join(dataDir, "cookbooks"),
		CacheDir:      filepath.Join(dataDir, "cache"),
		DownloadCache: filepath.Join(dataDir, "cache", "downloads"),
		WorkDir:       filepath.Join(dataDir, "cache", "work"),
		InstallDir:    filepath.Join(dataDir, "install"),
		LogsDir:       filepath.Join(dataDir, "logs"),
		RecipeLogsDir: filepath.Join(dataDir, "logs", "recipes"),
		ToolLogsDir:   filepath.Join(dataDir, "logs", "tools"),
		MainLogFile:   filepath.Join(dataDir, "logs", "mussels.log"),
	}
}

// EnsureDirectories creates every directory in the layout. Per spec §7,
// failure to create workspace directories is fatal.
func (w *Workspace) EnsureDirectories() error {
	dirs := []string{
		w.DataDir, w.ConfigDir, w.CookbooksDir, w.CacheDir,
		w.DownloadCache, w.WorkDir, w.InstallDir,
		w.LogsDir, w.RecipeLogsDir, w.ToolLogsDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating workspace directory %s: %w", dir, err)
		}
	}
	return nil
}

// WorkTreeDir returns the per-recipe build tree path <work>/<target>/<stem>.
func (w *Workspace) WorkTreeDir(target, stem string) string {
	return filepath.Join(w.WorkDir, target, stem)
}

// InstallTargetDir returns <install>/<target>.
func (w *Workspace) InstallTargetDir(target string) string {
	return filepath.Join(w.InstallDir, target)
}

// CookbookDir returns <data>/cookbooks/<name>.
func (w *Workspace) CookbookDir(name string) string {
	return filepath.Join(w.CookbooksDir, name)
}

// DownloadPath returns the cache path for a fetched archive, keyed by
// filename (spec §4.9).
func (w *Workspace) DownloadPath(filename string) string {
	return filepath.Join(w.DownloadCache, filename)
}

// clean removes dir if it exists; a missing directory is not an error.
func clean(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(dir)
}

// CleanCache removes the download and work-tree caches.
func (w *Workspace) CleanCache() error {
	if err := clean(w.DownloadCache); err != nil {
		return fmt.Errorf("clean cache: %w", err)
	}
	if err := clean(w.WorkDir); err != nil {
		return fmt.Errorf("clean cache: %w", err)
	}
	return os.MkdirAll(w.DownloadCache, 0o755)
}

// CleanInstall removes the staged install tree.
func (w *Workspace) CleanInstall() error {
	if err := clean(w.InstallDir); err != nil {
		return fmt.Errorf("clean install: %w", err)
	}
	return os.MkdirAll(w.InstallDir, 0o755)
}

// CleanLogs removes per-recipe and per-tool logs.
func (w *Workspace) CleanLogs() error {
	if err := clean(w.RecipeLogsDir); err != nil {
		return fmt.Errorf("clean logs: %w", err)
	}
	if err := clean(w.ToolLogsDir); err != nil {
		return fmt.Errorf("clean logs: %w", err)
	}
	if err := os.MkdirAll(w.RecipeLogsDir, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(w.ToolLogsDir, 0o755)
}

// CleanAll removes cache, install, and logs.
func (w *Workspace) CleanAll() error {
	if err := w.CleanCache(); err != nil {
		return err
	}
	if err := w.CleanInstall(); err != nil {
		return err
	}
	return w.CleanLogs()
}
