// Package workspace locates and lays out the sdrig workspace: the directory
// tree holding shared model storage, WebUI installations, configuration,
// state, and logs. A directory is a workspace iff .sdrig/config.yaml exists.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sdrig/internal/catalog"
)

const (
	metaDir    = ".sdrig"
	configName = "config.yaml"
)

// ErrNotFound is returned when no workspace root can be located.
var ErrNotFound = errors.New("no .sdrig/config.yaml found (run 'sdrig init' to create a workspace)")

// Workspace is a handle on a workspace root. All paths it hands out are
// absolute and inside Root.
type Workspace struct {
	Root string
}

// Find walks up from start until a directory containing .sdrig/config.yaml
// is found.
func Find(start string) (*Workspace, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, metaDir, configName)); err == nil {
			return &Workspace{Root: dir}, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNotFound
		}
		dir = parent
	}
}

// Open returns the workspace rooted at an explicit directory, verifying that
// it actually is one.
func Open(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(abs, metaDir, configName)); err != nil {
		return nil, fmt.Errorf("%s: %w", abs, ErrNotFound)
	}
	return &Workspace{Root: abs}, nil
}

func (ws *Workspace) MetaDir() string      { return filepath.Join(ws.Root, metaDir) }
func (ws *Workspace) ConfigPath() string   { return filepath.Join(ws.Root, metaDir, configName) }
func (ws *Workspace) StatePath() string    { return filepath.Join(ws.Root, metaDir, "state.json") }
func (ws *Workspace) ManifestPath() string { return filepath.Join(ws.Root, metaDir, "manifest.json") }
func (ws *Workspace) LogsDir() string      { return filepath.Join(ws.Root, metaDir, "logs") }
func (ws *Workspace) TmpDir() string       { return filepath.Join(ws.Root, metaDir, "tmp") }
func (ws *Workspace) ModelsDir() string    { return filepath.Join(ws.Root, "models") }
func (ws *Workspace) WebUIsDir() string    { return filepath.Join(ws.Root, "webuis") }
func (ws *Workspace) OutputsDir() string   { return filepath.Join(ws.Root, "outputs") }
func (ws *Workspace) CartPath() string     { return filepath.Join(ws.Root, "cart.txt") }

// ModelDir returns the shared storage directory for a model category.
func (ws *Workspace) ModelDir(cat catalog.Category) string {
	return filepath.Join(ws.ModelsDir(), cat.SharedDir())
}

// WebUIDir returns the installation directory for a WebUI.
func (ws *Workspace) WebUIDir(name string) string {
	return filepath.Join(ws.WebUIsDir(), name)
}

// Contains reports whether path resolves to a location inside the workspace.
// Used to enforce that downloads and links never escape the root.
func (ws *Workspace) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(ws.Root, abs)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}

// Rel returns path relative to the workspace root, or the path unchanged if
// it is not inside the workspace.
func (ws *Workspace) Rel(path string) string {
	rel, err := filepath.Rel(ws.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func (ws *Workspace) dirs() []string {
	out := []string{
		ws.MetaDir(),
		ws.LogsDir(),
		ws.TmpDir(),
		ws.ModelsDir(),
		ws.WebUIsDir(),
		ws.OutputsDir(),
	}
	for _, cat := range catalog.Categories() {
		out = append(out, ws.ModelDir(cat))
	}
	return out
}

// MissingDirs lists workspace-relative directories absent from the tree.
func (ws *Workspace) MissingDirs() []string {
	var missing []string
	for _, dir := range ws.dirs() {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			missing = append(missing, ws.Rel(dir))
		}
	}
	return missing
}

// EnsureTree re-creates any missing workspace directories.
func (ws *Workspace) EnsureTree() error {
	for _, dir := range ws.dirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", ws.Rel(dir), err)
		}
	}
	return nil
}
