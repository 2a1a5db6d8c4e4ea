package webui

import (
	"fmt"
	"os"
	"path/filepath"

	"sdrig/internal/catalog"
	"sdrig/internal/workspace"
)

// Link records the outcome of wiring one model directory.
type Link struct {
	Category catalog.Category
	// Path is the frontend-side directory, relative to the workspace root.
	Path string
	// Target is the shared directory, relative to the workspace root.
	Target  string
	Created bool
	Note    string
}

// LinkSharedModels symlinks the workspace's shared model tree into a
// frontend checkout so every installed UI sees the same files, and points the
// frontend's output directory at the shared outputs/. Links are created
// relative and survive a workspace move. Existing directories that already
// contain files are left alone.
func LinkSharedModels(ws *workspace.Workspace, spec Spec) ([]Link, error) {
	var links []Link
	for _, cat := range catalog.Categories() {
		rel, ok := spec.ModelDirs[cat]
		if !ok {
			continue
		}
		link, err := makeLink(ws, filepath.Join(ws.WebUIDir(spec.Name), rel), ws.ModelDir(cat))
		if err != nil {
			return links, err
		}
		link.Category = cat
		links = append(links, link)
	}
	if spec.OutputDir != "" {
		link, err := makeLink(ws, filepath.Join(ws.WebUIDir(spec.Name), spec.OutputDir), ws.OutputsDir())
		if err != nil {
			return links, err
		}
		links = append(links, link)
	}
	return links, nil
}

func makeLink(ws *workspace.Workspace, linkPath, target string) (Link, error) {
	link := Link{
		Path:   ws.Rel(linkPath),
		Target: ws.Rel(target),
	}
	relTarget, err := filepath.Rel(filepath.Dir(linkPath), target)
	if err != nil {
		return link, fmt.Errorf("relativizing %s: %w", link.Path, err)
	}
	created, note, err := ensureSymlink(linkPath, relTarget)
	if err != nil {
		return link, fmt.Errorf("linking %s: %w", link.Path, err)
	}
	link.Created = created
	link.Note = note
	return link, nil
}

// ensureSymlink makes path a symlink to target, replacing a stale symlink or
// an empty directory but never touching real content.
func ensureSymlink(path, target string) (created bool, note string, err error) {
	fi, err := os.Lstat(path)
	switch {
	case os.IsNotExist(err):
		// Fall through to create.
	case err != nil:
		return false, "", err
	case fi.Mode()&os.ModeSymlink != 0:
		existing, err := os.Readlink(path)
		if err != nil {
			return false, "", err
		}
		if existing == target {
			return false, "already linked", nil
		}
		if err := os.Remove(path); err != nil {
			return false, "", err
		}
		note = "relinked"
	case fi.IsDir():
		entries, err := os.ReadDir(path)
		if err != nil {
			return false, "", err
		}
		if len(entries) > 0 {
			return false, "kept existing directory (not empty)", nil
		}
		if err := os.Remove(path); err != nil {
			return false, "", err
		}
		note = "replaced empty directory"
	default:
		return false, "kept existing file", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, "", err
	}
	if err := os.Symlink(target, path); err != nil {
		return false, "", err
	}
	return true, note, nil
}
