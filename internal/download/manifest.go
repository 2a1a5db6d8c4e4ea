package download

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/zeebo/blake3"

	"sdrig/internal/catalog"
	"sdrig/internal/workspace"
)

// manifestVersion guards the on-disk schema.
const manifestVersion = 1

// ManifestEntry records one completed download.
type ManifestEntry struct {
	URL         string           `json:"url"`
	Category    catalog.Category `json:"category"`
	Size        int64            `json:"size"`
	BLAKE3      string           `json:"blake3"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Manifest tracks every file the downloader has placed in the workspace,
// keyed by workspace-relative path.
type Manifest struct {
	Version int                      `json:"version"`
	Entries map[string]ManifestEntry `json:"entries"`
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{Version: manifestVersion, Entries: make(map[string]ManifestEntry)}
}

// LoadManifest reads the workspace manifest. A missing file is an empty
// manifest, not an error.
func LoadManifest(ws *workspace.Workspace) (*Manifest, error) {
	data, err := os.ReadFile(ws.ManifestPath())
	if errors.Is(err, fs.ErrNotExist) {
		return NewManifest(), nil
	}
	if err != nil {
		return nil, err
	}
	var man Manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ws.Rel(ws.ManifestPath()), err)
	}
	if man.Version != manifestVersion {
		return nil, fmt.Errorf("manifest version %d is not supported (want %d)", man.Version, manifestVersion)
	}
	if man.Entries == nil {
		man.Entries = make(map[string]ManifestEntry)
	}
	return &man, nil
}

// Save writes the manifest atomically.
func (m *Manifest) Save(ws *workspace.Workspace) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return workspace.WriteFileAtomic(ws.ManifestPath(), append(data, '\n'), 0o644)
}

// Record stores an entry under the workspace-relative path.
func (m *Manifest) Record(path string, entry ManifestEntry) {
	m.Entries[path] = entry
}

// Lookup returns the entry at a workspace-relative path.
func (m *Manifest) Lookup(path string) (ManifestEntry, bool) {
	entry, ok := m.Entries[path]
	return entry, ok
}

// FindURL returns the path of the entry recorded for url, if any.
func (m *Manifest) FindURL(url string) (string, bool) {
	for path, entry := range m.Entries {
		if entry.URL == url {
			return path, true
		}
	}
	return "", false
}

// Paths returns the recorded paths in sorted order.
func (m *Manifest) Paths() []string {
	paths := make([]string, 0, len(m.Entries))
	for path := range m.Entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// TotalSize sums the recorded sizes.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, entry := range m.Entries {
		total += entry.Size
	}
	return total
}

// HashFile computes the hex BLAKE3 digest of a file and its size.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := blake3.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
