// Package status assembles a point-in-time snapshot of a workspace: which
// frontends are installed, what is running, and what the model dirs hold.
// The status command, the doctor, and the dashboard all read from here.
package status

import (
	"errors"
	"os"
	"strings"
	"time"

	"sdrig/internal/catalog"
	"sdrig/internal/config"
	"sdrig/internal/download"
	"sdrig/internal/launch"
	"sdrig/internal/state"
	"sdrig/internal/webui"
	"sdrig/internal/workspace"
)

// WebUI is one registry entry's install standing.
type WebUI struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Installed bool   `json:"installed"`
	Selected  bool   `json:"selected"`
}

// Launch mirrors state.json plus a fresh liveness probe.
type Launch struct {
	WebUI     string     `json:"webui"`
	Status    string     `json:"status"`
	PID       int        `json:"pid,omitempty"`
	Alive     bool       `json:"alive"`
	URLs      []string   `json:"urls,omitempty"`
	LogPath   string     `json:"log_path,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	ExitCode  *int       `json:"exit_code,omitempty"`
}

// Stale reports a recorded running launch whose process is gone.
func (l *Launch) Stale() bool {
	return l.Status == state.StatusRunning && !l.Alive
}

// Models is the on-disk tally for one category.
type Models struct {
	Category catalog.Category `json:"category"`
	Files    int              `json:"files"`
	Bytes    int64            `json:"bytes"`
}

// Manifest sums the download ledger.
type Manifest struct {
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

// Snapshot is everything the status surfaces show.
type Snapshot struct {
	Root     string         `json:"root"`
	Flavor   catalog.Flavor `json:"flavor"`
	WebUIs   []WebUI        `json:"webuis"`
	Launch   *Launch        `json:"launch,omitempty"`
	Models   []Models       `json:"models"`
	Manifest Manifest       `json:"manifest"`
}

// Collect builds a Snapshot. Absent pieces (no launch yet, empty manifest)
// are represented, not errors.
func Collect(ws *workspace.Workspace, cfg *config.Config) (*Snapshot, error) {
	snap := &Snapshot{
		Root:   ws.Root,
		Flavor: cfg.Models.Flavor(),
	}

	for _, name := range webui.Names() {
		spec, err := webui.Lookup(name)
		if err != nil {
			return nil, err
		}
		snap.WebUIs = append(snap.WebUIs, WebUI{
			Name:      spec.Name,
			Title:     spec.Title,
			Installed: webui.IsInstalled(ws, spec),
			Selected:  spec.Name == cfg.WebUI.Selected,
		})
	}

	st, err := state.Load(ws)
	switch {
	case err == nil:
		snap.Launch = &Launch{
			WebUI:     st.WebUI,
			Status:    st.Status,
			PID:       st.PID,
			Alive:     launch.Alive(st.PID),
			URLs:      st.URLs,
			LogPath:   st.LogPath,
			StartedAt: st.StartedAt,
			EndedAt:   st.EndedAt,
			ExitCode:  st.ExitCode,
		}
	case !errors.Is(err, state.ErrNotFound):
		return nil, err
	}

	for _, cat := range catalog.Categories() {
		files, size := tallyDir(ws.ModelDir(cat))
		snap.Models = append(snap.Models, Models{Category: cat, Files: files, Bytes: size})
	}

	man, err := download.LoadManifest(ws)
	if err != nil {
		return nil, err
	}
	snap.Manifest = Manifest{Entries: len(man.Entries), Bytes: man.TotalSize()}
	return snap, nil
}

// tallyDir counts regular files one level deep; model dirs are flat.
func tallyDir(dir string) (int, int64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	var files int
	var size int64
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files++
		size += info.Size()
	}
	return files, size
}
