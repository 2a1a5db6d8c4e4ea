package status

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sdrig/internal/catalog"
	"sdrig/internal/config"
	"sdrig/internal/download"
	"sdrig/internal/state"
	"sdrig/internal/webui"
	"sdrig/internal/workspace"
)

func testWS(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.Init(t.TempDir(), workspace.InitOptions{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return ws
}

func TestCollectFreshWorkspace(t *testing.T) {
	ws := testWS(t)
	snap, err := Collect(ws, config.Default())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if snap.Root != ws.Root {
		t.Errorf("Root = %q, want %q", snap.Root, ws.Root)
	}
	if snap.Flavor != catalog.SD15 {
		t.Errorf("Flavor = %q, want sd15", snap.Flavor)
	}
	if snap.Launch != nil {
		t.Errorf("Launch = %+v, want nil before first launch", snap.Launch)
	}
	if len(snap.WebUIs) != len(webui.Names()) {
		t.Fatalf("WebUIs = %d entries, want %d", len(snap.WebUIs), len(webui.Names()))
	}
	var selected int
	for _, w := range snap.WebUIs {
		if w.Installed {
			t.Errorf("%s reported installed in empty workspace", w.Name)
		}
		if w.Selected {
			selected++
			if w.Name != webui.DefaultName {
				t.Errorf("selected = %s, want %s", w.Name, webui.DefaultName)
			}
		}
	}
	if selected != 1 {
		t.Errorf("selected count = %d, want 1", selected)
	}
	if len(snap.Models) != len(catalog.Categories()) {
		t.Errorf("Models = %d entries, want one per category", len(snap.Models))
	}
	for _, m := range snap.Models {
		if m.Files != 0 || m.Bytes != 0 {
			t.Errorf("%s tally = %d files %d bytes, want empty", m.Category, m.Files, m.Bytes)
		}
	}
	if snap.Manifest.Entries != 0 {
		t.Errorf("Manifest.Entries = %d, want 0", snap.Manifest.Entries)
	}
}

func TestCollectTalliesModels(t *testing.T) {
	ws := testWS(t)
	dir := ws.ModelDir(catalog.Checkpoint)
	for name, size := range map[string]int{"a.safetensors": 10, "b.ckpt": 32} {
		if err := os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Hidden files and subdirectories stay out of the tally.
	if err := os.WriteFile(filepath.Join(dir, ".keep"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	snap, err := Collect(ws, config.Default())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, m := range snap.Models {
		if m.Category != catalog.Checkpoint {
			continue
		}
		if m.Files != 2 || m.Bytes != 42 {
			t.Errorf("checkpoint tally = %d files %d bytes, want 2 files 42 bytes", m.Files, m.Bytes)
		}
	}
}

func TestCollectReportsLaunchAndManifest(t *testing.T) {
	ws := testWS(t)

	st := state.New("abc", "forge", 4, "logs/x.log")
	ended := time.Now().UTC()
	st.MarkEnded(state.StatusCompleted, 0)
	if err := st.Save(ws); err != nil {
		t.Fatal(err)
	}

	man := download.NewManifest()
	man.Record("models/Stable-diffusion/a.safetensors", download.ManifestEntry{
		URL: "https://example.com/a", Category: catalog.Checkpoint, Size: 100, CompletedAt: ended,
	})
	if err := man.Save(ws); err != nil {
		t.Fatal(err)
	}

	snap, err := Collect(ws, config.Default())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if snap.Launch == nil {
		t.Fatal("Launch = nil, want recorded launch")
	}
	if snap.Launch.Status != state.StatusCompleted || snap.Launch.WebUI != "forge" {
		t.Errorf("Launch = %+v", snap.Launch)
	}
	if snap.Launch.Stale() {
		t.Error("completed launch reported stale")
	}
	if snap.Manifest.Entries != 1 || snap.Manifest.Bytes != 100 {
		t.Errorf("Manifest = %+v, want 1 entry of 100 bytes", snap.Manifest)
	}
}

func TestLaunchStale(t *testing.T) {
	l := &Launch{Status: state.StatusRunning, Alive: false}
	if !l.Stale() {
		t.Error("running launch with dead pid not reported stale")
	}
	l = &Launch{Status: state.StatusRunning, Alive: true}
	if l.Stale() {
		t.Error("live launch reported stale")
	}
	l = &Launch{Status: state.StatusInterrupted, Alive: false}
	if l.Stale() {
		t.Error("ended launch reported stale")
	}
}
