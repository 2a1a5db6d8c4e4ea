package doctor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sdrig/internal/catalog"
	"sdrig/internal/config"
	"sdrig/internal/download"
	"sdrig/internal/state"
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

// stubTools points PATH at a directory holding only the named fake
// executables, so tool probes are deterministic.
func stubTools(t *testing.T, names ...string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		script := filepath.Join(dir, name)
		if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", dir)
}

func resultFor(t *testing.T, r *Report, name string) Result {
	t.Helper()
	for _, res := range r.Results {
		if res.Name == name {
			return res
		}
	}
	t.Fatalf("no result named %q in %+v", name, r.Results)
	return Result{}
}

func TestRunChecksInOrder(t *testing.T) {
	stubTools(t, "git", "python3", "aria2c")
	ws := testWS(t)

	report := Run(context.Background(), ws, config.Default(), nil, Options{})

	wantOrder := []string{
		"workspace tree", "config", "git", "python3", "download engine",
		"gpu", "disk space", "model dirs", "selected webui", "launch state",
		"manifest",
	}
	if len(report.Results) != len(wantOrder) {
		t.Fatalf("got %d results, want %d", len(report.Results), len(wantOrder))
	}
	for i, name := range wantOrder {
		if report.Results[i].Name != name {
			t.Errorf("result %d = %q, want %q", i, report.Results[i].Name, name)
		}
	}

	for _, name := range []string{"workspace tree", "config", "git", "python3", "model dirs", "launch state", "manifest"} {
		if res := resultFor(t, report, name); res.Status != OK {
			t.Errorf("%s = %s (%s), want ok", name, res.Status, res.Detail)
		}
	}
	if res := resultFor(t, report, "download engine"); res.Detail != "aria2c" {
		t.Errorf("engine detail = %q, want aria2c", res.Detail)
	}
	// No nvidia-smi on the stub PATH.
	if res := resultFor(t, report, "gpu"); res.Status != Warn {
		t.Errorf("gpu = %s, want warn without nvidia-smi", res.Status)
	}
	if res := resultFor(t, report, "selected webui"); res.Status != Warn {
		t.Errorf("selected webui = %s, want warn before install", res.Status)
	}
	if report.Failed() {
		t.Errorf("fresh workspace failed: %+v", report.Results)
	}
	if _, _, fail := report.Counts(); fail != 0 {
		t.Errorf("fail count = %d, want 0", fail)
	}
}

func TestTreeCheckFix(t *testing.T) {
	stubTools(t, "git", "python3")
	ws := testWS(t)
	if err := os.RemoveAll(ws.TmpDir()); err != nil {
		t.Fatal(err)
	}

	report := Run(context.Background(), ws, config.Default(), nil, Options{})
	res := resultFor(t, report, "workspace tree")
	if res.Status != Fail || !strings.Contains(res.Detail, "tmp") {
		t.Fatalf("tree = %s (%s), want fail naming tmp", res.Status, res.Detail)
	}
	if !report.Failed() {
		t.Error("report with failing check reports healthy")
	}

	report = Run(context.Background(), ws, config.Default(), nil, Options{Fix: true})
	res = resultFor(t, report, "workspace tree")
	if res.Status != OK || !res.Fixed {
		t.Fatalf("tree after fix = %+v, want ok and fixed", res)
	}
	if _, err := os.Stat(ws.TmpDir()); err != nil {
		t.Errorf("tmp dir not recreated: %v", err)
	}
}

func TestConfigCheckBroken(t *testing.T) {
	stubTools(t, "git", "python3")
	ws := testWS(t)
	if err := os.WriteFile(ws.ConfigPath(), []byte("webui: [not\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	report := Run(context.Background(), ws, config.Default(), nil, Options{})
	res := resultFor(t, report, "config")
	if res.Status != Fail {
		t.Fatalf("config = %s (%s), want fail", res.Status, res.Detail)
	}
}

func TestToolCheckMissing(t *testing.T) {
	stubTools(t, "python3")
	ws := testWS(t)

	report := Run(context.Background(), ws, config.Default(), nil, Options{})
	if res := resultFor(t, report, "git"); res.Status != Fail {
		t.Errorf("git = %s, want fail when absent", res.Status)
	}
	if res := resultFor(t, report, "python3"); res.Status != OK {
		t.Errorf("python3 = %s (%s), want ok", res.Status, res.Detail)
	}
}

func TestEngineCheck(t *testing.T) {
	stubTools(t, "git", "python3")
	ws := testWS(t)

	cfg := config.Default()
	cfg.Download.Engine = "aria2"
	report := Run(context.Background(), ws, cfg, nil, Options{})
	if res := resultFor(t, report, "download engine"); res.Status != Fail {
		t.Errorf("forced aria2 without binary = %s, want fail", res.Status)
	}

	cfg.Download.Engine = "native"
	report = Run(context.Background(), ws, cfg, nil, Options{})
	if res := resultFor(t, report, "download engine"); res.Status != OK || res.Detail != "native HTTP" {
		t.Errorf("native engine = %s (%s)", res.Status, res.Detail)
	}

	cfg.Download.Engine = "auto"
	report = Run(context.Background(), ws, cfg, nil, Options{})
	if res := resultFor(t, report, "download engine"); res.Status != OK || !strings.Contains(res.Detail, "native") {
		t.Errorf("auto without aria2c = %s (%s), want native fallback note", res.Status, res.Detail)
	}
}

func TestStateCheckStale(t *testing.T) {
	// A spawned-and-reaped pid is reliably dead. Spawn before the PATH stub
	// hides the real binaries.
	dead := exec.Command("true")
	if err := dead.Run(); err != nil {
		t.Fatal(err)
	}
	stubTools(t, "git", "python3")
	ws := testWS(t)
	st := state.New("stale", "forge", dead.Process.Pid, "logs/x.log")
	if err := st.Save(ws); err != nil {
		t.Fatal(err)
	}

	report := Run(context.Background(), ws, config.Default(), nil, Options{})
	res := resultFor(t, report, "launch state")
	if res.Status != Warn || !strings.Contains(res.Detail, "gone") {
		t.Fatalf("stale state = %s (%s), want warn", res.Status, res.Detail)
	}

	report = Run(context.Background(), ws, config.Default(), nil, Options{Fix: true})
	res = resultFor(t, report, "launch state")
	if res.Status != OK || !res.Fixed {
		t.Fatalf("stale state after fix = %+v", res)
	}

	reloaded, err := state.Load(ws)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Running() {
		t.Error("stale state still running after fix")
	}
}

func TestManifestCheckMissingFiles(t *testing.T) {
	stubTools(t, "git", "python3")
	ws := testWS(t)

	man := download.NewManifest()
	man.Record("models/Stable-diffusion/gone.safetensors", download.ManifestEntry{
		URL: "https://example.com/gone", Category: catalog.Checkpoint, Size: 1, CompletedAt: time.Now().UTC(),
	})
	present := filepath.Join(ws.ModelDir(catalog.Checkpoint), "here.safetensors")
	if err := os.WriteFile(present, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	man.Record(ws.Rel(present), download.ManifestEntry{
		URL: "https://example.com/here", Category: catalog.Checkpoint, Size: 1, CompletedAt: time.Now().UTC(),
	})
	if err := man.Save(ws); err != nil {
		t.Fatal(err)
	}

	report := Run(context.Background(), ws, config.Default(), nil, Options{})
	res := resultFor(t, report, "manifest")
	if res.Status != Warn || !strings.Contains(res.Detail, "gone.safetensors") {
		t.Fatalf("manifest = %s (%s), want warn naming the missing file", res.Status, res.Detail)
	}
	if !strings.Contains(res.Detail, "1 of 2") {
		t.Errorf("Detail = %q, want the present file counted", res.Detail)
	}
}

func TestHead(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e"}
	got := head(in, 3)
	if len(got) != 4 || got[3] != "..." {
		t.Errorf("head = %v", got)
	}
	if got := head([]string{"a"}, 3); len(got) != 1 {
		t.Errorf("head short = %v", got)
	}
}
