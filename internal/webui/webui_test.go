package webui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sdrig/internal/catalog"
	"sdrig/internal/hardware"
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

func TestRegistry(t *testing.T) {
	wantNames := []string{"a1111", "comfyui", "fooocus", "forge"}
	got := Names()
	if len(got) != len(wantNames) {
		t.Fatalf("Names() = %v, want %v", got, wantNames)
	}
	for i, name := range wantNames {
		if got[i] != name {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], name)
		}
	}

	for _, name := range got {
		spec, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if spec.Name != name {
			t.Errorf("Lookup(%q).Name = %q", name, spec.Name)
		}
		if !strings.HasPrefix(spec.RepoURL, "https://github.com/") || !strings.HasSuffix(spec.RepoURL, ".git") {
			t.Errorf("%s: suspicious repo URL %q", name, spec.RepoURL)
		}
		if spec.Entrypoint == "" || spec.Port == 0 || spec.OutputDir == "" {
			t.Errorf("%s: incomplete spec %+v", name, spec)
		}
		for _, cat := range catalog.Categories() {
			if _, ok := spec.ModelDirs[cat]; !ok {
				t.Errorf("%s: no model dir for category %s", name, cat)
			}
		}
	}
}

func TestLookupDetails(t *testing.T) {
	tests := []struct {
		name       string
		entrypoint string
		style      hardware.ArgStyle
		port       int
	}{
		{"forge", "launch.py", hardware.StyleA1111, 7860},
		{"a1111", "launch.py", hardware.StyleA1111, 7860},
		{"comfyui", "main.py", hardware.StyleComfy, 8188},
		{"fooocus", "entry_with_update.py", hardware.StyleFooocus, 7865},
	}
	for _, tt := range tests {
		spec, err := Lookup(tt.name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", tt.name, err)
		}
		if spec.Entrypoint != tt.entrypoint {
			t.Errorf("%s: Entrypoint = %q, want %q", tt.name, spec.Entrypoint, tt.entrypoint)
		}
		if spec.Style != tt.style {
			t.Errorf("%s: Style = %q, want %q", tt.name, spec.Style, tt.style)
		}
		if spec.Port != tt.port {
			t.Errorf("%s: Port = %d, want %d", tt.name, spec.Port, tt.port)
		}
	}
}

func TestLookupCaseInsensitive(t *testing.T) {
	spec, err := Lookup("ComfyUI")
	if err != nil {
		t.Fatalf("Lookup(ComfyUI): %v", err)
	}
	if spec.Name != "comfyui" {
		t.Errorf("Name = %q, want comfyui", spec.Name)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("invokeai")
	if err == nil {
		t.Fatal("Lookup(invokeai) succeeded")
	}
	if !strings.Contains(err.Error(), "available:") {
		t.Errorf("error %q does not list available frontends", err)
	}
}

func TestEmbeddingDirMatchesFamily(t *testing.T) {
	// A1111-family UIs read embeddings from the checkout root, not models/.
	forge, _ := Lookup("forge")
	if got := forge.ModelDirs[catalog.Embedding]; got != "embeddings" {
		t.Errorf("forge embedding dir = %q, want embeddings", got)
	}
	comfy, _ := Lookup("comfyui")
	if got := comfy.ModelDirs[catalog.Embedding]; got != "models/embeddings" {
		t.Errorf("comfyui embedding dir = %q, want models/embeddings", got)
	}
}

func TestIsInstalled(t *testing.T) {
	ws := testWS(t)
	spec, _ := Lookup("forge")

	if IsInstalled(ws, spec) {
		t.Fatal("IsInstalled = true for empty workspace")
	}

	dir := ws.WebUIDir("forge")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// A directory without the entrypoint is a broken checkout.
	if IsInstalled(ws, spec) {
		t.Fatal("IsInstalled = true without entrypoint")
	}

	if err := os.WriteFile(filepath.Join(dir, "launch.py"), []byte("print()\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !IsInstalled(ws, spec) {
		t.Fatal("IsInstalled = false after creating entrypoint")
	}

	installed := Installed(ws)
	if len(installed) != 1 || installed[0].Name != "forge" {
		t.Errorf("Installed = %v, want [forge]", installed)
	}
}

// installStubGit puts a fake git on PATH that records its argv and fakes a
// clone by creating the destination with the requested entrypoint.
func installStubGit(t *testing.T, entrypoint string) string {
	t.Helper()
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	script := fmt.Sprintf(`#!/bin/sh
echo "$@" >> %q
for last; do :; done
mkdir -p "$last" && touch "$last/%s"
`, argsFile, entrypoint)
	if err := os.WriteFile(filepath.Join(dir, "git"), []byte(script), 0o755); err != nil {
		t.Fatalf("write stub git: %v", err)
	}
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
	return argsFile
}

func TestInstallClonesShallow(t *testing.T) {
	ws := testWS(t)
	spec, _ := Lookup("comfyui")
	argsFile := installStubGit(t, spec.Entrypoint)

	if err := Install(context.Background(), ws, spec, InstallOptions{}); err != nil {
		t.Fatalf("Install: %v", err)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("stub git never ran: %v", err)
	}
	want := fmt.Sprintf("clone --depth 1 %s %s", spec.RepoURL, ws.WebUIDir("comfyui"))
	if got := strings.TrimSpace(string(args)); got != want {
		t.Errorf("git argv = %q, want %q", got, want)
	}
	if !IsInstalled(ws, spec) {
		t.Error("IsInstalled = false after stub clone")
	}
}

func TestInstallRefusesExisting(t *testing.T) {
	ws := testWS(t)
	spec, _ := Lookup("forge")
	installStubGit(t, spec.Entrypoint)

	if err := Install(context.Background(), ws, spec, InstallOptions{}); err != nil {
		t.Fatalf("first Install: %v", err)
	}
	err := Install(context.Background(), ws, spec, InstallOptions{})
	if !errors.Is(err, ErrAlreadyInstalled) {
		t.Fatalf("second Install err = %v, want ErrAlreadyInstalled", err)
	}
	if err := Install(context.Background(), ws, spec, InstallOptions{Force: true}); err != nil {
		t.Fatalf("forced Install: %v", err)
	}
}

func TestInstallHalfClone(t *testing.T) {
	ws := testWS(t)
	spec, _ := Lookup("forge")
	installStubGit(t, spec.Entrypoint)

	// Simulate an interrupted clone: directory present, entrypoint missing.
	if err := os.MkdirAll(ws.WebUIDir("forge"), 0o755); err != nil {
		t.Fatal(err)
	}
	err := Install(context.Background(), ws, spec, InstallOptions{})
	if err == nil || errors.Is(err, ErrAlreadyInstalled) {
		t.Fatalf("Install on half-clone err = %v, want a re-clone hint", err)
	}
	if !strings.Contains(err.Error(), "--force") {
		t.Errorf("error %q does not mention --force", err)
	}

	if err := Install(context.Background(), ws, spec, InstallOptions{Force: true}); err != nil {
		t.Fatalf("forced Install: %v", err)
	}
	if !IsInstalled(ws, spec) {
		t.Error("IsInstalled = false after forced re-clone")
	}
}

func TestUpdateRequiresCheckout(t *testing.T) {
	ws := testWS(t)
	spec, _ := Lookup("a1111")
	err := Update(context.Background(), ws, spec, nil)
	if err == nil || !strings.Contains(err.Error(), "not installed") {
		t.Fatalf("Update err = %v, want not installed", err)
	}
}
