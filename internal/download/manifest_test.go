package download

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManifestRoundTrip(t *testing.T) {
	ws := testWS(t)

	man := NewManifest()
	man.Record("models/Stable-diffusion/a.safetensors", ManifestEntry{
		URL:         "https://civitai.com/api/download/models/1",
		Category:    "checkpoint",
		Size:        7,
		BLAKE3:      "abc123",
		CompletedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err := man.Save(ws); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadManifest(ws)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	entry, ok := loaded.Lookup("models/Stable-diffusion/a.safetensors")
	if !ok {
		t.Fatal("entry missing after reload")
	}
	if entry.BLAKE3 != "abc123" || entry.Size != 7 {
		t.Errorf("entry = %+v", entry)
	}
}

func TestLoadManifestMissingIsEmpty(t *testing.T) {
	ws := testWS(t)
	man, err := LoadManifest(ws)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(man.Entries) != 0 {
		t.Errorf("entries = %v, want none", man.Entries)
	}
}

func TestLoadManifestRejectsUnknownVersion(t *testing.T) {
	ws := testWS(t)
	if err := os.WriteFile(ws.ManifestPath(), []byte(`{"version": 99, "entries": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadManifest(ws)
	if err == nil || !strings.Contains(err.Error(), "version 99") {
		t.Fatalf("err = %v, want version error", err)
	}
}

func TestManifestFindURL(t *testing.T) {
	man := NewManifest()
	man.Record("models/VAE/v.safetensors", ManifestEntry{URL: "https://huggingface.co/x/resolve/main/v.safetensors"})

	path, ok := man.FindURL("https://huggingface.co/x/resolve/main/v.safetensors")
	if !ok || path != "models/VAE/v.safetensors" {
		t.Errorf("FindURL = %q,%v", path, ok)
	}
	if _, ok := man.FindURL("https://example.com/other"); ok {
		t.Error("FindURL matched a URL never recorded")
	}
}

func TestManifestTotals(t *testing.T) {
	man := NewManifest()
	man.Record("b", ManifestEntry{Size: 10})
	man.Record("a", ManifestEntry{Size: 5})

	if got := man.TotalSize(); got != 15 {
		t.Errorf("TotalSize = %d, want 15", got)
	}
	paths := man.Paths()
	if len(paths) != 2 || paths[0] != "a" || paths[1] != "b" {
		t.Errorf("Paths = %v, want sorted [a b]", paths)
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	sum1, size, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if size != 5 {
		t.Errorf("size = %d, want 5", size)
	}
	if len(sum1) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(sum1))
	}

	sum2, _, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if sum1 != sum2 {
		t.Error("digest not deterministic")
	}

	if err := os.WriteFile(path, []byte("hello!"), 0o644); err != nil {
		t.Fatal(err)
	}
	sum3, _, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if sum3 == sum1 {
		t.Error("digest unchanged after content change")
	}
}
