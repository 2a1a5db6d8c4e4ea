package webui

import (
	"os"
	"path/filepath"
	"testing"

	"sdrig/internal/catalog"
)

func TestLinkSharedModels(t *testing.T) {
	ws := testWS(t)
	spec, _ := Lookup("forge")
	if err := os.MkdirAll(ws.WebUIDir("forge"), 0o755); err != nil {
		t.Fatal(err)
	}

	links, err := LinkSharedModels(ws, spec)
	if err != nil {
		t.Fatalf("LinkSharedModels: %v", err)
	}
	// One link per category plus the outputs link.
	if want := len(catalog.Categories()) + 1; len(links) != want {
		t.Fatalf("got %d links, want %d", len(links), want)
	}
	for _, link := range links {
		if !link.Created {
			t.Errorf("%s: Created = false (%s)", link.Path, link.Note)
		}
	}

	// The checkpoint dir must resolve to the shared tree.
	ckpt := filepath.Join(ws.WebUIDir("forge"), "models", "Stable-diffusion")
	resolved, err := filepath.EvalSymlinks(ckpt)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	want, err := filepath.EvalSymlinks(ws.ModelDir(catalog.Checkpoint))
	if err != nil {
		t.Fatal(err)
	}
	if resolved != want {
		t.Errorf("checkpoint link resolves to %q, want %q", resolved, want)
	}

	// A file dropped in the shared tree is visible through the link.
	name := "test.safetensors"
	if err := os.WriteFile(filepath.Join(ws.ModelDir(catalog.Checkpoint), name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(ckpt, name)); err != nil {
		t.Errorf("file not visible through link: %v", err)
	}

	// Generated images land in the shared outputs dir.
	outs, err := filepath.EvalSymlinks(filepath.Join(ws.WebUIDir("forge"), spec.OutputDir))
	if err != nil {
		t.Fatalf("EvalSymlinks(outputs): %v", err)
	}
	wantOuts, err := filepath.EvalSymlinks(ws.OutputsDir())
	if err != nil {
		t.Fatal(err)
	}
	if outs != wantOuts {
		t.Errorf("outputs link resolves to %q, want %q", outs, wantOuts)
	}
}

func TestLinkSharedModelsIdempotent(t *testing.T) {
	ws := testWS(t)
	spec, _ := Lookup("comfyui")
	if err := os.MkdirAll(ws.WebUIDir("comfyui"), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := LinkSharedModels(ws, spec); err != nil {
		t.Fatalf("first LinkSharedModels: %v", err)
	}
	links, err := LinkSharedModels(ws, spec)
	if err != nil {
		t.Fatalf("second LinkSharedModels: %v", err)
	}
	for _, link := range links {
		if link.Created {
			t.Errorf("%s: recreated on second run", link.Path)
		}
		if link.Note != "already linked" {
			t.Errorf("%s: Note = %q, want already linked", link.Path, link.Note)
		}
	}
}

func TestLinkSharedModelsKeepsPopulatedDir(t *testing.T) {
	ws := testWS(t)
	spec, _ := Lookup("a1111")

	// Simulate a checkout that already ships a populated embeddings dir.
	embDir := filepath.Join(ws.WebUIDir("a1111"), "embeddings")
	if err := os.MkdirAll(embDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(embDir, "shipped.pt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// And an empty VAE dir, which is safe to replace.
	if err := os.MkdirAll(filepath.Join(ws.WebUIDir("a1111"), "models", "VAE"), 0o755); err != nil {
		t.Fatal(err)
	}

	links, err := LinkSharedModels(ws, spec)
	if err != nil {
		t.Fatalf("LinkSharedModels: %v", err)
	}
	byCat := map[catalog.Category]Link{}
	for _, link := range links {
		byCat[link.Category] = link
	}

	if emb := byCat[catalog.Embedding]; emb.Created {
		t.Errorf("embeddings: populated dir was replaced (%+v)", emb)
	}
	if fi, err := os.Lstat(embDir); err != nil || fi.Mode()&os.ModeSymlink != 0 {
		t.Errorf("embeddings dir no longer a real directory (err=%v)", err)
	}

	if vae := byCat[catalog.VAE]; !vae.Created || vae.Note != "replaced empty directory" {
		t.Errorf("VAE link = %+v, want replaced empty directory", vae)
	}
}

func TestLinkSharedModelsRepairsStaleLink(t *testing.T) {
	ws := testWS(t)
	spec, _ := Lookup("fooocus")

	dir := filepath.Join(ws.WebUIDir("fooocus"), "models")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "checkpoints")
	if err := os.Symlink("/nonexistent/elsewhere", stale); err != nil {
		t.Fatal(err)
	}

	links, err := LinkSharedModels(ws, spec)
	if err != nil {
		t.Fatalf("LinkSharedModels: %v", err)
	}
	for _, link := range links {
		if link.Category == catalog.Checkpoint {
			if !link.Created || link.Note != "relinked" {
				t.Errorf("checkpoint link = %+v, want relinked", link)
			}
		}
	}
	if _, err := filepath.EvalSymlinks(stale); err != nil {
		t.Errorf("checkpoint link still stale: %v", err)
	}
}
