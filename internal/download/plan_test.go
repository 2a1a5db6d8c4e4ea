package download

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sdrig/internal/cart"
	"sdrig/internal/catalog"
	"sdrig/internal/config"
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

func TestAssembleMergesSelectionsAndCart(t *testing.T) {
	cata, err := catalog.Load(catalog.SD15)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := config.Default()
	cfg.Models.Checkpoints = []string{"Deliberate"}
	cfg.Models.VAEs = []string{"VAE ft-mse-840000"}

	cartItems := []cart.Item{{
		Category: catalog.LoRA,
		Name:     "my-lora",
		URL:      "https://civitai.com/api/download/models/999",
		Filename: "my-lora.safetensors",
		Custom:   true,
	}}

	items, warnings := Assemble(cfg, cata, cartItems)
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3: %+v", len(items), items)
	}
	if items[0].Category != catalog.Checkpoint || items[1].Category != catalog.VAE {
		t.Errorf("selection order wrong: %v then %v", items[0].Category, items[1].Category)
	}
	if items[2].Name != "my-lora" {
		t.Errorf("cart item not appended: %+v", items[2])
	}
}

func TestAssembleDedupesByURL(t *testing.T) {
	cata, err := catalog.Load(catalog.SD15)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	entry, ok := cata.Find(catalog.Checkpoint, "Deliberate")
	if !ok {
		t.Fatal("Deliberate not in catalog")
	}

	cfg := config.Default()
	cfg.Models.Checkpoints = []string{"Deliberate", "Deliberate"}

	cartItems := []cart.Item{{
		Category: catalog.Checkpoint,
		URL:      entry.URL,
		Filename: "renamed.safetensors",
		Custom:   true,
	}}

	items, _ := Assemble(cfg, cata, cartItems)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1 after dedup: %+v", len(items), items)
	}
}

func TestAssembleUnknownSelection(t *testing.T) {
	cata, err := catalog.Load(catalog.SD15)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := config.Default()
	cfg.Models.Checkpoints = []string{"No Such Model"}

	items, warnings := Assemble(cfg, cata, nil)
	if len(items) != 0 {
		t.Errorf("items = %v, want none", items)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], `unknown checkpoint "No Such Model"`) {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestAssembleURLSelections(t *testing.T) {
	cata, err := catalog.Load(catalog.SD15)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := config.Default()
	cfg.Models.LoRAs = []string{
		"https://civitai.com/api/download/models/62833",
		"https://example.com/a.safetensors",
	}

	items, warnings := Assemble(cfg, cata, nil)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1: %+v", len(items), items)
	}
	if items[0].Category != catalog.LoRA || items[0].Filename != "civitai-62833.safetensors" {
		t.Errorf("item = %+v", items[0])
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "not allowlisted") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestBuildPlanQueuesFreshItems(t *testing.T) {
	ws := testWS(t)
	items := []cart.Item{
		{Category: catalog.Checkpoint, Name: "a", URL: "https://civitai.com/api/download/models/1", Filename: "a.safetensors"},
		{Category: catalog.VAE, Name: "b", URL: "https://huggingface.co/x/resolve/main/b.safetensors", Filename: "b.safetensors"},
	}
	plan, err := BuildPlan(ws, NewManifest(), items)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Jobs) != 2 || len(plan.Skipped) != 0 {
		t.Fatalf("jobs=%d skipped=%d, want 2/0", len(plan.Jobs), len(plan.Skipped))
	}
	job := plan.Jobs[0]
	if job.ID == "" {
		t.Error("job has no ID")
	}
	want := filepath.Join(ws.ModelsDir(), "Stable-diffusion", "a.safetensors")
	if job.Dest != want {
		t.Errorf("Dest = %q, want %q", job.Dest, want)
	}
	if !job.derived {
		t.Error("non-custom item should allow disposition renames")
	}
}

func TestBuildPlanSkipsExisting(t *testing.T) {
	ws := testWS(t)
	item := cart.Item{Category: catalog.Checkpoint, Name: "a", URL: "https://civitai.com/api/download/models/1", Filename: "a.safetensors"}
	dest := filepath.Join(ws.ModelDir(catalog.Checkpoint), "a.safetensors")
	if err := os.WriteFile(dest, []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}

	plan, err := BuildPlan(ws, NewManifest(), []cart.Item{item})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Jobs) != 0 || len(plan.Skipped) != 1 {
		t.Fatalf("jobs=%d skipped=%d, want 0/1", len(plan.Jobs), len(plan.Skipped))
	}
	if got := plan.Skipped[0].Reason; got != "exists on disk (untracked)" {
		t.Errorf("Reason = %q", got)
	}

	man := NewManifest()
	man.Record(ws.Rel(dest), ManifestEntry{URL: item.URL, Size: 7, CompletedAt: time.Now()})
	plan, err = BuildPlan(ws, man, []cart.Item{item})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Skipped) != 1 || plan.Skipped[0].Reason != "already downloaded" {
		t.Errorf("Skipped = %+v, want already downloaded", plan.Skipped)
	}
}

func TestBuildPlanTracksServerRenames(t *testing.T) {
	ws := testWS(t)
	// A previous run downloaded this URL and the server renamed the file.
	url := "https://civitai.com/api/download/models/130072"
	renamed := filepath.Join(ws.ModelDir(catalog.Checkpoint), "realisticVision_v51.safetensors")
	if err := os.WriteFile(renamed, []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}
	man := NewManifest()
	man.Record(ws.Rel(renamed), ManifestEntry{URL: url, Size: 7})

	item := cart.Item{Category: catalog.Checkpoint, URL: url, Filename: "civitai-130072.safetensors"}
	plan, err := BuildPlan(ws, man, []cart.Item{item})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Jobs) != 0 || len(plan.Skipped) != 1 {
		t.Fatalf("jobs=%d skipped=%d, want 0/1", len(plan.Jobs), len(plan.Skipped))
	}
	if plan.Skipped[0].Reason != "already downloaded" {
		t.Errorf("Reason = %q, want already downloaded", plan.Skipped[0].Reason)
	}
}

func TestBuildPlanRejectsDuplicateDest(t *testing.T) {
	ws := testWS(t)
	items := []cart.Item{
		{Category: catalog.Checkpoint, URL: "https://civitai.com/api/download/models/1", Filename: "same.safetensors"},
		{Category: catalog.Checkpoint, URL: "https://civitai.com/api/download/models/2", Filename: "same.safetensors"},
	}
	_, err := BuildPlan(ws, NewManifest(), items)
	if err == nil || !strings.Contains(err.Error(), "duplicate destination") {
		t.Fatalf("err = %v, want duplicate destination", err)
	}
}

func TestBuildPlanRejectsEscapingFilename(t *testing.T) {
	ws := testWS(t)
	items := []cart.Item{
		{Category: catalog.Checkpoint, URL: "https://civitai.com/api/download/models/1", Filename: "../../../etc/evil.safetensors"},
	}
	_, err := BuildPlan(ws, NewManifest(), items)
	if err == nil || !strings.Contains(err.Error(), "escapes the workspace") {
		t.Fatalf("err = %v, want escape error", err)
	}
}
