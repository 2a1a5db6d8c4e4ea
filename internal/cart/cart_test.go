package cart

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sdrig/internal/catalog"
)

func TestParseBasicCart(t *testing.T) {
	text := `
// my weekly cart
$ckpt
https://civitai.com/api/download/models/128713 [DreamShaper 8]
https://huggingface.co/stabilityai/stable-diffusion-xl-base-1.0/resolve/main/sd_xl_base_1.0.safetensors

$vae
https://huggingface.co/stabilityai/sd-vae-ft-mse-original/resolve/main/vae-ft-mse-840000-ema-pruned.safetensors
`
	c, err := ParseString(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", c.Warnings)
	}
	if len(c.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(c.Items))
	}

	first := c.Items[0]
	if first.Category != catalog.Checkpoint || !first.Custom {
		t.Fatalf("first item = %+v", first)
	}
	if first.Filename != "DreamShaper-8.safetensors" {
		t.Fatalf("custom filename = %q", first.Filename)
	}

	second := c.Items[1]
	if second.Flavor != catalog.SDXL {
		t.Fatalf("sd_xl_base not inferred as SDXL: %+v", second)
	}
	if second.Filename != "sd_xl_base_10.safetensors" {
		t.Fatalf("derived filename = %q", second.Filename)
	}

	third := c.Items[2]
	if third.Category != catalog.VAE || third.Flavor != catalog.SD15 {
		t.Fatalf("third item = %+v", third)
	}
}

func TestParseMarkerForms(t *testing.T) {
	text := strings.Join([]string{
		"#model",
		"https://civitai.com/api/download/models/1",
		"$EMBEDDINGS",
		"https://huggingface.co/x/resolve/main/easy.pt",
		"$cnet https://huggingface.co/lllyasviel/ControlNet-v1-1/resolve/main/control_v11p_sd15_canny.pth",
		"$ups",
		"https://github.com/xinntao/Real-ESRGAN/releases/download/v0.1.0/RealESRGAN_x4plus.pth",
	}, "\n")

	c, err := ParseString(text)
	if err != nil {
		t.Fatal(err)
	}
	want := []catalog.Category{catalog.Checkpoint, catalog.Embedding, catalog.ControlNet, catalog.Upscaler}
	var got []catalog.Category
	for _, item := range c.Items {
		got = append(got, item.Category)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("categories (-want +got):\n%s", diff)
	}

	// Marker with URL on the same line keeps the category for later lines.
	if c.Items[2].Filename != "control_v11p_sd15_canny.pth" {
		t.Fatalf("inline marker item = %+v", c.Items[2])
	}
}

func TestParseWarnings(t *testing.T) {
	text := strings.Join([]string{
		"https://civitai.com/api/download/models/2", // before any marker
		"$ckpt",
		"not-a-url",
		"$texture",
		"https://evil.example.com/model.safetensors",
		"https://civitai.com/api/download/models/3",
		"https://civitai.com/api/download/models/3", // duplicate
	}, "\n")

	c, err := ParseString(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Items) != 1 {
		t.Fatalf("items = %+v, want exactly the one valid URL", c.Items)
	}
	if len(c.Warnings) != 5 {
		t.Fatalf("warnings = %v, want 5", c.Warnings)
	}
	for i, substr := range []string{
		"before any category marker",
		"not a URL",
		"unknown marker",
		"not allowlisted",
		"duplicate URL",
	} {
		if !strings.Contains(c.Warnings[i].Msg, substr) {
			t.Errorf("warning %d = %q, want it to mention %q", i, c.Warnings[i].Msg, substr)
		}
	}
}

func TestAllowedHost(t *testing.T) {
	allowed := []string{"civitai.com", "huggingface.co", "cdn.civitai.com", "github.com", "drive.google.com", "mega.nz"}
	for _, h := range allowed {
		if !AllowedHost(h) {
			t.Errorf("AllowedHost(%q) = false", h)
		}
	}
	denied := []string{"example.com", "notcivitai.com", "civitai.com.evil.net", "huggingface.company"}
	for _, h := range denied {
		if AllowedHost(h) {
			t.Errorf("AllowedHost(%q) = true", h)
		}
	}
}

func TestFilenameFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://civitai.com/api/download/models/130072", "civitai-130072.safetensors"},
		{"https://huggingface.co/a/b/resolve/main/model%20v2.ckpt", "model-v2.ckpt"},
		{"https://huggingface.co/a/b/resolve/main/control_v11p_sd15_canny.pth", "control_v11p_sd15_canny.pth"},
		{"https://github.com/x/releases/download/v1/weights", "weights.safetensors"},
		{"https://huggingface.co/a/b/resolve/main/some(odd)name.pt", "someoddname.pt"},
	}
	for _, c := range cases {
		if got := FilenameFromURL(c.url); got != c.want {
			t.Errorf("FilenameFromURL(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestCleanFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"DreamShaper 8", "DreamShaper-8"},
		{"weird!!name##", "weirdname"},
		{"--spaced  out--", "spaced-out"},
		{"???", "model"},
	}
	for _, c := range cases {
		if got := CleanFilename(c.in); got != c.want {
			t.Errorf("CleanFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestInferFlavor(t *testing.T) {
	if f := InferFlavor("https://x/sd_xl_base.safetensors", ""); f != catalog.SDXL {
		t.Fatalf("sd_xl not SDXL, got %s", f)
	}
	if f := InferFlavor("https://x/juggernautXL.safetensors", "juggernautXL"); f != catalog.SDXL {
		t.Fatalf("sdxl name not SDXL, got %s", f)
	}
	if f := InferFlavor("https://x/model.safetensors", "realistic-vision"); f != catalog.SD15 {
		t.Fatalf("default flavor = %s, want sd15", f)
	}
}

func TestItemFromURL(t *testing.T) {
	item, err := ItemFromURL(catalog.LoRA, "https://civitai.com/api/download/models/62833")
	if err != nil {
		t.Fatal(err)
	}
	if item.Category != catalog.LoRA || item.Filename != "civitai-62833.safetensors" {
		t.Fatalf("item = %+v", item)
	}

	if _, err := ItemFromURL(catalog.LoRA, "https://example.com/a.safetensors"); err == nil {
		t.Fatal("disallowed host accepted")
	}
	if _, err := ItemFromURL(catalog.LoRA, "ftp://civitai.com/a"); err == nil {
		t.Fatal("ftp scheme accepted")
	}
}
