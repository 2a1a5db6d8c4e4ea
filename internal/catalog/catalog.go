package catalog

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/sd15.yaml data/sdxl.yaml
var dataFS embed.FS

// Flavor selects which model generation the catalog describes.
type Flavor string

const (
	SD15 Flavor = "sd15"
	SDXL Flavor = "sdxl"
)

// Category identifies a model type and its slot in shared storage.
type Category string

const (
	Checkpoint Category = "checkpoint"
	VAE        Category = "vae"
	LoRA       Category = "lora"
	ControlNet Category = "controlnet"
	Embedding  Category = "embedding"
	Upscaler   Category = "upscaler"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{Checkpoint, VAE, LoRA, ControlNet, Embedding, Upscaler}
}

// SharedDir returns the directory name for this category under models/.
// The names match what A1111-family WebUIs expect so the shared tree can be
// symlinked straight into an installation.
func (c Category) SharedDir() string {
	switch c {
	case Checkpoint:
		return "Stable-diffusion"
	case VAE:
		return "VAE"
	case LoRA:
		return "Lora"
	case ControlNet:
		return "ControlNet"
	case Embedding:
		return "embeddings"
	case Upscaler:
		return "ESRGAN"
	}
	return "Other"
}

func (c Category) Valid() bool {
	for _, k := range Categories() {
		if c == k {
			return true
		}
	}
	return false
}

var categoryAliases = map[string]Category{
	"ckpt": Checkpoint, "checkpoint": Checkpoint, "checkpoints": Checkpoint, "model": Checkpoint,
	"vae": VAE, "vaes": VAE,
	"lora": LoRA, "loras": LoRA,
	"cnet": ControlNet, "controlnet": ControlNet, "controlnets": ControlNet,
	"emb": Embedding, "embedding": Embedding, "embeddings": Embedding,
	"ups": Upscaler, "upscale": Upscaler, "upscaler": Upscaler, "upscalers": Upscaler,
}

// ParseCategory resolves a category name or alias (ckpt, emb, cnet, ...).
func ParseCategory(s string) (Category, error) {
	if c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown model category %q (valid: checkpoint, vae, lora, controlnet, embedding, upscaler)", s)
}

// Entry is one curated model in the catalog.
type Entry struct {
	Name        string `yaml:"name" json:"name"`
	URL         string `yaml:"url" json:"url"`
	Filename    string `yaml:"filename" json:"filename"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type dataFile struct {
	Checkpoints []Entry `yaml:"checkpoints"`
	VAEs        []Entry `yaml:"vaes"`
	LoRAs       []Entry `yaml:"loras"`
	ControlNets []Entry `yaml:"controlnets"`
	Embeddings  []Entry `yaml:"embeddings"`
	Upscalers   []Entry `yaml:"upscalers"`
}

// Catalog holds the curated entries for one flavor.
type Catalog struct {
	Flavor  Flavor
	entries map[Category][]Entry
}

// Load parses the embedded catalog for the given flavor.
func Load(flavor Flavor) (*Catalog, error) {
	name := fmt.Sprintf("data/%s.yaml", flavor)
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("catalog: unknown flavor %q", flavor)
	}
	var df dataFile
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&df); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", flavor, err)
	}
	c := &Catalog{
		Flavor: flavor,
		entries: map[Category][]Entry{
			Checkpoint: df.Checkpoints,
			VAE:        df.VAEs,
			LoRA:       df.LoRAs,
			ControlNet: df.ControlNets,
			Embedding:  df.Embeddings,
			Upscaler:   df.Upscalers,
		},
	}
	for cat, entries := range c.entries {
		for _, e := range entries {
			if e.Name == "" || e.URL == "" || e.Filename == "" {
				return nil, fmt.Errorf("catalog %s: %s entry %q missing name, url, or filename", flavor, cat, e.Name)
			}
		}
	}
	return c, nil
}

// Entries returns the curated entries for a category, name-sorted.
func (c *Catalog) Entries(cat Category) []Entry {
	out := make([]Entry, len(c.entries[cat]))
	copy(out, c.entries[cat])
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len reports the total entry count across all categories.
func (c *Catalog) Len() int {
	n := 0
	for _, entries := range c.entries {
		n += len(entries)
	}
	return n
}

// Find looks up an entry by name: exact match first (case-insensitive),
// then unique prefix.
func (c *Catalog) Find(cat Category, name string) (Entry, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, e := range c.entries[cat] {
		if strings.ToLower(e.Name) == want {
			return e, true
		}
	}
	var hit Entry
	matches := 0
	for _, e := range c.entries[cat] {
		if strings.HasPrefix(strings.ToLower(e.Name), want) {
			hit = e
			matches++
		}
	}
	if matches == 1 {
		return hit, true
	}
	return Entry{}, false
}
