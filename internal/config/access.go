package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"sdrig/internal/catalog"
	"sdrig/internal/workspace"
)

// Selections returns the configured catalog references per category.
func (m *ModelsConfig) Selections() map[catalog.Category][]string {
	return map[catalog.Category][]string{
		catalog.Checkpoint: m.Checkpoints,
		catalog.VAE:        m.VAEs,
		catalog.LoRA:       m.LoRAs,
		catalog.ControlNet: m.ControlNets,
		catalog.Embedding:  m.Embeddings,
		catalog.Upscaler:   m.Upscalers,
	}
}

// Flavor returns the catalog flavor matching the sdxl toggle.
func (m *ModelsConfig) Flavor() catalog.Flavor {
	if m.SDXL {
		return catalog.SDXL
	}
	return catalog.SD15
}

// GetValue reads a dotted key ("webui.selected", "download.workers") from the
// config file and renders it as YAML.
func GetValue(path, key string) (string, error) {
	root, err := loadRaw(path)
	if err != nil {
		return "", err
	}
	node, err := walk(root, key)
	if err != nil {
		return "", err
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// SetValue updates a dotted key in the config file, coercing raw to the type
// of the existing value. The result must still validate; the write is atomic.
func SetValue(path, key, raw string) error {
	root, err := loadRaw(path)
	if err != nil {
		return err
	}

	// Keys may be absent from the file (omitempty fields, hand-trimmed
	// configs); the schema round-trip below is what rejects unknown ones.
	parts := strings.Split(key, ".")
	parent := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := parent[part].(map[string]any)
		if !ok {
			if _, exists := parent[part]; exists {
				return fmt.Errorf("config: unknown key %q", key)
			}
			next = map[string]any{}
			parent[part] = next
		}
		parent = next
	}
	leaf := parts[len(parts)-1]
	parent[leaf] = coerce(parent[leaf], raw)

	data, err := yaml.Marshal(root)
	if err != nil {
		return err
	}

	// Round-trip through the typed schema so a bad value never lands on disk.
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.Save(path)
}

func loadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if root == nil {
		root = map[string]any{}
	}
	return root, nil
}

func walk(root map[string]any, key string) (any, error) {
	var node any = root
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("config: unknown key %q", key)
		}
		node, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("config: unknown key %q", key)
		}
	}
	return node, nil
}

// coerce converts raw to match the type of the value being replaced. Lists
// accept comma-separated input; an empty string clears them. With no current
// value the kind is inferred from raw itself.
func coerce(current any, raw string) any {
	switch current.(type) {
	case bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	case int, int64, float64:
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case []any:
		if strings.TrimSpace(raw) == "" {
			return []any{}
		}
		var items []any
		for _, part := range strings.Split(raw, ",") {
			items = append(items, strings.TrimSpace(part))
		}
		return items
	case nil:
		if raw == "true" || raw == "false" {
			return raw == "true"
		}
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return raw
}

// Workspace convenience wrappers.

// LoadWorkspace reads the workspace's config file.
func LoadWorkspace(ws *workspace.Workspace) (*Config, error) {
	cfg, err := Load(ws.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
