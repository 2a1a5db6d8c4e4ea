// Package config defines the workspace configuration: which WebUI to run,
// which models to fetch, and how downloads behave. One YAML file per
// workspace, strict on unknown keys, defaults applied on load.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sdrig/internal/workspace"
)

// Duration wraps time.Duration so YAML can carry "5m" / "300s" strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"5m\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type WebUIConfig struct {
	Selected   string `yaml:"selected"`
	LaunchArgs string `yaml:"launch_args"`
	Share      string `yaml:"share"` // auto, always, never
	Port       int    `yaml:"port,omitempty"`
}

type ModelsConfig struct {
	SDXL        bool     `yaml:"sdxl"`
	Checkpoints []string `yaml:"checkpoints"`
	VAEs        []string `yaml:"vaes"`
	LoRAs       []string `yaml:"loras"`
	ControlNets []string `yaml:"controlnets"`
	Embeddings  []string `yaml:"embeddings"`
	Upscalers   []string `yaml:"upscalers,omitempty"`
}

type DownloadConfig struct {
	Workers int      `yaml:"workers"`
	Retries int      `yaml:"retries"`
	Timeout Duration `yaml:"timeout"`
	Engine  string   `yaml:"engine"` // auto, aria2, native
}

type Config struct {
	WebUI     WebUIConfig    `yaml:"webui"`
	Models    ModelsConfig   `yaml:"models"`
	Download  DownloadConfig `yaml:"download"`
	Verbosity string         `yaml:"verbosity"` // pretty, raw, debug
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config atomically.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return workspace.WriteFileAtomic(path, data, 0644)
}
