// Package webui holds the registry of supported Stable Diffusion frontends
// and manages their checkouts under webuis/: cloning, updating, and linking
// the shared model tree into each frontend's expected layout.
package webui

import (
	"fmt"
	"sort"
	"strings"

	"sdrig/internal/catalog"
	"sdrig/internal/hardware"
)

// DefaultName is the frontend selected when the user expresses no preference.
const DefaultName = "forge"

// Spec describes one supported frontend.
type Spec struct {
	Name       string
	Title      string
	RepoURL    string
	Entrypoint string
	Style      hardware.ArgStyle
	Port       int
	// BaseArgs are always passed, before hardware tuning flags.
	BaseArgs []string
	// ShareArgs expose the UI beyond localhost.
	ShareArgs []string
	// OutputDir is where the frontend writes generated images, relative to
	// its checkout.
	OutputDir string
	// ModelDirs maps each model category to the directory the frontend
	// loads it from, relative to its checkout.
	ModelDirs map[catalog.Category]string
}

// a1111Layout is shared by AUTOMATIC1111 and its Forge fork.
func a1111Layout() map[catalog.Category]string {
	return map[catalog.Category]string{
		catalog.Checkpoint: "models/Stable-diffusion",
		catalog.VAE:        "models/VAE",
		catalog.LoRA:       "models/Lora",
		catalog.ControlNet: "models/ControlNet",
		catalog.Embedding:  "embeddings",
		catalog.Upscaler:   "models/ESRGAN",
	}
}

// comfyLayout is shared by ComfyUI and Fooocus.
func comfyLayout() map[catalog.Category]string {
	return map[catalog.Category]string{
		catalog.Checkpoint: "models/checkpoints",
		catalog.VAE:        "models/vae",
		catalog.LoRA:       "models/loras",
		catalog.ControlNet: "models/controlnet",
		catalog.Embedding:  "models/embeddings",
		catalog.Upscaler:   "models/upscale_models",
	}
}

var registry = map[string]Spec{
	"forge": {
		Name:       "forge",
		Title:      "Stable Diffusion WebUI Forge",
		RepoURL:    "https://github.com/lllyasviel/stable-diffusion-webui-forge.git",
		Entrypoint: "launch.py",
		Style:      hardware.StyleA1111,
		Port:       7860,
		BaseArgs:   []string{"--xformers", "--cuda-stream"},
		ShareArgs:  []string{"--share"},
		OutputDir:  "outputs",
		ModelDirs:  a1111Layout(),
	},
	"a1111": {
		Name:       "a1111",
		Title:      "AUTOMATIC1111 Stable Diffusion WebUI",
		RepoURL:    "https://github.com/AUTOMATIC1111/stable-diffusion-webui.git",
		Entrypoint: "launch.py",
		Style:      hardware.StyleA1111,
		Port:       7860,
		BaseArgs:   []string{"--xformers", "--no-half-vae"},
		ShareArgs:  []string{"--share"},
		OutputDir:  "outputs",
		ModelDirs:  a1111Layout(),
	},
	"comfyui": {
		Name:       "comfyui",
		Title:      "ComfyUI",
		RepoURL:    "https://github.com/comfyanonymous/ComfyUI.git",
		Entrypoint: "main.py",
		Style:      hardware.StyleComfy,
		Port:       8188,
		BaseArgs:   []string{"--dont-print-server"},
		ShareArgs:  []string{"--listen", "0.0.0.0"},
		OutputDir:  "output",
		ModelDirs:  comfyLayout(),
	},
	"fooocus": {
		Name:       "fooocus",
		Title:      "Fooocus",
		RepoURL:    "https://github.com/lllyasviel/Fooocus.git",
		Entrypoint: "entry_with_update.py",
		Style:      hardware.StyleFooocus,
		Port:       7865,
		BaseArgs:   []string{"--preset", "anime"},
		ShareArgs:  []string{"--share"},
		OutputDir:  "outputs",
		ModelDirs:  comfyLayout(),
	},
}

// Names lists the registered frontends in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a frontend by name, case-insensitively.
func Lookup(name string) (Spec, error) {
	spec, ok := registry[strings.ToLower(name)]
	if !ok {
		return Spec{}, fmt.Errorf("unknown webui %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return spec, nil
}
