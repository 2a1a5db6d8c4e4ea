package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"sdrig/internal/catalog"
)

var configTemplate = `# sdrig workspace configuration
webui:
  selected: %s
  launch_args: ""
  share: auto        # auto | always | never

models:
  sdxl: %t
  checkpoints: []
  vaes: []
  loras: []
  controlnets: []
  embeddings: []

download:
  workers: 3
  retries: 3
  timeout: 5m
  engine: auto       # auto | aria2 | native

verbosity: pretty    # pretty | raw | debug
`

var cartTemplate = `// Model cart. Lines are URLs; $-markers switch the category.
// Run 'sdrig docs cart' for the full syntax.
//
// $ckpt
// https://civitai.com/api/download/models/128713 [DreamShaper 8]
//
// $vae
// https://huggingface.co/stabilityai/sd-vae-ft-mse-original/resolve/main/vae-ft-mse-840000-ema-pruned.safetensors
`

// InitOptions control workspace creation.
type InitOptions struct {
	Force bool   // overwrite an existing .sdrig/config.yaml
	WebUI string // initial webui selection (default forge)
	SDXL  bool   // start with the SDXL catalog flavor
}

// Init scaffolds a workspace at root: the .sdrig/ metadata directory, the
// shared model tree, and a commented example cart. Existing model files are
// never touched.
func Init(root string, opts InitOptions) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	ws := &Workspace{Root: abs}

	if _, err := os.Stat(ws.ConfigPath()); err == nil && !opts.Force {
		return nil, fmt.Errorf("workspace already initialized at %s (use --force to overwrite the config)", abs)
	}

	if err := ws.EnsureTree(); err != nil {
		return nil, err
	}

	webui := opts.WebUI
	if webui == "" {
		webui = "forge"
	}
	cfg := fmt.Sprintf(configTemplate, webui, opts.SDXL)
	if err := WriteFileAtomic(ws.ConfigPath(), []byte(cfg), 0644); err != nil {
		return nil, fmt.Errorf("writing config.yaml: %w", err)
	}

	if _, err := os.Stat(ws.CartPath()); os.IsNotExist(err) {
		if err := os.WriteFile(ws.CartPath(), []byte(cartTemplate), 0644); err != nil {
			return nil, fmt.Errorf("writing cart.txt: %w", err)
		}
	}

	// Keep empty model directories visible in version control.
	for _, cat := range catalog.Categories() {
		keep := filepath.Join(ws.ModelDir(cat), ".gitkeep")
		if _, err := os.Stat(keep); os.IsNotExist(err) {
			if err := os.WriteFile(keep, nil, 0644); err != nil {
				return nil, fmt.Errorf("writing %s: %w", ws.Rel(keep), err)
			}
		}
	}

	return ws, nil
}
