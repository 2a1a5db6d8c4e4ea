// Package launch builds WebUI invocations from the registry, hardware
// profile, and config, then supervises the resulting process: streaming its
// output, detecting announced URLs, and keeping state.json truthful.
package launch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"sdrig/internal/config"
	"sdrig/internal/hardware"
	"sdrig/internal/webui"
	"sdrig/internal/workspace"
)

// Invocation is a fully resolved launch command.
type Invocation struct {
	LaunchID string
	WebUI    string
	Dir      string
	Python   string
	Script   string
	Args     []string
	Env      []string
	Port     int
	LogPath  string
	Profile  hardware.Profile
	Platform hardware.Platform
}

// Build resolves name (or the configured default) into an Invocation. It
// probes the hardware, so the same workspace launches differently on
// different machines.
func Build(ctx context.Context, ws *workspace.Workspace, cfg *config.Config, name string) (*Invocation, error) {
	if name == "" {
		name = cfg.WebUI.Selected
	}
	spec, err := webui.Lookup(name)
	if err != nil {
		return nil, err
	}
	if !webui.IsInstalled(ws, spec) {
		return nil, fmt.Errorf("%s is not installed (run 'sdrig install %s')", spec.Name, spec.Name)
	}

	dir := ws.WebUIDir(spec.Name)
	python, err := resolvePython(dir)
	if err != nil {
		return nil, err
	}

	info := hardware.Detect(ctx)
	profile := hardware.ProfileFor(info)

	port := spec.Port
	if cfg.WebUI.Port > 0 {
		port = cfg.WebUI.Port
	}

	launchID := uuid.NewString()
	inv := &Invocation{
		LaunchID: launchID,
		WebUI:    spec.Name,
		Dir:      dir,
		Python:   python,
		Script:   spec.Entrypoint,
		Args:     composeArgs(spec, profile, info.Platform, cfg),
		Env:      append(os.Environ(), "PYTHONUNBUFFERED=1"),
		Port:     port,
		LogPath:  filepath.Join(ws.LogsDir(), fmt.Sprintf("%s-%s-%s.log", spec.Name, time.Now().Format("20060102-150405"), launchID[:8])),
		Profile:  profile,
		Platform: info.Platform,
	}
	return inv, nil
}

// composeArgs layers flags lowest to highest precedence: registry defaults,
// hardware tuning, share exposure, user launch_args, then the port. The UIs
// parse with argparse, so a later flag overrides an earlier one.
func composeArgs(spec webui.Spec, profile hardware.Profile, platform hardware.Platform, cfg *config.Config) []string {
	var args []string
	args = append(args, spec.BaseArgs...)
	args = append(args, profile.Args(spec.Style)...)
	if shareEnabled(cfg.WebUI.Share, platform) {
		args = append(args, spec.ShareArgs...)
	}
	if extra := strings.Fields(cfg.WebUI.LaunchArgs); len(extra) > 0 {
		args = append(args, extra...)
	}
	if cfg.WebUI.Port > 0 {
		args = append(args, "--port", strconv.Itoa(cfg.WebUI.Port))
	}
	return args
}

// shareEnabled: "always" forces a public URL, "never" suppresses it, and
// "auto" exposes only hosted notebooks, where localhost is unreachable.
func shareEnabled(mode string, platform hardware.Platform) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	return platform.Cloud()
}

// resolvePython prefers the checkout's venv and falls back to python3.
func resolvePython(dir string) (string, error) {
	venv := filepath.Join(dir, "venv", "bin", "python")
	if _, err := os.Stat(venv); err == nil {
		return venv, nil
	}
	path, err := exec.LookPath("python3")
	if err != nil {
		return "", fmt.Errorf("python3 not found on PATH (install python 3.10+ and retry)")
	}
	return path, nil
}
