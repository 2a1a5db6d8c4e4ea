package webui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"sdrig/internal/workspace"
)

// ErrAlreadyInstalled is returned by Install when the checkout exists and
// force was not requested.
var ErrAlreadyInstalled = errors.New("already installed")

// InstallOptions control Install behavior.
type InstallOptions struct {
	// Force removes an existing checkout before cloning.
	Force bool
	// Output receives git's progress stream. Nil discards it.
	Output io.Writer
}

// IsInstalled reports whether the frontend's entrypoint exists under its
// checkout directory.
func IsInstalled(ws *workspace.Workspace, spec Spec) bool {
	_, err := os.Stat(filepath.Join(ws.WebUIDir(spec.Name), spec.Entrypoint))
	return err == nil
}

// Installed returns the specs of every frontend with a checkout in the
// workspace, in sorted name order.
func Installed(ws *workspace.Workspace) []Spec {
	var specs []Spec
	for _, name := range Names() {
		spec := registry[name]
		if IsInstalled(ws, spec) {
			specs = append(specs, spec)
		}
	}
	return specs
}

// Install shallow-clones the frontend repository into webuis/<name>.
func Install(ctx context.Context, ws *workspace.Workspace, spec Spec, opts InstallOptions) error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git not found on PATH (install git and retry)")
	}

	dir := ws.WebUIDir(spec.Name)
	if _, err := os.Stat(dir); err == nil {
		if !opts.Force {
			if IsInstalled(ws, spec) {
				return fmt.Errorf("%s: %w (use --force to reinstall)", spec.Name, ErrAlreadyInstalled)
			}
			// A directory without the entrypoint is an interrupted clone.
			return fmt.Errorf("%s exists but has no %s; use --force to re-clone", ws.Rel(dir), spec.Entrypoint)
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing old checkout: %w", err)
		}
	}
	if err := os.MkdirAll(ws.WebUIsDir(), 0o755); err != nil {
		return err
	}

	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", spec.RepoURL, dir)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git clone %s: %w", spec.RepoURL, err)
	}
	return nil
}

// Update fast-forwards an existing checkout to upstream.
func Update(ctx context.Context, ws *workspace.Workspace, spec Spec, output io.Writer) error {
	dir := ws.WebUIDir(spec.Name)
	if !IsInstalled(ws, spec) {
		return fmt.Errorf("%s is not installed (run 'sdrig install %s')", spec.Name, spec.Name)
	}
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git not found on PATH (install git and retry)")
	}

	if output == nil {
		output = io.Discard
	}
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "pull", "--ff-only")
	cmd.Stdout = output
	cmd.Stderr = output
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git pull in %s: %w", ws.Rel(dir), err)
	}
	return nil
}
