// Package doctor runs ordered health checks over a workspace and, when
// asked, applies the safe fixes. Each check is independent; a broken config
// or missing state never stops the rest of the list.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"sdrig/internal/catalog"
	"sdrig/internal/config"
	"sdrig/internal/download"
	"sdrig/internal/hardware"
	"sdrig/internal/launch"
	"sdrig/internal/state"
	"sdrig/internal/webui"
	"sdrig/internal/workspace"
)

// Status grades a single check.
type Status string

const (
	OK   Status = "ok"
	Warn Status = "warn"
	Fail Status = "fail"
)

// Result is one check's outcome.
type Result struct {
	Name    string
	Status  Status
	Detail  string
	FixHint string
	Fixed   bool
}

// Report collects every check that ran.
type Report struct {
	Results []Result
}

// Failed reports whether any check failed. Warns do not fail a report.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Status == Fail {
			return true
		}
	}
	return false
}

// Counts tallies results by status.
func (r *Report) Counts() (ok, warn, fail int) {
	for _, res := range r.Results {
		switch res.Status {
		case OK:
			ok++
		case Warn:
			warn++
		case Fail:
			fail++
		}
	}
	return
}

// Options tune a doctor run.
type Options struct {
	// Fix applies the safe repairs: recreate missing tree directories and
	// clear stale launch state.
	Fix bool
}

const (
	diskFailFree = 2 << 30
	diskWarnFree = 10 << 30
)

// Run executes every check in order and returns the report. cfg may be the
// defaults when the on-disk config is broken; the config check re-reads the
// file itself.
func Run(ctx context.Context, ws *workspace.Workspace, cfg *config.Config, log *zap.Logger, opts Options) *Report {
	if log == nil {
		log = zap.NewNop()
	}
	checks := []struct {
		name string
		run  func() Result
	}{
		{"workspace tree", func() Result { return checkTree(ws, opts.Fix) }},
		{"config", func() Result { return checkConfig(ws) }},
		{"git", func() Result { return checkTool("git", "installing WebUIs needs git") }},
		{"python3", func() Result { return checkTool("python3", "launching WebUIs needs python 3.10+") }},
		{"download engine", func() Result { return checkEngine(cfg) }},
		{"gpu", func() Result { return checkGPU(ctx) }},
		{"disk space", func() Result { return checkDisk(ws) }},
		{"model dirs", func() Result { return checkWritable(ws) }},
		{"selected webui", func() Result { return checkSelected(ws, cfg) }},
		{"launch state", func() Result { return checkState(ws, opts.Fix) }},
		{"manifest", func() Result { return checkManifest(ws) }},
	}

	report := &Report{}
	for _, c := range checks {
		res := c.run()
		res.Name = c.name
		report.Results = append(report.Results, res)
		switch res.Status {
		case Fail:
			log.Warn("check failed", zap.String("check", res.Name), zap.String("detail", res.Detail))
		case Warn:
			log.Info("check warned", zap.String("check", res.Name), zap.String("detail", res.Detail))
		}
	}
	return report
}

func checkTree(ws *workspace.Workspace, fix bool) Result {
	missing := ws.MissingDirs()
	if len(missing) == 0 {
		return Result{Status: OK, Detail: "all directories present"}
	}
	if fix {
		if err := ws.EnsureTree(); err != nil {
			return Result{Status: Fail, Detail: fmt.Sprintf("recreating tree: %v", err)}
		}
		return Result{Status: OK, Detail: "created " + strings.Join(missing, ", "), Fixed: true}
	}
	return Result{
		Status:  Fail,
		Detail:  "missing " + strings.Join(missing, ", "),
		FixHint: "run 'sdrig doctor --fix'",
	}
}

func checkConfig(ws *workspace.Workspace) Result {
	if _, err := config.Load(ws.ConfigPath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{Status: Fail, Detail: "config.yaml missing", FixHint: "run 'sdrig init'"}
		}
		return Result{Status: Fail, Detail: err.Error(), FixHint: "fix .sdrig/config.yaml or re-run 'sdrig init --force'"}
	}
	return Result{Status: OK, Detail: "loads and validates"}
}

func checkTool(name, why string) Result {
	path, err := exec.LookPath(name)
	if err != nil {
		return Result{Status: Fail, Detail: "not found on PATH", FixHint: why}
	}
	return Result{Status: OK, Detail: path}
}

func checkEngine(cfg *config.Config) Result {
	avail := download.Aria2Available()
	switch cfg.Download.Engine {
	case "aria2":
		if !avail {
			return Result{Status: Fail, Detail: "engine is aria2 but aria2c is not on PATH", FixHint: "install aria2 or set download.engine to auto"}
		}
		return Result{Status: OK, Detail: "aria2c"}
	case "native":
		return Result{Status: OK, Detail: "native HTTP"}
	default:
		if avail {
			return Result{Status: OK, Detail: "aria2c"}
		}
		return Result{Status: OK, Detail: "native HTTP (aria2c not found)"}
	}
}

func checkGPU(ctx context.Context) Result {
	info := hardware.Detect(ctx)
	profile := hardware.ProfileFor(info)
	if info.GPU == nil {
		return Result{
			Status:  Warn,
			Detail:  "no GPU detected; generation will run on CPU",
			FixHint: "check nvidia drivers (nvidia-smi)",
		}
	}
	return Result{Status: OK, Detail: fmt.Sprintf("%s, %d MiB (profile %s)", info.GPU.Name, info.GPU.VRAMMiB, profile.Tier)}
}

func checkDisk(ws *workspace.Workspace) Result {
	var fs syscall.Statfs_t
	if err := syscall.Statfs(ws.Root, &fs); err != nil {
		return Result{Status: Warn, Detail: fmt.Sprintf("statfs: %v", err)}
	}
	free := int64(fs.Bavail) * int64(fs.Bsize)
	detail := fmt.Sprintf("%.1f GiB free", float64(free)/(1<<30))
	switch {
	case free < diskFailFree:
		return Result{Status: Fail, Detail: detail, FixHint: "checkpoints need 2-7 GiB each; free space first"}
	case free < diskWarnFree:
		return Result{Status: Warn, Detail: detail, FixHint: "a full model set needs 10+ GiB"}
	default:
		return Result{Status: OK, Detail: detail}
	}
}

func checkWritable(ws *workspace.Workspace) Result {
	for _, cat := range catalog.Categories() {
		dir := ws.ModelDir(cat)
		probe, err := os.CreateTemp(dir, ".doctor-*")
		if err != nil {
			return Result{Status: Fail, Detail: fmt.Sprintf("%s is not writable: %v", ws.Rel(dir), err)}
		}
		probe.Close()
		os.Remove(probe.Name())
	}
	return Result{Status: OK, Detail: "all writable"}
}

func checkSelected(ws *workspace.Workspace, cfg *config.Config) Result {
	spec, err := webui.Lookup(cfg.WebUI.Selected)
	if err != nil {
		return Result{Status: Fail, Detail: err.Error(), FixHint: "set webui.selected to a known name (sdrig config set webui.selected forge)"}
	}
	if !webui.IsInstalled(ws, spec) {
		return Result{
			Status:  Warn,
			Detail:  fmt.Sprintf("%s is selected but not installed", spec.Name),
			FixHint: fmt.Sprintf("run 'sdrig install %s'", spec.Name),
		}
	}
	return Result{Status: OK, Detail: spec.Name + " installed"}
}

func checkState(ws *workspace.Workspace, fix bool) Result {
	st, err := state.Load(ws)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return Result{Status: OK, Detail: "no launch recorded"}
		}
		return Result{Status: Fail, Detail: err.Error(), FixHint: "delete .sdrig/state.json"}
	}
	if !st.Running() {
		return Result{Status: OK, Detail: fmt.Sprintf("last launch %s (%s)", st.Status, st.WebUI)}
	}
	if launch.Alive(st.PID) {
		return Result{Status: OK, Detail: fmt.Sprintf("%s running (pid %d)", st.WebUI, st.PID)}
	}
	if fix {
		st.MarkEnded(state.StatusInterrupted, -1)
		if err := st.Save(ws); err != nil {
			return Result{Status: Fail, Detail: fmt.Sprintf("clearing stale state: %v", err)}
		}
		return Result{Status: OK, Detail: fmt.Sprintf("cleared stale state for pid %d", st.PID), Fixed: true}
	}
	return Result{
		Status:  Warn,
		Detail:  fmt.Sprintf("state says %s is running but pid %d is gone", st.WebUI, st.PID),
		FixHint: "run 'sdrig doctor --fix' or 'sdrig stop'",
	}
}

func checkManifest(ws *workspace.Workspace) Result {
	man, err := download.LoadManifest(ws)
	if err != nil {
		return Result{Status: Fail, Detail: err.Error(), FixHint: "delete .sdrig/manifest.json and re-run 'sdrig download'"}
	}
	if len(man.Entries) == 0 {
		return Result{Status: OK, Detail: "no downloads recorded"}
	}
	var missing []string
	for _, p := range man.Paths() {
		if _, err := os.Stat(filepath.Join(ws.Root, p)); err != nil {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return Result{Status: OK, Detail: fmt.Sprintf("%d entries, all on disk", len(man.Entries))}
	}
	detail := fmt.Sprintf("%d of %d files missing: %s", len(missing), len(man.Entries), strings.Join(head(missing, 3), ", "))
	return Result{Status: Warn, Detail: detail, FixHint: "run 'sdrig verify --prune' or re-download"}
}

func head(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return append(items[:n:n], "...")
}
