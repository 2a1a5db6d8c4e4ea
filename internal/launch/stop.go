package launch

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sdrig/internal/state"
	"sdrig/internal/workspace"
)

// stopGrace is how long a process group gets to exit after SIGTERM.
const stopGrace = 10 * time.Second

var (
	// ErrNotRunning means there is no live launch to stop.
	ErrNotRunning = errors.New("no webui is running")
	// ErrStale means state.json claimed a launch whose process is gone.
	ErrStale = errors.New("recorded process is gone")
)

// Alive reports whether pid is a live, signallable process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Stop terminates the launch recorded in state.json: SIGTERM to the process
// group, a grace period, then SIGKILL. Stale state is marked ended and
// reported via ErrStale.
func Stop(ctx context.Context, ws *workspace.Workspace, log *zap.Logger) (*state.State, error) {
	if log == nil {
		log = zap.NewNop()
	}
	st, err := state.Load(ws)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, ErrNotRunning
		}
		return nil, err
	}
	if !st.Running() {
		return st, ErrNotRunning
	}
	if !Alive(st.PID) {
		st.MarkEnded(state.StatusInterrupted, -1)
		if serr := st.Save(ws); serr != nil {
			return st, serr
		}
		return st, ErrStale
	}

	log.Info("stopping webui", zap.String("webui", st.WebUI), zap.Int("pid", st.PID))
	terminate(ctx, st.PID, stopGrace)
	st.MarkEnded(state.StatusInterrupted, -1)
	if err := st.Save(ws); err != nil {
		return st, err
	}
	log.Info("webui stopped", zap.String("webui", st.WebUI))
	return st, nil
}

// terminate signals the process group: TERM, then KILL once grace runs out
// or ctx is canceled. pid doubles as the pgid because launches Setpgid.
func terminate(ctx context.Context, pid int, grace time.Duration) {
	syscall.Kill(-pid, syscall.SIGTERM)
	deadline := time.Now().Add(grace)
	for Alive(pid) {
		if time.Now().After(deadline) || ctx.Err() != nil {
			syscall.Kill(-pid, syscall.SIGKILL)
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
}
