package launch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sdrig/internal/state"
	"sdrig/internal/workspace"
)

// defaultURLWait bounds how long a detached launch waits for the UI to
// announce its URL before giving up and leaving it to start in peace.
const defaultURLWait = 90 * time.Second

// ErrAlreadyRunning means state.json records a live process.
var ErrAlreadyRunning = errors.New("a webui is already running")

// RunOptions control process supervision.
type RunOptions struct {
	// Detach releases the process and returns once a URL is detected or
	// URLWait elapses.
	Detach bool
	// Force launches even when state.json records a live process.
	Force bool
	// Output receives the streamed process output in foreground mode.
	// Nil means os.Stdout.
	Output io.Writer
	// OnURL fires once per newly detected URL.
	OnURL func(url string)
	// URLWait overrides the detach URL deadline. Zero means the default.
	URLWait time.Duration
}

// Run starts the invocation and supervises it. Foreground runs block until
// the process exits; detached runs return early. The returned state reflects
// the last persisted snapshot.
func Run(ctx context.Context, ws *workspace.Workspace, log *zap.Logger, inv *Invocation, opts RunOptions) (*state.State, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := guardExisting(ws, opts.Force); err != nil {
		return nil, err
	}
	if opts.Detach {
		return runDetached(ctx, ws, log, inv, opts)
	}
	return runForeground(ctx, ws, log, inv, opts)
}

func guardExisting(ws *workspace.Workspace, force bool) error {
	st, err := state.Load(ws)
	if err != nil {
		return nil
	}
	if st.Running() && Alive(st.PID) {
		if force {
			return nil
		}
		return fmt.Errorf("%s (pid %d): %w (run 'sdrig stop' or use --force)", st.WebUI, st.PID, ErrAlreadyRunning)
	}
	return nil
}

func runForeground(ctx context.Context, ws *workspace.Workspace, log *zap.Logger, inv *Invocation, opts RunOptions) (*state.State, error) {
	logFile, err := createLog(inv.LogPath)
	if err != nil {
		return nil, err
	}
	defer logFile.Close()

	cmd := exec.Command(inv.Python, append([]string{inv.Script}, inv.Args...)...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("starting %s: %w", inv.WebUI, err)
	}
	pid := cmd.Process.Pid

	st := state.New(inv.LaunchID, inv.WebUI, pid, ws.Rel(inv.LogPath))
	if err := st.Save(ws); err != nil {
		terminate(context.Background(), pid, 2*time.Second)
		// Unblock the output copier so Wait can return.
		pr.Close()
		cmd.Wait()
		pw.Close()
		return nil, fmt.Errorf("recording launch state: %w", err)
	}
	log.Info("webui started",
		zap.String("webui", inv.WebUI),
		zap.Int("pid", pid),
		zap.String("log", ws.Rel(inv.LogPath)))

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		pw.Close()
	}()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			terminate(context.Background(), pid, stopGrace)
		case <-done:
		}
	}()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(splitLines)
	for scanner.Scan() {
		line := scanner.Text()
		fmt.Fprintln(out, line)
		fmt.Fprintln(logFile, line)
		url, ok := ScanLine(line)
		if !ok || !st.AddURL(url) {
			continue
		}
		if err := st.Save(ws); err != nil {
			log.Warn("saving state", zap.Error(err))
		}
		log.Info("url detected", zap.String("url", url))
		if opts.OnURL != nil {
			opts.OnURL(url)
		}
	}

	err = <-waitErr
	close(done)

	code, infraErr := exitCode(err)
	status := state.StatusCompleted
	switch {
	case ctx.Err() != nil:
		status = state.StatusInterrupted
	case infraErr != nil, code != 0:
		status = state.StatusFailed
	}
	st.MarkEnded(status, code)
	if serr := st.Save(ws); serr != nil {
		return st, serr
	}
	log.Info("webui exited", zap.String("status", status), zap.Int("code", code))
	return st, infraErr
}

func runDetached(ctx context.Context, ws *workspace.Workspace, log *zap.Logger, inv *Invocation, opts RunOptions) (*state.State, error) {
	logFile, err := createLog(inv.LogPath)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(inv.Python, append([]string{inv.Script}, inv.Args...)...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("starting %s: %w", inv.WebUI, err)
	}
	logFile.Close()
	pid := cmd.Process.Pid

	st := state.New(inv.LaunchID, inv.WebUI, pid, ws.Rel(inv.LogPath))
	if err := st.Save(ws); err != nil {
		terminate(context.Background(), pid, 2*time.Second)
		cmd.Wait()
		return nil, fmt.Errorf("recording launch state: %w", err)
	}
	// Reap the child if this process outlives it: the TUI launches detached
	// and keeps running, and an unreaped zombie still answers signal 0.
	go cmd.Wait()
	log.Info("webui started detached",
		zap.String("webui", inv.WebUI),
		zap.Int("pid", pid),
		zap.String("log", ws.Rel(inv.LogPath)))

	wait := opts.URLWait
	if wait <= 0 {
		wait = defaultURLWait
	}
	urls, err := waitForURLs(ctx, inv.WebUI, inv.LogPath, pid, wait)
	if err != nil {
		st.MarkEnded(state.StatusFailed, -1)
		if serr := st.Save(ws); serr != nil {
			log.Warn("saving state", zap.Error(serr))
		}
		return st, err
	}
	for _, url := range urls {
		if st.AddURL(url) {
			log.Info("url detected", zap.String("url", url))
			if opts.OnURL != nil {
				opts.OnURL(url)
			}
		}
	}
	if len(urls) > 0 {
		if err := st.Save(ws); err != nil {
			return st, err
		}
	}
	return st, nil
}

// waitForURLs polls the log until a URL appears, the process dies, or the
// deadline passes. A deadline without a URL is not an error.
func waitForURLs(ctx context.Context, name, logPath string, pid int, wait time.Duration) ([]string, error) {
	deadline := time.Now().Add(wait)
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	for {
		if urls := scanLogForURLs(logPath); len(urls) > 0 {
			return urls, nil
		}
		if !Alive(pid) {
			if urls := scanLogForURLs(logPath); len(urls) > 0 {
				return urls, nil
			}
			return nil, fmt.Errorf("%s exited during startup (%s)", name, tailHint(logPath))
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tick.C:
		}
	}
}

func scanLogForURLs(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		if url, ok := ScanLine(line); ok && !slices.Contains(urls, url) {
			urls = append(urls, url)
		}
	}
	return urls
}

func tailHint(path string) string {
	data, err := os.ReadFile(path)
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return "log is empty"
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	return "last log line: " + strings.TrimSpace(lines[len(lines)-1])
}

func createLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// splitLines ends tokens on \n or bare \r so in-place progress bars do not
// stall the scanner.
func splitLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance := i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// exitCode extracts the code from Wait's error: (code, nil) for an
// ExitError, (0, err) for infrastructure failures.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}
