package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// aria2Fetcher shells out to aria2c. aria2c manages its own resume via
// control files and its own retries via --max-tries, so the manager runs it
// once per job.
type aria2Fetcher struct {
	retries int
}

// Aria2Available reports whether aria2c is on PATH.
func Aria2Available() bool {
	_, err := exec.LookPath("aria2c")
	return err == nil
}

func (f *aria2Fetcher) Name() string { return "aria2" }

func (f *aria2Fetcher) Fetch(ctx context.Context, job *Job, report func(done, total int64)) error {
	if err := os.MkdirAll(filepath.Dir(job.Dest), 0o755); err != nil {
		return err
	}
	report(0, 0)

	cmd := exec.CommandContext(ctx, "aria2c", aria2Args(job, f.retries)...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := lastLine(stderr.String()); msg != "" {
			return fmt.Errorf("aria2c: %w: %s", err, msg)
		}
		return fmt.Errorf("aria2c: %w", err)
	}
	return nil
}

func aria2Args(job *Job, retries int) []string {
	return []string{
		"--console-log-level=error",
		"--summary-interval=0",
		"--continue=true",
		// max-tries counts attempts, not retries, and 0 means unlimited.
		fmt.Sprintf("--max-tries=%d", retries+1),
		"--split=4",
		"--max-connection-per-server=4",
		"--min-split-size=1M",
		"--user-agent=" + userAgent,
		"--file-allocation=none",
		"-d", filepath.Dir(job.Dest),
		"-o", job.Filename,
		job.URL,
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
