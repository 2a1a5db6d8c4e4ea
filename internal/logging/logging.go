// Package logging builds the session logger. Structured events go to a
// dated JSON file under .sdrig/logs; the terminal stays reserved for ux
// output unless verbose also tees to stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sdrig/internal/workspace"
)

// New opens the session logger, appending to session-YYYYMMDD.log. Callers
// must Close it to flush.
func New(ws *workspace.Workspace, verbose bool) (*zap.Logger, error) {
	if err := os.MkdirAll(ws.LogsDir(), 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(ws.LogsDir(), "session-"+time.Now().Format("20060102")+".log")

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.OutputPaths = append(cfg.OutputPaths, "stderr")
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	return log, nil
}

// Close syncs the logger. Sync errors on stderr are expected and dropped.
func Close(log *zap.Logger) {
	if log != nil {
		_ = log.Sync()
	}
}
