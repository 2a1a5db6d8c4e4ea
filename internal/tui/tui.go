// Package tui hosts the interactive screens: the first-run setup wizard and
// the live workspace dashboard. Both are Bubble Tea programs; everything
// they touch goes through the same internal packages as the plain CLI.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"sdrig/internal/config"
	"sdrig/internal/workspace"
)

// RunSetup walks the user through the config wizard. It reports whether the
// user confirmed the review step; on false, nothing was written.
func RunSetup(ctx context.Context, ws *workspace.Workspace, cfg *config.Config) (bool, error) {
	m, err := newSetup(ws, cfg)
	if err != nil {
		return false, err
	}
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	done, ok := final.(setup)
	return ok && done.saved, nil
}

// RunDashboard shows the live dashboard until the user quits. The watcher
// keeps it current while downloads or installs run in another terminal.
func RunDashboard(ctx context.Context, ws *workspace.Workspace, cfg *config.Config, log *zap.Logger) error {
	watch, err := newWatcher(ws)
	if err != nil {
		return err
	}
	defer watch.Close()
	m := newDashboard(ws, cfg, log, watch)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
