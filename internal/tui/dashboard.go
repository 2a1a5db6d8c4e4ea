package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"sdrig/internal/config"
	"sdrig/internal/launch"
	"sdrig/internal/state"
	"sdrig/internal/status"
	"sdrig/internal/ux"
	"sdrig/internal/workspace"
)

type snapshotMsg struct {
	snap *status.Snapshot
	err  error
}

type fsChangedMsg struct{}

// actionDoneMsg reports a finished launch or stop. verb is the notice to
// show on success.
type actionDoneMsg struct {
	verb string
	err  error
}

// dashboard is the live workspace view: install standing, launch state, and
// model tallies, refreshed whenever the workspace changes on disk.
type dashboard struct {
	ws     *workspace.Workspace
	cfg    *config.Config
	log    *zap.Logger
	watch  *watcher
	styles Styles

	snap   *status.Snapshot
	spin   spinner.Model
	busy   string // in-flight action, "" when idle
	notice string
	errMsg string
	width  int
}

func newDashboard(ws *workspace.Workspace, cfg *config.Config, log *zap.Logger, watch *watcher) dashboard {
	if log == nil {
		log = zap.NewNop()
	}
	st := DefaultStyles()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.Accent
	return dashboard{
		ws:     ws,
		cfg:    cfg,
		log:    log,
		watch:  watch,
		styles: st,
		spin:   sp,
	}
}

func (m dashboard) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.waitForChange())
}

func (m dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refresh()
		case "l":
			if m.busy != "" {
				return m, nil
			}
			m.busy = "launching"
			m.errMsg = ""
			m.notice = ""
			return m, tea.Batch(m.spin.Tick, m.launchCmd())
		case "s":
			if m.busy != "" {
				return m, nil
			}
			m.busy = "stopping"
			m.errMsg = ""
			m.notice = ""
			return m, tea.Batch(m.spin.Tick, m.stopCmd())
		}
		return m, nil

	case snapshotMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.snap = msg.snap
		return m, nil

	case fsChangedMsg:
		return m, tea.Batch(m.refresh(), m.waitForChange())

	case actionDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.errMsg = msg.err.Error()
		} else {
			m.notice = msg.verb
		}
		return m, m.refresh()

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m dashboard) refresh() tea.Cmd {
	ws, cfg := m.ws, m.cfg
	return func() tea.Msg {
		snap, err := status.Collect(ws, cfg)
		return snapshotMsg{snap: snap, err: err}
	}
}

// waitForChange blocks on the watcher until the workspace changes. Each
// fsChangedMsg re-arms it.
func (m dashboard) waitForChange() tea.Cmd {
	if m.watch == nil {
		return nil
	}
	ch := m.watch.C
	return func() tea.Msg {
		<-ch
		return fsChangedMsg{}
	}
}

func (m dashboard) launchCmd() tea.Cmd {
	ws, cfg, log := m.ws, m.cfg, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		inv, err := launch.Build(ctx, ws, cfg, "")
		if err != nil {
			return actionDoneMsg{err: err}
		}
		st, err := launch.Run(ctx, ws, log, inv, launch.RunOptions{Detach: true})
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{verb: fmt.Sprintf("%s running (pid %d)", st.WebUI, st.PID)}
	}
}

func (m dashboard) stopCmd() tea.Cmd {
	ws, log := m.ws, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		st, err := launch.Stop(ctx, ws, log)
		switch {
		case errors.Is(err, launch.ErrStale):
			return actionDoneMsg{verb: "cleared stale launch state"}
		case errors.Is(err, launch.ErrNotRunning):
			return actionDoneMsg{verb: "nothing running"}
		case err != nil:
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{verb: fmt.Sprintf("%s stopped", st.WebUI)}
	}
}

func (m dashboard) View() string {
	s := m.styles
	if m.snap == nil {
		return s.Muted.Render("collecting workspace state...") + "\n"
	}

	header := s.Title.Render("sdrig") + s.Muted.Render("  "+m.snap.Root)
	left := lipgloss.JoinVertical(lipgloss.Left,
		s.Panel.Render(m.launchPanel()),
		s.Panel.Render(m.webuiPanel()),
	)
	right := s.Panel.Render(m.modelsPanel())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	foot := s.Help.Render("l launch  s stop  r refresh  q quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.statusLine(), foot) + "\n"
}

func (m dashboard) statusLine() string {
	s := m.styles
	switch {
	case m.busy != "":
		return m.spin.View() + m.busy + "..."
	case m.errMsg != "":
		return s.Bad.Render("✗ " + m.errMsg)
	case m.notice != "":
		return s.Good.Render("✓ " + m.notice)
	}
	return ""
}

func (m dashboard) launchPanel() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Subtitle.Render("Launch") + "\n")
	l := m.snap.Launch
	switch {
	case l == nil:
		b.WriteString(s.Muted.Render("never launched"))
	case l.Stale():
		b.WriteString(s.Warn.Render(fmt.Sprintf("stale %s, pid %d is gone (press s to clear)", l.WebUI, l.PID)))
	case l.Status == state.StatusRunning:
		b.WriteString(s.Good.Render(l.WebUI+" running") + s.Muted.Render(fmt.Sprintf("  pid %d", l.PID)))
		for _, u := range l.URLs {
			b.WriteString("\n  " + s.Accent.Render(u))
		}
	default:
		line := fmt.Sprintf("%s %s", l.Status, l.WebUI)
		if l.ExitCode != nil {
			line += fmt.Sprintf(" (exit %d)", *l.ExitCode)
		}
		b.WriteString(s.Muted.Render(line))
	}
	return b.String()
}

func (m dashboard) webuiPanel() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Subtitle.Render("WebUIs"))
	for _, w := range m.snap.WebUIs {
		marker := "  "
		if w.Selected {
			marker = s.Accent.Render("→ ")
		}
		standing := s.Muted.Render("not installed")
		if w.Installed {
			standing = s.Good.Render("installed")
		}
		b.WriteString(fmt.Sprintf("\n%s%-36s %s", marker, w.Title, standing))
	}
	return b.String()
}

func (m dashboard) modelsPanel() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Subtitle.Render("Models"))
	for _, mm := range m.snap.Models {
		tally := s.Muted.Render("(empty)")
		if mm.Files > 0 {
			tally = fmt.Sprintf("%d file(s), %s", mm.Files, ux.Bytes(mm.Bytes))
		}
		b.WriteString(fmt.Sprintf("\n%-12s %s", mm.Category, tally))
	}
	b.WriteString("\n" + s.Muted.Render(fmt.Sprintf("manifest: %d entries, %s",
		m.snap.Manifest.Entries, ux.Bytes(m.snap.Manifest.Bytes))))
	return b.String()
}
