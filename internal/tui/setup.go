package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sdrig/internal/cart"
	"sdrig/internal/catalog"
	"sdrig/internal/config"
	"sdrig/internal/webui"
	"sdrig/internal/workspace"
)

type setupStep int

const (
	stepWebUI setupStep = iota
	stepFlavor
	stepModels
	stepCustom
	stepReview
)

type webuiItem struct{ spec webui.Spec }

func (i webuiItem) Title() string       { return i.spec.Title }
func (i webuiItem) Description() string { return i.spec.RepoURL }
func (i webuiItem) FilterValue() string { return i.spec.Name }

type flavorItem struct {
	flavor catalog.Flavor
	title  string
	desc   string
}

func (i flavorItem) Title() string       { return i.title }
func (i flavorItem) Description() string { return i.desc }
func (i flavorItem) FilterValue() string { return i.title }

type modelItem struct {
	entry   catalog.Entry
	checked bool
}

func (i modelItem) Title() string {
	box := "[ ] "
	if i.checked {
		box = "[x] "
	}
	return box + i.entry.Name
}

func (i modelItem) Description() string {
	if i.entry.Description != "" {
		return i.entry.Description
	}
	return i.entry.Filename
}

func (i modelItem) FilterValue() string { return i.entry.Name }

// setup walks the user through a fresh config: frontend, flavor, curated
// model picks per category, then free-form cart URLs. Nothing is written
// until the review step is confirmed.
type setup struct {
	ws     *workspace.Workspace
	cfg    *config.Config
	styles Styles

	step    setupStep
	webuis  list.Model
	flavors list.Model
	models  list.Model
	input   textinput.Model

	cat       *catalog.Catalog
	cats      []catalog.Category // categories with catalog entries
	catIdx    int
	selected  map[catalog.Category]map[string]bool
	custom    []string
	webuiName string

	width  int
	height int
	errMsg string
	saved  bool
}

func newSetup(ws *workspace.Workspace, cfg *config.Config) (setup, error) {
	m := setup{
		ws:        ws,
		cfg:       cfg,
		styles:    DefaultStyles(),
		webuiName: cfg.WebUI.Selected,
		selected:  map[catalog.Category]map[string]bool{},
	}
	if err := m.setFlavor(cfg.Models.Flavor()); err != nil {
		return setup{}, err
	}

	var webuiItems []list.Item
	cursor := 0
	for i, name := range webui.Names() {
		spec, err := webui.Lookup(name)
		if err != nil {
			return setup{}, err
		}
		if name == cfg.WebUI.Selected {
			cursor = i
		}
		webuiItems = append(webuiItems, webuiItem{spec: spec})
	}
	m.webuis = m.newList(webuiItems, "Pick a WebUI")
	m.webuis.Select(cursor)

	m.flavors = m.newList([]list.Item{
		flavorItem{catalog.SD15, "Stable Diffusion 1.5", "the classic lineup, lighter on VRAM"},
		flavorItem{catalog.SDXL, "Stable Diffusion XL", "higher resolution, needs more VRAM"},
	}, "Pick a model flavor")
	if cfg.Models.SDXL {
		m.flavors.Select(1)
	}
	m.models = m.newList(nil, "")

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "https://civitai.com/api/download/models/..."
	m.input = ti
	return m, nil
}

// setFlavor loads the catalog for f and reseeds the selection state. Picks
// survive a flavor round-trip only when f matches the saved config.
func (m *setup) setFlavor(f catalog.Flavor) error {
	if m.cat != nil && m.cat.Flavor == f {
		return nil
	}
	c, err := catalog.Load(f)
	if err != nil {
		return err
	}
	m.cat = c
	m.cats = m.cats[:0]
	m.selected = map[catalog.Category]map[string]bool{}
	for _, cat := range catalog.Categories() {
		if len(c.Entries(cat)) == 0 {
			continue
		}
		m.cats = append(m.cats, cat)
		m.selected[cat] = map[string]bool{}
	}
	if f == m.cfg.Models.Flavor() {
		for cat, names := range m.cfg.Models.Selections() {
			for _, name := range names {
				if e, ok := c.Find(cat, name); ok && m.selected[cat] != nil {
					m.selected[cat][e.Name] = true
				}
			}
		}
	}
	return nil
}

func (m *setup) newList(items []list.Item, title string) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), m.width, m.listHeight())
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	// The wizard owns quitting: esc backs out step by step, q only works on
	// the review screen.
	l.DisableQuitKeybindings()
	return l
}

func (m *setup) listHeight() int {
	if m.height > 6 {
		return m.height - 6
	}
	return 14
}

func (m *setup) enterModels() {
	cat := m.cats[m.catIdx]
	entries := m.cat.Entries(cat)
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = modelItem{entry: e, checked: m.selected[cat][e.Name]}
	}
	m.models = m.newList(items, fmt.Sprintf("Pick %s models (space toggles)", cat))
}

func (m setup) Init() tea.Cmd {
	return nil
}

func (m setup) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		for _, l := range []*list.Model{&m.webuis, &m.flavors, &m.models} {
			l.SetSize(m.width, m.listHeight())
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m.back()
		case "enter":
			return m.advance()
		case " ":
			if m.step == stepModels {
				return m.toggle()
			}
		case "q":
			// Everywhere else q is input (lists scroll past it, the text
			// field wants the letter).
			if m.step == stepReview {
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	switch m.step {
	case stepWebUI:
		m.webuis, cmd = m.webuis.Update(msg)
	case stepFlavor:
		m.flavors, cmd = m.flavors.Update(msg)
	case stepModels:
		m.models, cmd = m.models.Update(msg)
	case stepCustom:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m setup) toggle() (tea.Model, tea.Cmd) {
	it, ok := m.models.SelectedItem().(modelItem)
	if !ok {
		return m, nil
	}
	it.checked = !it.checked
	m.selected[m.cats[m.catIdx]][it.entry.Name] = it.checked
	cmd := m.models.SetItem(m.models.Index(), it)
	return m, cmd
}

func (m setup) advance() (tea.Model, tea.Cmd) {
	m.errMsg = ""
	switch m.step {
	case stepWebUI:
		if it, ok := m.webuis.SelectedItem().(webuiItem); ok {
			m.webuiName = it.spec.Name
		}
		m.step = stepFlavor

	case stepFlavor:
		if it, ok := m.flavors.SelectedItem().(flavorItem); ok {
			if err := m.setFlavor(it.flavor); err != nil {
				m.errMsg = err.Error()
				return m, nil
			}
		}
		if len(m.cats) == 0 {
			m.step = stepCustom
			return m, m.input.Focus()
		}
		m.catIdx = 0
		m.enterModels()
		m.step = stepModels

	case stepModels:
		if m.catIdx+1 < len(m.cats) {
			m.catIdx++
			m.enterModels()
			return m, nil
		}
		m.step = stepCustom
		return m, m.input.Focus()

	case stepCustom:
		line := strings.TrimSpace(m.input.Value())
		if line == "" {
			m.input.Blur()
			m.step = stepReview
			return m, nil
		}
		if err := validateCartLine(line); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.custom = append(m.custom, line)
		m.input.SetValue("")

	case stepReview:
		if err := m.apply(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.saved = true
		return m, tea.Quit
	}
	return m, nil
}

func (m setup) back() (tea.Model, tea.Cmd) {
	m.errMsg = ""
	switch m.step {
	case stepWebUI:
		return m, tea.Quit
	case stepFlavor:
		m.step = stepWebUI
	case stepModels:
		if m.catIdx > 0 {
			m.catIdx--
			m.enterModels()
			return m, nil
		}
		m.step = stepFlavor
	case stepCustom:
		m.input.Blur()
		if len(m.cats) > 0 {
			m.catIdx = len(m.cats) - 1
			m.enterModels()
			m.step = stepModels
			return m, nil
		}
		m.step = stepFlavor
	case stepReview:
		m.step = stepCustom
		return m, m.input.Focus()
	}
	return m, nil
}

// validateCartLine runs line through the cart parser under a checkpoint
// marker so bad URLs are rejected before they land in cart.txt.
func validateCartLine(line string) error {
	c, err := cart.ParseString("#model\n" + line)
	if err != nil {
		return err
	}
	if len(c.Warnings) > 0 {
		return errors.New(c.Warnings[0].Msg)
	}
	if len(c.Items) == 0 {
		return errors.New("not a model URL or filename")
	}
	return nil
}

// apply writes the config and appends custom lines to the cart. Called only
// from the review step.
func (m *setup) apply() error {
	sel := func(cat catalog.Category) []string {
		var names []string
		for _, e := range m.cat.Entries(cat) {
			if m.selected[cat][e.Name] {
				names = append(names, e.Name)
			}
		}
		return names
	}
	m.cfg.WebUI.Selected = m.webuiName
	m.cfg.Models.SDXL = m.cat.Flavor == catalog.SDXL
	m.cfg.Models.Checkpoints = sel(catalog.Checkpoint)
	m.cfg.Models.VAEs = sel(catalog.VAE)
	m.cfg.Models.LoRAs = sel(catalog.LoRA)
	m.cfg.Models.ControlNets = sel(catalog.ControlNet)
	m.cfg.Models.Embeddings = sel(catalog.Embedding)
	m.cfg.Models.Upscalers = sel(catalog.Upscaler)
	if err := m.cfg.Validate(); err != nil {
		return err
	}
	if err := m.cfg.Save(m.ws.ConfigPath()); err != nil {
		return err
	}
	return m.appendCart()
}

// appendCart adds the wizard's custom lines under a fresh #model marker so
// they parse the same way on the next plan.
func (m *setup) appendCart() error {
	if len(m.custom) == 0 {
		return nil
	}
	f, err := os.OpenFile(m.ws.CartPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("\n#model\n")
	for _, line := range m.custom {
		b.WriteString(line + "\n")
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (m setup) View() string {
	s := m.styles
	step, total := m.stepIndex()
	header := s.Title.Render("sdrig setup") + s.Muted.Render(fmt.Sprintf("  step %d of %d", step, total))

	var body, help string
	switch m.step {
	case stepWebUI:
		body = m.webuis.View()
		help = "enter continue  esc quit"
	case stepFlavor:
		body = m.flavors.View()
		help = "enter continue  esc back"
	case stepModels:
		body = m.models.View()
		help = "space toggle  enter continue  esc back"
	case stepCustom:
		body = m.customView()
		help = "enter add line  enter on empty line continues  esc back"
	case stepReview:
		body = m.reviewView()
		help = "enter save  esc back  q quit without saving"
	}

	parts := []string{header, body}
	if m.errMsg != "" {
		parts = append(parts, s.Bad.Render("✗ "+m.errMsg))
	}
	parts = append(parts, s.Help.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func (m setup) stepIndex() (int, int) {
	total := 4 + len(m.cats)
	switch m.step {
	case stepWebUI:
		return 1, total
	case stepFlavor:
		return 2, total
	case stepModels:
		return 3 + m.catIdx, total
	case stepCustom:
		return total - 1, total
	default:
		return total, total
	}
}

func (m setup) customView() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Subtitle.Render("Extra model URLs") + "\n")
	b.WriteString(s.Muted.Render("Paste checkpoint URLs to add to cart.txt, one per line.") + "\n\n")
	b.WriteString(m.input.View())
	for _, line := range m.custom {
		b.WriteString("\n" + s.Checked.Render("+ ") + line)
	}
	return b.String()
}

func (m setup) reviewView() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Subtitle.Render("Review") + "\n")
	b.WriteString(fmt.Sprintf("%s %s\n", s.Label.Render("WebUI: "), m.webuiName))
	b.WriteString(fmt.Sprintf("%s %s\n", s.Label.Render("Flavor:"), m.cat.Flavor))
	for _, cat := range m.cats {
		var names []string
		for _, e := range m.cat.Entries(cat) {
			if m.selected[cat][e.Name] {
				names = append(names, e.Name)
			}
		}
		if len(names) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("%s %s\n", s.Label.Render(fmt.Sprintf("%-11s", cat+":")), strings.Join(names, ", ")))
	}
	if len(m.custom) > 0 {
		b.WriteString(fmt.Sprintf("%s %d line(s) appended to cart.txt\n", s.Label.Render("Custom: "), len(m.custom)))
	}
	b.WriteString("\n" + s.Muted.Render(fmt.Sprintf("Writes %s", m.ws.Rel(m.ws.ConfigPath()))))
	return b.String()
}
