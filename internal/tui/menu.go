package tui

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/diagnostics"
	"github.com/Yousha/dotlyzer/internal/dump"
	"github.com/Yousha/dotlyzer/internal/inspect"
)

// Backend produces the reports the menu shows. *diagnostics.Aggregator
// satisfies it.
type Backend interface {
	ListProcesses(ctx context.Context) (*diagnostics.ProcessListReport, error)
	SystemDiagnostics(ctx context.Context, pid int32) (*diagnostics.SystemReport, error)
	MemoryAnalysis(ctx context.Context, pid int32) (*diagnostics.MemoryReport, error)
	ThreadAnalysis(ctx context.Context, pid int32) (*diagnostics.ThreadsReport, error)
	DiagnosticFeatures(ctx context.Context, pid int32) (*diagnostics.FeaturesReport, error)
	Profiling(ctx context.Context, pid int32) (*diagnostics.ProfileReport, error)
	Permissions(ctx context.Context, pid int32) (*diagnostics.PermissionsReport, error)
	CreateDump(ctx context.Context, pid int32, mode dump.Mode) (*diagnostics.DumpReport, error)
}

type screen int

const (
	screenMain screen = iota
	screenProcesses
	screenPID
	screenReports
	screenOutput
)

var mainItems = []string{"List Processes", "Analyze Process", "About", "Exit"}

type reportItem struct {
	label string
	run   func(ctx context.Context, b Backend, pid int32) (diagnostics.Report, error)
}

var reportItems = []reportItem{
	{"System diagnostics", func(ctx context.Context, b Backend, pid int32) (diagnostics.Report, error) {
		r, err := b.SystemDiagnostics(ctx, pid)
		return asReport(r, err)
	}},
	{"Memory analysis", func(ctx context.Context, b Backend, pid int32) (diagnostics.Report, error) {
		r, err := b.MemoryAnalysis(ctx, pid)
		return asReport(r, err)
	}},
	{"Thread analysis", func(ctx context.Context, b Backend, pid int32) (diagnostics.Report, error) {
		r, err := b.ThreadAnalysis(ctx, pid)
		return asReport(r, err)
	}},
	{"Diagnostic features", func(ctx context.Context, b Backend, pid int32) (diagnostics.Report, error) {
		r, err := b.DiagnosticFeatures(ctx, pid)
		return asReport(r, err)
	}},
	{"Performance profiling", func(ctx context.Context, b Backend, pid int32) (diagnostics.Report, error) {
		r, err := b.Profiling(ctx, pid)
		return asReport(r, err)
	}},
	{"Permissions", func(ctx context.Context, b Backend, pid int32) (diagnostics.Report, error) {
		r, err := b.Permissions(ctx, pid)
		return asReport(r, err)
	}},
	{"Create dump (normal)", func(ctx context.Context, b Backend, pid int32) (diagnostics.Report, error) {
		r, err := b.CreateDump(ctx, pid, dump.ModeNormal)
		return asReport(r, err)
	}},
	{"Create dump (full memory)", func(ctx context.Context, b Backend, pid int32) (diagnostics.Report, error) {
		r, err := b.CreateDump(ctx, pid, dump.ModeFull)
		return asReport(r, err)
	}},
}

// asReport keeps a nil report pointer from becoming a non-nil interface.
func asReport[R diagnostics.Report](r R, err error) (diagnostics.Report, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Menu is the interactive main loop: list, analyze, about, exit.
type Menu struct {
	ctx      context.Context
	backend  Backend
	renderer *Renderer

	screen screen
	back   screen
	cursor int
	pid    int32

	entries  []inspect.ProcessEntry
	visible  []inspect.ProcessEntry
	filter   textinput.Model
	pidInput textinput.Model
	output   viewport.Model
	content  string
	title    string

	spinner  SpinnerModel
	loading  string
	status   string
	width    int
	height   int
	quitting bool
}

// NewMenu creates the menu model.
func NewMenu(ctx context.Context, b Backend, useColor bool) Menu {
	filter := textinput.New()
	filter.Placeholder = "type to filter by name or pid"
	filter.Prompt = "filter> "

	pidInput := textinput.New()
	pidInput.Placeholder = "process id"
	pidInput.Prompt = "pid> "
	pidInput.CharLimit = 10

	return Menu{
		ctx:      ctx,
		backend:  b,
		renderer: NewRenderer(io.Discard, useColor),
		filter:   filter,
		pidInput: pidInput,
		output:   viewport.New(80, 20),
		spinner:  NewSpinner(),
	}
}

// RunMenu runs the menu on the terminal until the user exits.
func RunMenu(ctx context.Context, b Backend, useColor bool) error {
	p := tea.NewProgram(NewMenu(ctx, b, useColor), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m Menu) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.output.Width = msg.Width
		m.output.Height = max(msg.Height-4, 5)
		if m.content != "" {
			m.output.SetContent(m.wrapOutput())
		}
		return m, nil

	case spinnerTickMsg:
		if m.loading == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case processesMsg:
		m.loading = ""
		if msg.err != nil {
			m.status = m.renderer.errorLine(msg.err)
			return m, nil
		}
		m.entries = msg.report.Listing.Entries
		m.filter.Reset()
		m.filter.Focus()
		m.applyFilter()
		m.cursor = 0
		m.status = ""
		m.screen = screenProcesses
		return m, nil

	case reportMsg:
		m.loading = ""
		if msg.err != nil {
			m.showOutput(msg.title, m.renderer.errorLine(msg.err)+"\n", screenReports)
			return m, nil
		}
		text, err := m.renderer.Format(msg.report)
		if err != nil {
			text = m.renderer.errorLine(err) + "\n"
		}
		m.showOutput(msg.title, text, screenReports)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.loading != "" {
			return m, nil
		}
		switch m.screen {
		case screenMain:
			return m.updateMain(msg)
		case screenProcesses:
			return m.updateProcesses(msg)
		case screenPID:
			return m.updatePID(msg)
		case screenReports:
			return m.updateReports(msg)
		case screenOutput:
			return m.updateOutput(msg)
		}
	}
	return m, nil
}

func (m Menu) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

func (m Menu) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "up", "k":
		m.cursor = wrap(m.cursor-1, len(mainItems))
	case "down", "j":
		m.cursor = wrap(m.cursor+1, len(mainItems))
	case "enter":
		return m.chooseMain(m.cursor)
	case "q", "esc":
		return m.quit()
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(mainItems) {
			return m.chooseMain(n - 1)
		}
		m.status = "Invalid option. Please try again."
	}
	return m, nil
}

func (m Menu) chooseMain(i int) (tea.Model, tea.Cmd) {
	m.cursor = i
	m.status = ""
	switch i {
	case 0:
		m.loading = "Listing processes"
		return m, tea.Batch(m.spinner.Tick(), m.fetchProcesses())
	case 1:
		m.pidInput.Reset()
		m.pidInput.Focus()
		m.screen = screenPID
	case 2:
		m.showOutput("About", m.renderer.About(), screenMain)
	default:
		return m.quit()
	}
	return m, nil
}

func (m Menu) updateProcesses(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filter.Blur()
		m.screen = screenMain
		m.cursor = 0
		return m, nil
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		if len(m.visible) == 0 {
			return m, nil
		}
		m.filter.Blur()
		return m.analyze(m.visible[m.cursor].PID), nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *Menu) applyFilter() {
	m.visible = inspect.Filter(m.entries, strings.TrimSpace(m.filter.Value()))
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

func (m Menu) updatePID(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pidInput.Blur()
		m.screen = screenMain
		m.status = ""
		return m, nil
	case "enter":
		pid, err := strconv.ParseInt(strings.TrimSpace(m.pidInput.Value()), 10, 32)
		if err != nil {
			m.status = "Invalid process id."
			return m, nil
		}
		m.pidInput.Blur()
		return m.analyze(int32(pid)), nil
	}

	var cmd tea.Cmd
	m.pidInput, cmd = m.pidInput.Update(msg)
	return m, cmd
}

func (m Menu) analyze(pid int32) Menu {
	m.pid = pid
	m.cursor = 0
	m.status = ""
	m.screen = screenReports
	return m
}

func (m Menu) updateReports(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := len(reportItems) + 1
	switch key := msg.String(); key {
	case "up", "k":
		m.cursor = wrap(m.cursor-1, items)
	case "down", "j":
		m.cursor = wrap(m.cursor+1, items)
	case "enter":
		return m.chooseReport(m.cursor)
	case "esc", "b":
		return m.toMain(), nil
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= items {
			return m.chooseReport(n - 1)
		}
	}
	return m, nil
}

func (m Menu) chooseReport(i int) (tea.Model, tea.Cmd) {
	m.cursor = i
	if i >= len(reportItems) {
		return m.toMain(), nil
	}
	item := reportItems[i]
	m.loading = item.label
	ctx, b, pid := m.ctx, m.backend, m.pid
	title := fmt.Sprintf("%s (pid %d)", item.label, pid)
	return m, tea.Batch(m.spinner.Tick(), func() tea.Msg {
		report, err := item.run(ctx, b, pid)
		return reportMsg{title: title, report: report, err: err}
	})
}

func (m Menu) toMain() Menu {
	m.screen = screenMain
	m.cursor = 0
	m.status = ""
	return m
}

func (m Menu) updateOutput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "enter", "backspace":
		m.screen = m.back
		return m, nil
	}
	var cmd tea.Cmd
	m.output, cmd = m.output.Update(msg)
	return m, cmd
}

// wrapOutput soft-wraps the current content to the viewport width.
func (m Menu) wrapOutput() string {
	if m.output.Width <= 0 {
		return m.content
	}
	return lipgloss.NewStyle().Width(m.output.Width).Render(m.content)
}

func (m *Menu) showOutput(title, content string, back screen) {
	m.title = title
	m.content = content
	m.output.SetContent(m.wrapOutput())
	m.output.GotoTop()
	m.back = back
	m.screen = screenOutput
}

func (m Menu) fetchProcesses() tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		report, err := b.ListProcesses(ctx)
		return processesMsg{report: report, err: err}
	}
}

// View implements tea.Model.
func (m Menu) View() string {
	if m.quitting {
		return ""
	}
	r := m.renderer
	var sb strings.Builder
	sb.WriteString(r.style(TitleStyle, core.AppName+" "+core.AppVersion))
	sb.WriteString("\n\n")

	if m.loading != "" {
		sb.WriteString(m.spinner.View() + " " + m.loading + "...\n")
		return sb.String()
	}

	switch m.screen {
	case screenMain:
		sb.WriteString("Menu:\n")
		for i, item := range mainItems {
			sb.WriteString(m.row(i, fmt.Sprintf("%d. %s", i+1, item)))
		}
		m.footer(&sb, "↑/↓ select • enter choose • q quit")

	case screenProcesses:
		sb.WriteString(m.filter.View() + "\n\n")
		rows := m.listRows()
		start := 0
		if m.cursor >= rows {
			start = m.cursor - rows + 1
		}
		end := min(start+rows, len(m.visible))
		for i := start; i < end; i++ {
			sb.WriteString(m.row(i, strings.TrimSpace(r.processRow(m.visible[i]))))
		}
		sb.WriteString(r.style(SubtleStyle, fmt.Sprintf("\n%d of %d processes\n", len(m.visible), len(m.entries))))
		m.footer(&sb, "type to filter • ↑/↓ select • enter analyze • esc back")

	case screenPID:
		sb.WriteString("Enter the process id to analyze:\n\n")
		sb.WriteString(m.pidInput.View() + "\n")
		m.footer(&sb, "enter analyze • esc back")

	case screenReports:
		sb.WriteString(fmt.Sprintf("Analyze process %d:\n", m.pid))
		for i, item := range reportItems {
			sb.WriteString(m.row(i, fmt.Sprintf("%d. %s", i+1, item.label)))
		}
		sb.WriteString(m.row(len(reportItems), fmt.Sprintf("%d. Back", len(reportItems)+1)))
		m.footer(&sb, "↑/↓ select • enter run • esc back")

	case screenOutput:
		sb.WriteString(r.style(SectionStyle, m.title) + "\n")
		sb.WriteString(m.output.View() + "\n")
		m.footer(&sb, "↑/↓ scroll • enter continue")
	}
	return sb.String()
}

func (m Menu) row(i int, text string) string {
	if i == m.cursor {
		return m.renderer.style(SelectedStyle, "> "+text) + "\n"
	}
	return "  " + text + "\n"
}

func (m Menu) footer(sb *strings.Builder, help string) {
	if m.status != "" {
		sb.WriteString("\n" + m.status + "\n")
	}
	sb.WriteString("\n" + m.renderer.style(HelpStyle, help) + "\n")
}

func (m Menu) listRows() int {
	if m.height <= 0 {
		return 15
	}
	return max(m.height-10, 3)
}

func wrap(i, n int) int {
	return (i%n + n) % n
}
