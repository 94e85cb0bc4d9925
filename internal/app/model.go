package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/mkguldan/speakerfilter/internal/backend"
	"github.com/mkguldan/speakerfilter/internal/dataset"
	"github.com/mkguldan/speakerfilter/internal/notify"
	"github.com/mkguldan/speakerfilter/internal/results"
	"github.com/mkguldan/speakerfilter/internal/ui"
	"github.com/mkguldan/speakerfilter/internal/workflow"

	tea "github.com/charmbracelet/bubbletea"
)

// Focus tracks which control has keyboard focus.
type Focus int

const (
	FocusFile Focus = iota
	FocusEvent
	FocusTitle
	FocusResults
)

const msgPreviewFailed = "Error previewing file"

// Service is the remote categorization service as seen by the TUI.
type Service interface {
	workflow.Gateway
	BaseURL() string
	Probe(ctx context.Context) (backend.ConnectionStatus, error)
	Preview(ctx context.Context, file dataset.File) (backend.Preview, error)
}

// Model is the root bubbletea model for the speakerfilter TUI.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	svc    Service
	ctl    *workflow.Controller
	notes  *notify.Channel

	// Session, refreshed from the controller after every operation
	snap workflow.Snapshot

	// Connection state
	probing   bool
	connected bool
	conn      backend.ConnectionStatus
	connError string

	// Controls
	pathInput  textinput.Model
	eventInput textinput.Model
	titleInput textinput.Model
	picker     filepicker.Model
	picking    bool
	spinner    spinner.Model
	viewport   viewport.Model
	help       help.Model
	keys       keyMap

	// Results
	tab      int
	cursor   int
	expanded map[int]bool

	// Preview
	preview    *backend.Preview
	previewing bool

	exporting int

	// UI state
	focus  Focus
	width  int
	height int
}

// New creates a Model over an existing controller. Cancelling ctx, or
// quitting, aborts any outstanding request.
func New(ctx context.Context, svc Service, ctl *workflow.Controller, notes *notify.Channel) Model {
	ctx, cancel := context.WithCancel(ctx)

	path := textinput.New()
	path.Placeholder = "path/to/speakers.csv"
	path.Prompt = "› "
	path.CharLimit = 4096

	event := textinput.New()
	event.Placeholder = "e.g. 2511 Barclays"
	event.Prompt = "› "
	event.CharLimit = 256

	title := textinput.New()
	title.Placeholder = "optional"
	title.Prompt = "› "
	title.CharLimit = 256

	fp := filepicker.New()
	fp.AllowedTypes = []string{dataset.Extension}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(ui.SpinnerStyle))

	m := Model{
		ctx:        ctx,
		cancel:     cancel,
		svc:        svc,
		ctl:        ctl,
		notes:      notes,
		probing:    true,
		pathInput:  path,
		eventInput: event,
		titleInput: title,
		picker:     fp,
		spinner:    sp,
		viewport:   viewport.New(0, 0),
		help:       help.New(),
		keys:       newKeyMap(),
	}

	m.sync()
	if m.snap.File != nil {
		m.pathInput.SetValue(m.snap.File.Path)
		m.focus = FocusEvent
	}
	m.setFocus(m.focus)
	return m
}

// Init starts the notification listener and the first connection check.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		listenCmd(m.notes),
		probeCmd(m.ctx, m.svc),
		textinput.Blink,
	)
}

// listenCmd waits for the next notification. It is re-issued after each one.
func listenCmd(notes *notify.Channel) tea.Cmd {
	return func() tea.Msg {
		return NotificationMsg{Event: <-notes.Events()}
	}
}

// expireCmd fires when the event with id has been shown for ttl.
func expireCmd(id string, ttl time.Duration) tea.Cmd {
	return tea.Tick(ttl, func(time.Time) tea.Msg {
		return notificationExpiredMsg{ID: id}
	})
}

// probeCmd checks the service connection.
func probeCmd(ctx context.Context, svc Service) tea.Cmd {
	return func() tea.Msg {
		status, err := svc.Probe(ctx)
		return ProbeResultMsg{Status: status, Err: err}
	}
}

// filterCmd runs the remote half of a filter.
func filterCmd(ctx context.Context, ctl *workflow.Controller, req workflow.FilterRequest) tea.Cmd {
	return func() tea.Msg {
		result, err := ctl.RunFilter(ctx, req)
		return FilterDoneMsg{Req: req, Result: result, Err: err}
	}
}

// exportCmd downloads and saves a report.
func exportCmd(ctx context.Context, ctl *workflow.Controller, req workflow.ExportRequest) tea.Cmd {
	return func() tea.Msg {
		path, err := ctl.RunExport(ctx, req)
		return ExportDoneMsg{Req: req, Path: path, Err: err}
	}
}

// previewCmd uploads the file for a quick summary.
func previewCmd(ctx context.Context, svc Service, file dataset.File) tea.Cmd {
	return func() tea.Msg {
		p, err := svc.Preview(ctx, file)
		return PreviewDoneMsg{File: file.Path, Preview: p, Err: err}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = m.resultsVisibleLines()
		for _, in := range []*textinput.Model{&m.pathInput, &m.eventInput, &m.titleInput} {
			in.Width = max(10, msg.Width-16)
		}
		m.refreshResults()
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd

	case ProbeResultMsg:
		m.probing = false
		if msg.Err != nil {
			m.connected = false
			m.connError = msg.Err.Error()
			if !errors.Is(msg.Err, context.Canceled) {
				m.notes.Push(workflow.Describe(msg.Err, workflow.MsgConnectFailed))
			}
		} else {
			m.connected = true
			m.connError = ""
			m.conn = msg.Status
		}
		return m, nil

	case FilterDoneMsg:
		err := m.ctl.CompleteFilter(msg.Req, msg.Result, msg.Err)
		m.sync()
		if errors.Is(err, workflow.ErrSuperseded) {
			return m, nil
		}
		if err == nil {
			m.resetResults()
			return m, m.setFocus(FocusResults)
		}
		return m, nil

	case ExportDoneMsg:
		m.exporting = max(0, m.exporting-1)
		_ = m.ctl.CompleteExport(msg.Req, msg.Path, msg.Err)
		return m, nil

	case PreviewDoneMsg:
		m.previewing = false
		m.syncKeys()
		if m.snap.File == nil || m.snap.File.Path != msg.File {
			return m, nil
		}
		if msg.Err != nil {
			m.notes.Push(workflow.Describe(msg.Err, msgPreviewFailed))
			return m, nil
		}
		p := msg.Preview
		m.preview = &p
		if p.Message != "" {
			m.notes.Push(notify.SeverityInfo, p.Message)
		}
		return m, nil

	case NotificationMsg:
		return m, tea.Batch(listenCmd(m.notes), expireCmd(msg.Event.ID, m.notes.TTL()))

	case notificationExpiredMsg:
		m.notes.Dismiss(msg.ID)
		return m, nil

	case spinner.TickMsg:
		if m.snap.State != workflow.Filtering {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.picking {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}
	return m.updateInputs(msg)
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		return m, tea.Quit
	}
	if m.picking {
		return m.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Dismiss):
		if m.preview != nil {
			m.preview = nil
			return m, nil
		}
		m.notes.DismissCurrent()
		return m, nil

	case key.Matches(msg, m.keys.Next):
		return m, m.setFocus(m.nextFocus(1))

	case key.Matches(msg, m.keys.Prev):
		return m, m.setFocus(m.nextFocus(-1))

	case key.Matches(msg, m.keys.Browse):
		m.picking = true
		m.picker.CurrentDirectory = m.browseDir()
		return m, m.picker.Init()

	case key.Matches(msg, m.keys.Clear):
		return m.clear()

	case key.Matches(msg, m.keys.Probe):
		return m.probe()

	case key.Matches(msg, m.keys.Preview):
		return m.requestPreview()

	case key.Matches(msg, m.keys.Filter):
		return m.submit()

	case key.Matches(msg, m.keys.Enter):
		switch m.focus {
		case FocusFile:
			return m.selectPath(m.pathInput.Value())
		case FocusEvent, FocusTitle:
			return m.submit()
		case FocusResults:
			m.toggleExpanded()
			return m, nil
		}
	}

	if m.focus == FocusResults {
		return m.handleResultsKey(msg)
	}
	return m.updateInputs(msg)
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Dismiss) {
		m.picking = false
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.picking = false
		return m.selectPath(path)
	}
	// Selecting a greyed-out file goes through the same validation, which
	// explains why it was refused.
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.picking = false
		return m.selectPath(path)
	}
	return m, cmd
}

func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.TabLeft):
		m.switchTab(m.tab - 1)
	case key.Matches(msg, m.keys.TabRight):
		m.switchTab(m.tab + 1)
	case key.Matches(msg, m.keys.Tab1):
		m.switchTab(0)
	case key.Matches(msg, m.keys.Tab2):
		m.switchTab(1)
	case key.Matches(msg, m.keys.Tab3):
		m.switchTab(2)
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.refreshResults()
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < results.Len(m.snap.Result, m.category())-1 {
			m.cursor++
			m.refreshResults()
		}
	case key.Matches(msg, m.keys.CSV):
		return m.export(backend.FormatCSV)
	case key.Matches(msg, m.keys.JSON):
		return m.export(backend.FormatJSON)
	case key.Matches(msg, m.keys.Text):
		return m.export(backend.FormatText)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.viewport.Height = m.resultsVisibleLines()
		m.refreshResults()
	case msg.String() == "q":
		m.cancel()
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds [3]tea.Cmd
	m.pathInput, cmds[0] = m.pathInput.Update(msg)
	m.eventInput, cmds[1] = m.eventInput.Update(msg)
	m.titleInput, cmds[2] = m.titleInput.Update(msg)
	return m, tea.Batch(cmds[:]...)
}

func (m Model) selectPath(raw string) (tea.Model, tea.Cmd) {
	f, err := m.ctl.Select(raw)
	m.sync()
	if err != nil {
		return m, nil
	}
	m.pathInput.SetValue(f.Path)
	m.preview = nil
	m.resetResults()
	return m, m.setFocus(FocusEvent)
}

func (m Model) clear() (tea.Model, tea.Cmd) {
	if !m.ctl.Clear() {
		return m, nil
	}
	m.sync()
	m.pathInput.Reset()
	m.preview = nil
	m.resetResults()
	return m, m.setFocus(FocusFile)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if !m.keys.Filter.Enabled() {
		return m, nil
	}
	req, err := m.ctl.BeginFilter(backend.Criteria{
		EventName:  m.eventInput.Value(),
		EventTitle: m.titleInput.Value(),
	})
	m.sync()
	if err != nil {
		return m, nil
	}
	m.preview = nil
	m.resetResults()
	var focusCmd tea.Cmd
	if m.focus == FocusResults {
		focusCmd = m.setFocus(FocusEvent)
	}
	return m, tea.Batch(filterCmd(m.ctx, m.ctl, req), m.spinner.Tick, focusCmd)
}

func (m Model) export(format backend.Format) (tea.Model, tea.Cmd) {
	req, err := m.ctl.BeginExport(format)
	if err != nil {
		return m, nil
	}
	m.exporting++
	return m, exportCmd(m.ctx, m.ctl, req)
}

func (m Model) probe() (tea.Model, tea.Cmd) {
	if m.probing {
		return m, nil
	}
	m.probing = true
	return m, probeCmd(m.ctx, m.svc)
}

func (m Model) requestPreview() (tea.Model, tea.Cmd) {
	if m.snap.File == nil {
		m.notes.Push(workflow.Describe(workflow.ErrNoFileSelected, msgPreviewFailed))
		return m, nil
	}
	if m.previewing {
		return m, nil
	}
	m.previewing = true
	m.syncKeys()
	return m, previewCmd(m.ctx, m.svc, *m.snap.File)
}

// sync reloads the session from the controller.
func (m *Model) sync() {
	m.snap = m.ctl.Snapshot()
	m.syncKeys()
	m.refreshResults()
}

// syncKeys enables the bindings that apply to the current state.
func (m *Model) syncKeys() {
	state := m.snap.State
	hasResult := m.snap.Result != nil

	m.keys.Filter.SetEnabled(state != workflow.Filtering && !m.snap.FilterRunning)
	m.keys.Clear.SetEnabled(state.Allows(workflow.ActionClear))
	m.keys.Preview.SetEnabled(!m.previewing)
	for _, b := range []*key.Binding{&m.keys.CSV, &m.keys.JSON, &m.keys.Text} {
		b.SetEnabled(state.Allows(workflow.ActionExport))
	}
	for _, b := range []*key.Binding{&m.keys.TabLeft, &m.keys.TabRight, &m.keys.Up, &m.keys.Down} {
		b.SetEnabled(hasResult)
	}
}

func (m *Model) setFocus(f Focus) tea.Cmd {
	if f == FocusResults && m.snap.Result == nil {
		f = FocusFile
	}
	m.focus = f
	m.pathInput.Blur()
	m.eventInput.Blur()
	m.titleInput.Blur()

	var cmd tea.Cmd
	switch f {
	case FocusFile:
		cmd = m.pathInput.Focus()
	case FocusEvent:
		cmd = m.eventInput.Focus()
	case FocusTitle:
		cmd = m.titleInput.Focus()
	}
	m.refreshResults()
	return cmd
}

func (m Model) nextFocus(step int) Focus {
	n := 3
	if m.snap.Result != nil {
		n = 4
	}
	return Focus((int(m.focus) + step + n) % n)
}

func (m Model) browseDir() string {
	if m.snap.File != nil {
		return filepath.Dir(m.snap.File.Path)
	}
	if p := dataset.NormalizePath(m.pathInput.Value()); p != "" {
		return filepath.Dir(p)
	}
	return "."
}

func (m Model) category() backend.Category {
	return results.Categories[m.tab]
}

func (m *Model) resetResults() {
	m.tab = 0
	m.cursor = 0
	m.expanded = nil
	m.viewport.GotoTop()
	m.refreshResults()
}

func (m *Model) switchTab(tab int) {
	n := len(results.Categories)
	m.tab = (tab + n) % n
	m.cursor = 0
	m.expanded = nil
	m.viewport.GotoTop()
	m.refreshResults()
}

func (m *Model) toggleExpanded() {
	if !results.Detailed(m.category()) || results.Len(m.snap.Result, m.category()) == 0 {
		return
	}
	next := make(map[int]bool, len(m.expanded)+1)
	for k, v := range m.expanded {
		next[k] = v
	}
	next[m.cursor] = !next[m.cursor]
	m.expanded = next
	m.refreshResults()
}

// refreshResults re-renders the record list and scrolls it so the cursor
// record is visible.
func (m *Model) refreshResults() {
	if m.snap.Result == nil || m.width == 0 {
		m.viewport.SetContent("")
		return
	}
	lines, starts := m.renderRecords(m.width)
	m.viewport.SetContent(strings.Join(lines, "\n"))

	if m.cursor >= len(starts) {
		return
	}
	start := starts[m.cursor]
	end := len(lines)
	if m.cursor+1 < len(starts) {
		end = starts[m.cursor+1]
	}
	switch {
	case start < m.viewport.YOffset:
		m.viewport.SetYOffset(start)
	case end > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(min(start, end-m.viewport.Height))
	}
}

func (m Model) resultsVisibleLines() int {
	if m.height == 0 {
		return 10
	}
	// Reserve: header, status, dividers(3), form(3), summary, tabs, toast, footer
	reserved := 13
	if m.help.ShowAll {
		reserved += 3
	}
	return max(3, m.height-reserved)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	divider := ui.DividerStyle.Render(strings.Repeat("─", m.width))
	sections := []string{
		m.renderHeader(),
		m.renderStatusBar(),
		divider,
		m.renderForm(),
		divider,
		m.renderMainContent(),
		divider,
	}

	if ev, ok := m.notes.Visible(); ok {
		sections = append(sections, renderToast(ev, m.width))
	}

	sections = append(sections, m.help.View(m.keys))

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("SPEAKER FILTER")

	var chip string
	switch {
	case m.probing:
		chip = ui.ProbingDotStyle.Render("◌ checking")
	case m.connected && m.conn.Status != "":
		chip = ui.ConnectedDotStyle.Render("● connected (" + m.conn.Status + ")")
	case m.connected:
		chip = ui.ConnectedDotStyle.Render("● connected")
	default:
		chip = ui.OfflineDotStyle.Render("○ offline")
	}

	left := title + ui.DimStyle.Render(" "+m.svc.BaseURL())
	return padRight(left, m.width-lipgloss.Width(chip)) + chip
}

func (m Model) renderStatusBar() string {
	var status string
	switch m.snap.State {
	case workflow.Idle:
		status = ui.StatusStyle.Render("No file selected")
	case workflow.FileReady:
		status = ui.StatusStyle.Render(fmt.Sprintf("Ready: %s (%s)", m.snap.File.Name, m.snap.File.SizeLabel()))
	case workflow.Filtering:
		status = m.spinner.View() + " " + ui.StatusStyle.Render("Filtering speakers...")
	case workflow.ResultsReady:
		event := m.snap.Criteria.EventName
		if m.snap.Criteria.EventTitle != "" {
			event += ": " + m.snap.Criteria.EventTitle
		}
		status = ui.StatusStyle.Render(fmt.Sprintf("Results for %s from %s", event, m.snap.File.Name))
	}

	if m.snap.FilterRunning && m.snap.State != workflow.Filtering {
		status += "  " + ui.SpinnerStyle.Render("⟳ cancelling filter")
	}
	if m.exporting > 0 {
		status += "  " + ui.SpinnerStyle.Render("⟳ exporting")
	}
	if m.previewing {
		status += "  " + ui.SpinnerStyle.Render("⟳ preview")
	}
	return status
}

func (m Model) renderForm() string {
	row := func(label string, f Focus, input textinput.Model) string {
		style := ui.LabelStyle
		if m.focus == f && !m.picking {
			style = ui.LabelActiveStyle
		}
		return style.Render(label) + input.View()
	}
	return strings.Join([]string{
		row("CSV file", FocusFile, m.pathInput),
		row("Event name", FocusEvent, m.eventInput),
		row("Event title", FocusTitle, m.titleInput),
	}, "\n")
}

func (m Model) renderMainContent() string {
	switch {
	case m.picking:
		return ui.PanelTitleActiveStyle.Render("Choose a CSV file") + "\n" + m.picker.View()
	case m.preview != nil:
		return m.renderPreview()
	case m.snap.Result != nil:
		return m.renderResults()
	case m.snap.State == workflow.Filtering:
		return m.spinner.View() + " " + ui.DimStyle.Render("Filtering speakers. Large files can take a few minutes.")
	}
	lines := wrapText("Select a CSV file and enter an event name, then press enter to filter.", m.width)
	return ui.DimStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderPreview() string {
	p := m.preview
	lines := []string{
		ui.PanelTitleActiveStyle.Render("Preview: "+m.snap.File.Name) + ui.DimStyle.Render("  esc to close"),
		fmt.Sprintf("%s %d  %s %d",
			ui.FieldLabelStyle.Render("Rows:"), p.RowCount,
			ui.FieldLabelStyle.Render("Columns:"), p.ColumnCount),
		ui.FieldLabelStyle.Render("Columns:"),
	}
	for _, l := range wrapText(strings.Join(p.Columns, ", "), max(10, m.width-2)) {
		lines = append(lines, "  "+l)
	}
	if len(p.SampleData) > 0 {
		lines = append(lines, ui.FieldLabelStyle.Render("First row:"))
		for _, col := range p.Columns {
			v, ok := p.SampleData[0][col]
			if !ok || v == nil {
				continue
			}
			lines = append(lines, truncateToWidth(fmt.Sprintf("  %s: %v", col, v), m.width))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderResults() string {
	var chips []string
	for i, label := range results.SummaryLabels(m.snap.Result) {
		style := ui.ChipStyle
		if i > 0 {
			style = style.Background(ui.CategoryColor(results.Categories[i-1])).Foreground(lipgloss.Color("#000000"))
		}
		chips = append(chips, style.Render(label))
	}

	var tabs []string
	for i, c := range results.Categories {
		style := ui.TabStyle
		if i == m.tab {
			style = ui.TabActiveStyle.Foreground(ui.CategoryColor(c))
		}
		tabs = append(tabs, style.Render(results.TabLabel(m.snap.Result, c)))
	}

	return strings.Join(chips, " ") + "\n" + strings.Join(tabs, " ") + "\n" + m.viewport.View()
}

// renderRecords renders the active category as lines, returning the first
// line index of each record.
func (m Model) renderRecords(width int) ([]string, []int) {
	cat := m.category()
	var lines []string
	var starts []int

	for pos, s := range results.View(m.snap.Result, cat) {
		i := pos - 1
		starts = append(starts, len(lines))

		cursor := "  "
		title := ui.PanelTitleStyle.Render(results.Title(pos, s))
		if i == m.cursor && m.focus == FocusResults {
			cursor = ui.SelectedStyle.Render("▸ ")
			title = ui.SelectedStyle.Render(results.Title(pos, s))
		}
		if results.Detailed(cat) && len(results.Details(s)) > 0 {
			if m.expanded[i] {
				title += ui.DimStyle.Render(" [-]")
			} else {
				title += ui.DimStyle.Render(" [+]")
			}
		}
		lines = append(lines, cursor+title)

		if hl := renderFields(s, results.Headline(s)); hl != "" {
			lines = append(lines, truncateToWidth("    "+hl, width))
		}
		if b := renderBadges(results.Badges(s)); b != "" {
			lines = append(lines, truncateToWidth("    "+b, width))
		}
		if m.expanded[i] {
			for _, f := range results.Details(s) {
				lines = append(lines, "    "+ui.FieldLabelStyle.Render(f.Label+":"))
				for _, l := range wrapText(f.Value, max(10, width-6)) {
					lines = append(lines, "      "+l)
				}
			}
		}
		lines = append(lines, "")
	}

	if len(starts) == 0 {
		lines = []string{ui.DimStyle.Render(results.EmptyMessage(cat))}
	}
	return lines, starts
}

func renderFields(s backend.Speaker, fields []results.Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		value := f.Value
		if f.Label == "Rating" {
			if results.GoodOption(s) {
				value = ui.GoodOptionStyle.Render(value)
			} else {
				value = ui.LowerRatingStyle.Render(value)
			}
		}
		parts = append(parts, ui.FieldLabelStyle.Render(f.Label+":")+" "+value)
	}
	return strings.Join(parts, "  ")
}

func renderBadges(fields []results.Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, ui.BadgeStyle.Render("["+f.Label+": "+f.Value+"]"))
	}
	return strings.Join(parts, " ")
}

func renderToast(ev notify.Event, width int) string {
	style := ui.SeverityStyle(ev.Severity)
	line := ui.SeverityIcon(ev.Severity) + " " + ev.Message
	return style.Render(truncateToWidth(line, max(10, width-10))) + ui.DimStyle.Render("  esc")
}

// Helpers

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// truncateToWidth cuts s to width cells, keeping escape sequences whole.
func truncateToWidth(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if lipgloss.Width(current)+1+lipgloss.Width(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
