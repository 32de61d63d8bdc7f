// Package tui is the interactive fleet dashboard. It renders the views and
// forwards key presses to them as intents; every data change arrives through
// the views' synchronizers.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fleetcore-io/fleetcore/internal/apiclient"
	"github.com/fleetcore-io/fleetcore/internal/export"
	"github.com/fleetcore-io/fleetcore/internal/model"
	"github.com/fleetcore-io/fleetcore/internal/session"
	"github.com/fleetcore-io/fleetcore/internal/synchronizer"
	"github.com/fleetcore-io/fleetcore/internal/views"
)

type section int

const (
	sectionOverview section = iota
	sectionVehicles
	sectionCommands
	sectionCount
)

func (s section) String() string {
	switch s {
	case sectionOverview:
		return "Overview"
	case sectionVehicles:
		return "Vehicles"
	case sectionCommands:
		return "Commands"
	default:
		return "?"
	}
}

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputRequester
	inputCompose
	inputReply
	inputConfirmDelete
)

// syncMsg tells the model that some view changed state.
type syncMsg struct{}

// sessionEndedMsg is sent when the stored session no longer matches the one
// the dashboard started with.
type sessionEndedMsg struct{}

// actionResultMsg carries the outcome of an intent run off the UI loop.
type actionResultMsg struct {
	ok  string
	err error
}

// Config wires the dashboard to its views.
type Config struct {
	Session   *session.Session
	Dashboard *views.DashboardView
	Vehicles  *views.VehiclesView
	Commands  *views.CommandsView
	Sink      export.Sink
}

type Model struct {
	ctx  context.Context
	cfg  Config
	keys keyMap

	section section
	mode    inputMode
	input   textinput.Model
	cursor  int
	target  model.ID
	// requester is the user an admin files the composed command for.
	requester string

	toast    string
	toastErr bool
	ended    bool

	width, height int
}

func New(ctx context.Context, cfg Config) *Model {
	ti := textinput.New()
	ti.CharLimit = 500
	return &Model{ctx: ctx, cfg: cfg, keys: defaultKeyMap(), input: ti}
}

// SessionEnded reports whether the dashboard quit because of a logout.
func (m *Model) SessionEnded() bool { return m.ended }

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case syncMsg:
		m.clampCursor()
		return m, nil
	case sessionEndedMsg:
		m.ended = true
		return m, tea.Quit
	case actionResultMsg:
		if msg.err != nil {
			m.setToast(errorText(msg.err), true)
		} else {
			m.setToast(msg.ok, false)
		}
		return m, nil
	case tea.KeyMsg:
		if m.mode != inputNone {
			return m.handleInput(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Tab):
		m.section = (m.section + 1) % sectionCount
		m.cursor = 0
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		m.cursor++
		m.clampCursor()
	case key.Matches(msg, m.keys.Refresh):
		m.refresh()
	case key.Matches(msg, m.keys.Compose):
		if m.cfg.Commands.CanSendOnBehalf() {
			return m, m.startInput(inputRequester, "", "Requester: ")
		}
		return m, m.startInput(inputCompose, "", "Command: ")
	}

	if m.section == sectionOverview {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Search):
		return m, m.startInput(inputSearch, m.search(), "Search: ")
	case key.Matches(msg, m.keys.Sort):
		m.setToast("Sorted by "+m.cycleSort(), false)
	case key.Matches(msg, m.keys.Order):
		m.setToast("Order "+m.toggleOrder(), false)
	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()
	case key.Matches(msg, m.keys.Reply) && m.section == sectionCommands:
		c, ok := m.selectedCommand()
		if !ok || !m.cfg.Commands.CanReply(c) {
			return m, nil
		}
		m.target = c.ID
		return m, m.startInput(inputReply, "", "Reply: ")
	case key.Matches(msg, m.keys.Delete) && m.section == sectionVehicles:
		v, ok := m.selectedVehicle()
		if !ok || !m.cfg.Vehicles.CanEdit() {
			return m, nil
		}
		m.target = v.ID
		m.mode = inputConfirmDelete
		m.setToast(fmt.Sprintf("Delete %s? (y/esc)", v.PlateNo), false)
	}
	return m, nil
}

func (m *Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Cancel) {
		m.endInput()
		return m, nil
	}

	if m.mode == inputConfirmDelete {
		if !key.Matches(msg, m.keys.Confirm) {
			return m, nil
		}
		id := m.target
		m.endInput()
		return m, m.run("Vehicle deleted", func(ctx context.Context) error {
			return m.cfg.Vehicles.Delete(ctx, id)
		})
	}

	if msg.Type == tea.KeyEnter {
		value := m.input.Value()
		mode, id, requester := m.mode, m.target, m.requester
		m.endInput()
		switch mode {
		case inputSearch:
			m.setSearch(value)
		case inputRequester:
			m.requester = strings.TrimSpace(value)
			return m, m.startInput(inputCompose, "", fmt.Sprintf("Command for %s: ", m.requester))
		case inputCompose:
			if m.cfg.Commands.CanSendOnBehalf() {
				return m, m.run("Command sent", func(ctx context.Context) error {
					return m.cfg.Commands.SendOnBehalf(ctx, requester, value)
				})
			}
			return m, m.run("Command sent", func(ctx context.Context) error {
				return m.cfg.Commands.Send(ctx, value)
			})
		case inputReply:
			return m, m.run("Reply sent", func(ctx context.Context) error {
				return m.cfg.Commands.Reply(ctx, id, value)
			})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == inputSearch {
		m.setSearch(m.input.Value())
	}
	return m, cmd
}

func (m *Model) startInput(mode inputMode, value, prompt string) tea.Cmd {
	m.mode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) endInput() {
	m.mode = inputNone
	m.target = ""
	m.requester = ""
	m.input.Blur()
	m.input.Reset()
	m.toast = ""
}

// run executes an intent off the UI loop and reports back as a toast.
func (m *Model) run(ok string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		if err := fn(ctx); err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{ok: ok}
	}
}

func (m *Model) exportCmd() tea.Cmd {
	if m.cfg.Sink == nil {
		return nil
	}
	name, render := "vehicles.csv", m.cfg.Vehicles.Export
	if m.section == sectionCommands {
		name, render = "commands.csv", m.cfg.Commands.Export
	}
	sink, ctx := m.cfg.Sink, m.ctx
	return func() tea.Msg {
		loc, err := export.Write(ctx, sink, name, render)
		if err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{ok: "Exported to " + loc}
	}
}

func (m *Model) refresh() {
	switch m.section {
	case sectionOverview:
		m.cfg.Dashboard.Refresh()
	case sectionVehicles:
		m.cfg.Vehicles.Refresh()
	case sectionCommands:
		m.cfg.Commands.Refresh()
	}
}

func (m *Model) setToast(text string, isErr bool) {
	m.toast, m.toastErr = text, isErr
}

func (m *Model) clampCursor() {
	n := m.rowCount()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) rowCount() int {
	switch m.section {
	case sectionVehicles:
		return len(m.cfg.Vehicles.Rows())
	case sectionCommands:
		return len(m.cfg.Commands.Rows())
	}
	return 0
}

func (m *Model) selectedVehicle() (model.Vehicle, bool) {
	rows := m.cfg.Vehicles.Rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return model.Vehicle{}, false
	}
	return rows[m.cursor], true
}

func (m *Model) selectedCommand() (model.Command, bool) {
	rows := m.cfg.Commands.Rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return model.Command{}, false
	}
	return rows[m.cursor], true
}

func (m *Model) search() string {
	switch m.section {
	case sectionVehicles:
		return m.cfg.Vehicles.Query().Search
	case sectionCommands:
		return m.cfg.Commands.Query().Search
	}
	return ""
}

func (m *Model) setSearch(term string) {
	switch m.section {
	case sectionVehicles:
		m.cfg.Vehicles.SetSearch(term)
	case sectionCommands:
		m.cfg.Commands.SetSearch(term)
	}
	m.clampCursor()
}

func (m *Model) cycleSort() string {
	if m.section == sectionCommands {
		return m.cfg.Commands.CycleSort()
	}
	return m.cfg.Vehicles.CycleSort()
}

func (m *Model) toggleOrder() string {
	if m.section == sectionCommands {
		return string(m.cfg.Commands.ToggleOrder())
	}
	return string(m.cfg.Vehicles.ToggleOrder())
}

func (m *Model) View() string {
	var b strings.Builder

	tabs := make([]string, 0, sectionCount)
	for s := range sectionCount {
		style := tabStyle
		if s == m.section {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(s.String()))
	}
	user := mutedStyle.Render(fmt.Sprintf("%s (%s)", m.cfg.Session.Username, m.cfg.Session.Role))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, titleStyle.Render("FleetCore "), strings.Join(tabs, ""), "  ", user))
	b.WriteString("\n\n")

	switch m.section {
	case sectionOverview:
		b.WriteString(m.viewOverview())
	case sectionVehicles:
		l := m.cfg.Vehicles
		b.WriteString(m.viewList(l.Status(), l.Query().Search, l.Query().Sort, string(l.Query().Order), l.Headers(), l.Table()))
	case sectionCommands:
		l := m.cfg.Commands
		b.WriteString(m.viewList(l.Status(), l.Query().Search, l.Query().Sort, string(l.Query().Order), l.Headers(), l.Table()))
	}

	b.WriteString("\n")
	if m.mode != inputNone && m.mode != inputConfirmDelete {
		b.WriteString(m.input.View() + "\n")
	}
	switch {
	case m.toast == "":
	case m.toastErr:
		b.WriteString(errorStyle.Render(m.toast) + "\n")
	default:
		b.WriteString(successStyle.Render(m.toast) + "\n")
	}
	b.WriteString(mutedStyle.Render(m.help()))
	return b.String()
}

func (m *Model) viewOverview() string {
	st := m.cfg.Dashboard.Status()
	stats, ok := m.cfg.Dashboard.Stats()
	if !ok {
		return statusLine(st) + "\n"
	}

	card := func(label string, n int) string {
		return cardStyle.Render(cardValueStyle.Render(fmt.Sprint(n)) + "\n" + mutedStyle.Render(label))
	}
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Vehicles", stats.Total),
		card("Active", stats.Active),
		card("Maintenance", stats.Maintenance),
		card("Offline", stats.Offline),
		card("Queued commands", stats.Queued),
	)
	return cards + "\n" + statusLine(st) + "\n"
}

func (m *Model) viewList(st synchronizer.Status, search, sort, order string, headers []string, rows [][]string) string {
	var b strings.Builder
	meta := fmt.Sprintf("sort: %s %s", sort, order)
	if search != "" {
		meta = fmt.Sprintf("search: %q  %s", search, meta)
	}
	b.WriteString(mutedStyle.Render(meta) + "  " + statusLine(st) + "\n\n")

	if !st.HasData && st.State != synchronizer.StateReady {
		return b.String()
	}
	if len(rows) == 0 {
		b.WriteString(mutedStyle.Render("No matching rows") + "\n")
		return b.String()
	}
	b.WriteString(renderTable(headers, rows, m.cursor, m.visibleRows()))
	return b.String()
}

func (m *Model) visibleRows() int {
	if m.height <= 0 {
		return 20
	}
	return max(m.height-10, 3)
}

func (m *Model) help() string {
	bindings := []key.Binding{m.keys.Tab, m.keys.Refresh, m.keys.Compose}
	if m.section != sectionOverview {
		bindings = append(bindings, m.keys.Search, m.keys.Sort, m.keys.Order, m.keys.Export)
	}
	if m.section == sectionCommands && m.cfg.Session.IsAdmin() {
		bindings = append(bindings, m.keys.Reply)
	}
	if m.section == sectionVehicles && m.cfg.Vehicles.CanEdit() {
		bindings = append(bindings, m.keys.Delete)
	}
	bindings = append(bindings, m.keys.Quit)

	parts := make([]string, len(bindings))
	for i, kb := range bindings {
		parts[i] = kb.Help().Key + " " + kb.Help().Desc
	}
	return strings.Join(parts, " • ")
}

func statusLine(st synchronizer.Status) string {
	switch st.State {
	case synchronizer.StateIdle, synchronizer.StateLoading:
		if st.HasData {
			return mutedStyle.Render("refreshing…")
		}
		return mutedStyle.Render("loading…")
	case synchronizer.StateError:
		return errorStyle.Render("fetch failed: " + errorText(st.Err))
	case synchronizer.StateReady:
		return mutedStyle.Render("updated " + st.UpdatedAt.Format("15:04:05"))
	}
	return ""
}

// renderTable lays out rows in padded columns, keeping the cursor row in
// view.
func renderTable(headers []string, rows [][]string, cursor, height int) string {
	const maxWidth = 40

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, c := range r {
			widths[i] = min(max(widths[i], lipgloss.Width(c)), maxWidth)
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			if lipgloss.Width(c) > widths[i] {
				runes := []rune(c)
				c = string(runes[:min(len(runes), widths[i]-1)]) + "…"
			}
			parts[i] = c + strings.Repeat(" ", max(widths[i]-lipgloss.Width(c), 0))
		}
		return strings.Join(parts, "  ")
	}

	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	end := min(start+height, len(rows))

	var b strings.Builder
	b.WriteString(headerStyle.Render(line(headers)) + "\n")
	for i := start; i < end; i++ {
		l := line(rows[i])
		if i == cursor {
			l = selectedStyle.Render(l)
		}
		b.WriteString(l + "\n")
	}
	return b.String()
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	if apiclient.IsUnauthorized(err) {
		return "Session rejected by the server, run fleetctl login"
	}
	return apiclient.Message(err)
}
