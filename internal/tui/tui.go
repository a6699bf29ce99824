// Package tui provides the interactive terminal shell for the supplements
// tracker using Bubble Tea. It issues one repository call per user action
// and re-queries the visible status tab afterwards; all domain logic lives
// in internal/db.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Extended3652/supplements/internal/db"
	"github.com/Extended3652/supplements/internal/format"
	"github.com/Extended3652/supplements/internal/model"
)

// ViewMode represents the current view state.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewForm
	ViewHistory
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	categoryColors = map[model.Category]lipgloss.Color{
		model.CategoryRx:         lipgloss.Color("214"),
		model.CategoryOTC:        lipgloss.Color("39"),
		model.CategorySupplement: lipgloss.Color("42"),
	}

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	formLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("147"))

	formFocusStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	contentPadding = 2
)

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	db       *db.DB
	tab      model.Status // which status screen is visible
	rows     []db.ItemWithDose
	counts   map[model.Status]int
	cursor   int
	viewMode ViewMode

	form    formState
	history []model.HistoryEvent

	// UI state
	width   int
	height  int
	err     error
	message string // temporary status message
}

// New creates a new TUI model over the given store. The active tab is shown
// first; tabs are keyed 1/2/3.
func New(database *db.DB) Model {
	return Model{
		db:       database,
		tab:      model.StatusActive,
		viewMode: ViewList,
		counts:   map[model.Status]int{},
	}
}

// Messages
type rowsMsg struct {
	rows   []db.ItemWithDose
	counts map[model.Status]int
	err    error
}

type historyMsg struct {
	events []model.HistoryEvent
	err    error
}

type actionMsg struct {
	message string
	err     error
}

// loadRows re-queries the visible status tab and the per-status counts.
func (m Model) loadRows() tea.Cmd {
	tab := m.tab
	return func() tea.Msg {
		rows, err := m.db.ListByStatus(tab)
		if err != nil {
			return rowsMsg{err: err}
		}
		counts, err := m.db.StatusCounts()
		if err != nil {
			return rowsMsg{err: err}
		}
		return rowsMsg{rows: rows, counts: counts}
	}
}

// loadHistory loads the global audit feed.
func (m Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		events, err := m.db.GetHistory("", db.DefaultHistoryLimit)
		if err != nil {
			return historyMsg{err: err}
		}
		return historyMsg{events: events}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.loadRows()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Clear message on any key
		m.message = ""
		m.err = nil
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case rowsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rows = msg.rows
		m.counts = msg.counts
		if m.cursor >= len(m.rows) {
			m.cursor = max(0, len(m.rows)-1)
		}
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.history = msg.events
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.message = msg.message
		}
		return m, m.loadRows()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.viewMode {
	case ViewList:
		return m.handleListKey(msg)
	case ViewForm:
		return m.handleFormKey(msg)
	case ViewHistory:
		return m.handleHistoryKey(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case "g", "home":
		m.cursor = 0

	case "G", "end":
		m.cursor = max(0, len(m.rows)-1)

	// Status tabs
	case "1":
		return m.switchTab(model.StatusActive)
	case "2":
		return m.switchTab(model.StatusPaused)
	case "3":
		return m.switchTab(model.StatusStopped)

	// Actions
	case "a":
		m.viewMode = ViewForm
		m.form = newForm("", nil, nil)
		return m, nil

	case "enter", "e":
		if len(m.rows) == 0 {
			return m, nil
		}
		pair := m.rows[m.cursor]
		m.viewMode = ViewForm
		m.form = newForm(pair.Item.ID, &pair.Item, pair.Dose)
		return m, nil

	case "p":
		// Pause from the active tab, resume from anywhere else
		target := model.StatusPaused
		if m.tab != model.StatusActive {
			target = model.StatusActive
		}
		return m.requestStatus(target)

	case "s":
		return m.requestStatus(model.StatusStopped)

	case "D":
		return m.doDelete()

	case "H":
		m.viewMode = ViewHistory
		return m, m.loadHistory()

	case "r":
		return m, m.loadRows()
	}

	return m, nil
}

func (m Model) switchTab(status model.Status) (Model, tea.Cmd) {
	m.tab = status
	m.cursor = 0
	return m, m.loadRows()
}

// requestStatus issues one SetStatus call for the selected item.
func (m Model) requestStatus(status model.Status) (Model, tea.Cmd) {
	if len(m.rows) == 0 {
		return m, nil
	}
	item := m.rows[m.cursor].Item
	return m, func() tea.Msg {
		if err := m.db.SetStatus(item.ID, status); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: fmt.Sprintf("%s -> %s", item.NameDisplay, status)}
	}
}

func (m Model) doDelete() (Model, tea.Cmd) {
	if len(m.rows) == 0 {
		return m, nil
	}
	item := m.rows[m.cursor].Item
	return m, func() tea.Msg {
		if err := m.db.DeleteItem(item.ID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: fmt.Sprintf("Deleted %s", item.NameDisplay)}
	}
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "h", "backspace", "H":
		m.viewMode = ViewList
	case "r":
		return m, m.loadHistory()
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	switch m.viewMode {
	case ViewList:
		b.WriteString(m.listView())
	case ViewForm:
		b.WriteString(m.formView())
	case ViewHistory:
		b.WriteString(m.historyView())
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	} else if m.message != "" {
		b.WriteString("\n")
		b.WriteString(messageStyle.Render(m.message))
	}

	padStyle := lipgloss.NewStyle().
		PaddingLeft(contentPadding).
		PaddingRight(contentPadding).
		PaddingTop(1)

	return padStyle.Render(b.String())
}

func (m Model) listView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("supplements"))
	b.WriteString("  ")
	b.WriteString(m.tabsLine())
	b.WriteString("\n\n")

	width := m.width - contentPadding*2
	if width < 60 {
		width = 60
	}

	// Column layout: name gets whatever is left after the fixed columns
	catW, doseW, whenW, brandW := 10, 12, 14, 12
	nameW := width - catW - doseW - whenW - brandW - 8
	if nameW < 16 {
		nameW = 16
	}

	header := padTo("Name", nameW) + "  " + padTo("Cat", catW) + "  " +
		padTo("Dose", doseW) + "  " + padTo("When", whenW) + "  " + padTo("Brand", brandW)
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("No " + string(m.tab) + " items"))
		b.WriteString("\n")
	}

	for i, pair := range m.rows {
		row := format.ItemRow(pair.Item, pair.Dose)

		if i == m.cursor {
			line := padTo(row.Name, nameW) + "  " + padTo(row.Category, catW) + "  " +
				padTo(row.Dose, doseW) + "  " + padTo(row.Schedule, whenW) + "  " + padTo(row.Brand, brandW)
			b.WriteString(selectedRowStyle.Render(line))
		} else {
			catStyle := lipgloss.NewStyle().Foreground(categoryColors[pair.Item.Category])
			b.WriteString(padTo(row.Name, nameW) + "  " + catStyle.Render(padTo(row.Category, catW)) + "  " +
				padTo(row.Dose, doseW) + "  " + padTo(row.Schedule, whenW) + "  " + dimStyle.Render(padTo(row.Brand, brandW)))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("j/k:nav  a:add  enter:edit  p:pause/resume  s:stop  D:delete  H:history  1/2/3:tabs  q:quit"))
	return b.String()
}

func (m Model) tabsLine() string {
	tabs := []struct {
		key    string
		status model.Status
		label  string
	}{
		{"1", model.StatusActive, "Active"},
		{"2", model.StatusPaused, "Paused"},
		{"3", model.StatusStopped, "Stopped"},
	}

	var parts []string
	for _, t := range tabs {
		label := fmt.Sprintf("[%s] %s (%d)", t.key, t.label, m.counts[t.status])
		if t.status == m.tab {
			parts = append(parts, tabActiveStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) historyView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("history"))
	b.WriteString(fmt.Sprintf("  %d events", len(m.history)))
	b.WriteString("\n\n")

	height := m.height - 8
	if height < 10 {
		height = 20
	}

	if len(m.history) == 0 {
		b.WriteString(dimStyle.Render("No history yet"))
		b.WriteString("\n")
	}

	for i, ev := range m.history {
		if i >= height {
			b.WriteString(dimStyle.Render(fmt.Sprintf("… %d more", len(m.history)-i)))
			b.WriteString("\n")
			break
		}
		note := ""
		if ev.Note != nil {
			note = *ev.Note
		}
		line := fmt.Sprintf("%s  %-13s  %s",
			ev.TS.Format("2006-01-02 15:04:05"), ev.Action, note)
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("esc:back  r:reload  q:quit"))
	return b.String()
}

// padTo pads or truncates a plain string to the given display width.
func padTo(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		if width <= 1 {
			return string(runes[:width])
		}
		return string(runes[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(runes))
}

// --- add/edit form ---

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldCategory
	fieldToggle
)

type formField struct {
	label string
	kind  fieldKind
	text  string
	on    bool
}

// Field order in the form. Name and category first, like the original
// edit screen.
const (
	idxName = iota
	idxCategory
	idxBrand
	idxGeneric
	idxForm
	idxRoute
	idxAmount
	idxUnit
	idxAM
	idxMidday
	idxPM
	idxNotes
	fieldCount
)

var categoryOrder = []model.Category{
	model.CategorySupplement,
	model.CategoryRx,
	model.CategoryOTC,
}

type formState struct {
	itemID string // "" means create
	fields [fieldCount]formField
	focus  int
	errMsg string
}

// newForm builds the form state, seeded from an existing item for the edit
// flow or blank for the create flow.
func newForm(itemID string, item *model.Item, dose *model.Dose) formState {
	f := formState{itemID: itemID}
	f.fields[idxName] = formField{label: "Name", kind: fieldText}
	f.fields[idxCategory] = formField{label: "Category", kind: fieldCategory, text: string(model.CategorySupplement)}
	f.fields[idxBrand] = formField{label: "Brand", kind: fieldText}
	f.fields[idxGeneric] = formField{label: "Generic name", kind: fieldText}
	f.fields[idxForm] = formField{label: "Form", kind: fieldText}
	f.fields[idxRoute] = formField{label: "Route", kind: fieldText}
	f.fields[idxAmount] = formField{label: "Dose amount", kind: fieldText}
	f.fields[idxUnit] = formField{label: "Dose unit", kind: fieldText}
	f.fields[idxAM] = formField{label: "AM", kind: fieldToggle}
	f.fields[idxMidday] = formField{label: "Midday", kind: fieldToggle}
	f.fields[idxPM] = formField{label: "PM", kind: fieldToggle}
	f.fields[idxNotes] = formField{label: "Notes", kind: fieldText}

	if item != nil {
		f.fields[idxName].text = item.NameDisplay
		f.fields[idxCategory].text = string(item.Category)
		f.fields[idxBrand].text = deref(item.Brand)
		f.fields[idxGeneric].text = deref(item.NameGeneric)
		f.fields[idxForm].text = deref(item.Form)
		f.fields[idxRoute].text = deref(item.Route)
		f.fields[idxNotes].text = deref(item.Notes)
	}
	if dose != nil {
		if dose.Amount != nil {
			f.fields[idxAmount].text = format.Amount(*dose.Amount)
		}
		f.fields[idxUnit].text = deref(dose.Unit)
		f.fields[idxAM].on = dose.TimeAM
		f.fields[idxMidday].on = dose.TimeMidday
		f.fields[idxPM].on = dose.TimePM
	}
	return f
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.form

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.viewMode = ViewList
		return m, nil

	case "enter":
		return m.submitForm()

	case "tab", "down":
		f.focus = (f.focus + 1) % fieldCount
		return m, nil

	case "shift+tab", "up":
		f.focus = (f.focus + fieldCount - 1) % fieldCount
		return m, nil

	case "left", "right":
		if f.fields[f.focus].kind == fieldCategory {
			f.fields[f.focus].text = string(cycleCategory(model.Category(f.fields[f.focus].text), msg.String() == "right"))
		}
		return m, nil

	case "backspace":
		fld := &f.fields[f.focus]
		if fld.kind == fieldText && len(fld.text) > 0 {
			fld.text = fld.text[:len(fld.text)-1]
		}
		return m, nil

	case " ":
		fld := &f.fields[f.focus]
		switch fld.kind {
		case fieldToggle:
			fld.on = !fld.on
		case fieldText:
			fld.text += " "
		}
		return m, nil

	default:
		fld := &f.fields[f.focus]
		if fld.kind == fieldText && len(msg.Runes) > 0 {
			fld.text += string(msg.Runes)
		}
		return m, nil
	}
}

func cycleCategory(c model.Category, forward bool) model.Category {
	idx := 0
	for i, cat := range categoryOrder {
		if cat == c {
			idx = i
			break
		}
	}
	n := len(categoryOrder)
	if forward {
		return categoryOrder[(idx+1)%n]
	}
	return categoryOrder[(idx+n-1)%n]
}

// submitForm validates the form, builds the typed field payload, and issues
// exactly one repository call (create or update).
func (m Model) submitForm() (Model, tea.Cmd) {
	f := &m.form

	name := strings.TrimSpace(f.fields[idxName].text)
	if name == "" {
		f.errMsg = "Name is required."
		return m, nil
	}

	var amount *float64
	if raw := strings.TrimSpace(f.fields[idxAmount].text); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			f.errMsg = "Dose amount must be a number."
			return m, nil
		}
		amount = &v
	}

	fields := db.ItemFields{
		NameDisplay: name,
		Category:    model.Category(f.fields[idxCategory].text),
		Brand:       optional(f.fields[idxBrand].text),
		NameGeneric: optional(f.fields[idxGeneric].text),
		Form:        optional(f.fields[idxForm].text),
		Route:       optional(f.fields[idxRoute].text),
		Notes:       optional(f.fields[idxNotes].text),
		Amount:      amount,
		Unit:        optional(f.fields[idxUnit].text),
		TimeAM:      f.fields[idxAM].on,
		TimeMidday:  f.fields[idxMidday].on,
		TimePM:      f.fields[idxPM].on,
	}

	itemID := f.itemID
	m.viewMode = ViewList
	return m, func() tea.Msg {
		if itemID == "" {
			if _, err := m.db.CreateItem(fields); err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{message: "Added " + name}
		}
		if err := m.db.UpdateItem(itemID, fields); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: "Saved " + name}
	}
}

func (m Model) formView() string {
	var b strings.Builder

	title := "Add item"
	if m.form.itemID != "" {
		title = "Edit item"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	for i, fld := range m.form.fields {
		label := formLabelStyle.Render(padTo(fld.label, 14))

		var value string
		switch fld.kind {
		case fieldToggle:
			if fld.on {
				value = "[x]"
			} else {
				value = "[ ]"
			}
		case fieldCategory:
			value = "< " + fld.text + " >"
		default:
			value = fld.text
		}

		if i == m.form.focus {
			if fld.kind == fieldText {
				value += "█"
			}
			b.WriteString(label + " " + formFocusStyle.Render(value))
		} else {
			b.WriteString(label + " " + value)
		}
		b.WriteString("\n")
	}

	if m.form.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.form.errMsg))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab/↑↓:fields  space:toggle  ←→:category  enter:save  esc:cancel"))
	return b.String()
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
