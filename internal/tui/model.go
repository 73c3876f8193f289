// Package tui is the terminal front end of the month view.
//
// All calendar behavior lives in view.Controller. Model only maps keys to
// view messages, runs the resulting effects as tea.Cmds and renders the
// controller's state with lipgloss.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"monthcal/internal/calendar"
	"monthcal/internal/model"
	"monthcal/internal/view"
)

const (
	fieldTitle = iota
	fieldDescription
	fieldStart
	fieldEnd
	fieldCount
)

var fieldLabels = [fieldCount]string{"Title", "Description", "Start", "End"}

// resultMsg carries the outcome of an executed effect back into Update.
type resultMsg struct {
	msg view.Msg
}

// Model is the bubbletea model of the month view.
type Model struct {
	ctx  context.Context
	ctrl *view.Controller

	selected      calendar.Date
	eventIdx      int
	confirmDelete bool

	inputs [fieldCount]textinput.Model
	focus  int

	width  int
	height int
}

// New builds a Model over ctrl. ctx bounds every store call.
func New(ctx context.Context, ctrl *view.Controller) *Model {
	m := &Model{
		ctx:      ctx,
		ctrl:     ctrl,
		selected: ctrl.Snapshot().Today,
	}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Cursor.SetMode(cursor.CursorStatic)
		m.inputs[i] = ti
	}
	m.inputs[fieldTitle].Placeholder = "What is happening?"
	m.inputs[fieldTitle].CharLimit = 200
	m.inputs[fieldDescription].Placeholder = "optional"
	m.inputs[fieldDescription].CharLimit = 1000
	m.inputs[fieldStart].Placeholder = "HH:MM"
	m.inputs[fieldStart].CharLimit = 5
	m.inputs[fieldEnd].Placeholder = "HH:MM"
	m.inputs[fieldEnd].CharLimit = 5
	return m
}

func (m *Model) Init() tea.Cmd {
	return m.dispatch(view.Refresh{})
}

func (m *Model) dispatch(msg view.Msg) tea.Cmd {
	return m.run(m.ctrl.Dispatch(msg))
}

// run turns effects into commands; each reports back as a resultMsg.
func (m *Model) run(effects []view.Effect) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(effects))
	for _, eff := range effects {
		eff := eff
		cmds = append(cmds, func() tea.Msg {
			return resultMsg{msg: m.ctrl.Execute(m.ctx, eff)}
		})
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case resultMsg:
		if msg.msg == nil {
			return m, nil
		}
		cmd := m.dispatch(msg.msg)
		if !m.ctrl.Form().IsOpen() {
			m.blurInputs()
		}
		m.clampEventIdx()
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.ctrl.Form().IsOpen() {
			return m.handleFormKeys(msg)
		}
		if m.confirmDelete {
			return m.handleDeleteKeys(msg)
		}
		return m.handleCalendarKeys(msg)
	}
	return m, nil
}

func (m *Model) handleCalendarKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "h", "pgup":
		return m, m.navigate(-1)
	case "l", "pgdown":
		return m, m.navigate(1)
	case "left":
		return m, m.moveSelection(-1)
	case "right":
		return m, m.moveSelection(1)
	case "up":
		return m, m.moveSelection(-calendar.DaysPerWeek)
	case "down":
		return m, m.moveSelection(calendar.DaysPerWeek)
	case "t":
		cmd := m.dispatch(view.GoToday{})
		m.selected = m.ctrl.Snapshot().Today
		m.eventIdx = 0
		return m, cmd
	case "n":
		cmd := m.dispatch(view.GoToday{})
		m.selected = m.ctrl.Snapshot().Today
		m.eventIdx = 0
		return m, tea.Batch(cmd, m.openForm(m.selected))
	case "enter":
		return m, m.openForm(m.selected)
	case "r":
		return m, m.dispatch(view.Refresh{})
	case "tab":
		if n := len(m.dayEvents(m.selected)); n > 0 {
			m.eventIdx = (m.eventIdx + 1) % n
		}
	case "shift+tab":
		if n := len(m.dayEvents(m.selected)); n > 0 {
			m.eventIdx = (m.eventIdx + n - 1) % n
		}
	case "x", "d":
		if _, ok := m.selectedEvent(); ok {
			m.confirmDelete = true
		}
	}
	return m, nil
}

func (m *Model) handleDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.confirmDelete = false
		ev, ok := m.selectedEvent()
		if !ok {
			return m, nil
		}
		id := ev.ID
		return m, func() tea.Msg {
			return resultMsg{msg: m.ctrl.Delete(m.ctx, id)}
		}
	case "n", "esc", "q":
		m.confirmDelete = false
	}
	return m, nil
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	submitting := m.ctrl.Form().Phase == view.FormSubmitting

	switch msg.String() {
	case "esc":
		m.ctrl.Dispatch(view.CloseForm{})
		if !m.ctrl.Form().IsOpen() {
			m.blurInputs()
		}
		return m, nil
	case "tab", "down":
		m.setFocus(m.focus + 1)
		return m, nil
	case "shift+tab", "up":
		m.setFocus(m.focus - 1)
		return m, nil
	case "ctrl+s":
		return m, m.submit()
	case "enter":
		if m.focus < fieldEnd {
			m.setFocus(m.focus + 1)
			return m, nil
		}
		return m, m.submit()
	}

	if submitting {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// submit copies the inputs into the draft and submits it.
func (m *Model) submit() tea.Cmd {
	if m.ctrl.Form().Phase == view.FormSubmitting {
		return nil
	}
	m.ctrl.Dispatch(view.SetTitle{Value: m.inputs[fieldTitle].Value()})
	m.ctrl.Dispatch(view.SetDescription{Value: m.inputs[fieldDescription].Value()})
	m.ctrl.Dispatch(view.SetStart{Value: m.inputs[fieldStart].Value()})
	m.ctrl.Dispatch(view.SetEnd{Value: m.inputs[fieldEnd].Value()})
	cmd := m.dispatch(view.Submit{})

	var ve *view.ValidationError
	if errors.As(m.ctrl.Form().Err, &ve) {
		m.setFocus(fieldFor(ve.Field))
	}
	return cmd
}

func fieldFor(name string) int {
	switch name {
	case "start":
		return fieldStart
	case "end":
		return fieldEnd
	default:
		return fieldTitle
	}
}

func (m *Model) openForm(d calendar.Date) tea.Cmd {
	cmd := m.dispatch(view.DayClicked{Date: d})
	f := m.ctrl.Form()
	m.inputs[fieldTitle].SetValue(f.Draft.Title)
	m.inputs[fieldDescription].SetValue(f.Draft.Description)
	m.inputs[fieldStart].SetValue(f.Draft.StartTimeOfDay)
	m.inputs[fieldEnd].SetValue(f.Draft.EndTimeOfDay)
	m.setFocus(fieldTitle)
	return cmd
}

func (m *Model) setFocus(i int) {
	m.focus = (i + fieldCount) % fieldCount
	for j := range m.inputs {
		if j == m.focus {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

func (m *Model) blurInputs() {
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
}

// navigate moves delta months and selects today if it is in the new
// month, otherwise the first of the month.
func (m *Model) navigate(delta int) tea.Cmd {
	cmd := m.dispatch(view.Navigate{Delta: delta})
	st := m.ctrl.Snapshot()
	if st.Month.Contains(st.Today) {
		m.selected = st.Today
	} else {
		m.selected = st.Month.First()
	}
	m.eventIdx = 0
	return cmd
}

// moveSelection moves the selected day; leaving the month navigates.
func (m *Model) moveSelection(days int) tea.Cmd {
	next := m.selected.AddDays(days)
	m.eventIdx = 0
	cur := m.ctrl.Snapshot().Month
	m.selected = next
	if cur.Contains(next) {
		return nil
	}
	target := next.MonthOf()
	return m.dispatch(view.Navigate{Delta: (target.Year-cur.Year)*12 + int(target.Month) - int(cur.Month)})
}

func (m *Model) dayEvents(d calendar.Date) []model.Event {
	for _, cell := range m.ctrl.Cells() {
		if cell.Date == d {
			return cell.Events
		}
	}
	return nil
}

func (m *Model) selectedEvent() (model.Event, bool) {
	events := m.dayEvents(m.selected)
	if m.eventIdx < 0 || m.eventIdx >= len(events) {
		return model.Event{}, false
	}
	return events[m.eventIdx], true
}

func (m *Model) clampEventIdx() {
	n := len(m.dayEvents(m.selected))
	if m.eventIdx >= n {
		m.eventIdx = n - 1
	}
	if m.eventIdx < 0 {
		m.eventIdx = 0
	}
}

func (m *Model) View() string {
	if m.ctrl.Form().IsOpen() {
		return appStyle.Render(m.renderForm())
	}

	st := m.ctrl.Snapshot()
	var b strings.Builder

	b.WriteString(monthHeaderStyle.Render(st.Month.String()))
	b.WriteString("\n")
	for _, label := range calendar.WeekdayLabels(st.WeekStart) {
		b.WriteString(weekdayStyle.Render(label))
	}
	b.WriteString("\n")
	for _, week := range st.Weeks() {
		for _, cell := range week {
			b.WriteString(m.renderCell(cell))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.renderDay())
	b.WriteString(renderStatus(st))
	b.WriteString(m.renderHelp())
	return appStyle.Render(b.String())
}

func (m *Model) renderCell(cell view.DayCell) string {
	content := fmt.Sprintf("%2d", cell.Date.Day)
	if n := len(cell.Events); n > 0 {
		content += fmt.Sprintf(" •%d", n)
	} else {
		content += "   "
	}

	switch {
	case cell.Date == m.selected:
		return selectedStyle.Render(content)
	case cell.IsToday:
		return todayStyle.Render(content)
	case !cell.IsCurrentMonth:
		return outsideStyle.Render(content)
	default:
		return dayStyle.Render(content)
	}
}

func longDate(d calendar.Date) string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format("Monday, January 2 2006")
}

func (m *Model) renderDay() string {
	var b strings.Builder
	b.WriteString(dateHeaderStyle.Render(longDate(m.selected)))
	b.WriteString("\n")

	events := m.dayEvents(m.selected)
	if len(events) == 0 {
		b.WriteString(noEventsStyle.Render("  no events"))
		b.WriteString("\n")
	}
	for i, ev := range events {
		prefix := "  "
		if i == m.eventIdx {
			prefix = pointerStyle.Render("▸ ")
		}
		b.WriteString(prefix + timeStyle.Render(view.TimeLabel(ev)) + ev.Title)
		b.WriteString("\n")
	}

	if m.confirmDelete {
		if ev, ok := m.selectedEvent(); ok {
			b.WriteString(errStyle.Render(fmt.Sprintf("Delete %q? y/n", ev.Title)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderStatus(st view.State) string {
	var rfe *view.RangeFetchError
	var de *view.DeleteError
	switch {
	case errors.As(st.Err, &rfe):
		return errStyle.Render("Could not load events: "+rfe.Err.Error()) + "\n"
	case errors.As(st.Err, &de):
		return errStyle.Render("Could not delete event: "+de.Err.Error()) + "\n"
	case st.Phase == view.Fetching:
		return statusStyle.Render("loading…") + "\n"
	}
	return ""
}

func (m *Model) renderHelp() string {
	keys := []struct{ key, desc string }{
		{"h/l", "month"},
		{"←↑↓→", "day"},
		{"t", "today"},
		{"enter", "new event"},
		{"tab", "select event"},
		{"x", "delete"},
		{"r", "refresh"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, keyStyle.Render(k.key)+" "+k.desc)
	}
	return helpStyle.Render(strings.Join(parts, "  "))
}

func (m *Model) renderForm() string {
	f := m.ctrl.Form()
	var b strings.Builder

	b.WriteString(formTitleStyle.Render("New event on " + longDate(f.Draft.Date)))
	b.WriteString("\n")
	for i := range m.inputs {
		label := labelStyle
		if i == m.focus {
			label = focusedLabel
		}
		b.WriteString(label.Render(fieldLabels[i]) + m.inputs[i].View())
		b.WriteString("\n")
	}

	if f.Err != nil {
		var ce *view.CreateError
		if errors.As(f.Err, &ce) {
			b.WriteString(errStyle.Render("Could not save: " + ce.Err.Error()))
		} else {
			b.WriteString(errStyle.Render(f.Err.Error()))
		}
		b.WriteString("\n")
	}
	if f.Phase == view.FormSubmitting {
		b.WriteString(statusStyle.Render("saving…"))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(keyStyle.Render("enter") + " next/save  " +
		keyStyle.Render("tab") + " field  " +
		keyStyle.Render("esc") + " cancel"))
	return b.String()
}
