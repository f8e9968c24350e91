package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Timeframe is one of the export periods offered before choosing a folder.
type Timeframe int

const (
	TimeframeThisMonth Timeframe = iota
	TimeframeLastMonth
	TimeframeYearToDate
	TimeframeAll
	TimeframeCustom
)

var timeframes = []Timeframe{
	TimeframeThisMonth,
	TimeframeLastMonth,
	TimeframeYearToDate,
	TimeframeAll,
	TimeframeCustom,
}

func (t Timeframe) String() string {
	switch t {
	case TimeframeThisMonth:
		return "Este mes"
	case TimeframeLastMonth:
		return "Mes pasado"
	case TimeframeYearToDate:
		return "Año en curso"
	case TimeframeAll:
		return "Todo"
	case TimeframeCustom:
		return "Rango personalizado"
	}

	return "Desconocido"
}

// bounds returns the first and last day the period covers, as of now.
// Gasto dates are calendar days, so both ends are returned in UTC.
func (t Timeframe) bounds(now time.Time) (time.Time, time.Time) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	switch t {
	case TimeframeLastMonth:
		start := first.AddDate(0, -1, 0)
		return dayRange(start, first.AddDate(0, 0, -1))
	case TimeframeYearToDate:
		return dayRange(time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), now)
	default:
		return dayRange(first, now)
	}
}

func dayRange(start, end time.Time) (time.Time, time.Time) {
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)
}

// TimeframeSelectedMsg carries the chosen period. Start and End are zero when All is set.
type TimeframeSelectedMsg struct {
	Start time.Time
	End   time.Time
	All   bool
}

// TimeframePicker lets the user pick a listed period or type a custom range.
type TimeframePicker struct {
	cursor int
	custom bool

	inputs [2]textinput.Model
	focus  int

	now func() time.Time
	err error
}

func NewTimeframePicker() TimeframePicker {
	var inputs [2]textinput.Model

	for i, prompt := range []string{"Desde: ", "Hasta: "} {
		in := textinput.New()
		in.Placeholder = "AAAA-MM-DD"
		in.CharLimit = len(time.DateOnly)
		in.Width = 12
		in.Prompt = prompt
		inputs[i] = in
	}

	return TimeframePicker{inputs: inputs, now: time.Now}
}

func (m TimeframePicker) Init() tea.Cmd {
	return nil
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	key, isKey := msg.(tea.KeyMsg)

	switch {
	case isKey && !m.custom:
		return m.updateList(key)
	case isKey:
		return m.updateCustom(key)
	case m.custom:
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m TimeframePicker) updateList(msg tea.KeyMsg) (TimeframePicker, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		m.cursor = max(m.cursor-1, 0)
	case tea.KeyDown:
		m.cursor = min(m.cursor+1, len(timeframes)-1)
	case tea.KeyEnter:
		switch tf := timeframes[m.cursor]; tf {
		case TimeframeCustom:
			m.custom = true
			m.focus = 0
			cmd := m.inputs[0].Focus()

			return m, cmd
		case TimeframeAll:
			return m, selected(TimeframeSelectedMsg{All: true})
		default:
			start, end := tf.bounds(m.now())
			return m, selected(TimeframeSelectedMsg{Start: start, End: end})
		}
	}

	return m, nil
}

func (m TimeframePicker) updateCustom(msg tea.KeyMsg) (TimeframePicker, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		m.inputs[m.focus].Blur()
		m.focus = 1 - m.focus
		cmd := m.inputs[m.focus].Focus()

		return m, cmd
	case "esc":
		m.custom = false
		m.err = nil

		return m, nil
	case "enter":
		start, end, err := m.customRange()
		if err != nil {
			m.err = err
			return m, nil
		}

		m.err = nil

		return m, selected(TimeframeSelectedMsg{Start: start, End: end})
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)

	return m, cmd
}

func (m TimeframePicker) customRange() (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, strings.TrimSpace(m.inputs[0].Value()))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("fecha inicial inválida (AAAA-MM-DD)")
	}

	end, err := time.Parse(time.DateOnly, strings.TrimSpace(m.inputs[1].Value()))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("fecha final inválida (AAAA-MM-DD)")
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("la fecha final es anterior a la inicial")
	}

	start, end = dayRange(start, end)

	return start, end, nil
}

func selected(msg TimeframeSelectedMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func (m TimeframePicker) View() string {
	var b strings.Builder

	if m.custom {
		fmt.Fprintf(&b, "Rango personalizado:\n\n%s\n%s\n\n(Enter confirma, Tab cambia, Esc vuelve)",
			m.inputs[0].View(), m.inputs[1].View())
	} else {
		b.WriteString("Periodo:\n\n")

		for i, tf := range timeframes {
			cursor := " "
			if i == m.cursor {
				cursor = ">"
			}

			fmt.Fprintf(&b, "%s %s\n", cursor, tf)
		}

		b.WriteString("\n(Enter selecciona, Esc vuelve)")
	}

	if m.err != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(fmt.Sprintf("\n\nError: %v", m.err)))
	}

	return b.String()
}

// IsSelecting reports whether the list is shown rather than the custom range inputs.
func (m TimeframePicker) IsSelecting() bool {
	return !m.custom
}

func (m *TimeframePicker) Reset() {
	m.cursor = 0
	m.custom = false
	m.err = nil
	m.inputs[0].SetValue("")
	m.inputs[1].SetValue("")
}
