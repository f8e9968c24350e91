package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/gastos/internal/synced"
)

type listState int

const (
	listStateBrowse listState = iota
	listStateCreate
)

// Column renders one table column of an entity.
type Column[E any] struct {
	Title string
	Width int
	Value func(E) string
}

// EntityForm is a create form bound to its own draft.
type EntityForm[E any] interface {
	Form() *huh.Form
	Build() (E, error)
}

// ListModel shows a synchronised list as a table. It can reload, delete the
// selected row and, when a form is provided, create rows.
type ListModel[E synced.Entity, P any] struct {
	CommonModel
	title   string
	coll    *synced.Collection[E, P]
	columns []Column[E]
	newForm func() EntityForm[E]

	state         listState
	table         table.Model
	items         []E
	form          EntityForm[E]
	pendingDelete string

	loading bool
	err     error
	status  string
}

func NewListModel[E synced.Entity, P any](title string, coll *synced.Collection[E, P], columns []Column[E], newForm func() EntityForm[E]) ListModel[E, P] {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := ListModel[E, P]{
		title:   title,
		coll:    coll,
		columns: columns,
		newForm: newForm,
		table:   t,
	}
	m.refreshTable()

	return m
}

func (m ListModel[E, P]) Title() string { return m.title }

func (m ListModel[E, P]) ShortHelp() string {
	if m.state == listStateCreate {
		return "Navegar formulario | Esc: cancelar"
	}

	help := "Esc: volver | r: recargar | d: eliminar"
	if m.newForm != nil {
		help += " | n: nuevo"
	}

	return help
}

func (m ListModel[E, P]) Init() tea.Cmd {
	return m.mountCmd()
}

func (m ListModel[E, P]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case collectionMsg:
		if msg.title != m.title {
			return m, nil
		}

		m.loading = false
		m.err = msg.err
		m.status = msg.status

		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(max(msg.Height-10, 5))

		return m, nil
	}

	switch m.state {
	case listStateBrowse:
		return m.updateBrowse(msg)
	case listStateCreate:
		return m.updateCreate(msg)
	}

	return m, nil
}

func (m ListModel[E, P]) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		key := keyMsg.String()
		if key != "d" {
			m.pendingDelete = ""
		}

		switch key {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.reloadCmd()
		case "d":
			return m.delete()
		case "n":
			if m.newForm == nil {
				return m, nil
			}

			m.form = m.newForm()
			m.state = listStateCreate
			m.table.Blur()

			return m, m.form.Form().Init()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

// delete asks for a second press before removing the selected row.
func (m ListModel[E, P]) delete() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.items) {
		return m, nil
	}

	id := m.items[idx].EntityID()
	if m.pendingDelete != id {
		m.pendingDelete = id
		m.status = "Presiona d otra vez para eliminar la fila " + id

		return m, nil
	}

	m.pendingDelete = ""
	m.loading = true

	return m, m.deleteCmd(id)
}

func (m ListModel[E, P]) updateCreate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = listStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Form().Update(msg)
	if f, ok := form.(*huh.Form); ok && f.State == huh.StateAborted {
		m.state = listStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	if m.form.Form().State != huh.StateCompleted {
		return m, cmd
	}

	e, err := m.form.Build()

	m.state = listStateBrowse
	m.form = nil
	m.table.Focus()

	if err != nil {
		m.status = fmt.Sprintf("Error: %v", err)
		return m, nil
	}

	m.loading = true

	return m, m.createCmd(e)
}

func (m ListModel[E, P]) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Cargando " + m.title + "...")
	}

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	header := fmt.Sprintf("%s (%d filas)", activeStyle(m.title), len(m.items))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == listStateCreate && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(52).
			Render("Nuevo registro\n\n" + m.form.Form().View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		status := lipgloss.NewStyle().Faint(true).Render(m.status)
		if m.err != nil {
			status = errorStyle(m.status)
		}

		content = status + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *ListModel[E, P]) refreshTable() {
	snap := m.coll.Snapshot()
	m.items = snap.Items

	rows := make([]table.Row, 0, len(m.items))
	for _, item := range m.items {
		row := make(table.Row, len(m.columns))
		for i, c := range m.columns {
			row[i] = c.Value(item)
		}

		rows = append(rows, row)
	}

	m.table.SetRows(rows)
}

// Messages

type collectionMsg struct {
	title  string
	status string
	err    error
}

func (m ListModel[E, P]) mountCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := RemoteCtx()
		defer cancel()

		return collectionMsg{title: m.title, err: m.coll.Mount(ctx)}
	}
}

func (m ListModel[E, P]) reloadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := RemoteCtx()
		defer cancel()

		return collectionMsg{title: m.title, err: m.coll.Reload(ctx)}
	}
}

func (m ListModel[E, P]) createCmd(e E) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := RemoteCtx()
		defer cancel()

		created, err := m.coll.Create(ctx, e)
		if err != nil {
			return collectionMsg{title: m.title, err: err}
		}

		return collectionMsg{title: m.title, status: "Creado " + created.EntityID()}
	}
}

func (m ListModel[E, P]) deleteCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := RemoteCtx()
		defer cancel()

		if err := m.coll.Delete(ctx, id); err != nil {
			return collectionMsg{title: m.title, err: err}
		}

		return collectionMsg{title: m.title, status: "Eliminado " + id}
	}
}
