package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/gastos/internal/catalog"
	"github.com/MrJamesThe3rd/gastos/internal/importer"
)

const importTimeout = 5 * time.Minute

type importState int

const (
	importStateSourceSelect importState = iota
	importStateOptions
	importStateFilePick
	importStateImporting
	importStateResult
)

type ImportModel struct {
	CommonModel
	importService *importer.Service
	categorias    []catalog.Categoria
	proyectos     []catalog.Proyecto

	state          importState
	filePicker     filepicker.Model
	selectedSource importer.Source
	sourceOptions  []importer.Source
	sourceCursor   int

	form *huh.Form
	opts *importer.Options

	result      importer.Result
	skippedList list.Model

	status string
	err    error
}

func NewImportModel(svc *importer.Service, categorias []catalog.Categoria, proyectos []catalog.Proyecto) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		importService: svc,
		categorias:    categorias,
		proyectos:     proyectos,
		filePicker:    fp,
		sourceOptions: []importer.Source{importer.SourceRCV},
		opts:          &importer.Options{},
	}
}

func (m ImportModel) Title() string { return "Importar registro de compras" }

func (m ImportModel) ShortHelp() string {
	if m.state == importStateResult {
		return "↑/↓: omitidos | Esc: volver"
	}

	return "Esc: volver | Enter: seleccionar"
}

func (m ImportModel) Init() tea.Cmd {
	return nil
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		switch m.state {
		case importStateSourceSelect:
			return m.updateSourceSelect(msg)
		case importStateResult:
			var cmd tea.Cmd
			m.skippedList, cmd = m.skippedList.Update(msg)

			return m, cmd
		}

	case importResultMsg:
		m.state = importStateResult
		m.result = msg.result

		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("Creados %d gastos y %d empresas, %d documentos omitidos.",
				len(msg.result.Created), msg.result.EmpresasCreated, len(msg.result.Skipped))
		}

		items := make([]list.Item, len(m.result.Skipped))
		for i, s := range m.result.Skipped {
			items[i] = skippedItem{skipped: s}
		}

		m.skippedList = list.New(items, skippedDelegate{}, 80, 15)
		m.skippedList.Title = "Omitidos"
		m.skippedList.SetShowStatusBar(false)
		m.skippedList.SetFilteringEnabled(false)
		m.skippedList.SetShowHelp(false)

		return m, nil
	}

	switch m.state {
	case importStateOptions:
		return m.updateOptions(msg)
	case importStateFilePick:
		return m.updateFilePick(msg)
	}

	return m, nil
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateOptions, importStateFilePick:
		m.state = importStateSourceSelect
		return m, nil
	case importStateResult:
		m.state = importStateSourceSelect
		m.err = nil
		m.status = ""

		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateSourceSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.sourceCursor > 0 {
			m.sourceCursor--
		}
	case tea.KeyDown:
		if m.sourceCursor < len(m.sourceOptions)-1 {
			m.sourceCursor++
		}
	case tea.KeyEnter:
		m.selectedSource = m.sourceOptions[m.sourceCursor]
		m.form = m.buildOptionsForm()
		m.state = importStateOptions

		return m, m.form.Init()
	}

	return m, nil
}

func (m ImportModel) buildOptionsForm() *huh.Form {
	categorias := make([]huh.Option[string], len(m.categorias))
	for i, c := range m.categorias {
		categorias[i] = huh.NewOption(c.Nombre, c.ID)
	}

	proyectos := []huh.Option[string]{huh.NewOption("(ninguno)", "")}
	for _, p := range m.proyectos {
		proyectos = append(proyectos, huh.NewOption(p.Nombre, p.ID))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("categoria").
				Title("Categoría de los gastos importados").
				Options(categorias...).
				Value(&m.opts.Categoria),
			huh.NewSelect[string]().
				Key("proyecto").
				Title("Proyecto").
				Options(proyectos...).
				Value(&m.opts.ProyectoID),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ImportModel) updateOptions(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = importStateFilePick

	return m, m.filePicker.Init()
}

func (m ImportModel) updateFilePick(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importando %s...", path)

		return m, m.importCmd(path, *m.opts)
	}

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateSourceSelect:
		return m.viewSourceSelect()
	case importStateOptions:
		return lipgloss.NewStyle().Padding(1).Render(m.form.View())
	case importStateFilePick:
		return m.viewFilePick()
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewSourceSelect() string {
	s := "Formato del registro:\n\n"

	for i, source := range m.sourceOptions {
		cursor := " "
		if i == m.sourceCursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, string(source))
	}

	return lipgloss.NewStyle().Padding(2).Render(s)
}

func (m ImportModel) viewFilePick() string {
	return lipgloss.NewStyle().Padding(1).Render(
		fmt.Sprintf("Archivo a importar (%s):\n\n%s", m.selectedSource, m.filePicker.View()),
	)
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)

	status := okStyle(m.status)
	if m.err != nil {
		status = errorStyle(m.status)
	}

	if len(m.result.Skipped) == 0 {
		return style.Render(status + "\n\n(Esc para volver)")
	}

	return style.Render(status + "\n\n" + m.skippedList.View() + "\n(Esc para volver)")
}

// Messages

type importResultMsg struct {
	result importer.Result
	err    error
}

func (m ImportModel) importCmd(path string, opts importer.Options) tea.Cmd {
	source := m.selectedSource

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := m.importService.Import(ctx, source, f, opts)

		return importResultMsg{result: result, err: err}
	}
}

// Skipped list item

type skippedItem struct {
	skipped importer.Skipped
}

func (i skippedItem) Title() string       { return "" }
func (i skippedItem) Description() string { return "" }
func (i skippedItem) FilterValue() string { return "" }

// Skipped list delegate

type skippedDelegate struct{}

func (d skippedDelegate) Height() int                             { return 1 }
func (d skippedDelegate) Spacing() int                            { return 0 }
func (d skippedDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d skippedDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(skippedItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	fmt.Fprintf(w, "%sFila %d  folio %s  %s", cursor, item.skipped.Line, item.skipped.Folio, item.skipped.Reason)
}
