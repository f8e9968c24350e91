package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	"github.com/MrJamesThe3rd/gastos/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/gastos/internal/attachment"
	"github.com/MrJamesThe3rd/gastos/internal/auth"
	"github.com/MrJamesThe3rd/gastos/internal/catalog"
	"github.com/MrJamesThe3rd/gastos/internal/config"
	"github.com/MrJamesThe3rd/gastos/internal/gasto"
	"github.com/MrJamesThe3rd/gastos/internal/graph"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
	"github.com/MrJamesThe3rd/gastos/internal/workspace"
)

type screen int

const (
	screenLogin screen = iota
	screenMenu
	screenView
)

type session struct {
	provider *auth.Provider
	refresh  *auth.RefreshCache
	cache    *sharepoint.Cache
	ws       *workspace.Workspace
	log      *slog.Logger
}

type model struct {
	session *session
	cols    workspace.Collections

	screen screen
	login  view.LoginModel
	active view.View

	width   int
	height  int
	account auth.Account
	pending int
	status  string
}

type menuEntry struct {
	label string
	open  func(m model) view.View
}

var menu = []menuEntry{
	{"Gastos", openGastos},
	{"Empresas", openEmpresas},
	{"Proyectos", openProyectos},
	{"Colaboradores", openColaboradores},
	{"Categorías", openCategorias},
	{"Tipos de documento", openTiposDocumento},
	{"Importar registro de compras", openImport},
	{"Exportar respaldos", openExport},
}

type readyMsg struct {
	err error
}

type pendingMsg struct {
	count int
	err   error
}

func newModel(s *session, login view.LoginFunc) model {
	return model{
		session: s,
		cols:    s.ws.Collections(s.log),
		login:   view.NewLoginModel(login),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.screen == screenMenu {
			return m.updateMenu(msg)
		}

		if m.screen == screenLogin && msg.String() == "q" {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case view.DeviceCodeMsg:
		if m.screen != screenLogin {
			// a second audience needs consent while the session is in use
			m.status = fmt.Sprintf("Autorice el acceso en %s con el código %s", msg.URI, msg.Code)
			return m, nil
		}

	case view.LoggedInMsg:
		m.account = msg.Account
		m.cols = m.session.ws.Collections(m.session.log)
		m.screen = screenMenu
		m.status = "Cargando listas..."

		return m, m.mountCmd()

	case readyMsg:
		m.status = ""
		if msg.err != nil {
			m.status = fmt.Sprintf("Algunas listas no se pudieron cargar: %v", msg.err)
		}

		return m, m.pendingCmd()

	case pendingMsg:
		if msg.err != nil {
			m.session.log.Warn("failed to read pending attachments", "error", msg.err)
			return m, nil
		}

		m.pending = msg.count

		return m, nil

	case view.BackMsg:
		m.screen = screenMenu
		m.active = nil

		return m, m.pendingCmd()
	}

	var cmd tea.Cmd

	switch m.screen {
	case screenLogin:
		var next tea.Model
		next, cmd = m.login.Update(msg)
		m.login = next.(view.LoginModel)
	case screenView:
		var next tea.Model
		next, cmd = m.active.Update(msg)
		m.active = next.(view.View)
	}

	return m, cmd
}

func (m model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "s":
		m.signOut()
		return m, nil
	}

	n, err := strconv.Atoi(msg.String())
	if err != nil || n < 1 || n > len(menu) {
		return m, nil
	}

	m.active = menu[n-1].open(m)
	if m.active == nil {
		return m, nil
	}

	m.screen = screenView
	m.status = ""

	cmds := []tea.Cmd{m.active.Init()}
	if m.width > 0 {
		size := tea.WindowSizeMsg{Width: m.width, Height: m.height}
		cmds = append(cmds, func() tea.Msg { return size })
	}

	return m, tea.Batch(cmds...)
}

func (m *model) signOut() {
	m.session.provider.SignOut()
	m.session.refresh.Clear()
	m.session.cache.Discard()

	m.session.log.Info("signed out", "account", m.account.Email)

	m.account = auth.Account{}
	m.pending = 0
	m.status = ""
	m.screen = screenLogin
	m.login = m.login.Reset()
}

func (m model) mountCmd() tea.Cmd {
	cols := m.cols

	return func() tea.Msg {
		ctx, cancel := view.RemoteCtx()
		defer cancel()

		return readyMsg{err: cols.MountAll(ctx)}
	}
}

func (m model) pendingCmd() tea.Cmd {
	store := m.session.ws.GastoStore

	return func() tea.Msg {
		ctx, cancel := view.RemoteCtx()
		defer cancel()

		sagas, err := store.Pending(ctx)

		return pendingMsg{count: len(sagas), err: err}
	}
}

func (m model) View() string {
	switch m.screen {
	case screenLogin:
		return m.login.View()
	case screenView:
		return m.viewActive()
	}

	return m.viewMenu()
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func (m model) viewMenu() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Gastos") + "  " + helpStyle.Render(m.account.Email) + "\n\n")

	for i, e := range menu {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, e.label)
	}

	sb.WriteString("\ns. Cerrar sesión\nq. Salir\n")

	if m.pending > 0 {
		sb.WriteString("\n" + statusStyle.Render(fmt.Sprintf("%d gastos con adjuntos pendientes de subir", m.pending)))
	}

	if m.status != "" {
		sb.WriteString("\n" + statusStyle.Render(m.status))
	}

	return lipgloss.NewStyle().Padding(2).Render(sb.String())
}

func (m model) viewActive() string {
	header := titleStyle.Render(m.active.Title())
	footer := helpStyle.Render(m.active.ShortHelp())

	if m.status != "" {
		footer += "\n" + statusStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.active.View(), footer)
}

func empresaNombre(cols workspace.Collections) func(id string) string {
	names := make(map[string]string)
	for _, e := range cols.Empresas.Snapshot().Items {
		names[e.ID] = e.RazonSocial
	}

	return func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}

		return id
	}
}

func openGastos(m model) view.View {
	empresa := empresaNombre(m.cols)
	opts := view.GastoOptions{
		Empresas:       m.cols.Empresas.Snapshot().Items,
		Categorias:     m.cols.Categorias.Snapshot().Items,
		TiposDocumento: m.cols.TiposDocumento.Snapshot().Items,
		Proyectos:      m.cols.Proyectos.Snapshot().Items,
	}

	return view.NewListModel("Gastos", m.cols.Gastos, []view.Column[gasto.Gasto]{
		{Title: "Fecha", Width: 12, Value: func(g gasto.Gasto) string { return view.FormatDate(g.Fecha) }},
		{Title: "Empresa", Width: 28, Value: func(g gasto.Gasto) string { return empresa(g.EmpresaID) }},
		{Title: "Documento", Width: 12, Value: func(g gasto.Gasto) string { return g.NumeroDocumento }},
		{Title: "Monto", Width: 14, Value: func(g gasto.Gasto) string { return view.FormatAmount(g.Monto) }},
		{Title: "Detalle", Width: 30, Value: func(g gasto.Gasto) string { return g.Detalle }},
		{Title: "Adj.", Width: 5, Value: func(g gasto.Gasto) string { return strconv.Itoa(len(g.ArchivosAdjuntos)) }},
	}, func() view.EntityForm[gasto.Gasto] { return view.NewGastoForm(opts) })
}

func openEmpresas(m model) view.View {
	return view.NewListModel("Empresas", m.cols.Empresas, []view.Column[catalog.Empresa]{
		{Title: "Razón social", Width: 36, Value: func(e catalog.Empresa) string { return e.RazonSocial }},
		{Title: "RUT", Width: 14, Value: func(e catalog.Empresa) string { return e.RUT }},
		{Title: "Categoría", Width: 16, Value: func(e catalog.Empresa) string { return string(e.Categoria) }},
		{Title: "Correo", Width: 28, Value: func(e catalog.Empresa) string { return e.CorreoElectronico }},
	}, view.NewEmpresaForm)
}

func openProyectos(m model) view.View {
	return view.NewListModel("Proyectos", m.cols.Proyectos, []view.Column[catalog.Proyecto]{
		{Title: "Nombre", Width: 40, Value: func(p catalog.Proyecto) string { return p.Nombre }},
		{Title: "Creado", Width: 12, Value: func(p catalog.Proyecto) string { return view.FormatDate(p.CreatedAt) }},
	}, view.NewProyectoForm)
}

func openColaboradores(m model) view.View {
	return view.NewListModel("Colaboradores", m.cols.Colaboradores, []view.Column[catalog.Colaborador]{
		{Title: "Nombre", Width: 28, Value: func(c catalog.Colaborador) string { return c.Nombre }},
		{Title: "Email", Width: 30, Value: func(c catalog.Colaborador) string { return c.Email }},
		{Title: "Cargo", Width: 20, Value: func(c catalog.Colaborador) string { return c.Cargo }},
	}, view.NewColaboradorForm)
}

func openCategorias(m model) view.View {
	return view.NewListModel("Categorías", m.cols.Categorias, []view.Column[catalog.Categoria]{
		{Title: "Nombre", Width: 30, Value: func(c catalog.Categoria) string { return c.Nombre }},
		{Title: "Color", Width: 12, Value: func(c catalog.Categoria) string { return c.Color }},
	}, view.NewCategoriaForm)
}

func openTiposDocumento(m model) view.View {
	return view.NewListModel("Tipos de documento", m.cols.TiposDocumento, []view.Column[catalog.TipoDocumento]{
		{Title: "Nombre", Width: 30, Value: func(t catalog.TipoDocumento) string { return t.Nombre }},
		{Title: "Impuestos", Width: 10, Value: func(t catalog.TipoDocumento) string {
			if !t.TieneImpuestos || !t.ValorImpuestos.Valid {
				return "No"
			}

			return t.ValorImpuestos.Decimal.String()
		}},
	}, nil)
}

func openImport(m model) view.View {
	return view.NewImportModel(m.session.ws.Import, m.cols.Categorias.Snapshot().Items, m.cols.Proyectos.Snapshot().Items)
}

func openExport(m model) view.View {
	if m.session.ws.Export == nil {
		return nil
	}

	return view.NewExportModel(m.session.ws.Export, m.cols.Proyectos.Snapshot().Items)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "failed to load .env:", err)
	}

	logFile, err := tea.LogToFile("gastos-tui.log", "gastos")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open log file:", err)
		os.Exit(1)
	}
	defer logFile.Close()

	log := slog.New(slog.NewTextHandler(logFile, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	settings, err := workspace.SettingsFromConfig(cfg)
	if err != nil {
		log.Error("invalid site url", "error", err)
		os.Exit(1)
	}

	journal, closer, err := workspace.OpenJournal(cfg, log)
	if err != nil {
		log.Error("failed to open attachment journal", "error", err)
		os.Exit(1)
	}
	defer closer.Close()

	var program *tea.Program

	prompt := func(resp *oauth2.DeviceAuthResponse) error {
		program.Send(view.DeviceCodeMsg{URI: resp.VerificationURI, Code: resp.UserCode})
		return nil
	}

	refresh := auth.NewRefreshCache()
	provider := auth.NewProvider(
		map[auth.Audience][]string{
			auth.AudienceGraph:      cfg.Auth.GraphScopes,
			auth.AudienceSharePoint: cfg.SharePointScopes(),
		},
		refresh,
		auth.NewDeviceCode(auth.AzureConfig(cfg.Auth.TenantID, cfg.Auth.ClientID, cfg.Auth.ClientSecret), prompt, refresh),
	)

	remote := graph.New(graph.Options{
		BaseURL:    cfg.SharePoint.GraphBaseURL,
		Tokens:     provider,
		HTTPClient: &http.Client{Timeout: cfg.SharePoint.Timeout},
		PageSize:   cfg.SharePoint.PageSize,
		UserAgent:  cfg.App.Name,
	})

	cache := sharepoint.NewCache()
	ws := workspace.New(remote, cache, provider, settings, attachment.NewTracker(journal, log), log)

	s := &session{provider: provider, refresh: refresh, cache: cache, ws: ws, log: log}

	login := func(ctx context.Context) (auth.Account, error) {
		acc, err := provider.Login(ctx)
		if err != nil {
			return auth.Account{}, err
		}

		log.Info("signed in", "account", acc.Email)

		if !cfg.SharePoint.StrictSchema {
			return acc, nil
		}

		if err := ws.ValidateSchemas(ctx); err != nil {
			provider.SignOut()
			refresh.Clear()
			cache.Discard()

			return auth.Account{}, fmt.Errorf("validating lists: %w", err)
		}

		return acc, nil
	}

	program = tea.NewProgram(newModel(s, login), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
