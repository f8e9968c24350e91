package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/gastos/internal/auth"
)

// DeviceCodeMsg carries the code the user has to enter at URI to finish signing in.
type DeviceCodeMsg struct {
	URI  string
	Code string
}

// LoggedInMsg is sent once the account is signed in and the session is ready.
type LoggedInMsg struct {
	Account auth.Account
}

type loginFailedMsg struct {
	err error
}

// LoginFunc signs in interactively and prepares the session.
type LoginFunc func(ctx context.Context) (auth.Account, error)

type LoginModel struct {
	CommonModel
	login   LoginFunc
	spinner spinner.Model

	busy bool
	uri  string
	code string
	err  error
}

func NewLoginModel(login LoginFunc) LoginModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return LoginModel{login: login, spinner: s}
}

// Reset returns the model to its initial prompt, keeping the sign-in function.
func (m LoginModel) Reset() LoginModel {
	return NewLoginModel(m.login)
}

func (m LoginModel) Title() string { return "Iniciar sesión" }

func (m LoginModel) ShortHelp() string {
	if m.busy {
		return "Esperando autorización..."
	}

	return "Enter: iniciar sesión | q: salir"
}

func (m LoginModel) Init() tea.Cmd {
	return nil
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter && !m.busy {
			m.busy = true
			m.err = nil
			m.uri, m.code = "", ""

			return m, tea.Batch(m.spinner.Tick, m.loginCmd())
		}

	case DeviceCodeMsg:
		m.uri, m.code = msg.URI, msg.Code
		return m, nil

	case loginFailedMsg:
		m.busy = false
		m.err = msg.err

		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m LoginModel) loginCmd() tea.Cmd {
	return func() tea.Msg {
		acc, err := m.login(context.Background())
		if err != nil {
			return loginFailedMsg{err: err}
		}

		return LoggedInMsg{Account: acc}
	}
}

func (m LoginModel) View() string {
	style := lipgloss.NewStyle().Padding(2)

	switch {
	case m.err != nil && errors.Is(m.err, auth.ErrInteractionCancelled):
		return style.Render(errorStyle("Inicio de sesión cancelado.") + "\n\nEnter para reintentar.")
	case m.err != nil:
		return style.Render(errorStyle(fmt.Sprintf("Error: %v", m.err)) + "\n\nEnter para reintentar.")
	case m.busy && m.code != "":
		return style.Render(fmt.Sprintf("%s Abra %s e ingrese el código:\n\n    %s",
			m.spinner.View(), activeStyle(m.uri), activeStyle(m.code)))
	case m.busy:
		return style.Render(m.spinner.View() + " Conectando...")
	}

	return style.Render("Gastos\n\nPresione Enter para iniciar sesión con su cuenta de Microsoft.")
}
