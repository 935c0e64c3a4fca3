package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type authResultMsg struct{ err error }

// loginModel is the sign-in / sign-up form shown before the dashboard.
type loginModel struct {
	container *Container

	email    textinput.Model
	password textinput.Model
	confirm  textinput.Model
	focus    int

	registering bool
	submitting  bool
	notice      string
	errText     string
}

func newLoginModel(container *Container) loginModel {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email    > "
	email.CharLimit = 120
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password > "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	password.CharLimit = 120

	confirm := textinput.New()
	confirm.Placeholder = "repeat password"
	confirm.Prompt = "Confirm  > "
	confirm.EchoMode = textinput.EchoPassword
	confirm.EchoCharacter = '*'
	confirm.CharLimit = 120

	return loginModel{
		container: container,
		email:     email,
		password:  password,
		confirm:   confirm,
	}
}

func (m loginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m loginModel) fieldCount() int {
	if m.registering {
		return 3
	}
	return 2
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyTab, tea.KeyDown:
			m.setFocus((m.focus + 1) % m.fieldCount())
			return m, nil
		case tea.KeyShiftTab, tea.KeyUp:
			m.setFocus((m.focus + m.fieldCount() - 1) % m.fieldCount())
			return m, nil
		case tea.KeyCtrlR:
			m.registering = !m.registering
			m.errText = ""
			m.setFocus(0)
			return m, nil
		case tea.KeyEnter:
			if m.focus < m.fieldCount()-1 {
				m.setFocus(m.focus + 1)
				return m, nil
			}
			return m.submit()
		}

	case authResultMsg:
		m.submitting = false
		if msg.err != nil {
			// The session store keeps the surfaced message; prefer it.
			if stored := m.container.Session.Snapshot().Err; stored != "" {
				m.errText = stored
			} else {
				m.errText = msg.err.Error()
			}
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.email, cmd = m.email.Update(msg)
	cmds = append(cmds, cmd)
	m.password, cmd = m.password.Update(msg)
	cmds = append(cmds, cmd)
	if m.registering {
		m.confirm, cmd = m.confirm.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *loginModel) setFocus(i int) {
	m.focus = i
	inputs := []*textinput.Model{&m.email, &m.password, &m.confirm}
	for idx, input := range inputs {
		if idx == i {
			input.Focus()
		} else {
			input.Blur()
		}
	}
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()

	if m.registering && password != m.confirm.Value() {
		m.errText = "passwords do not match"
		return m, nil
	}

	m.submitting = true
	m.errText = ""
	container := m.container
	registering := m.registering
	return m, func() tea.Msg {
		ctx := context.Background()
		if registering {
			if err := container.Session.Register(ctx, email, password); err != nil {
				return authResultMsg{err: err}
			}
		}
		return authResultMsg{err: container.Session.Login(ctx, email, password)}
	}
}

func (m loginModel) View() string {
	var b strings.Builder

	heading := "Sign in"
	if m.registering {
		heading = "Create account"
	}
	b.WriteString(titleStyle.Render("taskpal — " + heading))
	b.WriteString("\n\n")

	if m.notice != "" {
		b.WriteString(pendingBadge.Render(m.notice))
		b.WriteString("\n\n")
	}

	b.WriteString(m.email.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n")
	if m.registering {
		b.WriteString(m.confirm.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.submitting:
		b.WriteString(statusStyle.Render("Signing in..."))
	case m.errText != "":
		b.WriteString(errStyle.Render(fmt.Sprintf("✗ %s", m.errText)))
	}
	b.WriteString("\n\n")

	toggle := "ctrl+r: create an account instead"
	if m.registering {
		toggle = "ctrl+r: back to sign in"
	}
	b.WriteString(helpStyle.Render("enter: submit • " + toggle + " • ctrl+c: quit"))

	return b.String()
}
