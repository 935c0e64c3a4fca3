package main

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"
)

type screen int

const (
	screenLogin screen = iota
	screenDashboard
)

type tab int

const (
	tabTasks tab = iota
	tabChat
	tabNotifications
	tabCount
)

func (t tab) title() string {
	switch t {
	case tabTasks:
		return "Tasks"
	case tabChat:
		return "Chat"
	case tabNotifications:
		return "Notifications"
	}
	return ""
}

// Bubble Tea messages shared across the dashboard.
type (
	// sessionChangedMsg arrives whenever the session store mutates,
	// including a forced logout tripped by a 401 on any request.
	sessionChangedMsg struct{}

	dashboardLoadedMsg struct{ err error }
)

// tuiModel is the root Elm-style model: a login screen that hands off to a
// tabbed dashboard once the session is live.
type tuiModel struct {
	container *Container
	sessionCh <-chan struct{}

	screen    screen
	activeTab tab

	login  loginModel
	tasks  tasksModel
	chat   chatModel
	notifs notifsModel

	width  int
	height int
	ready  bool
}

func newTUIModel(container *Container, sessionCh <-chan struct{}) tuiModel {
	m := tuiModel{
		container: container,
		sessionCh: sessionCh,
		login:     newLoginModel(container),
		tasks:     newTasksModel(container),
		chat:      newChatModel(container),
		notifs:    newNotifsModel(container),
	}
	if container.Session.Snapshot().Authenticated() {
		m.screen = screenDashboard
	}
	return m
}

func (m tuiModel) Init() tea.Cmd {
	cmds := []tea.Cmd{listenSession(m.sessionCh), m.login.Init(), m.notifs.tick()}
	if m.screen == screenDashboard {
		cmds = append(cmds, loadDashboard(m.container), m.chat.Init())
	}
	return tea.Batch(cmds...)
}

// listenSession converts session store notifications into Bubble Tea
// messages. Re-issued after every delivery.
func listenSession(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return sessionChangedMsg{}
	}
}

// loadDashboard fetches tasks and notifications in parallel for the first
// paint after sign-in.
func loadDashboard(container *Container) tea.Cmd {
	return func() tea.Msg {
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() error { return container.Tasks.Fetch(ctx) })
		g.Go(func() error { return container.Notifications.Refresh(ctx) })
		return dashboardLoadedMsg{err: g.Wait()}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		contentHeight := m.height - 4 // header + tabs + help
		m.tasks.setSize(m.width, contentHeight)
		m.chat.setSize(m.width, contentHeight)
		m.notifs.setSize(m.width, contentHeight)
		return m, nil

	case sessionChangedMsg:
		snap := m.container.Session.Snapshot()
		switch {
		case snap.Authenticated() && m.screen == screenLogin:
			m.screen = screenDashboard
			m.activeTab = tabTasks
			m.chat.reload()
			return m, tea.Batch(listenSession(m.sessionCh), loadDashboard(m.container), m.chat.Init())
		case !snap.Authenticated() && m.screen == screenDashboard:
			// Forced logout or explicit sign-out: back to the login form.
			m.screen = screenLogin
			m.login = newLoginModel(m.container)
			m.login.notice = "Session expired, please sign in again."
			return m, tea.Batch(listenSession(m.sessionCh), m.login.Init())
		}
		return m, listenSession(m.sessionCh)

	case dashboardLoadedMsg:
		m.tasks.reload()
		m.notifs.reload()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.screen == screenDashboard {
			switch msg.Type {
			case tea.KeyTab:
				if !m.chat.typing() {
					m.activeTab = (m.activeTab + 1) % tabCount
					return m, nil
				}
			case tea.KeyShiftTab:
				if !m.chat.typing() {
					m.activeTab = (m.activeTab + tabCount - 1) % tabCount
					return m, nil
				}
			}
		}
	}

	// Store-result messages go to their owner regardless of the visible
	// tab; the notification tick keeps polling in the background.
	var cmd tea.Cmd
	switch msg.(type) {
	case authResultMsg:
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	case tasksUpdatedMsg:
		m.tasks, cmd = m.tasks.Update(msg)
		return m, cmd
	case chatTurnMsg:
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	case notifTickMsg, notifUpdatedMsg:
		m.notifs, cmd = m.notifs.Update(msg)
		return m, cmd
	}

	if m.screen == screenLogin {
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	}

	switch m.activeTab {
	case tabTasks:
		m.tasks, cmd = m.tasks.Update(msg)
	case tabChat:
		m.chat, cmd = m.chat.Update(msg)
	case tabNotifications:
		m.notifs, cmd = m.notifs.Update(msg)
	}
	return m, cmd
}

func (m tuiModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.screen == screenLogin {
		return m.login.View()
	}

	header := titleStyle.Render("taskpal")
	snap := m.container.Session.Snapshot()
	if snap.User.Email != "" {
		header += statusStyle.Render("  " + snap.User.Email)
	}

	var tabs []string
	for t := tab(0); t < tabCount; t++ {
		label := t.title()
		if t == tabNotifications {
			if unread := m.container.Notifications.Unread(); unread > 0 {
				label = pendingBadge.Render(label + " ●")
			}
		}
		if t == m.activeTab {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	var body string
	switch m.activeTab {
	case tabTasks:
		body = m.tasks.View()
	case tabChat:
		body = m.chat.View()
	case tabNotifications:
		body = m.notifs.View()
	}

	help := helpStyle.Render("tab: switch view • ctrl+c: quit")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		tabBar,
		strings.Repeat("─", max(m.width, 1)),
		body,
		help,
	)
}

// RunTUI starts the full-screen Bubble Tea interface.
func RunTUI(container *Container) error {
	sessionCh := make(chan struct{}, 1)
	container.Session.Subscribe(func() {
		select {
		case sessionCh <- struct{}{}:
		default:
		}
	})

	p := tea.NewProgram(
		newTUIModel(container, sessionCh),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
